package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, key, content string) string {
	t.Helper()
	path := filepath.Join(dir, key+".csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

func TestSeriesLoad(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "TSM", strings.Join([]string{
		"Date,Open,High,Low,Close,Adj Close,Volume",
		"2023-07-04,101.0,103.0,100.5,102.00,102.00,1200",
		"2023-07-03,99.0,101.0,98.5,100.00,100.00,1000",
		"not-a-date,1,1,1,1,1,1",
		"2023-07-05,102.0,104.0,101.0,bad,103.00,900",
	}, "\n"))

	st := New(dir)
	series, err := st.Series("TSM")
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())

	// Sorted ascending despite file order; bad rows skipped.
	require.Equal(t, day(t, "2023-07-03"), series.Records[0].Date)
	require.Equal(t, 100.00, series.Records[0].Close)
	require.Equal(t, day(t, "2023-07-04"), series.Records[1].Date)
	require.NotNil(t, series.Records[1].Volume)
	require.EqualValues(t, 1200, *series.Records[1].Volume)
}

func TestSeriesLoadDuplicateDatesKeepLast(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "TSM", strings.Join([]string{
		"Date,Close",
		"2023-07-03,100.00",
		"2023-07-03,101.50",
	}, "\n"))

	series, err := New(dir).Series("TSM")
	require.NoError(t, err)
	require.Equal(t, 1, series.Len())
	require.Equal(t, 101.50, series.Records[0].Close)
}

func TestSeriesLoadSlashDates(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "CHT", "Date,Close\n2023/07/03,42.00\n")

	series, err := New(dir).Series("CHT")
	require.NoError(t, err)
	require.Equal(t, 1, series.Len())
	require.Equal(t, day(t, "2023-07-03"), series.Records[0].Date)
}

func TestSeriesMissingFile(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Series("NOPE")
	var missing *MissingFileError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "NOPE", missing.Key)
}

func TestSeriesMissingColumns(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "A", "Date,Open\n2023-07-03,1.0\n")
	_, err := New(dir).Series("A")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Close")

	writeCSV(t, dir, "B", "Open,Close\n1.0,2.0\n")
	_, err = New(dir).Series("B")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Date")
}

func TestSeriesCachedAfterFirstLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "TSM", "Date,Close\n2023-07-03,100.00\n")

	st := New(dir)
	first, err := st.Series("TSM")
	require.NoError(t, err)

	// Removing the file must not disturb the cached series.
	require.NoError(t, os.Remove(path))
	second, err := st.Series("TSM")
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	snapDir := filepath.Join(dir, "snap")
	writeCSV(t, dir, "TSM", "Date,Close\n2023-07-03,100.00\n2023-07-04,102.00\n")

	first, err := New(dir, WithSnapshotDir(snapDir)).Series("TSM")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(snapDir, "TSM.snap"))

	// A fresh store with the same snapshot dir must reproduce the series.
	second, err := New(dir, WithSnapshotDir(snapDir)).Series("TSM")
	require.NoError(t, err)
	require.Equal(t, first.Records, second.Records)

	// Decoded timestamps must come back in UTC; a host-zone date would
	// format as the wrong calendar day.
	for _, rec := range second.Records {
		require.Equal(t, time.UTC, rec.Date.Location())
	}
}

func TestSnapshotIgnoredWhenStale(t *testing.T) {
	dir := t.TempDir()
	snapDir := filepath.Join(dir, "snap")
	path := writeCSV(t, dir, "TSM", "Date,Close\n2023-07-03,100.00\n")

	_, err := New(dir, WithSnapshotDir(snapDir)).Series("TSM")
	require.NoError(t, err)

	// Rewrite the CSV with a newer mtime; the stale snapshot must lose.
	require.NoError(t, os.WriteFile(path, []byte("Date,Close\n2023-07-03,100.00\n2023-07-04,102.00\n"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	series, err := New(dir, WithSnapshotDir(snapDir)).Series("TSM")
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
}

func TestSeriesLookups(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "TSM", strings.Join([]string{
		"Date,Close",
		"2023-07-03,100.00",
		"2023-07-04,102.00",
		"2023-07-07,104.00",
	}, "\n"))
	series, err := New(dir).Series("TSM")
	require.NoError(t, err)

	rec, ok := series.At(day(t, "2023-07-04"))
	require.True(t, ok)
	require.Equal(t, 102.00, rec.Close)

	_, ok = series.At(day(t, "2023-07-05"))
	require.False(t, ok)

	rec, ok = series.OnOrBefore(day(t, "2023-07-06"))
	require.True(t, ok)
	require.Equal(t, 102.00, rec.Close)

	_, ok = series.OnOrBefore(day(t, "2023-07-02"))
	require.False(t, ok)

	between := series.Between(day(t, "2023-07-04"), day(t, "2023-07-07"))
	require.Len(t, between, 2)
	// Reversed bounds behave the same.
	require.Equal(t, between, series.Between(day(t, "2023-07-07"), day(t, "2023-07-04")))

	require.Len(t, series.Tail(2), 2)
	require.Len(t, series.Tail(10), 3)
}

func TestAliasTable(t *testing.T) {
	table := NewAliasTable(map[string]string{
		"台積電": "TSM",
		"聯發科": "2454.TW",
	})

	key, ok := table.Resolve("台積電")
	require.True(t, ok)
	require.Equal(t, "TSM", key)

	// Canonical keys resolve to themselves, case-insensitively.
	key, ok = table.Resolve("tsm")
	require.True(t, ok)
	require.Equal(t, "TSM", key)

	key, ok = table.Resolve("2454.tw")
	require.True(t, ok)
	require.Equal(t, "2454.TW", key)

	_, ok = table.Resolve("特斯拉")
	require.False(t, ok)

	require.Equal(t, []string{"台積電", "聯發科"}, table.Names())
}

func TestLoadAliasTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "symbols.yaml")
	require.NoError(t, os.WriteFile(path, []byte("台積電: TSM\n鴻海: HNHPF\n"), 0o644))

	table, err := LoadAliasTable(path)
	require.NoError(t, err)
	key, ok := table.Resolve("鴻海")
	require.True(t, ok)
	require.Equal(t, "HNHPF", key)

	_, err = LoadAliasTable(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
