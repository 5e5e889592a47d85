package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

// MissingFileError reports a symbol whose data file is absent.
type MissingFileError struct {
	Key  string
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("store: no data file for %s at %s", e.Key, e.Path)
}

var dateLayouts = []string{time.DateOnly, "2006/01/02"}

// Store loads per-symbol CSV histories from a data directory and keeps
// the parsed series in memory. Loaded series are read-only, so a
// single store is shared across requests.
type Store struct {
	dataDir  string
	snapshot *snapshotCache

	mu     sync.RWMutex
	series map[string]*Series
}

// Option configures optional store behaviour.
type Option func(*Store)

// WithSnapshotDir enables the msgpack snapshot cache under dir.
func WithSnapshotDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.snapshot = newSnapshotCache(dir)
		}
	}
}

// New constructs a store rooted at dataDir.
func New(dataDir string, opts ...Option) *Store {
	s := &Store{
		dataDir: dataDir,
		series:  make(map[string]*Series),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Series returns the history for key, loading and caching it on first
// use. A missing file is reported as *MissingFileError.
func (s *Store) Series(key string) (*Series, error) {
	s.mu.RLock()
	cached, ok := s.series[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	path := filepath.Join(s.dataDir, key+".csv")
	info, err := os.Stat(path)
	if err != nil {
		return nil, &MissingFileError{Key: key, Path: path}
	}

	if s.snapshot != nil {
		if series, ok := s.snapshot.load(key, info.ModTime()); ok {
			s.remember(key, series)
			return series, nil
		}
	}

	series, err := s.loadCSV(key, path)
	if err != nil {
		return nil, err
	}

	if s.snapshot != nil {
		if err := s.snapshot.save(series); err != nil {
			logx.Errorf("store: write snapshot for %s: %v", key, err)
		}
	}

	s.remember(key, series)
	return series, nil
}

func (s *Store) remember(key string, series *Series) {
	s.mu.Lock()
	s.series[key] = series
	s.mu.Unlock()
}

func (s *Store) loadCSV(key, path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()
	return parseCSV(key, f)
}

// parseCSV decodes one price history. The header is matched
// case-insensitively; rows with an unparseable date or close are
// skipped, duplicate dates keep the last row, and the result is
// sorted ascending by date.
func parseCSV(key string, r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("store: read header for %s: %w", key, err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	dateIdx, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("store: %s: missing Date column", key)
	}
	closeIdx, ok := cols["close"]
	if !ok {
		return nil, fmt.Errorf("store: %s: missing Close column", key)
	}

	byDate := map[time.Time]Record{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("store: read %s: %w", key, err)
		}
		if dateIdx >= len(row) || closeIdx >= len(row) {
			continue
		}

		date, ok := parseDate(row[dateIdx])
		if !ok {
			continue
		}
		closePx, err := strconv.ParseFloat(strings.TrimSpace(row[closeIdx]), 64)
		if err != nil {
			continue
		}

		rec := Record{Date: date, Close: closePx}
		rec.Open = floatColumn(row, cols, "open")
		rec.High = floatColumn(row, cols, "high")
		rec.Low = floatColumn(row, cols, "low")
		rec.Volume = intColumn(row, cols, "volume")
		byDate[date] = rec
	}

	records := make([]Record, 0, len(byDate))
	for _, rec := range byDate {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	return &Series{Key: key, Records: records}, nil
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	// yfinance exports sometimes carry a time suffix.
	if len(raw) > len(time.DateOnly) {
		raw = raw[:len(time.DateOnly)]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func floatColumn(row []string, cols map[string]int, name string) *float64 {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil {
		return nil
	}
	return &v
}

func intColumn(row []string, cols map[string]int, name string) *int64 {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(row[idx]), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
