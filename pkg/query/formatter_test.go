package query

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stockbot-api/pkg/command"
	"stockbot-api/pkg/store"
)

func TestFormatPoint(t *testing.T) {
	f := NewFormatter(0)
	text := f.Format(&Result{
		Kind: command.KindPointLookup,
		Point: &PointResult{
			Symbol:    sym("台積電", "TSM"),
			Requested: mustDay(t, "2023-07-03"),
			Record:    store.Record{Date: mustDay(t, "2023-07-03"), Close: 100.0},
		},
	})
	require.Equal(t, "台積電 2023-07-03 收盤價：100.00", text)
}

// Spec example: TSM.csv holding 100.00 and 102.00 averages to 101.00.
func TestFormatAverageSpecExample(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "TSM.csv"),
		[]byte("Date,Close\n2023-07-03,100.00\n2023-07-04,102.00\n"), 0o644))

	r := NewResolver(store.New(dir), PolicyExact)
	res, err := r.Resolve(context.Background(), &command.Query{
		Kind: command.KindAverage, Symbol: sym("台積電", "TSM"),
	})
	require.NoError(t, err)

	text := NewFormatter(0).Format(res)
	require.Contains(t, text, "平均收盤價：101.00")
}

func TestFormatRangeAverage(t *testing.T) {
	text := NewFormatter(0).Format(&Result{
		Kind: command.KindAverage,
		Mean: &MeanResult{
			Symbol:   sym("台積電", "TSM"),
			Mean:     101.005,
			Count:    2,
			Start:    mustDay(t, "2023-01-01"),
			End:      mustDay(t, "2023-06-30"),
			HasRange: true,
		},
	})
	require.Equal(t, "台積電 2023-01-01~2023-06-30 平均收盤價：101.00", text)
}

func TestFormatRecentAverage(t *testing.T) {
	text := NewFormatter(0).Format(&Result{
		Kind: command.KindRecentAverage,
		Mean: &MeanResult{Symbol: sym("台積電", "TSM"), Mean: 99.5, Count: 10, Days: 10},
	})
	require.Equal(t, "台積電 最近10天平均收盤價：99.50", text)
}

func TestFormatExtreme(t *testing.T) {
	text := NewFormatter(0).Format(&Result{
		Kind: command.KindExtreme,
		Extreme: &ExtremeResult{
			Symbol: sym("台積電", "TSM"),
			Kind:   command.ExtremeHigh,
			Record: store.Record{Date: mustDay(t, "2023-07-04"), Close: 102.0},
		},
	})
	require.Equal(t, "台積電 歷史最高價：102.00（2023-07-04）", text)
}

func TestFormatMultiJoinsLines(t *testing.T) {
	rec := store.Record{Date: mustDay(t, "2023-07-03"), Close: 100.0}
	text := NewFormatter(0).Format(&Result{
		Kind: command.KindMultiPointLookup,
		Multi: []PointOutcome{
			{Symbol: sym("台積電", "TSM"), Record: &rec},
			{Symbol: sym("鴻海", "HNHPF"), Err: &NoDataError{Alias: "鴻海", Date: mustDay(t, "2023-07-03")}},
			{Symbol: sym("聯發科", "2454.TW"), Err: &store.MissingFileError{Key: "2454.TW"}},
			{Symbol: command.Symbol{Alias: "特斯拉"}, Err: &command.UnknownSymbolError{Input: "特斯拉"}},
		},
	})
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "台積電 2023-07-03 收盤價：100.00", lines[0])
	require.Contains(t, lines[1], "⚠ 找不到 鴻海 2023-07-03 的股價紀錄")
	require.Contains(t, lines[2], "⚠ 找不到 聯發科 的資料檔")
	require.Equal(t, "⚠ 找不到「特斯拉」", lines[3])
}

func TestFormatErrors(t *testing.T) {
	f := NewFormatter(0)

	text := f.FormatError(&command.UnknownSymbolError{Input: "特斯拉", Known: []string{"台積電", "鴻海"}})
	require.True(t, strings.HasPrefix(text, "⚠ "))
	require.Contains(t, text, "特斯拉")
	require.Contains(t, text, "台積電、鴻海")

	require.Equal(t, "⚠ 指令格式錯誤，輸入「幫助」查看說明",
		f.FormatError(&command.MalformedError{Text: "台積電 xxx"}))

	require.Contains(t, f.FormatError(&store.MissingFileError{Key: "TSM"}), "TSM")

	require.Contains(t, f.FormatError(&NoDataError{Alias: "台積電", Date: mustDay(t, "2023-07-05")}),
		"2023-07-05")

	require.Equal(t, "⚠ AI 服務暫時無法回應，請稍後再試",
		f.FormatError(&UpstreamAIError{Err: errors.New("boom")}))

	require.Equal(t, "⚠ 系統發生錯誤，請稍後再試",
		f.FormatError(errors.New("anything else")))
}

func TestTruncate(t *testing.T) {
	f := NewFormatter(20)

	short := "短訊息"
	require.Equal(t, short, f.Truncate(short))

	long := strings.Repeat("股", 50)
	out := f.Truncate(long)
	require.True(t, strings.HasSuffix(out, "…(訊息過長，已截斷)"))
	require.LessOrEqual(t, len([]rune(out)), 20)
}

func TestHelpText(t *testing.T) {
	text := NewFormatter(0).HelpText()
	require.Contains(t, text, "台積電 平均")
	require.Contains(t, text, "幫助")
}

func TestFormatAIReply(t *testing.T) {
	f := NewFormatter(0)
	require.Equal(t, "你好", f.FormatAIReply("  你好\n"))
}

func TestUpstreamAIErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("timeout")
	err := &UpstreamAIError{Err: inner}
	require.ErrorIs(t, err, inner)
}
