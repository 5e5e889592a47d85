package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockbot-api/pkg/store"
)

func testParser() *Parser {
	return NewParser(store.NewAliasTable(map[string]string{
		"台積電": "TSM",
		"鴻海":  "HNHPF",
		"聯發科": "2454.TW",
	}))
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

func TestParseHelp(t *testing.T) {
	p := testParser()
	for _, text := range []string{"幫助", "help", "HELP", "說明", "  幫助  "} {
		q, err := p.Parse(text)
		require.NoError(t, err, text)
		require.Equal(t, KindHelp, q.Kind, text)
	}
}

func TestParsePointLookup(t *testing.T) {
	q, err := testParser().Parse("台積電 2023-07-03")
	require.NoError(t, err)
	require.Equal(t, KindPointLookup, q.Kind)
	require.Equal(t, Symbol{Alias: "台積電", Key: "TSM"}, q.Symbol)
	require.Equal(t, mustDay(t, "2023-07-03"), q.Date)
}

func TestParsePointLookupByTicker(t *testing.T) {
	q, err := testParser().Parse("tsm 2023-07-03")
	require.NoError(t, err)
	require.Equal(t, KindPointLookup, q.Kind)
	require.Equal(t, "TSM", q.Symbol.Key)
}

func TestParseMultiPointLookup(t *testing.T) {
	q, err := testParser().Parse("台積電 鴻海 聯發科 2023-07-03")
	require.NoError(t, err)
	require.Equal(t, KindMultiPointLookup, q.Kind)
	require.Len(t, q.Symbols, 3)
	require.Equal(t, "HNHPF", q.Symbols[1].Key)
	require.Equal(t, mustDay(t, "2023-07-03"), q.Date)
}

func TestParseMultiPointUnknownSymbolKeptInBatch(t *testing.T) {
	q, err := testParser().Parse("台積電 特斯拉 2023-07-03")
	require.NoError(t, err)
	require.Equal(t, KindMultiPointLookup, q.Kind)
	require.Len(t, q.Symbols, 2)
	require.Equal(t, "TSM", q.Symbols[0].Key)

	// The unresolvable token stays in the batch with an empty key.
	require.Equal(t, "特斯拉", q.Symbols[1].Alias)
	require.Empty(t, q.Symbols[1].Key)
}

func TestParseSinglePointUnknownSymbol(t *testing.T) {
	_, err := testParser().Parse("特斯拉 2023-07-03")
	var unknown *UnknownSymbolError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "特斯拉", unknown.Input)
	require.Contains(t, unknown.Known, "台積電")
}

func TestParseAverage(t *testing.T) {
	q, err := testParser().Parse("台積電 平均")
	require.NoError(t, err)
	require.Equal(t, KindAverage, q.Kind)
	require.False(t, q.HasRange)
}

func TestParseAverageRange(t *testing.T) {
	q, err := testParser().Parse("台積電 平均 2023-01-01 2023-06-30")
	require.NoError(t, err)
	require.Equal(t, KindAverage, q.Kind)
	require.True(t, q.HasRange)
	require.Equal(t, mustDay(t, "2023-01-01"), q.Start)
	require.Equal(t, mustDay(t, "2023-06-30"), q.End)
}

func TestParseAverageRangeSwapsReversedBounds(t *testing.T) {
	q, err := testParser().Parse("台積電 平均 2023-06-30 2023-01-01")
	require.NoError(t, err)
	require.Equal(t, mustDay(t, "2023-01-01"), q.Start)
	require.Equal(t, mustDay(t, "2023-06-30"), q.End)
}

// The range shape ends in a date token; it must not be swallowed by
// the dated-lookup gate.
func TestParseAverageRangeBeatsDatedLookup(t *testing.T) {
	q, err := testParser().Parse("台積電 平均 2023-01-01 2023-06-30")
	require.NoError(t, err)
	require.Equal(t, KindAverage, q.Kind)
	require.NotEqual(t, KindMultiPointLookup, q.Kind)
}

func TestParseAverageWithSingleDateIsMultiLookup(t *testing.T) {
	// Three tokens ending in a date: 平均 is read as a (unknown) symbol.
	q, err := testParser().Parse("台積電 平均 2023-01-01")
	require.NoError(t, err)
	require.Equal(t, KindMultiPointLookup, q.Kind)
	require.Len(t, q.Symbols, 2)
	require.Empty(t, q.Symbols[1].Key)
}

func TestParseRecentAverage(t *testing.T) {
	q, err := testParser().Parse("台積電 最近10天")
	require.NoError(t, err)
	require.Equal(t, KindRecentAverage, q.Kind)
	require.Equal(t, 10, q.Days)
}

func TestParseRecentAverageZeroDays(t *testing.T) {
	_, err := testParser().Parse("台積電 最近0天")
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
}

func TestParseExtreme(t *testing.T) {
	q, err := testParser().Parse("台積電 最高")
	require.NoError(t, err)
	require.Equal(t, KindExtreme, q.Kind)
	require.Equal(t, ExtremeHigh, q.Extreme)

	q, err = testParser().Parse("台積電 最低")
	require.NoError(t, err)
	require.Equal(t, ExtremeLow, q.Extreme)
}

func TestParseMalformed(t *testing.T) {
	for _, text := range []string{
		"台積電 漲了嗎",
		"台積電 平均 2023-01-01 yesterday",
		"台積電",
	} {
		_, err := testParser().Parse(text)
		var malformed *MalformedError
		require.ErrorAs(t, err, &malformed, text)
	}
}

func TestParseAIFallback(t *testing.T) {
	for _, text := range []string{
		"今天天氣如何",
		"tell me about TSMC earnings",
		"",
	} {
		q, err := testParser().Parse(text)
		require.NoError(t, err, text)
		require.Equal(t, KindAIFallback, q.Kind, text)
	}
}

func TestParseInvalidCalendarDate(t *testing.T) {
	// Matches the date pattern but is not a real date.
	_, err := testParser().Parse("台積電 2023-13-45")
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "point", KindPointLookup.String())
	require.Equal(t, "ai_fallback", KindAIFallback.String())
	require.Equal(t, "unknown", Kind(0).String())
}
