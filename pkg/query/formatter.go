package query

import (
	"fmt"
	"strings"
	"time"

	"stockbot-api/pkg/command"
	"stockbot-api/pkg/store"
)

const (
	// DefaultMaxReplyRunes stays under the LINE text message ceiling.
	DefaultMaxReplyRunes = 4900

	truncationMarker = "…(訊息過長，已截斷)"
	warnPrefix       = "⚠ "
)

const helpText = `📊 可用功能指令：
1️⃣ 即時 AI 對話：直接輸入問題
2️⃣ 指定日期收盤價：台積電 2023-07-01
3️⃣ 平均價格（全期間）：台積電 平均
4️⃣ 區間平均：台積電 平均 2023-01-01 2023-06-30
5️⃣ 最近 N 天平均：台積電 最近10天
6️⃣ 最高/最低：台積電 最高 | 台積電 最低
7️⃣ 多股票同一天：台積電 鴻海 聯發科 2023-07-01
輸入「幫助」隨時查看此清單`

// Formatter renders resolver results and errors as reply text,
// truncated to the platform message ceiling.
type Formatter struct {
	maxRunes int
}

// NewFormatter constructs a formatter; maxRunes <= 0 selects the
// default ceiling.
func NewFormatter(maxRunes int) *Formatter {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxReplyRunes
	}
	return &Formatter{maxRunes: maxRunes}
}

// HelpText returns the command overview reply.
func (f *Formatter) HelpText() string {
	return f.Truncate(helpText)
}

// Format renders a resolver result.
func (f *Formatter) Format(res *Result) string {
	switch res.Kind {
	case command.KindPointLookup:
		return f.Truncate(formatPoint(res.Point))
	case command.KindMultiPointLookup:
		return f.Truncate(formatMulti(res.Multi))
	case command.KindAverage, command.KindRecentAverage:
		return f.Truncate(formatMean(res.Mean))
	case command.KindExtreme:
		return f.Truncate(formatExtreme(res.Extreme))
	default:
		return f.FormatError(fmt.Errorf("query: unformattable kind %s", res.Kind))
	}
}

// FormatError maps the error taxonomy to user-readable warnings. Any
// unrecognized error becomes the generic internal-error reply.
func (f *Formatter) FormatError(err error) string {
	switch e := err.(type) {
	case *command.UnknownSymbolError:
		return f.Truncate(fmt.Sprintf("%s找不到「%s」，可查詢：%s",
			warnPrefix, e.Input, strings.Join(e.Known, "、")))
	case *command.MalformedError:
		return warnPrefix + "指令格式錯誤，輸入「幫助」查看說明"
	case *store.MissingFileError:
		return f.Truncate(fmt.Sprintf("%s找不到 %s 的資料檔", warnPrefix, e.Key))
	case *NoDataError:
		if e.Range {
			return f.Truncate(fmt.Sprintf("%s查詢區間內沒有 %s 的資料", warnPrefix, e.Alias))
		}
		return f.Truncate(fmt.Sprintf("%s找不到 %s %s 的股價紀錄",
			warnPrefix, e.Alias, e.Date.Format(time.DateOnly)))
	case *UpstreamAIError:
		return warnPrefix + "AI 服務暫時無法回應，請稍後再試"
	default:
		return warnPrefix + "系統發生錯誤，請稍後再試"
	}
}

// FormatAIReply wraps a fallback completion, applying the ceiling.
func (f *Formatter) FormatAIReply(text string) string {
	return f.Truncate(strings.TrimSpace(text))
}

// Truncate enforces the reply ceiling in runes, appending the
// truncation marker when text is cut.
func (f *Formatter) Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= f.maxRunes {
		return text
	}
	marker := []rune(truncationMarker)
	keep := f.maxRunes - len(marker)
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + truncationMarker
}

func formatPoint(p *PointResult) string {
	return fmt.Sprintf("%s %s 收盤價：%.2f",
		p.Symbol.Alias, p.Record.Date.Format(time.DateOnly), p.Record.Close)
}

func formatMulti(outcomes []PointOutcome) string {
	lines := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			lines = append(lines, multiErrorLine(o))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s 收盤價：%.2f",
			o.Symbol.Alias, o.Record.Date.Format(time.DateOnly), o.Record.Close))
	}
	return strings.Join(lines, "\n")
}

func multiErrorLine(o PointOutcome) string {
	switch e := o.Err.(type) {
	case *command.UnknownSymbolError:
		return fmt.Sprintf("%s找不到「%s」", warnPrefix, e.Input)
	case *NoDataError:
		return fmt.Sprintf("%s找不到 %s %s 的股價紀錄",
			warnPrefix, o.Symbol.Alias, e.Date.Format(time.DateOnly))
	case *store.MissingFileError:
		return fmt.Sprintf("%s找不到 %s 的資料檔", warnPrefix, o.Symbol.Alias)
	default:
		return fmt.Sprintf("%s%s 查詢失敗", warnPrefix, o.Symbol.Alias)
	}
}

func formatMean(m *MeanResult) string {
	switch {
	case m.Days > 0:
		return fmt.Sprintf("%s 最近%d天平均收盤價：%.2f", m.Symbol.Alias, m.Days, m.Mean)
	case m.HasRange:
		return fmt.Sprintf("%s %s~%s 平均收盤價：%.2f",
			m.Symbol.Alias,
			m.Start.Format(time.DateOnly), m.End.Format(time.DateOnly),
			m.Mean)
	default:
		return fmt.Sprintf("%s 平均收盤價：%.2f", m.Symbol.Alias, m.Mean)
	}
}

func formatExtreme(e *ExtremeResult) string {
	label := "最高"
	if e.Kind == command.ExtremeLow {
		label = "最低"
	}
	return fmt.Sprintf("%s 歷史%s價：%.2f（%s）",
		e.Symbol.Alias, label, e.Record.Close, e.Record.Date.Format(time.DateOnly))
}
