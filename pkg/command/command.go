// Package command turns free-text chat messages into structured stock
// queries against a symbol alias table.
package command

import (
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the parsed query variants.
type Kind int

const (
	KindHelp Kind = iota + 1
	KindPointLookup
	KindAverage
	KindRecentAverage
	KindExtreme
	KindMultiPointLookup
	KindAIFallback
)

// String names the kind for logs and the query journal.
func (k Kind) String() string {
	switch k {
	case KindHelp:
		return "help"
	case KindPointLookup:
		return "point"
	case KindAverage:
		return "average"
	case KindRecentAverage:
		return "recent_average"
	case KindExtreme:
		return "extreme"
	case KindMultiPointLookup:
		return "multi_point"
	case KindAIFallback:
		return "ai_fallback"
	default:
		return "unknown"
	}
}

// ExtremeKind selects the max or min close.
type ExtremeKind int

const (
	ExtremeHigh ExtremeKind = iota + 1
	ExtremeLow
)

// Symbol is a resolved user token: the alias as typed plus its
// canonical lookup key. In multi-symbol lookups an unresolvable token
// is carried with an empty Key.
type Symbol struct {
	Alias string
	Key   string
}

// Query is the transient parse result, one per inbound message.
type Query struct {
	Kind    Kind
	Symbol  Symbol
	Symbols []Symbol

	Date     time.Time
	Start    time.Time
	End      time.Time
	HasRange bool

	Days    int
	Extreme ExtremeKind

	// Text carries the raw message for AI fallback queries.
	Text string
}

// UnknownSymbolError reports an unresolvable symbol token together
// with the configured aliases.
type UnknownSymbolError struct {
	Input string
	Known []string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("command: unknown symbol %q", e.Input)
}

// MalformedError reports a message that names a known symbol but
// matches no command shape.
type MalformedError struct {
	Text string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("command: malformed command %q", strings.TrimSpace(e.Text))
}
