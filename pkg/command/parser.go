package command

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"stockbot-api/pkg/store"
)

var (
	dateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	recentRe = regexp.MustCompile(`^最近(\d+)天$`)
)

const (
	avgToken  = "平均"
	highToken = "最高"
	lowToken  = "最低"
)

var helpLiterals = []string{"幫助", "help", "說明"}

// Parser tokenizes messages against a fixed command grammar. It holds
// only the read-only alias table and is safe for concurrent use.
type Parser struct {
	table *store.AliasTable
}

// NewParser constructs a parser over the alias table.
func NewParser(table *store.AliasTable) *Parser {
	return &Parser{table: table}
}

// Parse maps a message to a Query. An unresolvable lone symbol in an
// otherwise valid shape returns *UnknownSymbolError, while
// multi-symbol lookups keep unresolvable tokens in the batch; a
// recognized symbol in an unrecognized shape returns *MalformedError;
// messages that name no known symbol become AI fallback queries.
func (p *Parser) Parse(text string) (*Query, error) {
	trimmed := strings.TrimSpace(text)
	if p.isHelp(trimmed) {
		return &Query{Kind: KindHelp}, nil
	}

	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return &Query{Kind: KindAIFallback, Text: trimmed}, nil
	}

	// `<symbol> 平均 <start> <end>` also ends in a date token, so it
	// must be carved out before the dated gate or 平均 would be read
	// as a symbol.
	rangeAvg := len(fields) == 4 && fields[1] == avgToken

	// `<symbol>... <date>`: point lookup, multi when several symbols.
	if !rangeAvg && len(fields) >= 2 && dateRe.MatchString(fields[len(fields)-1]) {
		return p.parseDated(fields)
	}

	first, ok := p.resolve(fields[0])
	if !ok {
		return &Query{Kind: KindAIFallback, Text: trimmed}, nil
	}

	if len(fields) == 2 {
		second := fields[1]
		switch {
		case second == avgToken:
			return &Query{Kind: KindAverage, Symbol: first}, nil
		case second == highToken:
			return &Query{Kind: KindExtreme, Symbol: first, Extreme: ExtremeHigh}, nil
		case second == lowToken:
			return &Query{Kind: KindExtreme, Symbol: first, Extreme: ExtremeLow}, nil
		}
		if m := recentRe.FindStringSubmatch(second); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 {
				return nil, &MalformedError{Text: text}
			}
			return &Query{Kind: KindRecentAverage, Symbol: first, Days: n}, nil
		}
	}

	// `<symbol> 平均 <start> <end>`, bounds swapped when reversed.
	if len(fields) == 4 && fields[1] == avgToken {
		start, okStart := parseDate(fields[2])
		end, okEnd := parseDate(fields[3])
		if !okStart || !okEnd {
			return nil, &MalformedError{Text: text}
		}
		if start.After(end) {
			start, end = end, start
		}
		return &Query{Kind: KindAverage, Symbol: first, Start: start, End: end, HasRange: true}, nil
	}

	return nil, &MalformedError{Text: text}
}

func (p *Parser) parseDated(fields []string) (*Query, error) {
	date, ok := parseDate(fields[len(fields)-1])
	if !ok {
		return nil, &MalformedError{Text: strings.Join(fields, " ")}
	}

	tokens := fields[:len(fields)-1]
	if len(tokens) == 1 {
		sym, ok := p.resolve(tokens[0])
		if !ok {
			return nil, &UnknownSymbolError{Input: tokens[0], Known: p.table.Names()}
		}
		return &Query{Kind: KindPointLookup, Symbol: sym, Date: date}, nil
	}

	// Multi-symbol lookups never abort on an unresolvable token; it is
	// carried with an empty Key and reported as a per-symbol failure
	// line.
	symbols := make([]Symbol, 0, len(tokens))
	for _, tok := range tokens {
		sym, ok := p.resolve(tok)
		if !ok {
			sym = Symbol{Alias: tok}
		}
		symbols = append(symbols, sym)
	}
	return &Query{Kind: KindMultiPointLookup, Symbols: symbols, Date: date}, nil
}

func (p *Parser) resolve(token string) (Symbol, bool) {
	key, ok := p.table.Resolve(token)
	if !ok {
		return Symbol{}, false
	}
	return Symbol{Alias: token, Key: key}, true
}

func (p *Parser) isHelp(trimmed string) bool {
	for _, lit := range helpLiterals {
		if strings.EqualFold(trimmed, lit) {
			return true
		}
	}
	return false
}

func parseDate(tok string) (time.Time, bool) {
	if !dateRe.MatchString(tok) {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, tok)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
