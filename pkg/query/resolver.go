// Package query resolves parsed stock commands against the price
// store and renders user-facing replies.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stockbot-api/pkg/command"
	"stockbot-api/pkg/store"
)

// LookupPolicy controls how a point lookup treats dates with no row.
type LookupPolicy string

const (
	// PolicyExact answers only when the requested date has a row.
	PolicyExact LookupPolicy = "exact"
	// PolicyOnOrBefore falls back to the nearest prior trading day.
	PolicyOnOrBefore LookupPolicy = "on-or-before"
)

// NoDataError reports an empty lookup result for a known symbol.
type NoDataError struct {
	Alias string
	Date  time.Time
	// Range is set for range averages with no rows inside the bounds.
	Range bool
}

func (e *NoDataError) Error() string {
	if e.Range {
		return fmt.Sprintf("query: no data in range for %s", e.Alias)
	}
	return fmt.Sprintf("query: no data for %s on %s", e.Alias, e.Date.Format(time.DateOnly))
}

// UpstreamAIError wraps a failed AI fallback call.
type UpstreamAIError struct {
	Err error
}

func (e *UpstreamAIError) Error() string {
	return fmt.Sprintf("query: upstream ai: %v", e.Err)
}

func (e *UpstreamAIError) Unwrap() error {
	return e.Err
}

// PointResult is a resolved single-date lookup. Resolved keeps the
// actual trading date answered, which differs from the requested date
// under the on-or-before policy.
type PointResult struct {
	Symbol    command.Symbol
	Requested time.Time
	Record    store.Record
}

// PointOutcome is one line of a multi-symbol lookup; exactly one of
// Record and Err is set.
type PointOutcome struct {
	Symbol command.Symbol
	Record *store.Record
	Err    error
}

// MeanResult is a resolved average.
type MeanResult struct {
	Symbol   command.Symbol
	Mean     float64
	Count    int
	Start    time.Time
	End      time.Time
	HasRange bool
	Days     int
}

// ExtremeResult is a resolved historical max or min close.
type ExtremeResult struct {
	Symbol command.Symbol
	Kind   command.ExtremeKind
	Record store.Record
}

// Result mirrors the query kind; exactly one branch is populated.
type Result struct {
	Kind    command.Kind
	Point   *PointResult
	Multi   []PointOutcome
	Mean    *MeanResult
	Extreme *ExtremeResult
}

// Resolver answers parsed queries from the price store.
type Resolver struct {
	store  *store.Store
	policy LookupPolicy
}

// NewResolver constructs a resolver; an unrecognized policy falls back
// to on-or-before.
func NewResolver(st *store.Store, policy LookupPolicy) *Resolver {
	if policy != PolicyExact && policy != PolicyOnOrBefore {
		policy = PolicyOnOrBefore
	}
	return &Resolver{store: st, policy: policy}
}

// Policy reports the active point-lookup policy.
func (r *Resolver) Policy() LookupPolicy {
	return r.policy
}

// Resolve answers q. Help and AI fallback kinds never reach the
// resolver; they are short-circuited by the caller.
func (r *Resolver) Resolve(ctx context.Context, q *command.Query) (*Result, error) {
	switch q.Kind {
	case command.KindPointLookup:
		return r.point(q)
	case command.KindMultiPointLookup:
		return r.multiPoint(ctx, q)
	case command.KindAverage:
		return r.average(q)
	case command.KindRecentAverage:
		return r.recentAverage(q)
	case command.KindExtreme:
		return r.extreme(q)
	default:
		return nil, fmt.Errorf("query: unresolvable kind %s", q.Kind)
	}
}

func (r *Resolver) point(q *command.Query) (*Result, error) {
	rec, err := r.lookup(q.Symbol, q.Date)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:  q.Kind,
		Point: &PointResult{Symbol: q.Symbol, Requested: q.Date, Record: rec},
	}, nil
}

// multiPoint resolves each symbol independently; per-symbol failures
// become outcome lines and never abort the batch.
func (r *Resolver) multiPoint(ctx context.Context, q *command.Query) (*Result, error) {
	outcomes := make([]PointOutcome, 0, len(q.Symbols))
	for _, sym := range q.Symbols {
		if sym.Key == "" {
			outcomes = append(outcomes, PointOutcome{
				Symbol: sym,
				Err:    &command.UnknownSymbolError{Input: sym.Alias},
			})
			continue
		}
		rec, err := r.lookup(sym, q.Date)
		if err != nil {
			logx.WithContext(ctx).Infof("multi lookup %s %s: %v",
				sym.Key, q.Date.Format(time.DateOnly), err)
			outcomes = append(outcomes, PointOutcome{Symbol: sym, Err: err})
			continue
		}
		recCopy := rec
		outcomes = append(outcomes, PointOutcome{Symbol: sym, Record: &recCopy})
	}
	return &Result{Kind: q.Kind, Multi: outcomes}, nil
}

func (r *Resolver) lookup(sym command.Symbol, date time.Time) (store.Record, error) {
	series, err := r.store.Series(sym.Key)
	if err != nil {
		return store.Record{}, err
	}

	var rec store.Record
	var ok bool
	if r.policy == PolicyExact {
		rec, ok = series.At(date)
	} else {
		rec, ok = series.OnOrBefore(date)
	}
	if !ok {
		return store.Record{}, &NoDataError{Alias: sym.Alias, Date: date}
	}
	return rec, nil
}

func (r *Resolver) average(q *command.Query) (*Result, error) {
	series, err := r.store.Series(q.Symbol.Key)
	if err != nil {
		return nil, err
	}

	records := series.Records
	if q.HasRange {
		records = series.Between(q.Start, q.End)
	}
	mean, count, ok := meanClose(records)
	if !ok {
		return nil, &NoDataError{Alias: q.Symbol.Alias, Range: true}
	}

	return &Result{
		Kind: q.Kind,
		Mean: &MeanResult{
			Symbol:   q.Symbol,
			Mean:     mean,
			Count:    count,
			Start:    q.Start,
			End:      q.End,
			HasRange: q.HasRange,
		},
	}, nil
}

// recentAverage means the last N records in date order; a series
// shorter than N uses every record it has.
func (r *Resolver) recentAverage(q *command.Query) (*Result, error) {
	series, err := r.store.Series(q.Symbol.Key)
	if err != nil {
		return nil, err
	}

	mean, count, ok := meanClose(series.Tail(q.Days))
	if !ok {
		return nil, &NoDataError{Alias: q.Symbol.Alias, Range: true}
	}

	return &Result{
		Kind: q.Kind,
		Mean: &MeanResult{Symbol: q.Symbol, Mean: mean, Count: count, Days: q.Days},
	}, nil
}

// extreme returns the max/min close and the date of its first
// occurrence.
func (r *Resolver) extreme(q *command.Query) (*Result, error) {
	series, err := r.store.Series(q.Symbol.Key)
	if err != nil {
		return nil, err
	}
	if series.Len() == 0 {
		return nil, &NoDataError{Alias: q.Symbol.Alias, Range: true}
	}

	best := series.Records[0]
	for _, rec := range series.Records[1:] {
		if q.Extreme == command.ExtremeHigh && rec.Close > best.Close {
			best = rec
		}
		if q.Extreme == command.ExtremeLow && rec.Close < best.Close {
			best = rec
		}
	}

	return &Result{
		Kind:    q.Kind,
		Extreme: &ExtremeResult{Symbol: q.Symbol, Kind: q.Extreme, Record: best},
	}, nil
}

func meanClose(records []store.Record) (float64, int, bool) {
	if len(records) == 0 {
		return 0, 0, false
	}
	var sum float64
	for _, rec := range records {
		sum += rec.Close
	}
	return sum / float64(len(records)), len(records), true
}
