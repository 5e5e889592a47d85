package store

import "time"

// Record is a single end-of-day price row. Only Date and Close are
// guaranteed; the remaining columns depend on what the data file
// carries.
type Record struct {
	Date   time.Time `msgpack:"date"`
	Close  float64   `msgpack:"close"`
	Open   *float64  `msgpack:"open,omitempty"`
	High   *float64  `msgpack:"high,omitempty"`
	Low    *float64  `msgpack:"low,omitempty"`
	Volume *int64    `msgpack:"volume,omitempty"`
}

// Series is the full history for one lookup key, sorted ascending by
// date. Series are immutable once loaded.
type Series struct {
	Key     string   `msgpack:"key"`
	Records []Record `msgpack:"records"`
}

// Len returns the number of records.
func (s *Series) Len() int {
	return len(s.Records)
}

// At returns the record with the exact date, if present.
func (s *Series) At(date time.Time) (Record, bool) {
	day := date.Truncate(24 * time.Hour)
	for i := len(s.Records) - 1; i >= 0; i-- {
		switch {
		case s.Records[i].Date.Equal(day):
			return s.Records[i], true
		case s.Records[i].Date.Before(day):
			return Record{}, false
		}
	}
	return Record{}, false
}

// OnOrBefore returns the latest record dated on or before date.
func (s *Series) OnOrBefore(date time.Time) (Record, bool) {
	day := date.Truncate(24 * time.Hour)
	for i := len(s.Records) - 1; i >= 0; i-- {
		if !s.Records[i].Date.After(day) {
			return s.Records[i], true
		}
	}
	return Record{}, false
}

// Between returns the records within the inclusive [start, end] range.
func (s *Series) Between(start, end time.Time) []Record {
	if start.After(end) {
		start, end = end, start
	}
	var out []Record
	for _, r := range s.Records {
		if r.Date.Before(start) {
			continue
		}
		if r.Date.After(end) {
			break
		}
		out = append(out, r)
	}
	return out
}

// Tail returns the last n records, or the whole series when it is
// shorter than n.
func (s *Series) Tail(n int) []Record {
	if n >= len(s.Records) {
		return s.Records
	}
	return s.Records[len(s.Records)-n:]
}
