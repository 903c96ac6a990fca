// Package series holds the canonical 30-minute Bitcoin price series and its
// persisted forms.
package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradetracker/btcprice/interval"
)

// PriceScale is the number of decimal places every stored price carries.
const PriceScale = 2

// Entry is the recorded price of one interval.
type Entry struct {
	Interval interval.Interval
	Price    decimal.Decimal
	// TradeTime is the timestamp of the trade that produced Price. It is
	// zero when unknown, for example for rows written without provenance.
	TradeTime time.Time
}

func (e Entry) String() string {
	return fmt.Sprintf("%s @ %s", e.Price.StringFixed(PriceScale), e.Interval)
}

// Op tells what AppendOrOverwrite did.
type Op int

const (
	// Appended means the entry extended the tail.
	Appended Op = iota + 1
	// Inserted means the entry filled a gap before the tail.
	Inserted
	// Overwritten means the entry replaced the price of an existing interval.
	Overwritten
)

func (o Op) String() string {
	switch o {
	case Appended:
		return "appended"
	case Inserted:
		return "inserted"
	case Overwritten:
		return "overwritten"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Series is an ordered, gap-tolerant sequence of entries with no two entries
// sharing an interval. The zero value is an empty series.
type Series struct {
	entries []Entry
}

// New returns an empty series.
func New() *Series {
	return &Series{}
}

// Len returns the number of recorded intervals.
func (s *Series) Len() int {
	return len(s.entries)
}

// Tail returns the latest recorded interval.
func (s *Series) Tail() (interval.Interval, bool) {
	if len(s.entries) == 0 {
		return 0, false
	}
	return s.entries[len(s.entries)-1].Interval, true
}

// Head returns the earliest recorded interval.
func (s *Series) Head() (interval.Interval, bool) {
	if len(s.entries) == 0 {
		return 0, false
	}
	return s.entries[0].Interval, true
}

// search returns the index of the first entry not before iv.
func (s *Series) search(iv interval.Interval) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].Interval.Before(iv)
	})
}

// Get returns the entry recorded for iv.
func (s *Series) Get(iv interval.Interval) (Entry, bool) {
	i := s.search(iv)
	if i < len(s.entries) && s.entries[i].Interval == iv {
		return s.entries[i], true
	}
	return Entry{}, false
}

func normalize(e Entry) (Entry, error) {
	if !e.Price.IsPositive() {
		return e, fmt.Errorf("interval %s: %w", e.Interval, ErrInvalidPrice)
	}
	e.Price = e.Price.Round(PriceScale)
	if !e.TradeTime.IsZero() {
		e.TradeTime = e.TradeTime.UTC()
	}
	return e, nil
}

func (s *Series) outOfOrder(iv interval.Interval, reason string) *OutOfOrderError {
	tail, ok := s.Tail()
	return &OutOfOrderError{Interval: iv, Tail: tail, HasTail: ok, Reason: reason}
}

// Append adds an entry beyond the current tail.
func (s *Series) Append(e Entry) error {
	e, err := normalize(e)
	if err != nil {
		return err
	}
	if !e.TradeTime.IsZero() && !e.Interval.Contains(e.TradeTime) {
		return s.outOfOrder(e.Interval, "trade time "+e.TradeTime.Format(time.RFC3339)+" is outside the interval")
	}
	if tail, ok := s.Tail(); ok && !e.Interval.After(tail) {
		if e.Interval == tail {
			return s.outOfOrder(e.Interval, "duplicate of the tail")
		}
		return s.outOfOrder(e.Interval, "not after the tail")
	}
	s.entries = append(s.entries, e)
	return nil
}

// AppendOrOverwrite records e. An interval beyond the tail is appended, an
// interval already present has its entry replaced, and an interval inside a
// gap is inserted in order.
func (s *Series) AppendOrOverwrite(e Entry) (Op, error) {
	e, err := normalize(e)
	if err != nil {
		return 0, err
	}
	if !e.TradeTime.IsZero() && !e.Interval.Contains(e.TradeTime) {
		return 0, s.outOfOrder(e.Interval, "trade time "+e.TradeTime.Format(time.RFC3339)+" is outside the interval")
	}

	i := s.search(e.Interval)
	switch {
	case i == len(s.entries):
		s.entries = append(s.entries, e)
		return Appended, nil
	case s.entries[i].Interval == e.Interval:
		s.entries[i] = e
		return Overwritten, nil
	default:
		s.entries = append(s.entries, Entry{})
		copy(s.entries[i+1:], s.entries[i:])
		s.entries[i] = e
		return Inserted, nil
	}
}

// Entries returns a copy of all entries in ascending order.
func (s *Series) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Each calls fn for every entry in ascending order until fn returns false.
func (s *Series) Each(fn func(Entry) bool) {
	for _, e := range s.entries {
		if !fn(e) {
			return
		}
	}
}

// Range returns the entries with from <= interval < to.
func (s *Series) Range(from, to interval.Interval) []Entry {
	if !from.Before(to) {
		return nil
	}
	lo, hi := s.search(from), s.search(to)
	out := make([]Entry, hi-lo)
	copy(out, s.entries[lo:hi])
	return out
}

// PriceAt returns the entry of the latest interval that had fully elapsed at
// t, which is the price a valuation at t may rely on.
func (s *Series) PriceAt(t time.Time) (Entry, bool) {
	// the interval containing t is still open at t
	i := s.search(interval.Of(t))
	if i == 0 {
		return Entry{}, false
	}
	return s.entries[i-1], true
}

// Gaps returns the number of intervals between the head and the tail that
// have no recorded price.
func (s *Series) Gaps() int64 {
	head, ok := s.Head()
	if !ok {
		return 0
	}
	tail, _ := s.Tail()
	return head.Between(tail) + 1 - int64(len(s.entries))
}

// Clone returns an independent copy of the series.
func (s *Series) Clone() *Series {
	return &Series{entries: s.Entries()}
}

// Equal reports whether both series hold the same intervals, prices and
// trade times.
func (s *Series) Equal(o *Series) bool {
	if len(s.entries) != len(o.entries) {
		return false
	}
	for i, e := range s.entries {
		f := o.entries[i]
		if e.Interval != f.Interval || !e.Price.Equal(f.Price) || !e.TradeTime.Equal(f.TradeTime) {
			return false
		}
	}
	return true
}
