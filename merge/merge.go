// Package merge folds batches of trades into a price series.
//
// Each interval's price is the price of its chronologically last trade.
// Because the winner of an interval only depends on trade timestamps, merging
// overlapping or repeated batches always converges on the same series.
package merge

import (
	"fmt"
	"sort"
	"time"

	"github.com/tradetracker/btcprice/interval"
	"github.com/tradetracker/btcprice/series"
	"github.com/tradetracker/btcprice/trade"
)

// Batch collects the candidate last trade of every interval seen so far.
// Memory grows with the number of distinct intervals, not with the number of
// trades, so whole historical archives can be streamed through it.
type Batch struct {
	winners  map[interval.Interval]trade.Trade
	received int
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{winners: make(map[interval.Interval]trade.Trade)}
}

// Add offers a trade to the batch. It replaces the current candidate of its
// interval unless it is older; a trade with the same timestamp replaces it
// too, since the later one in the input is the later trade.
func (b *Batch) Add(t trade.Trade) {
	b.received++
	iv := interval.Of(t.Timestamp)
	if cur, ok := b.winners[iv]; ok && t.Timestamp.Before(cur.Timestamp) {
		return
	}
	b.winners[iv] = t
}

// AddAll offers every trade in order.
func (b *Batch) AddAll(trades []trade.Trade) {
	for _, t := range trades {
		b.Add(t)
	}
}

// Received returns the number of trades offered to the batch.
func (b *Batch) Received() int {
	return b.received
}

// Winners returns the candidate trade of every interval in ascending
// interval order.
func (b *Batch) Winners() []trade.Trade {
	out := make([]trade.Trade, 0, len(b.winners))
	for _, t := range b.winners {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Result summarises a merge.
type Result struct {
	// Received is the number of trades in the batch
	Received int
	// Intervals is the number of distinct intervals in the batch
	Intervals int
	// Deferred counts intervals skipped because they had not closed yet
	Deferred    int
	Appended    int
	Inserted    int
	Overwritten int
	// Unchanged counts intervals whose stored price already came from a
	// trade at least as recent as the batch's
	Unchanged int
}

// Changed reports whether the merge modified the series.
func (r Result) Changed() bool {
	return r.Appended+r.Inserted+r.Overwritten > 0
}

func (r Result) String() string {
	return fmt.Sprintf("%d trades in %d intervals: %d appended, %d inserted, %d overwritten, %d unchanged, %d deferred",
		r.Received, r.Intervals, r.Appended, r.Inserted, r.Overwritten, r.Unchanged, r.Deferred)
}

// Merge applies the batch to a copy of s and returns it. Trades in the
// interval containing now, or in any later one, are deferred: the interval is
// still forming and its last trade is not known yet.
//
// A stored interval is only overwritten by a strictly later trade. Entries
// without a recorded trade time are treated as final. s itself is never
// modified, so on error nothing has changed.
func Merge(s *series.Series, b *Batch, now time.Time) (*series.Series, Result, error) {
	open := interval.Of(now)
	out := s.Clone()
	res := Result{Received: b.Received(), Intervals: len(b.winners)}

	for _, t := range b.Winners() {
		iv := interval.Of(t.Timestamp)
		if !iv.Before(open) {
			res.Deferred++
			continue
		}
		if cur, ok := out.Get(iv); ok {
			if cur.TradeTime.IsZero() || !t.Timestamp.After(cur.TradeTime) {
				res.Unchanged++
				continue
			}
		}
		op, err := out.AppendOrOverwrite(series.Entry{
			Interval:  iv,
			Price:     t.Price,
			TradeTime: t.Timestamp,
		})
		if err != nil {
			return nil, Result{}, fmt.Errorf("merging trade %s: %w", t, err)
		}
		switch op {
		case series.Appended:
			res.Appended++
		case series.Inserted:
			res.Inserted++
		case series.Overwritten:
			res.Overwritten++
		}
	}
	return out, res, nil
}

// Trades is a convenience for merging a slice of trades.
func Trades(s *series.Series, trades []trade.Trade, now time.Time) (*series.Series, Result, error) {
	b := NewBatch()
	b.AddAll(trades)
	return Merge(s, b, now)
}
