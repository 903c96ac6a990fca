// Package stats summarizes a price series.
package stats

import (
	"fmt"
	"strings"

	movingaverage "github.com/RobinUS2/golang-moving-average"

	"github.com/tradetracker/btcprice/series"
)

// DefaultWindow is the number of trailing intervals averaged when no window
// is given: one day.
const DefaultWindow = 48

// Summary describes a series at a glance.
type Summary struct {
	Count int

	// Gaps counts the missing intervals between Head and Tail.
	Gaps int64

	Head series.Entry
	Tail series.Entry
	High series.Entry
	Low  series.Entry

	// Average is the simple moving average of the last Window prices.
	Average float64
	Window  int
}

// Summarize computes a Summary of s, averaging over the last window entries.
// A non-positive window means DefaultWindow.
func Summarize(s *series.Series, window int) Summary {
	if window <= 0 {
		window = DefaultWindow
	}
	sum := Summary{Count: s.Len()}
	if sum.Count == 0 {
		return sum
	}

	ma := movingaverage.New(window)
	first := true
	s.Each(func(e series.Entry) bool {
		if first {
			sum.Head, sum.High, sum.Low = e, e, e
			first = false
		}
		if e.Price.GreaterThan(sum.High.Price) {
			sum.High = e
		}
		if e.Price.LessThan(sum.Low.Price) {
			sum.Low = e
		}
		sum.Tail = e
		ma.Add(e.Price.InexactFloat64())
		return true
	})
	sum.Gaps = s.Gaps()
	sum.Average = ma.Avg()
	sum.Window = ma.Count()
	return sum
}

func (s Summary) String() string {
	if s.Count == 0 {
		return "empty series"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "intervals: %d (%d missing)\n", s.Count, s.Gaps)
	fmt.Fprintf(&b, "first:     %s\n", s.Head)
	fmt.Fprintf(&b, "latest:    %s\n", s.Tail)
	fmt.Fprintf(&b, "high:      %s\n", s.High)
	fmt.Fprintf(&b, "low:       %s\n", s.Low)
	fmt.Fprintf(&b, "sma(%d):   %.2f", s.Window, s.Average)
	return b.String()
}
