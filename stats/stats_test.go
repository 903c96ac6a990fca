package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradetracker/btcprice/interval"
	"github.com/tradetracker/btcprice/series"
)

func build(t *testing.T, prices map[int]string) *series.Series {
	t.Helper()
	start := interval.Of(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	s := series.New()
	for i := 0; i < 10; i++ {
		p, ok := prices[i]
		if !ok {
			continue
		}
		require.NoError(t, s.Append(series.Entry{
			Interval: start + interval.Interval(i),
			Price:    decimal.RequireFromString(p),
		}))
	}
	return s
}

func TestSummarize(t *testing.T) {
	s := build(t, map[int]string{0: "100", 1: "300", 4: "50", 5: "200"})

	tests := []struct {
		name    string
		window  int
		average float64
		count   int
	}{
		{name: "filled window", window: 2, average: 125, count: 2},
		{name: "partial window", window: 10, average: 162.5, count: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := Summarize(s, tt.window)
			assert.Equal(t, 4, sum.Count)
			assert.EqualValues(t, 2, sum.Gaps)
			assert.Equal(t, "100.00", sum.Head.Price.StringFixed(2))
			assert.Equal(t, "200.00", sum.Tail.Price.StringFixed(2))
			assert.Equal(t, "300.00", sum.High.Price.StringFixed(2))
			assert.Equal(t, "50.00", sum.Low.Price.StringFixed(2))
			assert.InDelta(t, tt.average, sum.Average, 1e-9)
			assert.Equal(t, tt.count, sum.Window)
		})
	}
}

func TestSummarizeDefaultWindow(t *testing.T) {
	sum := Summarize(build(t, map[int]string{0: "1", 1: "3"}), 0)
	assert.InDelta(t, 2, sum.Average, 1e-9)
	assert.Equal(t, 2, sum.Window)
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(series.New(), 5)
	assert.Equal(t, 0, sum.Count)
	assert.Equal(t, "empty series", sum.String())
}

func TestSummaryString(t *testing.T) {
	out := Summarize(build(t, map[int]string{0: "100", 2: "200"}), 2).String()
	assert.Contains(t, out, "intervals: 2 (1 missing)")
	assert.Contains(t, out, "latest:    200.00 @ 2021-01-01 01:00")
	assert.Contains(t, out, "sma(2):   150.00")
}
