// Package interval maps instants to the fixed 30-minute buckets the price
// series is sampled at.
package interval

import (
	"fmt"
	"time"
)

// Length is the duration of every interval.
const Length = 30 * time.Minute

const lengthSeconds = int64(Length / time.Second)

// Interval identifies one 30-minute bucket. The zero value is the bucket
// starting at the unix epoch. Intervals are ordered the same way as their
// start instants.
type Interval int64

// Of returns the interval containing t.
func Of(t time.Time) Interval {
	return ofUnix(t.Unix())
}

func ofUnix(sec int64) Interval {
	idx := sec / lengthSeconds
	// Go truncates towards zero, floor is needed below the epoch
	if sec%lengthSeconds < 0 {
		idx--
	}
	return Interval(idx)
}

// FromStart returns the interval starting at the given unix time. The start
// must be aligned to an interval boundary.
func FromStart(unix int64) (Interval, error) {
	if unix%lengthSeconds != 0 {
		return 0, fmt.Errorf("timestamp %d is not aligned to a %s boundary", unix, Length)
	}
	return Interval(unix / lengthSeconds), nil
}

// Unix returns the start of the interval in unix seconds.
func (i Interval) Unix() int64 {
	return int64(i) * lengthSeconds
}

// Start returns the first instant of the interval.
func (i Interval) Start() time.Time {
	return time.Unix(i.Unix(), 0).UTC()
}

// End returns the first instant after the interval, which is the start of
// the next one.
func (i Interval) End() time.Time {
	return i.Next().Start()
}

// Next returns the interval directly after i.
func (i Interval) Next() Interval {
	return i + 1
}

// Prev returns the interval directly before i.
func (i Interval) Prev() Interval {
	return i - 1
}

// Contains reports whether t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return Of(t) == i
}

// Before reports whether i starts before j.
func (i Interval) Before(j Interval) bool {
	return i < j
}

// After reports whether i starts after j.
func (i Interval) After(j Interval) bool {
	return i > j
}

// Between returns the number of intervals from i to j. It is negative when j
// is before i.
func (i Interval) Between(j Interval) int64 {
	return int64(j - i)
}

func (i Interval) String() string {
	return i.Start().Format("2006-01-02 15:04")
}
