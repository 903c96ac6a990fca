package series

import (
	"errors"
	"fmt"

	"github.com/tradetracker/btcprice/interval"
)

// ErrInvalidPrice is returned when an entry carries a zero or negative price.
var ErrInvalidPrice = errors.New("price must be positive")

// OutOfOrderError is returned when an entry cannot be placed into the series
// without breaking its ordering. It indicates a logic error in the caller and
// is not retryable.
type OutOfOrderError struct {
	Interval interval.Interval
	// Tail is the series tail at the time of the failed operation, if any
	Tail    interval.Interval
	HasTail bool
	Reason  string
}

func (e *OutOfOrderError) Error() string {
	if e.HasTail {
		return fmt.Sprintf("interval %s out of order (tail %s): %s", e.Interval, e.Tail, e.Reason)
	}
	return fmt.Sprintf("interval %s out of order: %s", e.Interval, e.Reason)
}

// CorruptStoreError is returned when persisted data violates the series
// invariants. It is fatal: the data is never repaired on load.
type CorruptStoreError struct {
	// Row is 1-based
	Row    int
	Reason string
	Err    error
}

func (e *CorruptStoreError) Error() string {
	msg := fmt.Sprintf("corrupt price store at row %d: %s", e.Row, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}
