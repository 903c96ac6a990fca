// Package trade decodes the timestamp,price,volume records published by
// trade feeds and historical archives.
package trade

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrHeader is returned by Parse for a column header line. Readers skip it.
var ErrHeader = errors.New("header line")

const fieldCount = 3

// Trade is a single executed trade.
type Trade struct {
	// Timestamp is in UTC with whole-second resolution
	Timestamp time.Time
	Price     decimal.Decimal
	// Volume is informational only
	Volume decimal.Decimal
}

// String serializes the trade in the same format Parse accepts.
func (t Trade) String() string {
	return fmt.Sprintf("%d,%s,%s", t.Timestamp.Unix(), t.Price.String(), t.Volume.String())
}

// Equal reports whether both trades have the same timestamp, price and volume.
// Decimals are compared by value, so 1.5 equals 1.50.
func (t Trade) Equal(o Trade) bool {
	return t.Timestamp.Equal(o.Timestamp) && t.Price.Equal(o.Price) && t.Volume.Equal(o.Volume)
}

// ParseError describes a line that could not be decoded.
type ParseError struct {
	// Line is 1-based, 0 when the error did not come from a Reader
	Line   int
	Text   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s in %q", e.Reason, e.Text)
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes a single trade line.
func Parse(line string) (Trade, error) {
	line = strings.TrimSpace(line)
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if isHeader(fields) {
		return Trade{}, ErrHeader
	}
	if len(fields) != fieldCount {
		return Trade{}, &ParseError{
			Text:   line,
			Reason: fmt.Sprintf("expected %d fields, got %d", fieldCount, len(fields)),
		}
	}

	ts, err := decimal.NewFromString(fields[0])
	if err != nil {
		return Trade{}, &ParseError{Text: line, Reason: "invalid timestamp", Err: err}
	}
	if ts.IsNegative() {
		return Trade{}, &ParseError{Text: line, Reason: "negative timestamp"}
	}
	ts = ts.Truncate(0)
	if !ts.BigInt().IsInt64() {
		return Trade{}, &ParseError{Text: line, Reason: "timestamp out of range"}
	}

	price, err := decimal.NewFromString(fields[1])
	if err != nil {
		return Trade{}, &ParseError{Text: line, Reason: "invalid price", Err: err}
	}
	if !price.IsPositive() {
		return Trade{}, &ParseError{Text: line, Reason: "price must be positive"}
	}

	volume, err := decimal.NewFromString(fields[2])
	if err != nil {
		return Trade{}, &ParseError{Text: line, Reason: "invalid volume", Err: err}
	}
	if volume.IsNegative() {
		return Trade{}, &ParseError{Text: line, Reason: "volume must not be negative"}
	}

	return Trade{
		Timestamp: time.Unix(ts.IntPart(), 0).UTC(),
		Price:     price,
		Volume:    volume,
	}, nil
}

// isHeader recognises a line of column names: three fields, each starting
// with a letter and none of them a number.
func isHeader(fields []string) bool {
	if len(fields) != fieldCount {
		return false
	}
	for _, f := range fields {
		if f == "" {
			return false
		}
		if !unicode.IsLetter([]rune(f)[0]) {
			return false
		}
		if _, err := decimal.NewFromString(f); err == nil {
			return false
		}
	}
	return true
}
