package series

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradetracker/btcprice/interval"
)

// Persist writes the series as CSV rows of
// interval_start,price[,trade_timestamp] in ascending interval order. The
// trade timestamp column is omitted for entries whose trade time is unknown.
func (s *Series) Persist(w io.Writer) error {
	cw := csv.NewWriter(w)
	row := make([]string, 0, 3)
	for _, e := range s.entries {
		row = row[:0]
		row = append(row, strconv.FormatInt(e.Interval.Unix(), 10), e.Price.StringFixed(PriceScale))
		if !e.TradeTime.IsZero() {
			row = append(row, strconv.FormatInt(e.TradeTime.Unix(), 10))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Load reads a series written by Persist. Any malformed, unordered or
// duplicate row fails the whole load with a *CorruptStoreError.
func Load(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	b := NewBuilder()
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return b.Series(), nil
		}
		row := b.Rows() + 1
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &CorruptStoreError{Row: row, Reason: "malformed row", Err: err}
			}
			return nil, err
		}
		if len(rec) != 2 && len(rec) != 3 {
			return nil, &CorruptStoreError{Row: row, Reason: "expected 2 or 3 fields, got " + strconv.Itoa(len(rec))}
		}
		start, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, &CorruptStoreError{Row: row, Reason: "malformed interval start", Err: err}
		}
		var tradeTime *int64
		if len(rec) == 3 {
			ts, err := strconv.ParseInt(rec[2], 10, 64)
			if err != nil {
				return nil, &CorruptStoreError{Row: row, Reason: "malformed trade timestamp", Err: err}
			}
			tradeTime = &ts
		}
		if err := b.Add(start, rec[1], tradeTime); err != nil {
			return nil, err
		}
	}
}

// Builder validates decoded rows and appends them in order. Every persisted
// form of a series is read through it, so they all enforce the same
// invariants.
type Builder struct {
	s   *Series
	row int
}

// NewBuilder returns a Builder for an empty series.
func NewBuilder() *Builder {
	return &Builder{s: New()}
}

// Rows returns the number of rows added so far.
func (b *Builder) Rows() int {
	return b.row
}

// Series returns the series built so far.
func (b *Builder) Series() *Series {
	return b.s
}

// Add appends one decoded row. tradeTime is nil when the row carries no
// trade timestamp. Any violation is a *CorruptStoreError.
func (b *Builder) Add(start int64, price string, tradeTime *int64) error {
	b.row++
	iv, err := interval.FromStart(start)
	if err != nil {
		return &CorruptStoreError{Row: b.row, Reason: "unaligned interval start", Err: err}
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return &CorruptStoreError{Row: b.row, Reason: "malformed price", Err: err}
	}
	if p.Exponent() < -PriceScale {
		return &CorruptStoreError{Row: b.row, Reason: "price has more than " + strconv.Itoa(PriceScale) + " decimal places"}
	}
	e := Entry{Interval: iv, Price: p}
	if tradeTime != nil {
		e.TradeTime = time.Unix(*tradeTime, 0).UTC()
		if !iv.Contains(e.TradeTime) {
			return &CorruptStoreError{Row: b.row, Reason: "trade timestamp " + strconv.FormatInt(*tradeTime, 10) + " outside its interval"}
		}
	}

	err = b.s.Append(e)
	var oerr *OutOfOrderError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidPrice):
		return &CorruptStoreError{Row: b.row, Reason: "non-positive price", Err: err}
	case errors.As(err, &oerr) && oerr.HasTail && oerr.Tail == iv:
		return &CorruptStoreError{Row: b.row, Reason: "duplicate interval " + strconv.FormatInt(start, 10), Err: err}
	default:
		return &CorruptStoreError{Row: b.row, Reason: "row out of order", Err: err}
	}
}
