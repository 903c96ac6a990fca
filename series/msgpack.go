package series

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMsgpack writes the series as a msgpack array of entries. Each entry
// is an array of [interval_start, price] or, when the trade time is known,
// [interval_start, price, trade_timestamp].
func (s *Series) EncodeMsgpack(w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.EncodeArrayLen(len(s.entries)); err != nil {
		return err
	}
	for _, e := range s.entries {
		n := 2
		if !e.TradeTime.IsZero() {
			n = 3
		}
		if err := enc.EncodeArrayLen(n); err != nil {
			return err
		}
		if err := enc.EncodeInt(e.Interval.Unix()); err != nil {
			return err
		}
		if err := enc.EncodeString(e.Price.StringFixed(PriceScale)); err != nil {
			return err
		}
		if n == 3 {
			if err := enc.EncodeInt(e.TradeTime.Unix()); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeMsgpack reads a series written by EncodeMsgpack, with the same
// integrity checks as Load.
func DecodeMsgpack(r io.Reader) (*Series, error) {
	d := msgpack.NewDecoder(r)

	arrLen, err := d.DecodeArrayLen()
	if err != nil {
		return nil, &CorruptStoreError{Row: 0, Reason: "malformed snapshot header", Err: err}
	}
	if arrLen < 0 {
		return nil, &CorruptStoreError{Row: 0, Reason: "malformed snapshot header"}
	}

	b := NewBuilder()
	for i := 0; i < arrLen; i++ {
		row := i + 1
		n, err := d.DecodeArrayLen()
		if err != nil {
			return nil, &CorruptStoreError{Row: row, Reason: "malformed entry", Err: err}
		}
		if n != 2 && n != 3 {
			return nil, &CorruptStoreError{Row: row, Reason: "entry must have 2 or 3 elements"}
		}
		start, err := d.DecodeInt64()
		if err != nil {
			return nil, &CorruptStoreError{Row: row, Reason: "malformed interval start", Err: err}
		}
		price, err := d.DecodeString()
		if err != nil {
			return nil, &CorruptStoreError{Row: row, Reason: "malformed price", Err: err}
		}
		var tradeTime *int64
		if n == 3 {
			ts, err := d.DecodeInt64()
			if err != nil {
				return nil, &CorruptStoreError{Row: row, Reason: "malformed trade timestamp", Err: err}
			}
			tradeTime = &ts
		}
		if err := b.Add(start, price, tradeTime); err != nil {
			return nil, err
		}
	}
	if _, err := d.PeekCode(); err != io.EOF {
		return nil, &CorruptStoreError{Row: arrLen, Reason: "trailing data after last entry", Err: err}
	}
	return b.Series(), nil
}
