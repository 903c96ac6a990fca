package archive

import (
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

// record is one entry of a month file.
type record struct {
	Interval  int64
	Price     string
	TradeTime *int64
}

type monthFile []record

// MarshalEasyJSON supports easyjson.Marshaler interface
func (v record) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`{"interval":`)
	w.Int64(v.Interval)
	w.RawString(`,"price":`)
	w.String(v.Price)
	if v.TradeTime != nil {
		w.RawString(`,"trade_time":`)
		w.Int64(*v.TradeTime)
	}
	w.RawByte('}')
}

// UnmarshalEasyJSON supports easyjson.Unmarshaler interface
func (v *record) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeString()
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "interval":
			v.Interval = in.Int64()
		case "price":
			v.Price = in.String()
		case "trade_time":
			ts := in.Int64()
			v.TradeTime = &ts
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

// MarshalEasyJSON supports easyjson.Marshaler interface
func (v monthFile) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawByte('[')
	for i, r := range v {
		if i > 0 {
			w.RawByte(',')
		}
		r.MarshalEasyJSON(w)
	}
	w.RawByte(']')
}

// UnmarshalEasyJSON supports easyjson.Unmarshaler interface
func (v *monthFile) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		in.Skip()
		*v = nil
	} else {
		in.Delim('[')
		*v = (*v)[:0]
		for !in.IsDelim(']') {
			var r record
			r.UnmarshalEasyJSON(in)
			*v = append(*v, r)
			in.WantComma()
		}
		in.Delim(']')
	}
	if isTopLevel {
		in.Consumed()
	}
}
