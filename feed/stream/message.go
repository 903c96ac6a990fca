package stream

import (
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

const (
	typeSubscribe     = "subscribe"
	typeSubscriptions = "subscriptions"
	typeMatch         = "match"
	typeLastMatch     = "last_match"
	typeError         = "error"

	channelMatches = "matches"
)

type subscribeMessage struct {
	Type       string
	ProductIDs []string
	Channels   []string
}

// MarshalEasyJSON supports easyjson.Marshaler interface
func (v subscribeMessage) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`{"type":`)
	w.String(v.Type)
	w.RawString(`,"product_ids":`)
	writeStrings(w, v.ProductIDs)
	w.RawString(`,"channels":`)
	writeStrings(w, v.Channels)
	w.RawByte('}')
}

func writeStrings(w *jwriter.Writer, ss []string) {
	w.RawByte('[')
	for i, s := range ss {
		if i > 0 {
			w.RawByte(',')
		}
		w.String(s)
	}
	w.RawByte(']')
}

// message is the union of the feed messages Collect handles.
type message struct {
	Type      string
	TradeID   int64
	ProductID string
	Time      string
	Price     string
	Size      string
	Message   string
	Reason    string
}

// UnmarshalEasyJSON supports easyjson.Unmarshaler interface
func (m *message) UnmarshalEasyJSON(in *jlexer.Lexer) {
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
		case "type":
			m.Type = in.String()
		case "trade_id":
			m.TradeID = in.Int64()
		case "product_id":
			m.ProductID = in.String()
		case "time":
			m.Time = in.String()
		case "price":
			m.Price = in.String()
		case "size":
			m.Size = in.String()
		case "message":
			m.Message = in.String()
		case "reason":
			m.Reason = in.String()
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
