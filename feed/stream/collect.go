// Package stream collects live trades from the Coinbase Exchange websocket
// matches channel.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mailru/easyjson"
	"github.com/shopspring/decimal"
	"nhooyr.io/websocket"

	"github.com/tradetracker/btcprice/trade"
)

var (
	// ErrSubscribe is returned when the feed rejects the subscription.
	ErrSubscribe = errors.New("subscription rejected")
	// ErrNotSubscribed is returned when the feed closed the connection
	// before acknowledging the subscription.
	ErrNotSubscribed = errors.New("did not receive subscriptions message")
)

// Collect subscribes to the matches channel and gathers every trade of the
// configured product until ctx is done or the server closes the connection
// normally. The trades gathered so far are returned in both cases. Messages
// that cannot be decoded are logged and skipped.
func Collect(ctx context.Context, opts ...Option) ([]trade.Trade, error) {
	o := applyOptions(opts...)

	u, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, err
	}
	c, err := o.connCreator(ctx, *u)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", u.Redacted(), err)
	}
	defer c.close()

	sub, err := easyjson.Marshal(subscribeMessage{
		Type:       typeSubscribe,
		ProductIDs: []string{o.product},
		Channels:   []string{channelMatches},
	})
	if err != nil {
		return nil, err
	}
	if err := c.writeMessage(ctx, sub); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", o.product, err)
	}

	col := collector{product: o.product, logger: o.logger, seen: make(map[int64]struct{})}
	for {
		data, err := c.readMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				if !col.subscribed {
					return col.trades, ErrNotSubscribed
				}
				return col.trades, nil
			}
			return col.trades, err
		}
		if err := col.handle(data); err != nil {
			return col.trades, err
		}
	}
}

type collector struct {
	product    string
	logger     Logger
	subscribed bool
	seen       map[int64]struct{}
	trades     []trade.Trade
}

func (c *collector) handle(data []byte) error {
	var m message
	if err := easyjson.Unmarshal(data, &m); err != nil {
		c.logger.Warnf("stream: could not decode message %q: %v", data, err)
		return nil
	}

	switch m.Type {
	case typeSubscriptions:
		c.subscribed = true
		c.logger.Infof("stream: subscribed to %s matches", c.product)
	case typeError:
		return fmt.Errorf("%w: %s (%s)", ErrSubscribe, m.Message, m.Reason)
	case typeMatch, typeLastMatch:
		if m.ProductID != c.product {
			return nil
		}
		if _, ok := c.seen[m.TradeID]; ok {
			return nil
		}
		t, err := toTrade(m)
		if err != nil {
			c.logger.Warnf("stream: skipping trade %d: %v", m.TradeID, err)
			return nil
		}
		c.seen[m.TradeID] = struct{}{}
		c.trades = append(c.trades, t)
	}
	return nil
}

func toTrade(m message) (trade.Trade, error) {
	text := fmt.Sprintf("%s,%s,%s", m.Time, m.Price, m.Size)
	ts, err := time.Parse(time.RFC3339Nano, m.Time)
	if err != nil {
		return trade.Trade{}, &trade.ParseError{Text: text, Reason: "invalid timestamp", Err: err}
	}
	if ts.Unix() < 0 {
		return trade.Trade{}, &trade.ParseError{Text: text, Reason: "negative timestamp"}
	}
	price, err := decimal.NewFromString(m.Price)
	if err != nil {
		return trade.Trade{}, &trade.ParseError{Text: text, Reason: "invalid price", Err: err}
	}
	if !price.IsPositive() {
		return trade.Trade{}, &trade.ParseError{Text: text, Reason: "price must be positive"}
	}
	size, err := decimal.NewFromString(m.Size)
	if err != nil {
		return trade.Trade{}, &trade.ParseError{Text: text, Reason: "invalid volume", Err: err}
	}
	if size.IsNegative() {
		return trade.Trade{}, &trade.ParseError{Text: text, Reason: "volume must not be negative"}
	}
	return trade.Trade{
		Timestamp: ts.UTC().Truncate(time.Second),
		Price:     price,
		Volume:    size,
	}, nil
}
