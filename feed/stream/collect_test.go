package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/tradetracker/btcprice/trade"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Infof(format string, v ...interface{}) {}

func (l *recordingLogger) Warnf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, format)
}

func (l *recordingLogger) Errorf(format string, v ...interface{}) {}

func TestCollect(t *testing.T) {
	subscribe := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		ctx := r.Context()

		_, msg, err := c.Read(ctx)
		if !assert.NoError(t, err) {
			return
		}
		subscribe <- string(msg)

		for _, m := range []string{
			`{"type":"subscriptions","channels":[{"name":"matches","product_ids":["BTC-USD"]}]}`,
			`{"type":"last_match","trade_id":1,"product_id":"BTC-USD","time":"2021-01-01T00:00:00.5Z","price":"29000.00","size":"0.1","side":"buy"}`,
			`{"type":"match","trade_id":2,"product_id":"BTC-USD","time":"2021-01-01T00:01:40.028459Z","price":"29010.50","size":"0.2","side":"sell","maker_order_id":null}`,
			`{"type":"match","trade_id":2,"product_id":"BTC-USD","time":"2021-01-01T00:01:40.028459Z","price":"29010.50","size":"0.2"}`,
			`{"type":"match","trade_id":3,"product_id":"ETH-USD","time":"2021-01-01T00:01:41Z","price":"730.00","size":"1"}`,
			`{"type":"match","trade_id":4,"product_id":"BTC-USD","time":"yesterday","price":"29011.00","size":"1"}`,
			`{"type":"heartbeat","sequence":90}`,
			`not json`,
		} {
			if !assert.NoError(t, c.Write(ctx, websocket.MessageText, []byte(m))) {
				return
			}
		}
		c.Close(websocket.StatusNormalClosure, "")
	}))
	defer ts.Close()

	logger := &recordingLogger{}
	trades, err := Collect(context.Background(),
		WithURL(strings.Replace(ts.URL, "http", "ws", 1)),
		WithLogger(logger),
	)
	require.NoError(t, err)

	assert.Equal(t, `{"type":"subscribe","product_ids":["BTC-USD"],"channels":["matches"]}`, <-subscribe)
	require.Len(t, trades, 2)
	assert.True(t, trade.Trade{
		Timestamp: time.Unix(1609459200, 0).UTC(),
		Price:     decimal.RequireFromString("29000"),
		Volume:    decimal.RequireFromString("0.1"),
	}.Equal(trades[0]))
	assert.Equal(t, int64(1609459300), trades[1].Timestamp.Unix())
	assert.Len(t, logger.warns, 2)
}

type fakeConn struct {
	msgs    []string
	written [][]byte
	end     error
}

func (f *fakeConn) close() error { return nil }

func (f *fakeConn) readMessage(ctx context.Context) ([]byte, error) {
	if len(f.msgs) == 0 {
		return nil, f.end
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return []byte(m), nil
}

func (f *fakeConn) writeMessage(ctx context.Context, data []byte) error {
	f.written = append(f.written, data)
	return nil
}

func withFake(f *fakeConn) Option {
	return withConnCreator(func(ctx context.Context, u url.URL) (conn, error) {
		return f, nil
	})
}

func TestCollectSubscriptionError(t *testing.T) {
	f := &fakeConn{msgs: []string{`{"type":"error","message":"Failed to subscribe","reason":"BTC-XYZ is not a valid product"}`}}
	_, err := Collect(context.Background(), withFake(f), WithProduct("BTC-XYZ"), WithLogger(&recordingLogger{}))
	assert.ErrorIs(t, err, ErrSubscribe)
	assert.Contains(t, err.Error(), "BTC-XYZ is not a valid product")
	require.Len(t, f.written, 1)
	assert.Contains(t, string(f.written[0]), `"product_ids":["BTC-XYZ"]`)
}

func TestCollectUntilContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeConn{
		msgs: []string{
			`{"type":"subscriptions"}`,
			`{"type":"match","trade_id":7,"product_id":"BTC-USD","time":"2021-01-01T00:00:00Z","price":"1","size":"1"}`,
		},
		end: context.Canceled,
	}
	trades, err := Collect(ctx, withFake(f))
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestCollectConnectionDropped(t *testing.T) {
	f := &fakeConn{msgs: []string{`{"type":"subscriptions"}`}, end: errors.New("connection reset")}
	_, err := Collect(context.Background(), withFake(f))
	assert.EqualError(t, err, "connection reset")
}

func TestCollectClosedBeforeSubscribed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(ctx, withFake(&fakeConn{end: context.Canceled}))
	assert.ErrorIs(t, err, ErrNotSubscribed)
}

func TestCollectDialError(t *testing.T) {
	_, err := Collect(context.Background(), withConnCreator(func(ctx context.Context, u url.URL) (conn, error) {
		return nil, errors.New("refused")
	}), WithURL("wss://feed.test"))
	assert.EqualError(t, err, "connecting to wss://feed.test: refused")
}

func TestToTrade(t *testing.T) {
	_, err := toTrade(message{Time: "2021-01-01T00:00:00Z", Price: "0", Size: "1"})
	var perr *trade.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "price must be positive", perr.Reason)

	_, err = toTrade(message{Time: "2021-01-01T00:00:00Z", Price: "1", Size: "-1"})
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "volume must not be negative", perr.Reason)
}
