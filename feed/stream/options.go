package stream

import (
	"context"
	"net/url"
	"os"
)

const (
	// DefaultURL is the public Coinbase Exchange websocket feed.
	DefaultURL = "wss://ws-feed.exchange.coinbase.com"
	// DefaultProduct is the product whose trades are collected.
	DefaultProduct = "BTC-USD"

	// EnvStreamURL overrides DefaultURL.
	EnvStreamURL = "BTCPRICE_STREAM_URL"
)

// Option is a configuration option for Collect.
type Option interface {
	apply(*options)
}

type options struct {
	logger  Logger
	baseURL string
	product string

	// for testing only
	connCreator func(ctx context.Context, u url.URL) (conn, error)
}

type funcOption struct {
	f func(*options)
}

func (fo *funcOption) apply(o *options) {
	fo.f(o)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{
		f: f,
	}
}

// WithLogger configures the logger
func WithLogger(logger Logger) Option {
	return newFuncOption(func(o *options) {
		o.logger = logger
	})
}

// WithURL configures the websocket URL
func WithURL(url string) Option {
	return newFuncOption(func(o *options) {
		o.baseURL = url
	})
}

// WithProduct configures the product to collect trades for, e.g. BTC-USD
func WithProduct(product string) Option {
	return newFuncOption(func(o *options) {
		o.product = product
	})
}

func withConnCreator(connCreator func(ctx context.Context, u url.URL) (conn, error)) Option {
	return newFuncOption(func(o *options) {
		o.connCreator = connCreator
	})
}

func defaultOptions() *options {
	baseURL := DefaultURL
	if s := os.Getenv(EnvStreamURL); s != "" {
		baseURL = s
	}
	return &options{
		logger:      newStdLog(),
		baseURL:     baseURL,
		product:     DefaultProduct,
		connCreator: newNhooyrWebsocketConn,
	}
}

func applyOptions(opts ...Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(o)
	}
	return o
}
