// Package config loads the btcprice settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting of the btcprice binary.
type Config struct {
	// DataFile is the series store. A .msgpack extension selects the binary
	// snapshot format.
	DataFile   string `env:"DATA_FILE" envDefault:"prices.csv"`
	ArchiveDir string `env:"ARCHIVE_DIR" envDefault:"archive"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	// AverageWindow is the number of intervals in the summary moving average.
	AverageWindow int `env:"AVERAGE_WINDOW" envDefault:"48"`

	Feed   FeedConfig   `envPrefix:"FEED_"`
	Stream StreamConfig `envPrefix:"STREAM_"`
}

// FeedConfig configures the HTTP trade feed.
type FeedConfig struct {
	URL     string        `env:"URL"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
	// WatchDelay is how long after an interval closes the watch loop polls.
	WatchDelay time.Duration `env:"WATCH_DELAY" envDefault:"1m"`
}

// StreamConfig configures the websocket trade stream.
type StreamConfig struct {
	URL      string        `env:"URL"`
	Product  string        `env:"PRODUCT" envDefault:"BTC-USD"`
	Duration time.Duration `env:"DURATION" envDefault:"30m"`
}

// Load reads an optional .env file and then parses BTCPRICE_ variables.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{Prefix: "BTCPRICE_"})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
