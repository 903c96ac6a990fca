// Package feed fetches recent trades from a public HTTP trade feed.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultURL is the bitcoincharts Bitstamp USD trade feed. It is delayed by
// 15 minutes and should not be polled more than once every 15 minutes.
const DefaultURL = "http://api.bitcoincharts.com/v1/trades.csv?symbol=bitstampUSD"

// EnvFeedURL overrides DefaultURL when ClientOpts.URL is empty.
const EnvFeedURL = "BTCPRICE_FEED_URL"

// maxBodySize caps how much of a response is read into memory. A larger
// response fails the fetch.
const maxBodySize = 256 << 20

// Client fetches raw trade feed data.
type Client interface {
	// GetTrades returns the feed body, in timestamp,price,volume form.
	GetTrades(ctx context.Context, params GetTradesParams) ([]byte, error)
}

// ClientOpts contains options for the feed client.
type ClientOpts struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

type client struct {
	opts    ClientOpts
	maxBody int64

	do func(c *client, req *http.Request) (*http.Response, error)
}

// NewClient creates a new feed client using the given opts.
func NewClient(opts ClientOpts) Client {
	if opts.URL == "" {
		if s := os.Getenv(EnvFeedURL); s != "" {
			opts.URL = s
		} else {
			opts.URL = DefaultURL
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "btcprice"
	}
	return &client{
		opts:    opts,
		maxBody: maxBodySize,

		do: defaultDo,
	}
}

// DefaultClient uses options from environment variables, or the defaults.
var DefaultClient = NewClient(ClientOpts{})

func defaultDo(c *client, req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.opts.UserAgent)

	client := &http.Client{
		Timeout: c.opts.Timeout,
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if err = verify(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// GetTradesParams contains optional parameters for getting trades.
type GetTradesParams struct {
	// Start asks the feed for trades at or after this instant. Feeds that
	// do not support it return their default window.
	Start time.Time
}

// GetTrades issues a single GET request and returns the whole body. Any
// failure is a *FeedUnavailableError; there are no retries.
func (c *client) GetTrades(ctx context.Context, params GetTradesParams) ([]byte, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return nil, &FeedUnavailableError{URL: c.opts.URL, Err: err}
	}
	if !params.Start.IsZero() {
		q := u.Query()
		q.Set("start", strconv.FormatInt(params.Start.Unix(), 10))
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FeedUnavailableError{URL: u.String(), Err: err}
	}

	resp, err := c.do(c, req)
	if err != nil {
		if ferr, ok := err.(*FeedUnavailableError); ok {
			ferr.URL = u.String()
			return nil, ferr
		}
		return nil, &FeedUnavailableError{URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &FeedUnavailableError{URL: u.String(), StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &FeedUnavailableError{
			URL:        u.String(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response exceeds %d bytes", c.maxBody),
		}
	}
	return body, nil
}

func verify(resp *http.Response) error {
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return &FeedUnavailableError{StatusCode: resp.StatusCode, Err: err}
		}
		return &FeedUnavailableError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return nil
}

// FeedUnavailableError is returned when the feed could not be fetched.
type FeedUnavailableError struct {
	URL string
	// StatusCode is 0 when no response was received
	StatusCode int
	Body       string
	Err        error
}

func (e *FeedUnavailableError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("trade feed %s unavailable (HTTP %d): %v", e.URL, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("trade feed %s unavailable: %v", e.URL, e.Err)
	case e.Body != "":
		return fmt.Sprintf("trade feed %s unavailable (HTTP %d): %s", e.URL, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("trade feed %s unavailable (HTTP %d)", e.URL, e.StatusCode)
	}
}

func (e *FeedUnavailableError) Unwrap() error {
	return e.Err
}
