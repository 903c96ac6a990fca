// Package update runs ingestion against a stored series: it loads the store,
// reads new trades, merges them and writes the result back.
package update

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tradetracker/btcprice/feed"
	"github.com/tradetracker/btcprice/internal/ctxtime"
	"github.com/tradetracker/btcprice/interval"
	"github.com/tradetracker/btcprice/merge"
	"github.com/tradetracker/btcprice/series"
	"github.com/tradetracker/btcprice/trade"
)

// progressEvery is how many trades are read between progress reports.
const progressEvery = 1_000_000

// DefaultWatchDelay is how long after an interval boundary Watch updates.
const DefaultWatchDelay = time.Minute

// UpdaterOpts contains options for the Updater.
type UpdaterOpts struct {
	// Feed is the trade source of Update. Defaults to feed.DefaultClient.
	Feed   feed.Client
	Logger Logger
	// Now returns the current time. Trades in the interval containing it are
	// deferred. Defaults to time.Now.
	Now        func() time.Time
	WatchDelay time.Duration
}

// Updater merges trades into a series file.
type Updater struct {
	opts UpdaterOpts

	sleep func(ctx context.Context, d time.Duration) error
}

// NewUpdater creates a new Updater using the given opts.
func NewUpdater(opts UpdaterOpts) *Updater {
	if opts.Feed == nil {
		opts.Feed = feed.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = newStdLog()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WatchDelay <= 0 {
		opts.WatchDelay = DefaultWatchDelay
	}
	return &Updater{
		opts: opts,

		sleep: ctxtime.Sleep,
	}
}

// Update fetches the trades since the tail interval of the series at path and
// merges them in. A fetch or store integrity failure aborts the update before
// anything is written.
func (u *Updater) Update(ctx context.Context, path string) (merge.Result, error) {
	s, err := series.LoadFile(path)
	if err != nil {
		return merge.Result{}, err
	}

	var params feed.GetTradesParams
	if tail, ok := s.Tail(); ok {
		params.Start = tail.Start()
	}
	body, err := u.opts.Feed.GetTrades(ctx, params)
	if err != nil {
		return merge.Result{}, err
	}
	return u.apply(path, s, bytes.NewReader(body))
}

// Ingest merges trades read from r, in the trade feed format, into the series
// at path. Malformed lines are logged and skipped.
func (u *Updater) Ingest(path string, r io.Reader) (merge.Result, error) {
	s, err := series.LoadFile(path)
	if err != nil {
		return merge.Result{}, err
	}
	return u.apply(path, s, r)
}

// MergeTrades merges already decoded trades into the series at path.
func (u *Updater) MergeTrades(path string, trades []trade.Trade) (merge.Result, error) {
	s, err := series.LoadFile(path)
	if err != nil {
		return merge.Result{}, err
	}
	b := merge.NewBatch()
	b.AddAll(trades)
	return u.commit(path, s, b)
}

// Watch runs Update shortly after every interval boundary until ctx is done.
// An unavailable feed is logged and retried at the next boundary; any other
// error stops the watch.
func (u *Updater) Watch(ctx context.Context, path string) error {
	for {
		now := u.opts.Now()
		next := interval.Of(now).Next().Start().Add(u.opts.WatchDelay)
		u.opts.Logger.Infof("next update of %s at %s", path, next.Format(time.RFC3339))
		if err := u.sleep(ctx, next.Sub(now)); err != nil {
			return nil
		}

		_, err := u.Update(ctx, path)
		var ferr *feed.FeedUnavailableError
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.As(err, &ferr):
			u.opts.Logger.Warnf("update of %s failed: %v", path, err)
		default:
			return err
		}
	}
}

func (u *Updater) apply(path string, s *series.Series, r io.Reader) (merge.Result, error) {
	b, err := u.read(r)
	if err != nil {
		return merge.Result{}, err
	}
	return u.commit(path, s, b)
}

func (u *Updater) read(r io.Reader) (*merge.Batch, error) {
	var (
		b   = merge.NewBatch()
		tr  = trade.NewReader(r)
		bad int
	)
	for {
		t, err := tr.Read()
		if err == io.EOF {
			break
		}
		var perr *trade.ParseError
		if errors.As(err, &perr) {
			bad++
			u.opts.Logger.Warnf("skipping trade: %v", perr)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading trades at line %d: %w", tr.Line(), err)
		}
		b.Add(t)
		if n := b.Received(); n%progressEvery == 0 {
			u.opts.Logger.Infof("read %d trades", n)
		}
	}
	if bad > 0 {
		u.opts.Logger.Warnf("skipped %d malformed lines out of %d", bad, tr.Line())
	}
	return b, nil
}

func (u *Updater) commit(path string, s *series.Series, b *merge.Batch) (merge.Result, error) {
	out, res, err := merge.Merge(s, b, u.opts.Now())
	if err != nil {
		return merge.Result{}, err
	}
	if res.Changed() {
		if err := series.WriteFile(path, out); err != nil {
			return merge.Result{}, fmt.Errorf("writing %s: %w", path, err)
		}
	}
	u.opts.Logger.Infof("%s: %s", path, res)
	return res, nil
}
