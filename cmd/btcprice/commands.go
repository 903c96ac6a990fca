package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/tradetracker/btcprice/archive"
	"github.com/tradetracker/btcprice/feed"
	"github.com/tradetracker/btcprice/feed/stream"
	"github.com/tradetracker/btcprice/series"
	"github.com/tradetracker/btcprice/stats"
	"github.com/tradetracker/btcprice/update"
)

func (a *app) updater() *update.Updater {
	return update.NewUpdater(update.UpdaterOpts{
		Feed: feed.NewClient(feed.ClientOpts{
			URL:     a.cfg.Feed.URL,
			Timeout: a.cfg.Feed.Timeout,
		}),
		Logger:     a.log,
		WatchDelay: a.cfg.Feed.WatchDelay,
	})
}

func runInit(_ context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("init takes one trade file: %w", errUsage)
	}
	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	res, err := a.updater().Ingest(a.cfg.DataFile, r)
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func runUpdate(ctx context.Context, a *app, _ []string) error {
	res, err := a.updater().Update(ctx, a.cfg.DataFile)
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func runWatch(ctx context.Context, a *app, _ []string) error {
	return a.updater().Watch(ctx, a.cfg.DataFile)
}

func runStream(ctx context.Context, a *app, _ []string) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Stream.Duration)
	defer cancel()

	opts := []stream.Option{
		stream.WithLogger(a.log),
		stream.WithProduct(a.cfg.Stream.Product),
	}
	if a.cfg.Stream.URL != "" {
		opts = append(opts, stream.WithURL(a.cfg.Stream.URL))
	}
	a.log.Infof("collecting %s trades for %s", a.cfg.Stream.Product, a.cfg.Stream.Duration)
	trades, err := stream.Collect(ctx, opts...)
	if err != nil && len(trades) == 0 {
		return err
	}
	if err != nil {
		a.log.Warnf("stream ended early: %v", err)
	}
	res, err := a.updater().MergeTrades(a.cfg.DataFile, trades)
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func printPriceAt(a *app, t time.Time) error {
	s, err := series.LoadFile(a.cfg.DataFile)
	if err != nil {
		return err
	}
	e, ok := s.PriceAt(t)
	if !ok {
		return fmt.Errorf("no price recorded before %s", t.UTC().Format(time.RFC3339))
	}
	fmt.Println(e)
	return nil
}

func runLatest(_ context.Context, a *app, _ []string) error {
	return printPriceAt(a, time.Now())
}

func runPrice(_ context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("price takes one unix timestamp: %w", errUsage)
	}
	sec, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", args[0], err)
	}
	return printPriceAt(a, time.Unix(sec, 0))
}

func runArchive(_ context.Context, a *app, _ []string) error {
	s, err := series.LoadFile(a.cfg.DataFile)
	if err != nil {
		return err
	}
	names, err := archive.Write(a.cfg.ArchiveDir, s)
	if err != nil {
		return err
	}
	a.log.Infof("wrote %d month files to %s", len(names), a.cfg.ArchiveDir)
	return nil
}

func runRestore(_ context.Context, a *app, args []string) error {
	var from string
	if len(args) > 0 {
		from = args[0]
	}
	cur, err := series.LoadFile(a.cfg.DataFile)
	if err != nil {
		return err
	}
	if cur.Len() > 0 {
		return fmt.Errorf("%s already holds %d intervals", a.cfg.DataFile, cur.Len())
	}
	s, err := archive.Read(a.cfg.ArchiveDir, from)
	if err != nil {
		return err
	}
	if err := series.WriteFile(a.cfg.DataFile, s); err != nil {
		return err
	}
	a.log.Infof("restored %d intervals into %s", s.Len(), a.cfg.DataFile)
	return nil
}

func runDaily(_ context.Context, a *app, _ []string) error {
	s, err := series.LoadFile(a.cfg.DataFile)
	if err != nil {
		return err
	}
	for _, c := range archive.DailyCloses(s) {
		fmt.Printf("%s,%s\n", c.Date, c.Entry.Price.StringFixed(series.PriceScale))
	}
	return nil
}

func runSummary(_ context.Context, a *app, _ []string) error {
	s, err := series.LoadFile(a.cfg.DataFile)
	if err != nil {
		return err
	}
	fmt.Println(stats.Summarize(s, a.cfg.AverageWindow))
	return nil
}
