// Command btcprice maintains a file of half-hourly bitcoin prices.
//
// Usage:
//
//	btcprice init <trades.csv|->   import a historical trade dump
//	btcprice update                fetch and merge recent trades once
//	btcprice watch                 update after every half hour
//	btcprice stream                collect live websocket trades and merge them
//	btcprice latest                print the latest closed price
//	btcprice price <unix>          print the price in effect at a time
//	btcprice archive               export monthly JSON files
//	btcprice restore [YYYYMM]      rebuild an empty store from the export
//	btcprice daily                 print daily closing prices
//	btcprice summary               print series statistics
//
// Settings come from BTCPRICE_ environment variables or a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tradetracker/btcprice/internal/config"
	"github.com/tradetracker/btcprice/internal/logger"
)

var errUsage = errors.New("usage: btcprice <init|update|watch|stream|latest|price|archive|restore|daily|summary> [args]")

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"init":    runInit,
	"update":  runUpdate,
	"watch":   runWatch,
	"stream":  runStream,
	"latest":  runLatest,
	"price":   runPrice,
	"archive": runArchive,
	"restore": runRestore,
	"daily":   runDaily,
	"summary": runSummary,
}

type app struct {
	cfg *config.Config
	log *zap.SugaredLogger
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Level(cfg.LogLevel))
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd(ctx, &app{cfg: cfg, log: log}, args[1:])
}
