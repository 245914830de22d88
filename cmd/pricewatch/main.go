// Command pricewatch checks domain registration prices, keeps a price
// history and notifies on every check and on price changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"pricewatch/internal/config"
	"pricewatch/internal/logger"
)

const (
	exitOK     = 0
	exitRun    = 1
	exitConfig = 2
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: pricewatch [-config path] [command]

Commands:
  check        run one price check over all domains (default)
  serve        run checks on the configured cron schedule
  test-notify  send a test push notification

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	defaultPath := config.DefaultPath
	if v := os.Getenv("PRICEWATCH_CONFIG"); v != "" {
		defaultPath = v
	}
	configPath := flag.String("config", defaultPath, "path to configuration file")
	flag.Usage = usage
	flag.Parse()

	cmd := "check"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}
	switch cmd {
	case "check", "serve", "test-notify":
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(exitConfig)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(exitConfig)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(exitConfig)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(exitConfig)
	}

	os.Exit(run(cmd, cfg, log))
}

func run(cmd string, cfg *config.Config, log *zap.Logger) int {
	defer func() { _ = log.Sync() }()

	log.Info("pricewatch starting",
		zap.String("command", cmd),
		zap.Strings("domains", cfg.Domains),
		zap.String("driver", cfg.Fetch.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, log)
	defer a.Close()

	var err error
	switch cmd {
	case "serve":
		err = a.serve(ctx)
	case "test-notify":
		err = a.testNotify(ctx)
	default:
		err = a.check(ctx)
	}
	if err != nil {
		log.Error("pricewatch failed", zap.String("command", cmd), zap.Error(err))
		return exitRun
	}
	log.Info("pricewatch stopped")
	return exitOK
}
