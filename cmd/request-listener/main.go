package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"iams2rf/internal/config"
	"iams2rf/internal/listener"
	"iams2rf/internal/logging"
	"iams2rf/internal/metrics"
	"iams2rf/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	cancel()
	must(err)
}

func run(ctx context.Context, cfg config.Config) error {
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	log := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	return listener.NewService(db, cfg, log, metrics.New()).Run(ctx)
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
