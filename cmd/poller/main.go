package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/nianevitch/uptime-checker/internal/config/poller"
	"github.com/nianevitch/uptime-checker/internal/obs"
	"github.com/nianevitch/uptime-checker/internal/services/poller"
	"github.com/nianevitch/uptime-checker/internal/services/probe"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "", "path to config yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL)
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	l.Info("starting poller",
		zap.String("api", cfg.API.BaseURL),
		zap.Int("batch_size", cfg.Poller.BatchSize),
		zap.Duration("tick", cfg.Poller.Tick),
	)

	ms := obs.StartMetricsServer(cfg.Server.MetricsAddr, func(context.Context) error { return nil }, l)

	client := poller.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	prober := probe.New(cfg.Probe)
	runner := poller.NewRunner(l, client, prober, cfg.Poller)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
