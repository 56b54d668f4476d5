package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/nianevitch/uptime-checker/internal/config/api"
	"github.com/nianevitch/uptime-checker/internal/httpapi"
	"github.com/nianevitch/uptime-checker/internal/obs"
	pg "github.com/nianevitch/uptime-checker/internal/repository/postgres"
	"github.com/nianevitch/uptime-checker/internal/services/claim"
	monitorsvc "github.com/nianevitch/uptime-checker/internal/services/monitor"
	"github.com/nianevitch/uptime-checker/internal/services/reconcile"
	usersvc "github.com/nianevitch/uptime-checker/internal/services/user"
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

	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	ms := obs.StartMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	// wiring
	monitorRepo := pg.NewMonitorRepo(db)
	resultRepo := pg.NewResultRepo(db)
	userRepo := pg.NewUserRepo(db)
	transactor := pg.NewTransactor(db, l)

	monitors := monitorsvc.New(monitorRepo, resultRepo, nil)
	claims := claim.New(monitorRepo)
	reconciler := reconcile.New(monitorRepo, resultRepo, transactor, nil)
	users := usersvc.New(userRepo)
	sweeper := claim.NewSweeper(l, monitorRepo, cfg.Sweep.Interval, cfg.Sweep.TTL)

	api := httpapi.NewServer(l, monitors, claims, reconciler, users)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		l.Info("api listening", zap.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()
	go func() { errCh <- sweeper.Run(ctx) }()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
			l.Error("runner error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
