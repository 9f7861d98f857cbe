// Command secureauthx-server serves the secureauthx HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/secureauthx/secureauthx"
	"github.com/secureauthx/secureauthx/internal/config"
	"github.com/secureauthx/secureauthx/internal/rate"
	"github.com/secureauthx/secureauthx/internal/server"
	"github.com/secureauthx/secureauthx/metrics/export/prometheus"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger hclog.Logger) error {
	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	limiter := rate.New(time.Now)
	engine, err := secureauthx.New().
		WithConfig(cfg.Engine()).
		WithUserDirectory(stores.directory).
		WithLedger(stores.ledger).
		WithRateLimiter(limiter).
		WithAuditSink(secureauthx.NewHCLogSink(logger)).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("engine ready",
		"alg", report.SigningAlgorithm,
		"access_ttl", report.AccessTTL,
		"refresh_ttl", report.RefreshTTL,
		"rate_limiting", report.RateLimitingActive,
		"atomic_rotation", report.AtomicRotation,
		"audit", report.AuditEnabled,
	)

	opts := server.Options{
		AppName:   cfg.AppName,
		Logger:    logger,
		Snapshots: engine,
		Checks:    stores.checks,
	}
	if cfg.MetricsEnabled {
		opts.Metrics = prometheus.Handler(engine)
	}
	e := server.New(engine, opts)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "ledger", cfg.LedgerDriver)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := limiter.Sweep(); n > 0 {
					logger.Debug("swept idle rate-limit buckets", "removed", n)
				}
			}
		}
	})

	return g.Wait()
}
