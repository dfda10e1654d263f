package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	apphttp "bilancio/internal/http"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend))
	res, err := factory.CreateBackend(context.Background(), bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	svc, err := services.NewLedgerService(context.Background(), res.Store,
		services.WithNotifier(res.Notifier),
		services.WithLogger(logger.WithComponent(log.ComponentLedger)))
	if err != nil {
		return err
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, svc,
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
		apphttp.WithLogger(logger.WithComponent(log.ComponentHTTP)))
	if err != nil {
		return err
	}
	srv.MaxHeaderBytes = 1 << 16
	srv.Start()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting bilancio server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
		}
		return nil
	})

	// Without a broker there is no worker to mirror the ledger, so the
	// server keeps the spreadsheet in sync itself.
	if cfg.SheetsEnabled() && !cfg.AMQPEnabled() {
		exporter, err := factory.CreateExporter(gctx, bcfg)
		if err != nil {
			_ = srv.Shutdown(context.Background())
			return err
		}
		mirror := worker.NewSheetsSync(res.Store, exporter, logger.WithComponent(log.ComponentSheets))
		g.Go(func() error { return mirror.Run(gctx, cfg.SyncInterval) })
	}

	if err := g.Wait(); err != nil {
		_ = srv.Shutdown(context.Background())
		return err
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}
