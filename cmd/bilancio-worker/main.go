package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting bilancio-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *log.Logger) error {
	if cfg.DataBackend != config.BackendSQLite {
		return fmt.Errorf("the worker reads the snapshot written by the server and needs DATA_BACKEND=%s, got %q",
			config.BackendSQLite, cfg.DataBackend)
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	// The worker only consumes notifications; it never publishes them.
	bcfg.AMQPURL = ""

	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend))
	res, err := factory.CreateBackend(context.Background(), bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	}()

	exporter, err := factory.CreateExporter(context.Background(), bcfg)
	if err != nil {
		return err
	}
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}
	mirror := worker.NewSheetsSync(res.Store, exporter, logger.WithComponent(log.ComponentSheets))

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mirror.Run(gctx, cfg.SyncInterval) })

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("initialize AMQP client: %w", err)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeWithRetry(gctx, mirror.HandleLedgerChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	if err := g.Wait(); err != nil {
		return err
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}
