package backend

import (
	"context"
	"errors"
	"fmt"

	"bilancio/internal/amqp"
	"bilancio/internal/log"
	"bilancio/internal/sheets"
	gsheet "bilancio/internal/sheets/google"
	sheetsmem "bilancio/internal/sheets/memory"
	"bilancio/internal/storage/memory"
	"bilancio/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the snapshot store and, when configured, the AMQP
// publisher. A broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var res *Result
	switch config.Type {
	case SQLiteBackend:
		repo, err := sqlite.NewRepository(config.SQLiteDBPath, config.SnapshotKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res = &Result{Store: repo, Cleanup: repo.Close}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath, "key", config.SnapshotKey)
	case MemoryBackend:
		store, err := memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
		}
		res = &Result{Store: store}
		f.logger.InfoContext(ctx, "Initialized memory backend", "seed_file", config.SeedFile)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.AMQPURL == "" {
		return res, nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications", log.FieldError, err)
		return res, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)

	res.Notifier = client
	storeCleanup := res.Cleanup
	res.Cleanup = func() error {
		var errs []error
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
		if storeCleanup != nil {
			if err := storeCleanup(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
		}
		return errors.Join(errs...)
	}
	return res, nil
}

// CreateExporter returns the Google Sheets client when a spreadsheet is
// configured and the in-memory exporter otherwise.
func (f *DefaultFactory) CreateExporter(ctx context.Context, config Config) (sheets.LedgerExporter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.InfoContext(ctx, "No spreadsheet configured, exporting to memory")
		return sheetsmem.New(), nil
	}
	cli, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets exporter")
	return cli, nil
}
