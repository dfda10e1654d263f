// Package backend assembles the persistence, notification and export
// collaborators selected by configuration.
package backend

import (
	"context"

	"bilancio/internal/services"
	"bilancio/internal/sheets"
	"bilancio/internal/storage"
)

// CleanupFunc releases resources opened by the factory.
type CleanupFunc func() error

// Result bundles what a binary needs to build a LedgerService. Notifier is
// nil when AMQP is disabled.
type Result struct {
	Store    storage.SnapshotStore
	Notifier services.Notifier
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
	CreateExporter(ctx context.Context, config Config) (sheets.LedgerExporter, error)
}

type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	SnapshotKey  string

	// Memory specific
	SeedFile string

	// Optional change notifications
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Optional Google Sheets export
	GoogleSpreadsheetID string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
