// Package storage defines the persistence port for ledger snapshots.
//
// A snapshot is stored as one opaque JSON blob under a single namespaced key,
// rewritten after every ledger mutation.
package storage

import (
	"context"
	"errors"
	"time"
)

// DefaultKey namespaces the persisted ledger snapshot.
const DefaultKey = "expenseManagerData"

// ErrNotFound is returned by Load when nothing was persisted yet.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore reads and writes the serialized ledger.
type SnapshotStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Timestamped is implemented by stores that record when the snapshot was
// last written. Readers use it to skip loading an unchanged snapshot.
type Timestamped interface {
	UpdatedAt(ctx context.Context) (time.Time, error)
}
