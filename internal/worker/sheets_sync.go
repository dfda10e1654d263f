// Package worker mirrors the persisted ledger into an external spreadsheet.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/ledger"
	"bilancio/internal/log"
	"bilancio/internal/sheets"
	"bilancio/internal/storage"
)

// SheetsSync exports the persisted snapshot. It never talks to the service
// that owns the ledger; the store is the source of truth.
type SheetsSync struct {
	store    storage.SnapshotStore
	exporter sheets.LedgerExporter
	logger   *log.Logger

	mu        sync.Mutex
	last      []byte
	lastStamp time.Time
}

func NewSheetsSync(store storage.SnapshotStore, exporter sheets.LedgerExporter, logger *log.Logger) *SheetsSync {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &SheetsSync{store: store, exporter: exporter, logger: logger}
}

// HandleLedgerChanged is the AMQP handler. Notifications for a snapshot that
// was already exported are acknowledged without another export.
func (w *SheetsSync) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldKind, msg.Kind,
		log.FieldOperation, msg.Operation,
		log.FieldEntryID, msg.EntryID)
	_, err := w.sync(ctx, false)
	return err
}

// SyncNow exports the current snapshot unconditionally.
func (w *SheetsSync) SyncNow(ctx context.Context) (string, error) {
	return w.sync(ctx, true)
}

func (w *SheetsSync) sync(ctx context.Context, force bool) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	stamp, err := w.updatedAt(ctx)
	if err != nil {
		return "", err
	}
	if !force && !stamp.IsZero() && stamp.Equal(w.lastStamp) {
		w.logger.DebugContext(ctx, "Snapshot timestamp unchanged, skipping export",
			log.FieldOperation, log.OpSync, "updated_at", stamp)
		return "", nil
	}

	data, err := w.store.Load(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("load snapshot: %w", err)
	}
	if !force && w.last != nil && bytes.Equal(data, w.last) {
		w.lastStamp = stamp
		w.logger.DebugContext(ctx, "Snapshot unchanged, skipping export", log.FieldOperation, log.OpSync)
		return "", nil
	}

	snap, err := w.decode(ctx, data)
	if err != nil {
		return "", err
	}
	ref, err := w.exporter.ExportLedger(ctx, snap)
	if err != nil {
		return "", fmt.Errorf("export ledger: %w", err)
	}
	w.last = bytes.Clone(data)
	if w.last == nil {
		w.last = []byte{}
	}
	w.lastStamp = stamp

	w.logger.InfoContext(ctx, "Ledger exported",
		log.FieldOperation, log.OpSync,
		log.FieldSheetsRef, ref,
		"income_entries", len(snap.Income),
		"expense_entries", len(snap.Expenses))
	return ref, nil
}

// updatedAt returns the store's write timestamp, or the zero time when the
// store does not keep one or nothing was saved yet.
func (w *SheetsSync) updatedAt(ctx context.Context) (time.Time, error) {
	ts, ok := w.store.(storage.Timestamped)
	if !ok {
		return time.Time{}, nil
	}
	stamp, err := ts.UpdatedAt(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read snapshot timestamp: %w", err)
	}
	return stamp, nil
}

// decode applies the same admission rules as the service so the sheet never
// shows entries the ledger would reject.
func (w *SheetsSync) decode(ctx context.Context, data []byte) (ledger.Snapshot, error) {
	if len(data) == 0 {
		return ledger.Snapshot{}, nil
	}
	snap, err := ledger.DecodeSnapshot(data)
	rejected := 0
	var rerr *ledger.RestoreError
	if errors.As(err, &rerr) {
		rejected += len(rerr.Rejected)
	} else if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	l := ledger.New()
	if err := l.Restore(snap); errors.As(err, &rerr) {
		rejected += len(rerr.Rejected)
	}
	if rejected > 0 {
		w.logger.WarnContext(ctx, "Skipping invalid entries",
			log.FieldOperation, log.OpSync,
			log.FieldRejected, rejected)
	}
	return l.Snapshot(), nil
}

// Run resyncs on start and then every interval until ctx is done.
func (w *SheetsSync) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", interval)
	}
	w.logger.InfoContext(ctx, "Periodic sync started", "interval", interval)

	w.resync(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Periodic sync stopped")
			return nil
		case <-ticker.C:
			w.resync(ctx)
		}
	}
}

func (w *SheetsSync) resync(ctx context.Context) {
	if _, err := w.SyncNow(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Periodic sync failed", log.FieldOperation, log.OpSync, log.FieldError, err)
	}
}
