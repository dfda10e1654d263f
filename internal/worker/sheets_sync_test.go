package worker

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/log"
	sheetsmem "bilancio/internal/sheets/memory"
	"bilancio/internal/storage"
	"bilancio/internal/storage/memory"
)

type failingExporter struct{ err error }

func (f failingExporter) ExportLedger(context.Context, ledger.Snapshot) (string, error) {
	return "", f.err
}

func quiet() *log.Logger {
	return log.New(log.Config{Component: log.ComponentWorker, Output: &bytes.Buffer{}})
}

func saveSnapshot(t *testing.T, store *memory.Store, s ledger.Snapshot) {
	t.Helper()
	data, err := s.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(context.Background(), data); err != nil {
		t.Fatal(err)
	}
}

func TestHandleLedgerChangedExportsStoredSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	exp := sheetsmem.New()
	w := NewSheetsSync(store, exp, quiet())

	snap := ledger.Snapshot{
		Income:   []core.Entry{{ID: "a", Title: "Salary", Amount: core.Money{Cents: 100000}}},
		Expenses: []core.Entry{{ID: "b", Title: "Rent", Amount: core.Money{Cents: 40000}}},
	}
	saveSnapshot(t, store, snap)

	msg := amqp.NewLedgerChangedMessage(core.Income, amqp.OpCreate, "a", snap.Summary())
	if err := w.HandleLedgerChanged(ctx, msg); err != nil {
		t.Fatalf("HandleLedgerChanged: %v", err)
	}
	got, n := exp.Last()
	if n != 1 || !got.Equal(snap) {
		t.Fatalf("exported %d times: %+v", n, got)
	}

	// Same bytes in the store: no second export.
	if err := w.HandleLedgerChanged(ctx, msg); err != nil {
		t.Fatal(err)
	}
	if _, n := exp.Last(); n != 1 {
		t.Fatalf("exports = %d, want 1", n)
	}

	// SyncNow always exports.
	ref, err := w.SyncNow(ctx)
	if err != nil || ref != "mem:2" {
		t.Fatalf("SyncNow = %q, %v", ref, err)
	}
}

// stampedStore records a write time per Save and counts Loads.
type stampedStore struct {
	*memory.Store
	stamp   time.Time
	loads   int
	failing error
}

func (s *stampedStore) Save(ctx context.Context, data []byte) error {
	s.stamp = s.stamp.Add(time.Second)
	return s.Store.Save(ctx, data)
}

func (s *stampedStore) Load(ctx context.Context) ([]byte, error) {
	s.loads++
	return s.Store.Load(ctx)
}

func (s *stampedStore) UpdatedAt(context.Context) (time.Time, error) {
	if s.failing != nil {
		return time.Time{}, s.failing
	}
	if s.stamp.IsZero() {
		return time.Time{}, storage.ErrNotFound
	}
	return s.stamp, nil
}

func TestSyncSkipsLoadWhenTimestampUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &stampedStore{Store: memory.New()}
	exp := sheetsmem.New()
	w := NewSheetsSync(store, exp, quiet())
	msg := amqp.NewLedgerChangedMessage(core.Income, amqp.OpCreate, "a", core.Summary{})

	if err := w.HandleLedgerChanged(ctx, msg); err != nil {
		t.Fatalf("empty store: %v", err)
	}
	if store.loads != 1 {
		t.Fatalf("loads = %d, want 1", store.loads)
	}

	store.stamp = time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	first := ledger.Snapshot{Income: []core.Entry{{ID: "a", Title: "Salary", Amount: core.Money{Cents: 100}}}}
	data, _ := first.Encode()
	if err := store.Save(ctx, data); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleLedgerChanged(ctx, msg); err != nil {
		t.Fatal(err)
	}
	if got, n := exp.Last(); n != 2 || !got.Equal(first) {
		t.Fatalf("exported %d times: %+v", n, got)
	}

	// Redelivered notification, same timestamp: nothing is read.
	loads := store.loads
	if err := w.HandleLedgerChanged(ctx, msg); err != nil {
		t.Fatal(err)
	}
	if store.loads != loads {
		t.Fatalf("unchanged timestamp loaded the snapshot again")
	}
	if _, n := exp.Last(); n != 2 {
		t.Fatalf("exports = %d, want 2", n)
	}

	// SyncNow ignores the timestamp.
	if _, err := w.SyncNow(ctx); err != nil {
		t.Fatal(err)
	}
	if _, n := exp.Last(); n != 3 {
		t.Fatalf("exports = %d, want 3", n)
	}

	store.failing = errors.New("database is locked")
	if err := w.HandleLedgerChanged(ctx, msg); err == nil {
		t.Fatal("expected timestamp error")
	}
}

func TestSyncEmptyStore(t *testing.T) {
	exp := sheetsmem.New()
	w := NewSheetsSync(memory.New(), exp, quiet())
	if _, err := w.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	got, n := exp.Last()
	if n != 1 || len(got.Income) != 0 || len(got.Expenses) != 0 {
		t.Fatalf("exported %d: %+v", n, got)
	}
}

func TestSyncSkipsInvalidEntries(t *testing.T) {
	store := memory.New()
	doc := `{"income":[{"id":"a","title":"Salary","amount":10},{"id":"a","title":"Dup","amount":5}],"expenses":[{"id":"x","title":"","amount":1}]}`
	_ = store.Save(context.Background(), []byte(doc))
	exp := sheetsmem.New()
	w := NewSheetsSync(store, exp, quiet())

	if _, err := w.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	got, _ := exp.Last()
	if len(got.Income) != 1 || len(got.Expenses) != 0 {
		t.Fatalf("exported %+v", got)
	}
}

func TestSyncErrors(t *testing.T) {
	store := memory.New()
	_ = store.Save(context.Background(), []byte("{broken"))
	w := NewSheetsSync(store, sheetsmem.New(), quiet())
	if _, err := w.SyncNow(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}

	boom := errors.New("quota exceeded")
	w = NewSheetsSync(memory.New(), failingExporter{err: boom}, quiet())
	if _, err := w.SyncNow(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected exporter error, got %v", err)
	}
	// A failed export is retried by the next notification.
	if err := w.HandleLedgerChanged(context.Background(), &amqp.LedgerChangedMessage{}); !errors.Is(err, boom) {
		t.Fatalf("expected retry to hit exporter, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	exp := sheetsmem.New()
	w := NewSheetsSync(memory.New(), exp, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 10*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for {
		if _, n := exp.Last(); n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("periodic sync did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestRunRejectsBadInterval(t *testing.T) {
	w := NewSheetsSync(memory.New(), sheetsmem.New(), quiet())
	if err := w.Run(context.Background(), 0); err == nil {
		t.Fatal("expected error")
	}
}
