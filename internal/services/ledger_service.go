package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/log"
	"bilancio/internal/report"
	"bilancio/internal/storage"
)

// Notifier publishes change notifications after a mutation is persisted.
type Notifier interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// Outcome is what a mutation reports back to the transport layer.
type Outcome struct {
	ID      string `json:"id"`
	Changed bool   `json:"changed"`
	Warning string `json:"warning,omitempty"`
}

// LedgerService owns the process' Ledger. It serializes access to it and
// runs persist, publish and the balance check after every mutation.
type LedgerService struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	store    storage.SnapshotStore
	notifier Notifier
	logger   *log.Logger
}

type Option func(*LedgerService)

// WithNotifier enables change notifications. A nil notifier disables them.
func WithNotifier(n Notifier) Option {
	return func(s *LedgerService) { s.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

// WithLedger replaces the empty ledger the service starts from, mainly to
// inject an id generator.
func WithLedger(l *ledger.Ledger) Option {
	return func(s *LedgerService) { s.ledger = l }
}

// NewLedgerService restores the persisted snapshot from store. Entries that
// cannot be restored are logged and dropped; an unreadable document starts
// an empty ledger. Only a failing store is an error.
func NewLedgerService(ctx context.Context, store storage.SnapshotStore, opts ...Option) (*LedgerService, error) {
	if store == nil {
		return nil, errors.New("snapshot store is required")
	}
	s := &LedgerService{
		store:  store,
		logger: log.Default(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ledger == nil {
		s.ledger = ledger.New()
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LedgerService) load(ctx context.Context) error {
	data, err := s.store.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.InfoContext(ctx, "No persisted snapshot, starting empty", log.FieldOperation, log.OpRestore)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	snap, err := ledger.DecodeSnapshot(data)
	if err != nil && !s.logRejected(ctx, err) {
		s.logger.WarnContext(ctx, "Discarding unreadable snapshot",
			log.FieldOperation, log.OpRestore, log.FieldError, err)
		return nil
	}
	if err := s.ledger.Restore(snap); err != nil {
		s.logRejected(ctx, err)
	}

	sum := s.ledger.Summary()
	s.logger.InfoContext(ctx, "Ledger restored",
		log.FieldOperation, log.OpRestore,
		"income_entries", s.ledger.Len(core.Income),
		"expense_entries", s.ledger.Len(core.Expense),
		log.FieldBalance, sum.Balance.Cents)
	return nil
}

// logRejected reports whether err was a *ledger.RestoreError.
func (s *LedgerService) logRejected(ctx context.Context, err error) bool {
	var rerr *ledger.RestoreError
	if !errors.As(err, &rerr) {
		return false
	}
	for _, r := range rerr.Rejected {
		s.logger.WarnContext(ctx, "Dropped persisted entry",
			log.FieldOperation, log.OpRestore,
			log.FieldKind, r.Kind,
			log.FieldEntryID, r.ID,
			"index", r.Index,
			log.FieldError, r.Err)
	}
	return true
}

// Add records a new entry of the given kind.
func (s *LedgerService) Add(ctx context.Context, kind core.Kind, title string, amount core.Money) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.ledger.Snapshot()
	id, err := s.ledger.Add(kind, title, amount)
	if err != nil {
		return Outcome{}, err
	}
	return s.commit(ctx, prev, kind, amqp.OpCreate, id, amount)
}

// Edit replaces title and amount of an existing entry. An unknown id is
// reported as Changed == false without touching storage.
func (s *LedgerService) Edit(ctx context.Context, kind core.Kind, id, title string, amount core.Money) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.ledger.Snapshot()
	ok, err := s.ledger.Edit(kind, id, title, amount)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return s.unchanged(id), nil
	}
	return s.commit(ctx, prev, kind, amqp.OpUpdate, id, amount)
}

// Delete removes an entry. Deleting an unknown id is a no-op.
func (s *LedgerService) Delete(ctx context.Context, kind core.Kind, id string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.ledger.Snapshot()
	entry, _ := s.ledger.Get(kind, id)
	ok, err := s.ledger.Delete(kind, id)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return s.unchanged(id), nil
	}
	return s.commit(ctx, prev, kind, amqp.OpDelete, id, entry.Amount)
}

func (s *LedgerService) unchanged(id string) Outcome {
	return Outcome{ID: id, Warning: warning(s.ledger.Summary())}
}

// commit persists the mutated ledger, publishes the change and runs the
// balance check. A failed save rolls the ledger back to prev.
func (s *LedgerService) commit(ctx context.Context, prev ledger.Snapshot, kind core.Kind, op, id string, amount core.Money) (Outcome, error) {
	fields := log.NewFields().WithEntry(kind.String(), id, amount.Cents).WithOperation(op)

	if err := s.persist(ctx); err != nil {
		_ = s.ledger.Restore(prev)
		s.logger.ErrorContext(ctx, "Failed to persist ledger", fields.WithError(err).ToSlice()...)
		return Outcome{}, fmt.Errorf("persist snapshot: %w", err)
	}

	sum := s.ledger.Summary()
	s.publish(ctx, amqp.NewLedgerChangedMessage(kind, op, id, sum))

	out := Outcome{ID: id, Changed: true, Warning: warning(sum)}
	fields[log.FieldBalance] = sum.Balance.Cents
	s.logger.InfoContext(ctx, "Ledger updated", fields.ToSlice()...)
	if out.Warning != "" {
		s.logger.WarnContext(ctx, out.Warning, log.FieldBalance, sum.Balance.Cents)
	}
	return out, nil
}

func (s *LedgerService) persist(ctx context.Context) error {
	data, err := s.ledger.Snapshot().Encode()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return s.store.Save(ctx, data)
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerChangedMessage) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishLedgerChanged(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			log.FieldOperation, log.OpPublish,
			log.FieldEntryID, msg.EntryID,
			log.FieldError, err)
	}
}

func warning(sum core.Summary) string {
	if sum.Overspent() {
		return core.OverspendWarning
	}
	return ""
}

func (s *LedgerService) Summary() core.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Summary()
}

func (s *LedgerService) Entries(kind core.Kind) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Entries(kind)
}

func (s *LedgerService) Get(kind core.Kind, id string) (core.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Get(kind, id)
}

func (s *LedgerService) Snapshot() ledger.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot()
}

// Report builds the export view stamped with now.
func (s *LedgerService) Report(now time.Time) report.Report {
	s.mu.Lock()
	snap := s.ledger.Snapshot()
	s.mu.Unlock()
	return report.Build(snap, snap.Summary(), now)
}

// Ping checks that the snapshot store answers.
func (s *LedgerService) Ping(ctx context.Context) error {
	if _, err := s.store.Load(ctx); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("snapshot store: %w", err)
	}
	return nil
}
