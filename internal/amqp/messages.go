package amqp

import (
	"encoding/json"
	"time"

	"bilancio/internal/core"
)

// Operations carried by LedgerChangedMessage.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// LedgerChangedMessage announces a committed ledger mutation. It is a
// notification only; consumers read the persisted snapshot for the state.
type LedgerChangedMessage struct {
	Kind          core.Kind `json:"kind"`
	Operation     string    `json:"operation"`
	EntryID       string    `json:"entry_id"`
	IncomeCents   int64     `json:"income_cents"`
	ExpensesCents int64     `json:"expenses_cents"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage stamps a notification with the current time and
// the totals after the mutation.
func NewLedgerChangedMessage(kind core.Kind, op, entryID string, s core.Summary) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Kind:          kind,
		Operation:     op,
		EntryID:       entryID,
		IncomeCents:   s.Income.Cents,
		ExpensesCents: s.Expenses.Cents,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
