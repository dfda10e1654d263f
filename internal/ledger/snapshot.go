package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

// Snapshot is the complete serializable state of a Ledger.
type Snapshot struct {
	Income   []core.Entry
	Expenses []core.Entry
}

// Rejection describes one persisted entry that could not be admitted.
type Rejection struct {
	Kind  core.Kind
	Index int
	ID    string
	Err   error
}

func (r Rejection) String() string {
	if r.ID != "" {
		return fmt.Sprintf("%s[%d] (id %s): %v", r.Kind, r.Index, r.ID, r.Err)
	}
	return fmt.Sprintf("%s[%d]: %v", r.Kind, r.Index, r.Err)
}

// RestoreError lists the entries dropped while decoding or restoring a
// snapshot. The valid remainder is still admitted.
type RestoreError struct {
	Rejected []Rejection
}

func (e *RestoreError) Error() string {
	msgs := make([]string, len(e.Rejected))
	for i, r := range e.Rejected {
		msgs[i] = r.String()
	}
	return fmt.Sprintf("%d snapshot entries rejected: %s", len(e.Rejected), strings.Join(msgs, "; "))
}

var ErrDuplicateID = errors.New("duplicate id")

// Snapshot returns a deep copy of both sequences.
func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{Income: l.Income(), Expenses: l.Expenses()}
}

// Restore replaces both sequences with the valid entries of s. Entries that
// fail validation, repeat an id already admitted to the same sequence or push
// its total out of range are skipped and reported through a *RestoreError.
func (l *Ledger) Restore(s Snapshot) error {
	var rej []Rejection
	l.income = admit(core.Income, s.Income, &rej)
	l.expenses = admit(core.Expense, s.Expenses, &rej)
	if len(rej) > 0 {
		return &RestoreError{Rejected: rej}
	}
	return nil
}

func admit(kind core.Kind, in []core.Entry, rej *[]Rejection) []core.Entry {
	out := make([]core.Entry, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	var sum core.Money
	for i, e := range in {
		if err := e.Validate(); err != nil {
			*rej = append(*rej, Rejection{Kind: kind, Index: i, ID: e.ID, Err: err})
			continue
		}
		if _, dup := seen[e.ID]; dup {
			*rej = append(*rej, Rejection{Kind: kind, Index: i, ID: e.ID, Err: ErrDuplicateID})
			continue
		}
		next, ok := sum.CheckedAdd(e.Amount)
		if !ok {
			*rej = append(*rej, Rejection{Kind: kind, Index: i, ID: e.ID, Err: core.ErrTotalOverflow})
			continue
		}
		sum = next
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Summary computes totals straight from the snapshot.
func (s Snapshot) Summary() core.Summary {
	return core.NewSummary(total(s.Income), total(s.Expenses))
}

// Entries returns the sequence of the given kind.
func (s Snapshot) Entries(kind core.Kind) []core.Entry {
	if kind == core.Income {
		return s.Income
	}
	return s.Expenses
}

type entryJSON struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Amount json.Number `json:"amount"`
}

type snapshotJSON struct {
	Income   []entryJSON `json:"income"`
	Expenses []entryJSON `json:"expenses"`
}

// rawSnapshotJSON defers entry decoding so one malformed entry does not
// discard the whole snapshot.
type rawSnapshotJSON struct {
	Income   []json.RawMessage `json:"income"`
	Expenses []json.RawMessage `json:"expenses"`
}

// MarshalJSON writes {"income":[{id,title,amount}],"expenses":[...]} with
// amounts as numbers in currency units.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Income:   encodeEntries(s.Income),
		Expenses: encodeEntries(s.Expenses),
	})
}

func encodeEntries(entries []core.Entry) []entryJSON {
	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = entryJSON{ID: e.ID, Title: e.Title, Amount: json.Number(e.Amount.Decimal().String())}
	}
	return out
}

// Encode serializes the snapshot for persistence.
func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses persisted bytes. A structurally invalid document is
// an error and yields an empty snapshot. Individual entries with missing or
// wrongly typed fields are dropped and reported through a *RestoreError
// alongside the decoded remainder.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var raw rawSnapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	var rej []Rejection
	s := Snapshot{
		Income:   decodeEntries(core.Income, raw.Income, &rej),
		Expenses: decodeEntries(core.Expense, raw.Expenses, &rej),
	}
	if len(rej) > 0 {
		return s, &RestoreError{Rejected: rej}
	}
	return s, nil
}

func decodeEntries(kind core.Kind, raw []json.RawMessage, rej *[]Rejection) []core.Entry {
	out := make([]core.Entry, 0, len(raw))
	for i, msg := range raw {
		var ej entryJSON
		if err := json.Unmarshal(msg, &ej); err != nil {
			*rej = append(*rej, Rejection{Kind: kind, Index: i, Err: fmt.Errorf("malformed entry: %w", err)})
			continue
		}
		amount, err := decodeAmount(ej.Amount)
		if err != nil {
			*rej = append(*rej, Rejection{Kind: kind, Index: i, ID: ej.ID, Err: &core.ValidationError{Field: "amount", Err: err}})
			continue
		}
		out = append(out, core.Entry{ID: ej.ID, Title: ej.Title, Amount: amount})
	}
	return out
}

func decodeAmount(n json.Number) (core.Money, error) {
	if n == "" {
		return core.Money{}, core.ErrInvalidAmount
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return core.Money{}, core.ErrInvalidAmount
	}
	return core.MoneyFromDecimal(d)
}

// UnmarshalJSON is strict: any rejected entry fails the whole decode. Use
// DecodeSnapshot to keep the valid remainder.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}

// Equal reports whether two snapshots hold the same entries in the same order.
func (s Snapshot) Equal(o Snapshot) bool {
	return slices.Equal(s.Income, o.Income) && slices.Equal(s.Expenses, o.Expenses)
}
