// Package ledger keeps the income and expense entries of one session and
// computes their totals.
//
// A Ledger is owned by a single caller and is not safe for concurrent use.
// It never persists, renders or notifies; callers do that after each
// successful mutation.
package ledger

import (
	"errors"
	"slices"

	"bilancio/internal/core"

	"github.com/google/uuid"
)

// maxIDAttempts bounds regeneration when a generated id is already taken.
const maxIDAttempts = 8

var ErrIDExhausted = errors.New("could not generate a unique entry id")

type Ledger struct {
	income   []core.Entry
	expenses []core.Entry
	newID    func() string
}

type Option func(*Ledger)

// WithIDGenerator replaces the default random UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) {
		if gen != nil {
			l.newID = gen
		}
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{newID: uuid.NewString}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) AddIncome(title string, amount core.Money) (string, error) {
	return l.Add(core.Income, title, amount)
}

func (l *Ledger) AddExpense(title string, amount core.Money) (string, error) {
	return l.Add(core.Expense, title, amount)
}

func (l *Ledger) EditIncome(id, title string, amount core.Money) (bool, error) {
	return l.Edit(core.Income, id, title, amount)
}

func (l *Ledger) EditExpense(id, title string, amount core.Money) (bool, error) {
	return l.Edit(core.Expense, id, title, amount)
}

func (l *Ledger) DeleteIncome(id string) bool {
	ok, _ := l.Delete(core.Income, id)
	return ok
}

func (l *Ledger) DeleteExpense(id string) bool {
	ok, _ := l.Delete(core.Expense, id)
	return ok
}

// Add appends a new entry to the sequence of the given kind and returns its id.
func (l *Ledger) Add(kind core.Kind, title string, amount core.Money) (string, error) {
	seq, err := l.seq(kind)
	if err != nil {
		return "", err
	}
	if err := core.ValidateInput(title, amount); err != nil {
		return "", err
	}
	if _, ok := total(*seq).CheckedAdd(amount); !ok {
		return "", &core.ValidationError{Field: "amount", Err: core.ErrTotalOverflow}
	}
	id, err := l.generateID()
	if err != nil {
		return "", err
	}
	*seq = append(*seq, core.Entry{ID: id, Title: title, Amount: amount})
	return id, nil
}

// Edit replaces title and amount of an existing entry in place. It reports
// false without error when id is unknown.
func (l *Ledger) Edit(kind core.Kind, id, title string, amount core.Money) (bool, error) {
	seq, err := l.seq(kind)
	if err != nil {
		return false, err
	}
	if err := core.ValidateInput(title, amount); err != nil {
		return false, err
	}
	i := indexOf(*seq, id)
	if i < 0 {
		return false, nil
	}
	rest := total(*seq).Sub((*seq)[i].Amount)
	if _, ok := rest.CheckedAdd(amount); !ok {
		return false, &core.ValidationError{Field: "amount", Err: core.ErrTotalOverflow}
	}
	(*seq)[i].Title = title
	(*seq)[i].Amount = amount
	return true, nil
}

// Delete removes the entry with the given id and reports whether it existed.
func (l *Ledger) Delete(kind core.Kind, id string) (bool, error) {
	seq, err := l.seq(kind)
	if err != nil {
		return false, err
	}
	i := indexOf(*seq, id)
	if i < 0 {
		return false, nil
	}
	*seq = slices.Delete(*seq, i, i+1)
	return true, nil
}

func (l *Ledger) TotalIncome() core.Money { return total(l.income) }

func (l *Ledger) TotalExpenses() core.Money { return total(l.expenses) }

func (l *Ledger) Balance() core.Money {
	return l.TotalIncome().Sub(l.TotalExpenses())
}

func (l *Ledger) Summary() core.Summary {
	return core.NewSummary(l.TotalIncome(), l.TotalExpenses())
}

// Income returns a copy of the income entries in display order.
func (l *Ledger) Income() []core.Entry { return slices.Clone(l.income) }

// Expenses returns a copy of the expense entries in display order.
func (l *Ledger) Expenses() []core.Entry { return slices.Clone(l.expenses) }

// Entries returns a copy of the sequence of the given kind.
func (l *Ledger) Entries(kind core.Kind) ([]core.Entry, error) {
	seq, err := l.seq(kind)
	if err != nil {
		return nil, err
	}
	return slices.Clone(*seq), nil
}

// Get looks up a single entry.
func (l *Ledger) Get(kind core.Kind, id string) (core.Entry, bool) {
	seq, err := l.seq(kind)
	if err != nil {
		return core.Entry{}, false
	}
	i := indexOf(*seq, id)
	if i < 0 {
		return core.Entry{}, false
	}
	return (*seq)[i], true
}

// Len returns the number of entries of the given kind.
func (l *Ledger) Len(kind core.Kind) int {
	seq, err := l.seq(kind)
	if err != nil {
		return 0
	}
	return len(*seq)
}

func (l *Ledger) seq(kind core.Kind) (*[]core.Entry, error) {
	switch kind {
	case core.Income:
		return &l.income, nil
	case core.Expense:
		return &l.expenses, nil
	}
	return nil, core.ErrUnknownKind
}

func (l *Ledger) generateID() (string, error) {
	for range maxIDAttempts {
		id := l.newID()
		if id == "" {
			continue
		}
		if indexOf(l.income, id) < 0 && indexOf(l.expenses, id) < 0 {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

func indexOf(entries []core.Entry, id string) int {
	return slices.IndexFunc(entries, func(e core.Entry) bool { return e.ID == id })
}

func total(entries []core.Entry) core.Money {
	var sum core.Money
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}
