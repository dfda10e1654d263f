package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// MaxTitleLength bounds entry titles in characters.
const MaxTitleLength = 200

// MaxAmountCents caps a single entry at ₹1,000 crore. Millions of entries at
// the cap still fit in int64 cents.
const MaxAmountCents = 1_000_000_000_000

var MaxAmount = Money{Cents: MaxAmountCents}

type (
	// Kind selects one of the two ledger sequences.
	Kind string

	Money struct {
		Cents int64
	}

	// Entry is one recorded income or expense line item.
	Entry struct {
		ID     string
		Title  string
		Amount Money
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountTooLarge = errors.New("amount too large")
	ErrTotalOverflow  = errors.New("total out of range")
	ErrEmptyTitle     = errors.New("empty title")
	ErrTitleTooLong   = fmt.Errorf("title too long (max %d characters)", MaxTitleLength)
	ErrEmptyID        = errors.New("empty id")
	ErrUnknownKind    = errors.New("unknown entry kind")
)

// ValidationError reports which input field was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ParseKind accepts "income" and "expense", plus the plural forms used in
// URLs and the persisted snapshot.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "incomes":
		return Income, nil
	case "expense", "expenses":
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) IsValid() bool {
	return k == Income || k == Expense
}

func (k Kind) String() string { return string(k) }

// Label is the human readable, capitalised name of the kind.
func (k Kind) Label() string {
	switch k {
	case Income:
		return "Income"
	case Expense:
		return "Expense"
	}
	return string(k)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmount.Cents {
		return ErrAmountTooLarge
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// CheckedAdd is Add that reports false instead of wrapping around.
func (m Money) CheckedAdd(o Money) (Money, bool) {
	sum := m.Cents + o.Cents
	if (o.Cents > 0 && sum < m.Cents) || (o.Cents < 0 && sum > m.Cents) {
		return Money{}, false
	}
	return Money{Cents: sum}, true
}

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsNegative() bool { return m.Cents < 0 }

// ValidateInput checks the user supplied part of an entry.
func ValidateInput(title string, amount Money) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Err: ErrEmptyTitle}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return &ValidationError{Field: "title", Err: ErrTitleTooLong}
	}
	if err := amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	return nil
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return &ValidationError{Field: "id", Err: ErrEmptyID}
	}
	return ValidateInput(e.Title, e.Amount)
}
