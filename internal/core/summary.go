package core

// OverspendWarning is shown whenever expenses exceed income.
const OverspendWarning = "Warning: Your expenses exceed your income!"

// Summary holds the aggregate totals of a ledger.
type Summary struct {
	Income   Money
	Expenses Money
	Balance  Money
}

// NewSummary derives the balance from the two totals.
func NewSummary(income, expenses Money) Summary {
	return Summary{Income: income, Expenses: expenses, Balance: income.Sub(expenses)}
}

// Overspent reports whether expenses exceed income.
func (s Summary) Overspent() bool {
	return s.Expenses.Cents > s.Income.Cents
}
