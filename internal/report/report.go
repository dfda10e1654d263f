// Package report assembles the exportable view of a ledger: summary totals,
// the two distribution charts and the detailed entry tables.
package report

import (
	"fmt"
	"strings"
	"time"

	"bilancio/internal/chart"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

const Title = "Expense Manager Report"

type Report struct {
	Title       string
	GeneratedAt time.Time
	Summary     core.Summary
	Income      []core.Entry
	Expenses    []core.Entry
	IncomePie   chart.Pie
	ExpensePie  chart.Pie
}

// Build captures the snapshot and its totals at time now.
func Build(snap ledger.Snapshot, sum core.Summary, now time.Time) Report {
	return Report{
		Title:       Title,
		GeneratedAt: now,
		Summary:     sum,
		Income:      snap.Income,
		Expenses:    snap.Expenses,
		IncomePie:   chart.ForKind(core.Income, snap.Income),
		ExpensePie:  chart.ForKind(core.Expense, snap.Expenses),
	}
}

// Filename returns expense-report-YYYY-M-D.pdf, month and day unpadded.
func Filename(now time.Time) string {
	return fmt.Sprintf("expense-report-%d-%d-%d.pdf", now.Year(), int(now.Month()), now.Day())
}

// GeneratedOn is the subtitle line printed under the title.
func (r Report) GeneratedOn() string {
	return "Generated on: " + r.GeneratedAt.Format("1/2/2006")
}

// Markdown renders the report as a markdown document for terminals.
func (r Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", r.Title, r.GeneratedOn())
	b.WriteString(SummaryMarkdown(r.Summary))
	b.WriteString("\n## Detailed Breakdown\n\n")
	b.WriteString(EntriesMarkdown(core.Income, r.Income))
	b.WriteString("\n")
	b.WriteString(EntriesMarkdown(core.Expense, r.Expenses))
	return b.String()
}

// SummaryMarkdown renders the financial summary table.
func SummaryMarkdown(s core.Summary) string {
	var b strings.Builder
	b.WriteString("## Financial Summary\n\n")
	b.WriteString("| | Amount |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Total Income | %s |\n", s.Income.Format())
	fmt.Fprintf(&b, "| Total Expenses | %s |\n", s.Expenses.Format())
	fmt.Fprintf(&b, "| **Remaining Balance** | **%s** |\n", s.Balance.Format())
	if s.Overspent() {
		fmt.Fprintf(&b, "\n> %s\n", core.OverspendWarning)
	}
	return b.String()
}

// EntriesMarkdown renders one sequence as a table with a total row.
func EntriesMarkdown(kind core.Kind, entries []core.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s Details\n\n", kind.Label())
	if len(entries) == 0 {
		fmt.Fprintf(&b, "_No %s entries._\n", strings.ToLower(kind.Label()))
		return b.String()
	}
	fmt.Fprintf(&b, "| ID | %s | Amount |\n|---|---|---:|\n", firstColumn(kind))
	var sum core.Money
	for _, e := range entries {
		sum = sum.Add(e.Amount)
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", e.ID, escapeCell(e.Title), e.Amount.Format())
	}
	fmt.Fprintf(&b, "| | **Total** | **%s** |\n", sum.Format())
	return b.String()
}

func firstColumn(kind core.Kind) string {
	if kind == core.Income {
		return "Source"
	}
	return "Title"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
