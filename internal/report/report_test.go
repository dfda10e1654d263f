package report

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

func sampleSnapshot() ledger.Snapshot {
	return ledger.Snapshot{
		Income: []core.Entry{
			{ID: "i1", Title: "Salary", Amount: core.Money{Cents: 5000000}},
			{ID: "i2", Title: "Freelance | side", Amount: core.Money{Cents: 1250000}},
		},
		Expenses: []core.Entry{
			{ID: "e1", Title: "Rent", Amount: core.Money{Cents: 1500000}},
		},
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2025, time.March, 7, 10, 0, 0, 0, time.UTC), "expense-report-2025-3-7.pdf"},
		{time.Date(2024, time.December, 31, 23, 59, 0, 0, time.UTC), "expense-report-2024-12-31.pdf"},
	}
	for _, tt := range tests {
		if got := Filename(tt.now); got != tt.want {
			t.Fatalf("Filename(%v) = %q, want %q", tt.now, got, tt.want)
		}
	}
}

func TestBuild(t *testing.T) {
	snap := sampleSnapshot()
	now := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	r := Build(snap, snap.Summary(), now)

	if r.Title != "Expense Manager Report" {
		t.Fatalf("title = %q", r.Title)
	}
	if got := r.GeneratedOn(); got != "Generated on: 3/7/2025" {
		t.Fatalf("GeneratedOn() = %q", got)
	}
	if r.Summary.Balance.Cents != 4750000 {
		t.Fatalf("balance = %d, want 4750000", r.Summary.Balance.Cents)
	}
	if len(r.IncomePie.Slices) != 2 || r.IncomePie.Slices[0].Percent != 80 {
		t.Fatalf("income pie = %+v", r.IncomePie)
	}
	if r.ExpensePie.Title != "Expense Distribution" {
		t.Fatalf("expense pie title = %q", r.ExpensePie.Title)
	}
}

func TestMarkdown(t *testing.T) {
	snap := sampleSnapshot()
	md := Build(snap, snap.Summary(), time.Now()).Markdown()
	for _, want := range []string{
		"# Expense Manager Report",
		"| Total Income | ₹62,500.00 |",
		"| **Remaining Balance** | **₹47,500.00** |",
		"### Income Details",
		"| ID | Source | Amount |",
		`Freelance \| side`,
		"### Expense Details",
		"| ID | Title | Amount |",
		"| | **Total** | **₹15,000.00** |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, core.OverspendWarning) {
		t.Fatalf("unexpected overspend warning")
	}
}

func TestSummaryMarkdownOverspent(t *testing.T) {
	s := core.NewSummary(core.Money{Cents: 100}, core.Money{Cents: 500})
	md := SummaryMarkdown(s)
	if !strings.Contains(md, core.OverspendWarning) {
		t.Fatalf("expected warning in %q", md)
	}
	if !strings.Contains(md, "-₹4.00") {
		t.Fatalf("expected negative balance in %q", md)
	}
}

func TestEntriesMarkdownEmpty(t *testing.T) {
	md := EntriesMarkdown(core.Expense, nil)
	if !strings.Contains(md, "_No expense entries._") {
		t.Fatalf("got %q", md)
	}
}

func TestWritePDF(t *testing.T) {
	tests := []struct {
		name string
		snap ledger.Snapshot
	}{
		{"empty", ledger.Snapshot{}},
		{"sample", sampleSnapshot()},
		{"overspent", ledger.Snapshot{Expenses: []core.Entry{{ID: "e", Title: "Café ₹", Amount: core.Money{Cents: 1}}}}},
		{"many rows", manyRows(90)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := Build(tt.snap, tt.snap.Summary(), time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
			if err := WritePDF(&buf, r); err != nil {
				t.Fatalf("WritePDF: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
				t.Fatalf("output is not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
			}
		})
	}
}

func manyRows(n int) ledger.Snapshot {
	var s ledger.Snapshot
	for i := 0; i < n; i++ {
		s.Income = append(s.Income, core.Entry{
			ID:     fmt.Sprintf("i%d", i),
			Title:  strings.Repeat("long income title ", 4),
			Amount: core.Money{Cents: int64(100 + i)},
		})
	}
	s.Expenses = s.Income[:n/3]
	return s
}
