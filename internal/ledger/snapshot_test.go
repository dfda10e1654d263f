package ledger

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"bilancio/internal/core"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	src := New()
	inc, _ := src.AddIncome("Salary", money(5000000))
	_, _ = src.AddIncome("Freelance", money(1250))
	exp, _ := src.AddExpense("Rent", money(1500000))
	_, _ = src.AddExpense("Coffee", money(1))
	_, _ = src.EditIncome(inc, "Salary (net)", money(4800000))
	src.DeleteExpense(exp)

	data, err := src.Snapshot().Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	dst := New()
	if err := dst.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !dst.Snapshot().Equal(src.Snapshot()) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", dst.Snapshot(), src.Snapshot())
	}
	if dst.Balance() != src.Balance() {
		t.Fatalf("balance mismatch")
	}
}

func TestSnapshotWireShape(t *testing.T) {
	l := New(WithIDGenerator(sequentialIDs()))
	_, _ = l.AddIncome("Salary", money(5000000))
	_, _ = l.AddExpense("Tea", money(1250))

	data, err := l.Snapshot().Encode()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"income":[{"id":"id-1","title":"Salary","amount":50000}],"expenses":[{"id":"id-2","title":"Tea","amount":12.5}]}`
	if string(data) != want {
		t.Fatalf("wire = %s\nwant %s", data, want)
	}

	empty, _ := New().Snapshot().Encode()
	if string(empty) != `{"income":[],"expenses":[]}` {
		t.Fatalf("empty wire = %s", empty)
	}
}

func TestRestoreRejectsMalformedEntries(t *testing.T) {
	snap := Snapshot{
		Income: []core.Entry{
			{ID: "a", Title: "ok", Amount: money(100)},
			{ID: "", Title: "no id", Amount: money(100)},
			{ID: "b", Title: "", Amount: money(100)},
			{ID: "a", Title: "dup", Amount: money(100)},
		},
		Expenses: []core.Entry{
			{ID: "c", Title: "neg", Amount: money(-1)},
			{ID: "d", Title: "ok", Amount: money(5)},
		},
	}
	l := New()
	err := l.Restore(snap)
	var rerr *RestoreError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RestoreError, got %v", err)
	}
	if len(rerr.Rejected) != 4 {
		t.Fatalf("rejected = %d: %v", len(rerr.Rejected), rerr)
	}
	if !errors.Is(rerr.Rejected[2].Err, ErrDuplicateID) {
		t.Fatalf("expected duplicate rejection, got %v", rerr.Rejected[2])
	}
	if l.Len(core.Income) != 1 || l.Len(core.Expense) != 1 {
		t.Fatalf("admitted income=%d expenses=%d", l.Len(core.Income), l.Len(core.Expense))
	}
	if l.Balance().Cents != 95 {
		t.Fatalf("balance = %d", l.Balance().Cents)
	}
}

func TestRestoreReplacesState(t *testing.T) {
	l := New()
	_, _ = l.AddIncome("old", money(1))
	if err := l.Restore(Snapshot{}); err != nil {
		t.Fatal(err)
	}
	if l.Len(core.Income) != 0 {
		t.Fatalf("restore did not replace state")
	}
}

func TestDecodeSnapshotTamperedEntries(t *testing.T) {
	data := `{
		"income": [
			{"id": "a", "title": "Salary", "amount": 50000},
			{"id": 7, "title": "wrong id type", "amount": 1},
			{"id": "b", "title": "no amount"},
			{"id": "c", "title": "string amount", "amount": "12.5"}
		],
		"expenses": [
			{"id": "d", "title": "Rent", "amount": 15000.004},
			"not an object"
		]
	}`
	snap, err := DecodeSnapshot([]byte(data))
	var rerr *RestoreError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RestoreError, got %v", err)
	}
	if len(rerr.Rejected) != 3 {
		t.Fatalf("rejected = %v", rerr)
	}
	if len(snap.Income) != 2 || snap.Income[1].Amount.Cents != 1250 {
		t.Fatalf("income = %+v", snap.Income)
	}
	if len(snap.Expenses) != 1 || snap.Expenses[0].Amount.Cents != 1500000 {
		t.Fatalf("expenses = %+v", snap.Expenses)
	}
	if !strings.Contains(err.Error(), "income[1]") {
		t.Fatalf("error does not name the entry: %v", err)
	}
}

func TestDecodeSnapshotInvalidDocument(t *testing.T) {
	if _, err := DecodeSnapshot([]byte(`[1,2`)); err == nil {
		t.Fatalf("expected error")
	}
	var s Snapshot
	if err := json.Unmarshal([]byte(`{"income":[{"id":"x","title":"t","amount":0}]}`), &s); err == nil {
		t.Fatalf("strict unmarshal accepted zero amount")
	}
}
