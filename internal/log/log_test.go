package log

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentLedger, Output: &buf})
	l.InfoContext(context.Background(), "Entry added", FieldEntryID, "abc")

	out := buf.String()
	for _, want := range []string{"component=ledger", "entry_id=abc", `msg="Entry added"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line %q missing %q", out, want)
		}
	}

	buf.Reset()
	l.WithComponent(ComponentSheets).Warn("sync failed")
	if !strings.Contains(buf.String(), "component=sheets") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestFieldsToSliceIsSorted(t *testing.T) {
	got := NewFields().
		WithOperation(OpCreate).
		WithEntry("income", "id-1", 500).
		WithError(errors.New("boom")).
		ToSlice()
	want := []any{
		FieldAmount, int64(500),
		FieldEntryID, "id-1",
		FieldError, "boom",
		FieldKind, "income",
		FieldOperation, OpCreate,
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWithErrorNil(t *testing.T) {
	f := NewFields().WithError(nil)
	if _, ok := f[FieldError]; ok {
		t.Fatal("nil error should not add a field")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Component: ComponentHTTP, Output: &buf})
	h := RequestIDMiddleware(base, func(*http.Request) string { return "req-42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			LogHTTPEnd(r.Context(), r, http.StatusTeapot, 3, "127.0.0.1")
		}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	out := buf.String()
	for _, want := range []string{"level=WARN", "request_id=req-42", "status_code=418", "path=/healthz"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line %q missing %q", out, want)
		}
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if got := FromContext(context.Background()).Component(); got != ComponentHTTP {
		t.Fatalf("component = %q", got)
	}
}
