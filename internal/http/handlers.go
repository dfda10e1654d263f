package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"

	"bilancio/internal/chart"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/log"
	"bilancio/internal/report"
)

// formError is rendered next to the form whose input was rejected.
type formError struct {
	Kind    core.Kind
	ID      string
	Field   string
	Message string
	Title   string
	Amount  string
}

// section is one ledger sequence as shown on the page.
type section struct {
	Kind    core.Kind
	Label   string
	Path    string
	Column  string
	Entries []core.Entry
	Total   core.Money
	Pie     chart.Pie
	Error   *formError
}

type indexData struct {
	Summary  core.Summary
	Sections []section
	Warning  string
}

func newSection(kind core.Kind, entries []core.Entry, ferr *formError) section {
	sec := section{
		Kind:    kind,
		Label:   kind.Label(),
		Path:    "/expenses",
		Column:  "Title",
		Entries: entries,
		Pie:     chart.ForKind(kind, entries),
	}
	if kind == core.Income {
		sec.Path, sec.Column = "/income", "Source"
	}
	sec.Total = sec.Pie.Total
	if ferr != nil && ferr.Kind == kind {
		sec.Error = ferr
	}
	return sec
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports whether the snapshot store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Ping(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	s.renderIndex(w, r, http.StatusOK, nil)
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, ferr *formError) {
	snap := s.ledger.Snapshot()
	sum := snap.Summary()
	data := indexData{
		Summary: sum,
		Sections: []section{
			newSection(core.Income, snap.Income, ferr),
			newSection(core.Expense, snap.Expenses, ferr),
		},
	}
	if r.URL.Query().Get("warning") == "1" && sum.Overspent() {
		data.Warning = core.OverspendWarning
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err, "template", "index.html")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCreate(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) || !s.readForm(w, r) {
			return
		}
		f, err := parseEntryForm(r, false)
		if err != nil {
			s.rejectInput(w, r, kind, f, err)
			return
		}
		out, err := s.ledger.Add(r.Context(), kind, f.Title, f.Amount)
		if err != nil {
			s.mutationFailed(w, r, kind, f, err)
			return
		}
		newMutationResponse(out).Status(http.StatusCreated).Write(w, r)
	}
}

func (s *Server) handleEdit(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) || !s.readForm(w, r) {
			return
		}
		f, err := parseEntryForm(r, true)
		if err != nil {
			s.rejectInput(w, r, kind, f, err)
			return
		}
		out, err := s.ledger.Edit(r.Context(), kind, f.ID, f.Title, f.Amount)
		if err != nil {
			s.mutationFailed(w, r, kind, f, err)
			return
		}
		if !out.Changed {
			writeError(w, r, http.StatusNotFound, kind.Label()+" entry not found", "id")
			return
		}
		newMutationResponse(out).Write(w, r)
	}
}

func (s *Server) handleDelete(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) || !s.readForm(w, r) {
			return
		}
		id, err := parseIDForm(r)
		if err != nil {
			s.rejectInput(w, r, kind, entryForm{}, err)
			return
		}
		out, err := s.ledger.Delete(r.Context(), kind, id)
		if err != nil {
			s.mutationFailed(w, r, kind, entryForm{ID: id}, err)
			return
		}
		newMutationResponse(out).Write(w, r)
	}
}

func (s *Server) readForm(w http.ResponseWriter, r *http.Request) bool {
	if err := parseForm(w, r); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Parse form error",
			log.FieldError, err, log.FieldPath, r.URL.Path)
		writeError(w, r, http.StatusBadRequest, "invalid form submission", "")
		return false
	}
	return true
}

// rejectInput answers a validation failure with 422: JSON clients get the
// field, browsers get the page back with the message next to the form.
func (s *Server) rejectInput(w http.ResponseWriter, r *http.Request, kind core.Kind, f entryForm, err error) {
	field := validationField(err)
	msg := inputMessage(field, err)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Rejected input",
		log.FieldKind, kind, log.FieldRejected, field, log.FieldError, err)

	if wantsJSON(r) {
		writeJSON(w, r, http.StatusUnprocessableEntity, errorJSON{Error: msg, Field: field})
		return
	}
	s.renderIndex(w, r, http.StatusUnprocessableEntity, &formError{
		Kind:    kind,
		ID:      f.ID,
		Field:   field,
		Message: msg,
		Title:   f.Title,
		Amount:  f.AmountRaw,
	})
}

func (s *Server) mutationFailed(w http.ResponseWriter, r *http.Request, kind core.Kind, f entryForm, err error) {
	if validationField(err) != "" {
		s.rejectInput(w, r, kind, f, err)
		return
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Ledger mutation failed",
		log.FieldKind, kind, log.FieldEntryID, f.ID, log.FieldError, err)
	writeError(w, r, http.StatusInternalServerError, "failed to save changes", "")
}

func inputMessage(field string, err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyTitle):
		return "Please enter a title."
	case errors.Is(err, core.ErrTitleTooLong):
		return "Title must be at most " + strconv.Itoa(core.MaxTitleLength) + " characters."
	case errors.Is(err, core.ErrAmountTooLarge):
		return "Amount must be at most " + core.MaxAmount.Format() + "."
	case errors.Is(err, core.ErrTotalOverflow):
		return "This amount would push the total out of range."
	case field == "amount":
		return "Please enter an amount greater than zero."
	case field == "id":
		return "Missing entry id."
	}
	return "Invalid input."
}

// allowMethods writes 405 with an Allow header unless r uses one of methods.
func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	allow := methods[0]
	for _, m := range methods[1:] {
		allow += ", " + m
	}
	w.Header().Set("Allow", allow)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", "")
	return false
}

func (s *Server) handleLedgerJSON(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, r, http.StatusOK, s.ledger.Snapshot())
}

type summaryJSON struct {
	IncomeCents   int64  `json:"income_cents"`
	ExpensesCents int64  `json:"expenses_cents"`
	BalanceCents  int64  `json:"balance_cents"`
	Income        string `json:"income"`
	Expenses      string `json:"expenses"`
	Balance       string `json:"balance"`
	Overspent     bool   `json:"overspent"`
	Warning       string `json:"warning,omitempty"`
}

func newSummaryJSON(sum core.Summary) summaryJSON {
	out := summaryJSON{
		IncomeCents:   sum.Income.Cents,
		ExpensesCents: sum.Expenses.Cents,
		BalanceCents:  sum.Balance.Cents,
		Income:        sum.Income.Format(),
		Expenses:      sum.Expenses.Format(),
		Balance:       sum.Balance.Format(),
		Overspent:     sum.Overspent(),
	}
	if out.Overspent {
		out.Warning = core.OverspendWarning
	}
	return out
}

func (s *Server) handleSummaryJSON(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, r, http.StatusOK, newSummaryJSON(s.ledger.Summary()))
}

func (s *Server) handleChart(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
			return
		}
		snap := s.ledger.Snapshot()
		body, ok := s.render(w, r, "chart", "svg:"+kind.String(), snap, func() ([]byte, error) {
			return []byte(chart.ForKind(kind, snap.Entries(kind)).SVG()), nil
		})
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(body)
	}
}

// handleExportPDF renders the report into memory first so a rendering
// failure can still produce a proper error response.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()
	now := s.now()
	rep := s.ledger.Report(now)
	snap := ledger.Snapshot{Income: rep.Income, Expenses: rep.Expenses}
	body, ok := s.render(w, r, "PDF", "pdf:"+report.Filename(now), snap, func() ([]byte, error) {
		var buf bytes.Buffer
		if err := report.WritePDF(&buf, rep); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if !ok {
		return
	}

	log.FromContext(ctx).WithComponent(log.ComponentReport).InfoContext(ctx, "PDF exported",
		log.FieldOperation, log.OpExport,
		"bytes", len(body))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(now)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

// render serves fn's output through the export cache. A failed render is
// logged and answered with 500; the caller writes nothing further.
func (s *Server) render(w http.ResponseWriter, r *http.Request, what, prefix string, snap ledger.Snapshot, fn func() ([]byte, error)) ([]byte, bool) {
	body, err := s.cached(prefix, snap, fn)
	if err != nil {
		ctx := r.Context()
		log.FromContext(ctx).WithComponent(log.ComponentReport).ErrorContext(ctx, "Export render failed",
			log.FieldOperation, log.OpExport,
			"artefact", what,
			log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "failed to generate "+what, "")
		return nil, false
	}
	return body, true
}

// cached returns the artefact rendered by fn for prefix and the content of
// snap, rendering it at most once per distinct snapshot.
func (s *Server) cached(prefix string, snap ledger.Snapshot, fn func() ([]byte, error)) ([]byte, error) {
	data, err := snap.Encode()
	if err != nil {
		return fn()
	}
	sum := sha256.Sum256(data)
	return s.exports.GetOrCompute(prefix+":"+hex.EncodeToString(sum[:]), fn)
}
