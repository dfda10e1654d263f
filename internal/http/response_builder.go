package http

import (
	"encoding/json"
	"net/http"
	"net/url"

	"bilancio/internal/log"
	"bilancio/internal/services"
)

type errorJSON struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to encode JSON response", log.FieldError, err)
	}
}

// mutationResponse answers a successful create, edit or delete: JSON
// clients get the outcome, browsers are redirected back to the page with
// the balance warning carried in the query.
type mutationResponse struct {
	outcome services.Outcome
	status  int
}

func newMutationResponse(out services.Outcome) *mutationResponse {
	return &mutationResponse{outcome: out, status: http.StatusOK}
}

// Status overrides the JSON status code.
func (m *mutationResponse) Status(code int) *mutationResponse {
	m.status = code
	return m
}

func (m *mutationResponse) Write(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSON(w, r, m.status, m.outcome)
		return
	}
	target := "/"
	if m.outcome.Warning != "" {
		target += "?" + url.Values{"warning": {"1"}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// writeError answers with a plain message, or JSON when requested.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg, field string) {
	if wantsJSON(r) {
		writeJSON(w, r, status, errorJSON{Error: msg, Field: field})
		return
	}
	http.Error(w, msg, status)
}
