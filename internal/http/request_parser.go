package http

import (
	"errors"
	"net/http"
	"strings"

	"bilancio/internal/core"
)

// maxFormBytes bounds the body of every form post.
const maxFormBytes = 16 << 10

var errMissingID = &core.ValidationError{Field: "id", Err: core.ErrEmptyID}

// entryForm is the parsed body of a create, edit or delete request.
type entryForm struct {
	ID        string
	Title     string
	AmountRaw string
	Amount    core.Money
}

// parseForm reads the urlencoded body with a size cap.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	return r.ParseForm()
}

// parseEntryForm extracts title and amount, and id when withID is set.
// Validation errors are *core.ValidationError.
func parseEntryForm(r *http.Request, withID bool) (entryForm, error) {
	f := entryForm{
		ID:        strings.TrimSpace(r.PostForm.Get("id")),
		Title:     sanitizeInput(r.PostForm.Get("title")),
		AmountRaw: strings.TrimSpace(r.PostForm.Get("amount")),
	}
	if withID && f.ID == "" {
		return f, errMissingID
	}
	amount, err := core.ParseAmount(f.AmountRaw)
	if err != nil {
		if strings.TrimSpace(f.Title) == "" {
			return f, &core.ValidationError{Field: "title", Err: core.ErrEmptyTitle}
		}
		return f, &core.ValidationError{Field: "amount", Err: err}
	}
	f.Amount = amount
	return f, core.ValidateInput(f.Title, f.Amount)
}

// parseIDForm extracts the id of a delete request.
func parseIDForm(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PostForm.Get("id"))
	if id == "" {
		return "", errMissingID
	}
	return id, nil
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// validationField returns the rejected field, or "" when err is not a
// validation failure.
func validationField(err error) string {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return verr.Field
	}
	return ""
}
