package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"goldtrack/internal/core"
	"goldtrack/internal/ledger"
	"goldtrack/internal/log"
)

// errorBody is the uniform error payload. Field is set only for
// validation failures so clients can highlight the offending input.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain error kinds onto HTTP statuses. Anything not in
// the taxonomy is a 500 with a generic body; the real cause goes to the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: ve.Error(), Field: ve.Field})
	case errors.Is(err, core.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, core.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: core.ErrUnauthenticated.Error()})
	case errors.Is(err, ledger.ErrNoPrice):
		writeJSON(w, http.StatusNotFound, errorBody{Error: ledger.ErrNoPrice.Error()})
	case errors.Is(err, core.ErrInsufficientData):
		writeJSON(w, http.StatusNotFound, errorBody{Error: core.ErrInsufficientData.Error()})
	default:
		fields := log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, http.StatusInternalServerError)
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(
			r.Context(), "request failed", err, log.ComponentHTTP, operationFor(r.Method), fields)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func operationFor(method string) string {
	switch method {
	case http.MethodPost:
		return log.OpCreate
	case http.MethodPut:
		return log.OpUpdate
	default:
		return log.OpRead
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
}

// decodeJSON reads a small JSON body into dst, rejecting unknown fields
// so typos surface as 400s instead of silently ignored inputs.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseTimeParam parses an optional RFC3339 query parameter. A missing
// value returns (nil, nil); a malformed one is an InvalidInput.
func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, &core.ValidationError{Field: name, Message: "must be an RFC 3339 timestamp"}
	}
	return &t, nil
}

func trimmedHeader(r *http.Request, name string) string {
	return strings.TrimSpace(r.Header.Get(name))
}
