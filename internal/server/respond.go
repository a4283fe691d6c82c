package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"bichat/internal/dataset"
	"bichat/internal/ingest"
	"bichat/internal/logging"
	"bichat/internal/nlsql"
	"bichat/internal/store"
)

var errNoAssistant = errors.New("AI assistant not available: ANTHROPIC_API_KEY not set")

// badRequest marks an error caused by the request itself.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func invalid(format string, args ...any) error {
	return badRequest{fmt.Errorf(format, args...)}
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.Is(err, store.ErrDatabaseNotFound), errors.Is(err, store.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDatabaseExists), errors.Is(err, store.ErrNotRegistered):
		return http.StatusConflict
	case errors.Is(err, errNoAssistant), errors.Is(err, store.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.As(err, &br),
		errors.Is(err, store.ErrUnsupported),
		errors.Is(err, ingest.ErrNoData),
		errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, dataset.ErrInvalidJSON),
		errors.Is(err, nlsql.ErrNoTables):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and answers with {"error": msg: err}.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	logger := logging.FromContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, "error", err)
	} else {
		logger.Warn(msg, "error", err, "status", status)
	}
	respondJSON(w, status, map[string]string{
		"error": fmt.Sprintf("%s: %v", msg, err),
	})
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return invalid("invalid request body: %v", err)
	}
	return nil
}

// respondJSON is a helper function to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("JSON encoding error: %v", err)
	}
}
