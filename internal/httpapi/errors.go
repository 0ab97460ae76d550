package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"sumd/internal/engine"
	"sumd/internal/generate"
	"sumd/internal/loader"
	"sumd/internal/summarizer"
	"sumd/internal/weights"
	"sumd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case summarizer.IsInvalidInput(err):
		return http.StatusBadRequest
	case summarizer.IsProfileNotFound(err):
		return http.StatusNotFound
	case summarizer.IsTooBusy(err):
		return http.StatusTooManyRequests
	case weights.IsNoShardsFound(err), weights.IsShardGap(err), weights.IsShardMismatch(err):
		return http.StatusServiceUnavailable
	case loader.IsModelLoad(err), engine.IsUnavailable(err), errors.Is(err, summarizer.ErrClosed):
		return http.StatusServiceUnavailable
	// Generation wraps the context error, so deadlines are checked first.
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case generate.IsGeneration(err):
		return http.StatusInternalServerError
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}
