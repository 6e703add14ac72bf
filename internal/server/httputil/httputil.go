package httputil

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/memorywall/memorywall/pkg/errors"
	"github.com/memorywall/memorywall/pkg/json"
)

// WriteJSONError writes a JSON error response and logs the error.
func WriteJSONError(w http.ResponseWriter, log *zap.Logger, status int, msg string, err error, contextFields ...zap.Field) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err != nil {
		log.Error(msg, append(contextFields, zap.Error(err))...)
	} else {
		log.Error(msg, contextFields...)
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	if encodeErr := json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   msg,
		"details": details,
	}); encodeErr != nil {
		log.Error("Failed to write error response", zap.Error(encodeErr))
	}
}

// WriteJSONResponse writes a JSON response and logs on error.
func WriteJSONResponse(w http.ResponseWriter, log *zap.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write JSON response", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// StatusFromError maps the error taxonomy to HTTP status codes.
// Storage and moderation unavailability are infrastructure faults (503);
// validation is a client fault (400); conflicts that survive internal
// retries surface as 409.
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errors.ErrWeeklyLimitReached):
		return http.StatusTooManyRequests
	case errors.Is(err, errors.ErrStorageUnavailable), errors.Is(err, errors.ErrModerationUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError maps the error to a status and writes the JSON body.
func WriteError(w http.ResponseWriter, log *zap.Logger, msg string, err error, contextFields ...zap.Field) {
	WriteJSONError(w, log, StatusFromError(err), msg, err, contextFields...)
}

// CORS permits cross-origin access on every JSON endpoint and answers
// OPTIONS preflight with 204.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin compares the bearer credential against the configured secret
// in constant time before admitting the request.
func RequireAdmin(token string, log *zap.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		presented, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			WriteJSONError(w, log, http.StatusUnauthorized, "unauthorized", nil,
				zap.String("path", r.URL.Path))
			return
		}
		next(w, r)
	}
}
