package errors

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a submission or announcement cannot be found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrModerationUnavailable is returned when the classification service cannot be reached.
	// It is distinct from a moderation rejection: a rejection is a successful
	// classification with a negative outcome.
	ErrModerationUnavailable = errors.New("moderation service unavailable")
	// ErrStorageUnavailable is returned when the record store cannot be reached or a write fails.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrConflict is returned when a concurrent update collision survives internal retries.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrUnauthorized is returned when an admin credential does not match the configured secret.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrWeeklyLimitReached is returned when the submitter is over the rolling weekly quota.
	ErrWeeklyLimitReached = errors.New("weekly submission limit reached")
)

// Wrap wraps an error with additional context while preserving errors.Is matching.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrapped{msg: msg, err: err}
}

type wrapped struct {
	msg string
	err error
}

func (w *wrapped) Error() string { return w.msg + ": " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// LogWithError logs the error with context and returns a wrapped error.
// Use this for standardized error logging across services.
func LogWithError(ctx context.Context, log *zap.Logger, msg string, err error, fields ...zap.Field) error {
	if log != nil {
		if ctx != nil {
			if reqID, ok := ctx.Value(requestIDKey).(string); ok && reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
		}
		log.Error(msg, append(fields, zap.Error(err))...)
	}
	return Wrap(err, msg)
}

type contextKey string

// requestIDKey is the context key under which the HTTP layer stores a request id.
const requestIDKey = contextKey("request_id")

// WithRequestID stores a request id in the context for correlated error logging.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}
