package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/memorywall/memorywall/internal/server/httputil"
	"github.com/memorywall/memorywall/pkg/redis"
)

// Pinger is the liveness slice of the database pool.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports process health. The database is load-bearing, so an
// unreachable pool is a 503; the cache is an accelerator, so its state is
// reported but never fails the check.
func HealthHandler(log *zap.Logger, db Pinger, cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			httputil.WriteJSONError(w, log, http.StatusServiceUnavailable, "database unreachable", err)
			return
		}
		status := map[string]string{"status": "ok", "cache": "disabled"}
		if cache != nil {
			status["cache"] = "ok"
			if err := cache.IsAvailable(r.Context()); err != nil {
				status["cache"] = "unavailable"
			}
		}
		httputil.WriteJSONResponse(w, log, status)
	}
}
