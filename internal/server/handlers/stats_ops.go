package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/memorywall/memorywall/internal/server/httputil"
	"github.com/memorywall/memorywall/internal/service/stats"
)

// WeeklyStatsHandler serves the current week's submission count, the
// configured limit, and the next reset timestamp.
func WeeklyStatsHandler(log *zap.Logger, svc *stats.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.Weekly(r.Context())
		if err != nil {
			httputil.WriteError(w, log, "stats computation failed", err)
			return
		}
		httputil.WriteJSONResponse(w, log, s)
	}
}
