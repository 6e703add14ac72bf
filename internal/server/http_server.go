// Package server wires the HTTP API: public gallery and submission routes,
// admin moderation routes behind bearer auth, and the health endpoint.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memorywall/memorywall/internal/server/handlers"
	"github.com/memorywall/memorywall/internal/server/httputil"
	"github.com/memorywall/memorywall/internal/service/announcement"
	"github.com/memorywall/memorywall/internal/service/stats"
	"github.com/memorywall/memorywall/internal/service/submission"
	"github.com/memorywall/memorywall/internal/service/vote"
	"github.com/memorywall/memorywall/pkg/errors"
	"github.com/memorywall/memorywall/pkg/metrics"
	"github.com/memorywall/memorywall/pkg/redis"
)

// Deps carries everything the router needs.
type Deps struct {
	Log           *zap.Logger
	Submissions   *submission.Service
	Votes         *vote.Service
	Announcements *announcement.Service
	Stats         *stats.Service
	DB            handlers.Pinger
	Redis         *redis.Client
	AdminToken    string
}

// Server is the public HTTP API server.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// New builds the router and the underlying http.Server.
func New(addr string, deps Deps) *Server {
	log := deps.Log
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/submissions", handlers.SubmitHandler(log, deps.Submissions))
	mux.HandleFunc("GET /api/submissions", handlers.ListSubmissionsHandler(log, deps.Submissions))
	mux.HandleFunc("GET /api/submissions/{id}", handlers.GetSubmissionHandler(log, deps.Submissions))
	mux.HandleFunc("POST /api/submissions/{id}/vote", handlers.VoteHandler(log, deps.Votes))

	mux.HandleFunc("GET /api/announcement", handlers.ActiveAnnouncementHandler(log, deps.Announcements))
	mux.HandleFunc("GET /api/weekly-stats", handlers.WeeklyStatsHandler(log, deps.Stats))

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return httputil.RequireAdmin(deps.AdminToken, log, h)
	}
	mux.HandleFunc("POST /api/submissions/{id}/moderate", admin(handlers.ModerateHandler(log, deps.Submissions)))
	mux.HandleFunc("POST /api/submissions/{id}/refresh-metadata", admin(handlers.RefreshMetadataHandler(log, deps.Submissions)))
	mux.HandleFunc("POST /api/announcement", admin(handlers.CreateAnnouncementHandler(log, deps.Announcements)))
	mux.HandleFunc("POST /api/announcement/{id}/deactivate", admin(handlers.DeactivateAnnouncementHandler(log, deps.Announcements)))

	mux.HandleFunc("GET /healthz", handlers.HealthHandler(log, deps.DB, deps.Redis))

	handler := httputil.CORS(withRequestID(instrument(mux)))

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log: log,
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", zap.String("address", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// withRequestID tags every request with an id, echoed in the response header
// and carried in the context so error logs correlate to the request.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(errors.WithRequestID(r.Context(), id)))
	})
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records a duration sample per request, labelled by the matched
// route pattern rather than the raw path to keep cardinality bounded.
func instrument(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(route, strconv.Itoa(rec.status), start)
	})
}
