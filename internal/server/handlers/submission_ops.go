package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/memorywall/memorywall/internal/resolver"
	"github.com/memorywall/memorywall/internal/server/httputil"
	"github.com/memorywall/memorywall/internal/service/submission"
	"github.com/memorywall/memorywall/pkg/json"
)

type submitRequest struct {
	Kind    string   `json:"kind"`
	URL     string   `json:"url,omitempty"`
	Content string   `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	UserID  string   `json:"userId,omitempty"`
}

type submitResponse struct {
	ID       string             `json:"id"`
	Status   submission.Status  `json:"status"`
	Metadata *resolver.Metadata `json:"metadata,omitempty"`
	Votes    submission.Votes   `json:"votes"`
}

// SubmitHandler accepts a new memory, runs it through the pipeline, and
// returns the final status. A moderation rejection is a 400 carrying the
// policy reason and category scores; an infrastructure failure is a 503 with
// a retry hint, never conflated with rejection.
func SubmitHandler(log *zap.Logger, svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}

		stored, err := svc.Submit(r.Context(), submission.SubmitRequest{
			Kind:    submission.Kind(req.Kind),
			URL:     req.URL,
			Content: req.Content,
			Tags:    req.Tags,
			UserID:  req.UserID,
		})
		if err != nil {
			httputil.WriteError(w, log, "submission failed", err)
			return
		}

		if stored.Status == submission.StatusRejected {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			body := map[string]interface{}{
				"id":     stored.ID,
				"status": stored.Status,
				"reason": stored.Moderation.Reason,
			}
			if len(stored.Moderation.CategoryScores) > 0 {
				body["categoryScores"] = stored.Moderation.CategoryScores
			}
			if err := json.NewEncoder(w).Encode(body); err != nil {
				log.Error("Failed to write rejection response", zap.Error(err))
			}
			return
		}

		httputil.WriteJSONResponse(w, log, submitResponse{
			ID:       stored.ID,
			Status:   stored.Status,
			Metadata: stored.Metadata,
			Votes:    stored.Votes,
		})
	}
}

// ListSubmissionsHandler serves the gallery: approved submissions newest
// first with full metadata and vote counts.
func ListSubmissionsHandler(log *zap.Logger, svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status == "" {
			status = string(submission.StatusApproved)
		}
		if status != string(submission.StatusApproved) {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "only approved submissions are listable", nil)
			return
		}
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed <= 0 {
				httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid limit", err)
				return
			}
			limit = parsed
		}

		results, err := svc.ListApproved(r.Context(), limit)
		if err != nil {
			httputil.WriteError(w, log, "listing failed", err)
			return
		}
		httputil.WriteJSONResponse(w, log, map[string]interface{}{
			"submissions": results,
			"count":       len(results),
		})
	}
}

// GetSubmissionHandler serves a single submission by id.
func GetSubmissionHandler(log *zap.Logger, svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := svc.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			httputil.WriteError(w, log, "submission lookup failed", err,
				zap.String("id", r.PathValue("id")))
			return
		}
		httputil.WriteJSONResponse(w, log, sub)
	}
}
