package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/memorywall/memorywall/internal/server/httputil"
	"github.com/memorywall/memorywall/internal/service/submission"
	"github.com/memorywall/memorywall/pkg/json"
)

type moderateRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

// ModerateHandler applies a manual approve/reject decision to a submission.
// The caller must already hold admin credentials; wrap with
// httputil.RequireAdmin when registering.
func ModerateHandler(log *zap.Logger, svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moderateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}
		if req.Action != "approve" && req.Action != "reject" {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "action must be approve or reject", nil)
			return
		}
		actor := req.Actor
		if actor == "" {
			actor = "admin"
		}

		sub, err := svc.Moderate(r.Context(), r.PathValue("id"), req.Action == "approve", actor, req.Reason)
		if err != nil {
			httputil.WriteError(w, log, "moderation decision failed", err,
				zap.String("id", r.PathValue("id")),
				zap.String("action", req.Action))
			return
		}
		httputil.WriteJSONResponse(w, log, sub)
	}
}

// RefreshMetadataHandler re-resolves a submission's URL metadata on demand.
func RefreshMetadataHandler(log *zap.Logger, svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := svc.RefetchMetadata(r.Context(), r.PathValue("id"))
		if err != nil {
			httputil.WriteError(w, log, "metadata refresh failed", err,
				zap.String("id", r.PathValue("id")))
			return
		}
		httputil.WriteJSONResponse(w, log, sub)
	}
}
