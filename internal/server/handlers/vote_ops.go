package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/memorywall/memorywall/internal/server/httputil"
	"github.com/memorywall/memorywall/internal/service/submission"
	"github.com/memorywall/memorywall/internal/service/vote"
	"github.com/memorywall/memorywall/pkg/json"
)

type voteRequest struct {
	UserID    string `json:"userId"`
	Direction string `json:"direction"`
}

// VoteHandler casts, switches, or undoes one user's vote on a submission.
func VoteHandler(log *zap.Logger, svc *vote.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req voteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}

		result, err := svc.Cast(r.Context(), r.PathValue("id"), req.UserID, submission.Direction(req.Direction))
		if err != nil {
			httputil.WriteError(w, log, "vote failed", err,
				zap.String("id", r.PathValue("id")),
				zap.String("direction", req.Direction))
			return
		}
		httputil.WriteJSONResponse(w, log, result)
	}
}
