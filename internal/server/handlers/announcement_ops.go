package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/memorywall/memorywall/internal/server/httputil"
	"github.com/memorywall/memorywall/internal/service/announcement"
	"github.com/memorywall/memorywall/pkg/errors"
	"github.com/memorywall/memorywall/pkg/json"
)

// ActiveAnnouncementHandler serves the current broadcast message. No active
// announcement is an empty 200, not an error, so the gallery can render
// unconditionally.
func ActiveAnnouncementHandler(log *zap.Logger, svc *announcement.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.Active(r.Context())
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				httputil.WriteJSONResponse(w, log, map[string]interface{}{"announcement": nil})
				return
			}
			httputil.WriteError(w, log, "announcement lookup failed", err)
			return
		}
		httputil.WriteJSONResponse(w, log, map[string]interface{}{"announcement": a})
	}
}

type createAnnouncementRequest struct {
	Message string `json:"message"`
	Active  *bool  `json:"active,omitempty"`
}

// CreateAnnouncementHandler stores a new broadcast message. Admin only; wrap
// with httputil.RequireAdmin when registering.
func CreateAnnouncementHandler(log *zap.Logger, svc *announcement.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAnnouncementRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}
		active := true
		if req.Active != nil {
			active = *req.Active
		}
		a, err := svc.Create(r.Context(), req.Message, active)
		if err != nil {
			httputil.WriteError(w, log, "announcement creation failed", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(a); err != nil {
			log.Error("Failed to write announcement response", zap.Error(err))
		}
	}
}

// DeactivateAnnouncementHandler clears an announcement's active flag.
func DeactivateAnnouncementHandler(log *zap.Logger, svc *announcement.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Deactivate(r.Context(), r.PathValue("id")); err != nil {
			httputil.WriteError(w, log, "announcement deactivation failed", err,
				zap.String("id", r.PathValue("id")))
			return
		}
		httputil.WriteJSONResponse(w, log, map[string]string{"status": "deactivated"})
	}
}
