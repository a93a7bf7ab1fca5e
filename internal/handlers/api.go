package handlers

import (
	"net/http"
	"time"

	"github.com/referolabs/refero/internal/common"
)

// APIHandler serves service-level endpoints
type APIHandler struct {
	startedAt time.Time
}

// NewAPIHandler creates the service-level handler
func NewAPIHandler() *APIHandler {
	return &APIHandler{startedAt: time.Now()}
}

// Health handles GET /api/health
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// Version handles GET /api/version
func (h *APIHandler) Version(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetFullVersion(),
	})
}
