package api

import (
	"net/http"

	"github.com/dgorozz/notflix/internal/models"
	"github.com/dgorozz/notflix/internal/store"
)

type HealthHandler struct {
	db *store.DB
}

func NewHealthHandler(db *store.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status: "ok",
		DB:     models.ServiceCheck{Status: "ok"},
	}

	shows, sessions, err := h.db.Counts(r.Context())
	if err != nil {
		resp.Status = "degraded"
		resp.DB = models.ServiceCheck{Status: "error", Message: err.Error()}
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.ShowCount = shows
	resp.SessionCount = sessions

	writeJSON(w, http.StatusOK, resp)
}
