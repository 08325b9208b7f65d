package api

import (
	"context"
	"net/http"

	"github.com/dgorozz/notflix/internal/models"
	"github.com/dgorozz/notflix/internal/sessions"
)

// SessionHandler handles watch session HTTP requests.
type SessionHandler struct {
	svc *sessions.Service
}

func NewSessionHandler(svc *sessions.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// List handles GET /sessions?state=watching|finished
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter *models.SessionState
	if raw := r.URL.Query().Get("state"); raw != "" {
		state, err := models.ParseSessionState(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter = &state
	}

	list, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Session{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.Get)
}

// Delete handles DELETE /sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Next handles POST /sessions/{id}/next
func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.Next)
}

// Previous handles POST /sessions/{id}/previous
func (h *SessionHandler) Previous(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.Previous)
}

// Restart handles POST /sessions/{id}/restart
func (h *SessionHandler) Restart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.Restart)
}

// Goto handles POST /sessions/{id}/goto
func (h *SessionHandler) Goto(w http.ResponseWriter, r *http.Request) {
	var req models.GotoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	h.respond(w, r, func(ctx context.Context, id int64) (*models.Session, error) {
		return h.svc.Goto(ctx, id, req.Season, req.Episode)
	})
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) (*models.Session, error)) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := op(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
