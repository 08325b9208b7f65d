package api

import (
	"net/http"

	"github.com/dgorozz/notflix/internal/models"
	"github.com/dgorozz/notflix/internal/sessions"
	"github.com/dgorozz/notflix/internal/store"
)

// ShowHandler handles show catalog HTTP requests.
type ShowHandler struct {
	shows    *store.ShowStore
	sessions *sessions.Service
}

func NewShowHandler(shows *store.ShowStore, sessionSvc *sessions.Service) *ShowHandler {
	return &ShowHandler{shows: shows, sessions: sessionSvc}
}

// List handles GET /shows
func (h *ShowHandler) List(w http.ResponseWriter, r *http.Request) {
	shows, err := h.shows.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if shows == nil {
		shows = []*models.Show{}
	}
	writeJSON(w, http.StatusOK, shows)
}

// Create handles POST /shows
func (h *ShowHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateShowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	show := req.Show()
	if err := h.shows.Create(r.Context(), show); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, show)
}

// Get handles GET /shows/{id}
func (h *ShowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	show, err := h.shows.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, show)
}

// Delete handles DELETE /shows/{id}. The show's session goes with it.
func (h *ShowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.shows.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Start handles POST /shows/{id}/start
func (h *ShowHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Create(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}
