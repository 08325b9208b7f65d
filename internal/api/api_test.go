package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/dgorozz/notflix/internal/models"
	"github.com/dgorozz/notflix/internal/sessions"
	"github.com/dgorozz/notflix/internal/store"
)

func setupServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := sessions.NewService(store.NewSessionStore(db), logger)
	srv := httptest.NewServer(NewRouter(db, store.NewShowStore(db), svc, apiKey, logger))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected status %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func createShow(t *testing.T, srv *httptest.Server, name string, counts ...int) models.Show {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/shows", models.CreateShowRequest{
		Name: name, Description: name + " description", Genre: "Drama", EpisodeCounts: counts,
	})
	expectStatus(t, resp, http.StatusCreated)
	return decode[models.Show](t, resp)
}

func TestShowsEndpoints(t *testing.T) {
	srv := setupServer(t, "")

	bb := createShow(t, srv, "Breaking Bad", 3, 4, 3)
	createShow(t, srv, "Peaky Blinders", 8, 7)

	resp := do(t, srv, http.MethodGet, "/shows", nil)
	expectStatus(t, resp, http.StatusOK)
	shows := decode[[]models.Show](t, resp)
	if len(shows) != 2 || shows[0].Name != "Breaking Bad" || shows[1].Name != "Peaky Blinders" {
		t.Fatalf("unexpected shows: %+v", shows)
	}

	resp = do(t, srv, http.MethodGet, "/shows/"+itoa(bb.ID), nil)
	expectStatus(t, resp, http.StatusOK)
	got := decode[models.Show](t, resp)
	if got.ID != bb.ID || got.Name != bb.Name || len(got.EpisodeCounts) != 3 {
		t.Errorf("unexpected show: %+v", got)
	}

	expectStatus(t, do(t, srv, http.MethodGet, "/shows/999", nil), http.StatusNotFound)
	expectStatus(t, do(t, srv, http.MethodGet, "/shows/abc", nil), http.StatusBadRequest)

	resp = do(t, srv, http.MethodPost, "/shows", models.CreateShowRequest{Name: "Breaking Bad", EpisodeCounts: []int{1}})
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, srv, http.MethodPost, "/shows", models.CreateShowRequest{Name: "No Seasons"})
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestStartShowCreatesSession(t *testing.T) {
	srv := setupServer(t, "")
	show := createShow(t, srv, "Breaking Bad", 3, 4, 3)

	resp := do(t, srv, http.MethodPost, "/shows/"+itoa(show.ID)+"/start", nil)
	expectStatus(t, resp, http.StatusCreated)
	sess := decode[models.Session](t, resp)
	if sess.ShowID != show.ID || sess.Season != 1 || sess.Episode != 1 || sess.State != models.SessionStateWatching {
		t.Errorf("unexpected session: %+v", sess)
	}
	if sess.Show == nil || sess.Show.Name != "Breaking Bad" {
		t.Errorf("expected embedded show, got %+v", sess.Show)
	}
	if sess.StartDate == 0 {
		t.Error("expected start date")
	}

	resp = do(t, srv, http.MethodPost, "/shows/"+itoa(show.ID)+"/start", nil)
	expectStatus(t, resp, http.StatusConflict)
	if e := decode[models.ErrorResponse](t, resp); e.Error == "" {
		t.Error("expected error message")
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/shows/999/start", nil), http.StatusNotFound)
}

func TestSessionNavigationEndpoints(t *testing.T) {
	srv := setupServer(t, "")
	show := createShow(t, srv, "Two Seasons", 2, 3)
	resp := do(t, srv, http.MethodPost, "/shows/"+itoa(show.ID)+"/start", nil)
	expectStatus(t, resp, http.StatusCreated)
	id := itoa(decode[models.Session](t, resp).ID)

	step := func(method, path string, body any, want int) models.Session {
		t.Helper()
		resp := do(t, srv, method, path, body)
		expectStatus(t, resp, want)
		if want != http.StatusOK {
			return models.Session{}
		}
		return decode[models.Session](t, resp)
	}

	step(http.MethodPost, "/sessions/"+id+"/previous", nil, http.StatusBadRequest)

	if s := step(http.MethodPost, "/sessions/"+id+"/next", nil, http.StatusOK); s.Label() != "S1E2" {
		t.Errorf("expected S1E2, got %s", s.Label())
	}
	if s := step(http.MethodPost, "/sessions/"+id+"/next", nil, http.StatusOK); s.Label() != "S2E1" {
		t.Errorf("expected S2E1, got %s", s.Label())
	}
	if s := step(http.MethodPost, "/sessions/"+id+"/previous", nil, http.StatusOK); s.Label() != "S1E2" {
		t.Errorf("expected S1E2, got %s", s.Label())
	}

	step(http.MethodPost, "/sessions/"+id+"/goto", models.GotoRequest{Season: 3, Episode: 1}, http.StatusBadRequest)
	step(http.MethodPost, "/sessions/"+id+"/goto", models.GotoRequest{Season: 1, Episode: 3}, http.StatusBadRequest)
	step(http.MethodPost, "/sessions/"+id+"/goto", nil, http.StatusBadRequest)

	if s := step(http.MethodPost, "/sessions/"+id+"/goto", models.GotoRequest{Season: 2, Episode: 3}, http.StatusOK); s.Label() != "S2E3" {
		t.Errorf("expected S2E3, got %s", s.Label())
	}

	s := step(http.MethodPost, "/sessions/"+id+"/next", nil, http.StatusOK)
	if s.State != models.SessionStateFinished || s.EndDate == nil {
		t.Fatalf("expected finished with end date, got %+v", s)
	}

	step(http.MethodPost, "/sessions/"+id+"/next", nil, http.StatusBadRequest)
	step(http.MethodPost, "/sessions/"+id+"/previous", nil, http.StatusBadRequest)
	step(http.MethodPost, "/sessions/"+id+"/goto", models.GotoRequest{Season: 1, Episode: 1}, http.StatusBadRequest)

	s = step(http.MethodPost, "/sessions/"+id+"/restart", nil, http.StatusOK)
	if s.Label() != "S1E1" || s.State != models.SessionStateWatching || s.EndDate != nil {
		t.Errorf("expected S1E1 watching without end date, got %+v", s)
	}

	step(http.MethodPost, "/sessions/999/next", nil, http.StatusNotFound)
	step(http.MethodPost, "/sessions/999/restart", nil, http.StatusNotFound)
	step(http.MethodPost, "/sessions/0/next", nil, http.StatusBadRequest)
}

func TestListSessionsFilter(t *testing.T) {
	srv := setupServer(t, "")
	a := createShow(t, srv, "A", 2)
	b := createShow(t, srv, "B", 1)

	resp := do(t, srv, http.MethodPost, "/shows/"+itoa(a.ID)+"/start", nil)
	expectStatus(t, resp, http.StatusCreated)
	watchingID := decode[models.Session](t, resp).ID

	resp = do(t, srv, http.MethodPost, "/shows/"+itoa(b.ID)+"/start", nil)
	expectStatus(t, resp, http.StatusCreated)
	finishedID := decode[models.Session](t, resp).ID
	expectStatus(t, do(t, srv, http.MethodPost, "/sessions/"+itoa(finishedID)+"/next", nil), http.StatusOK)

	tests := []struct {
		query   string
		wantIDs []int64
	}{
		{"", []int64{watchingID, finishedID}},
		{"?state=watching", []int64{watchingID}},
		{"?state=finished", []int64{finishedID}},
	}
	for _, tt := range tests {
		resp := do(t, srv, http.MethodGet, "/sessions"+tt.query, nil)
		expectStatus(t, resp, http.StatusOK)
		list := decode[[]models.Session](t, resp)
		if len(list) != len(tt.wantIDs) {
			t.Fatalf("%q: expected %d sessions, got %d", tt.query, len(tt.wantIDs), len(list))
		}
		for i, s := range list {
			if s.ID != tt.wantIDs[i] {
				t.Errorf("%q: expected session %d at %d, got %d", tt.query, tt.wantIDs[i], i, s.ID)
			}
		}
	}

	expectStatus(t, do(t, srv, http.MethodGet, "/sessions?state=paused", nil), http.StatusBadRequest)
}

func TestEmptyListsAreArrays(t *testing.T) {
	srv := setupServer(t, "")
	for _, path := range []string{"/shows", "/sessions"} {
		resp := do(t, srv, http.MethodGet, path, nil)
		expectStatus(t, resp, http.StatusOK)
		body, _ := io.ReadAll(resp.Body)
		if string(bytes.TrimSpace(body)) != "[]" {
			t.Errorf("%s: expected [], got %s", path, body)
		}
	}
}

func TestDeleteEndpoints(t *testing.T) {
	srv := setupServer(t, "")
	show := createShow(t, srv, "Deletable", 2)
	resp := do(t, srv, http.MethodPost, "/shows/"+itoa(show.ID)+"/start", nil)
	expectStatus(t, resp, http.StatusCreated)
	id := itoa(decode[models.Session](t, resp).ID)

	expectStatus(t, do(t, srv, http.MethodDelete, "/sessions/"+id, nil), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodGet, "/sessions/"+id, nil), http.StatusNotFound)
	expectStatus(t, do(t, srv, http.MethodDelete, "/sessions/"+id, nil), http.StatusNotFound)

	resp = do(t, srv, http.MethodPost, "/shows/"+itoa(show.ID)+"/start", nil)
	expectStatus(t, resp, http.StatusCreated)
	id = itoa(decode[models.Session](t, resp).ID)

	expectStatus(t, do(t, srv, http.MethodDelete, "/shows/"+itoa(show.ID), nil), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodGet, "/sessions/"+id, nil), http.StatusNotFound)
}

func TestBearerAuth(t *testing.T) {
	srv := setupServer(t, "secret")

	expectStatus(t, do(t, srv, http.MethodGet, "/shows", nil), http.StatusUnauthorized)
	expectStatus(t, do(t, srv, http.MethodGet, "/health", nil), http.StatusOK)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/shows", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestHealth(t *testing.T) {
	srv := setupServer(t, "")
	createShow(t, srv, "Counted", 1)

	resp := do(t, srv, http.MethodGet, "/health", nil)
	expectStatus(t, resp, http.StatusOK)
	health := decode[models.HealthResponse](t, resp)
	if health.Status != "ok" || health.ShowCount != 1 || health.SessionCount != 0 {
		t.Errorf("unexpected health: %+v", health)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
