package tui

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgorozz/notflix/internal/client"
	"github.com/dgorozz/notflix/internal/models"
)

// fakeBackend serves canned responses and records the last call.
type fakeBackend struct {
	shows    []models.Show
	sessions map[int64]*models.Session
	err      error
	lastCall string
}

func newFakeBackend() *fakeBackend {
	dark := models.Show{ID: 1, Name: "Dark", Description: "Time travel", Genre: "Sci-Fi", EpisodeCounts: []int{10, 8, 8}}
	return &fakeBackend{
		shows: []models.Show{dark},
		sessions: map[int64]*models.Session{
			3: {ID: 3, ShowID: 1, Season: 1, Episode: 2, State: models.SessionStateWatching, StartDate: 1700000000, Show: &dark},
		},
	}
}

func (f *fakeBackend) session(call string, id int64) (*models.Session, error) {
	f.lastCall = call
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, &client.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
	}
	return s, nil
}

func (f *fakeBackend) ListShows(ctx context.Context) ([]models.Show, error) {
	f.lastCall = "ListShows"
	return f.shows, f.err
}

func (f *fakeBackend) GetShow(ctx context.Context, id int64) (*models.Show, error) {
	f.lastCall = "GetShow"
	for i := range f.shows {
		if f.shows[i].ID == id {
			return &f.shows[i], nil
		}
	}
	return nil, &client.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
}

func (f *fakeBackend) StartShow(ctx context.Context, id int64) (*models.Session, error) {
	return f.session("StartShow", 3)
}

func (f *fakeBackend) ListSessions(ctx context.Context, state models.SessionState) ([]models.Session, error) {
	f.lastCall = "ListSessions:" + string(state)
	var out []models.Session
	for _, s := range f.sessions {
		if state == "" || s.State == state {
			out = append(out, *s)
		}
	}
	return out, f.err
}

func (f *fakeBackend) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	return f.session("GetSession", id)
}

func (f *fakeBackend) DeleteSession(ctx context.Context, id int64) error {
	_, err := f.session("DeleteSession", id)
	return err
}

func (f *fakeBackend) Next(ctx context.Context, id int64) (*models.Session, error) {
	return f.session("Next", id)
}

func (f *fakeBackend) Previous(ctx context.Context, id int64) (*models.Session, error) {
	return f.session("Previous", id)
}

func (f *fakeBackend) Restart(ctx context.Context, id int64) (*models.Session, error) {
	return f.session("Restart", id)
}

func (f *fakeBackend) Goto(ctx context.Context, id int64, season, episode int) (*models.Session, error) {
	return f.session("Goto", id)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want command
	}{
		{"show list", command{kind: cmdShowList}},
		{"show 4 info", command{kind: cmdShowInfo, id: 4}},
		{"  show 4   start ", command{kind: cmdShowStart, id: 4}},
		{"session list", command{kind: cmdSessionList}},
		{"session list finished", command{kind: cmdSessionList, state: models.SessionStateFinished}},
		{"session 2 info", command{kind: cmdSessionInfo, id: 2}},
		{"session 2 delete", command{kind: cmdSessionDelete, id: 2}},
		{"session 2 next", command{kind: cmdSessionNext, id: 2}},
		{"session 2 previous", command{kind: cmdSessionPrevious, id: 2}},
		{"session 2 restart", command{kind: cmdSessionRestart, id: 2}},
		{"session 2 goto 3 7", command{kind: cmdSessionGoto, id: 2, season: 3, episode: 7}},
		{"help", command{kind: cmdHelp}},
		{"clear", command{kind: cmdClear}},
		{"quit", command{kind: cmdQuit}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseCommand(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		line      string
		wantUsage bool
	}{
		{"show", true},
		{"show 4", true},
		{"show 4 rewind", true},
		{"show abc", true},
		{"session", true},
		{"session list paused", true},
		{"session 0 info", true},
		{"session 2", true},
		{"session 2 goto 3", true},
		{"session 2 goto x 1", true},
		{"session 2 skip", true},
		{"dance", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := parseCommand(tt.line)
			if err == nil {
				t.Fatalf("expected error for %q", tt.line)
			}
			var uerr *usageError
			if got := errors.As(err, &uerr); got != tt.wantUsage {
				t.Errorf("usage error = %v, want %v (%v)", got, tt.wantUsage, err)
			}
		})
	}

	if _, err := parseCommand("   "); !errors.Is(err, errEmptyCommand) {
		t.Errorf("expected errEmptyCommand, got %v", err)
	}
}

func TestRunMessages(t *testing.T) {
	ctx := context.Background()
	finishedAt := int64(1700003600)

	tests := []struct {
		name    string
		mutate  func(f *fakeBackend)
		cmd     command
		want    string
		wantErr string
	}{
		{
			name: "show list",
			cmd:  command{kind: cmdShowList},
			want: "1: Dark (Sci-Fi)",
		},
		{
			name: "show info",
			cmd:  command{kind: cmdShowInfo, id: 1},
			want: "Seasons: 3 [10 8 8]",
		},
		{
			name: "show info missing",
			cmd:  command{kind: cmdShowInfo, id: 9},
			want: "Show not found in catalog",
		},
		{
			name: "start",
			cmd:  command{kind: cmdShowStart, id: 1},
			want: "Session initialized (id=3) for Dark",
		},
		{
			name: "start conflict",
			mutate: func(f *fakeBackend) {
				f.err = &client.APIError{StatusCode: http.StatusConflict, Message: "conflict"}
			},
			cmd:  command{kind: cmdShowStart, id: 1},
			want: "You are already watching this show",
		},
		{
			name: "next watching",
			cmd:  command{kind: cmdSessionNext, id: 3},
			want: "Episode watched. Next again to watch S1E2",
		},
		{
			name: "next finished",
			mutate: func(f *fakeBackend) {
				s := f.sessions[3]
				s.State = models.SessionStateFinished
				s.EndDate = &finishedAt
			},
			cmd:  command{kind: cmdSessionNext, id: 3},
			want: "Episode watched. Show finished, congratulations!!",
		},
		{
			name: "next rejected",
			mutate: func(f *fakeBackend) {
				f.err = &client.APIError{StatusCode: http.StatusBadRequest, Message: "show already finished"}
			},
			cmd:  command{kind: cmdSessionNext, id: 3},
			want: "Show already finished! Restart session to watch again",
		},
		{
			name: "previous at start",
			mutate: func(f *fakeBackend) {
				f.err = &client.APIError{StatusCode: http.StatusBadRequest, Message: "already at the first episode"}
			},
			cmd:     command{kind: cmdSessionPrevious, id: 3},
			wantErr: "already at the first episode",
		},
		{
			name: "previous",
			cmd:  command{kind: cmdSessionPrevious, id: 3},
			want: "Moved back one episode to S1E2",
		},
		{
			name: "restart",
			cmd:  command{kind: cmdSessionRestart, id: 3},
			want: "Restarted to S1E2",
		},
		{
			name: "goto",
			cmd:  command{kind: cmdSessionGoto, id: 3, season: 1, episode: 2},
			want: "Moved to S1E2",
		},
		{
			name:    "goto missing session",
			cmd:     command{kind: cmdSessionGoto, id: 8, season: 1, episode: 1},
			wantErr: "session does not exist",
		},
		{
			name: "delete",
			cmd:  command{kind: cmdSessionDelete, id: 3},
			want: "Session removed successfully!",
		},
		{
			name: "delete missing",
			cmd:  command{kind: cmdSessionDelete, id: 8},
			want: "That session does not exist!",
		},
		{
			name: "list",
			cmd:  command{kind: cmdSessionList},
			want: "3 | Dark | S1E2 | watching",
		},
		{
			name: "list empty",
			cmd:  command{kind: cmdSessionList, state: models.SessionStateFinished},
			want: "No sessions",
		},
		{
			name: "info",
			cmd:  command{kind: cmdSessionInfo, id: 3},
			want: "Finished at: -",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeBackend()
			if tt.mutate != nil {
				tt.mutate(f)
			}
			lines, err := run(ctx, f, tt.cmd)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("expected error %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !containsLine(lines, tt.want) {
				t.Errorf("expected line %q in %q", tt.want, lines)
			}
		})
	}
}

func containsLine(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func createTestModel(api Backend) Model {
	m := NewRootModel(api, "http://localhost:8000", time.Second)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func typeAndSubmit(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

func lastLine(m Model) outputLine {
	return m.outputLines[len(m.outputLines)-1]
}

func TestSubmitRunsBackendCommand(t *testing.T) {
	f := newFakeBackend()
	m := createTestModel(f)

	m, cmd := typeAndSubmit(t, m, "session 3 next")
	if cmd == nil {
		t.Fatal("expected a command to run")
	}
	if !m.busy {
		t.Error("expected model to be busy while the command runs")
	}
	if m.input.Value() != "" {
		t.Errorf("expected input to be cleared, got %q", m.input.Value())
	}
	if got := lastLine(m); got.kind != lineUser || !strings.HasSuffix(got.text, "session 3 next") {
		t.Errorf("expected echoed command, got %+v", got)
	}

	msg := cmd()
	if f.lastCall != "Next" {
		t.Errorf("expected Next call, got %q", f.lastCall)
	}
	updated, _ := m.Update(msg)
	m = updated.(Model)

	if m.busy {
		t.Error("expected model to be idle after the result")
	}
	if got := lastLine(m); got.text != "Episode watched. Next again to watch S1E2" {
		t.Errorf("unexpected result line %+v", got)
	}
}

func TestSubmitReportsErrors(t *testing.T) {
	f := newFakeBackend()
	f.err = errors.New("connection refused")
	m := createTestModel(f)

	m, cmd := typeAndSubmit(t, m, "show list")
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	if got := lastLine(m); got.kind != lineError || got.text != "Error: connection refused" {
		t.Errorf("unexpected error line %+v", got)
	}
}

func TestRejectionRendersWithoutErrorPrefix(t *testing.T) {
	f := newFakeBackend()
	f.err = &client.APIError{StatusCode: http.StatusBadRequest, Message: "already at the first episode of the first season"}
	m := createTestModel(f)

	m, cmd := typeAndSubmit(t, m, "session 3 previous")
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	if got := lastLine(m); got.kind != lineError || got.text != "Already at the first episode of the first season" {
		t.Errorf("unexpected rejection line %+v", got)
	}

	m, cmd = typeAndSubmit(t, m, "session 8 restart")
	f.err = nil
	updated, _ = m.Update(cmd())
	m = updated.(Model)

	if got := lastLine(m); got.text != "Session does not exist" {
		t.Errorf("unexpected missing-session line %+v", got)
	}
}

func TestUsageErrorPrintsUsage(t *testing.T) {
	m := createTestModel(newFakeBackend())

	m, cmd := typeAndSubmit(t, m, "session 2 goto 1")
	if cmd != nil {
		t.Error("expected no backend command for malformed input")
	}
	if got := lastLine(m); got.kind != lineUsage {
		t.Errorf("expected usage text last, got %+v", got)
	}
}

func TestLocalCommands(t *testing.T) {
	m := createTestModel(newFakeBackend())

	m, _ = typeAndSubmit(t, m, "help")
	if m.viewMode != ViewModeHelp {
		t.Fatalf("expected help view, got %v", m.viewMode)
	}
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.viewMode != ViewModeMain {
		t.Errorf("expected esc to close help, got %v", m.viewMode)
	}

	m, _ = typeAndSubmit(t, m, "clear")
	if len(m.outputLines) != 0 {
		t.Errorf("expected cleared output, got %d lines", len(m.outputLines))
	}

	_, cmd := typeAndSubmit(t, m, "quit")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestRejectsCommandWhileBusy(t *testing.T) {
	m := createTestModel(newFakeBackend())

	m, first := typeAndSubmit(t, m, "show list")
	if first == nil {
		t.Fatal("expected first command to run")
	}
	m, second := typeAndSubmit(t, m, "show 1 info")
	if second != nil {
		t.Error("expected second command to be rejected while busy")
	}
	if got := lastLine(m); got.kind != lineError {
		t.Errorf("expected busy error, got %+v", got)
	}
}

func TestCommandHistory(t *testing.T) {
	m := createTestModel(newFakeBackend())
	m, _ = typeAndSubmit(t, m, "clear")
	m, _ = typeAndSubmit(t, m, "help")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(Model)
	if m.input.Value() != "help" {
		t.Errorf("expected last command, got %q", m.input.Value())
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(Model)
	if m.input.Value() != "clear" {
		t.Errorf("expected first command, got %q", m.input.Value())
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	if m.input.Value() != "" {
		t.Errorf("expected empty input past the newest entry, got %q", m.input.Value())
	}
}

func TestViewRenders(t *testing.T) {
	m := NewRootModel(newFakeBackend(), "http://localhost:8000", time.Second)
	if m.View() != "Loading..." {
		t.Errorf("expected loading view before window size")
	}

	m = createTestModel(newFakeBackend())
	view := m.View()
	if !strings.Contains(view, "NOTFLIX") || !strings.Contains(view, intro) {
		t.Errorf("expected header and intro in view")
	}

	m.viewMode = ViewModeHelp
	if !strings.Contains(m.View(), "session <id> goto") {
		t.Errorf("expected command reference in help view")
	}
}
