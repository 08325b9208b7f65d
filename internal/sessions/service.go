package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgorozz/notflix/internal/models"
	"github.com/dgorozz/notflix/internal/navigator"
	"github.com/dgorozz/notflix/internal/store"
)

// Service exposes watch-session operations on top of the session store.
type Service struct {
	sessions *store.SessionStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(sessions *store.SessionStore, logger *slog.Logger) *Service {
	return &Service{
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Create starts watching a show. It fails with store.ErrConflict when the
// show already has a session and store.ErrNotFound when the show is unknown.
func (s *Service) Create(ctx context.Context, showID int64) (*models.Session, error) {
	sess, err := s.sessions.Create(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("session started", "id", sess.ID, "show_id", showID, "show", sess.Show.Name)
	return sess, nil
}

// Get returns a session by ID.
func (s *Service) Get(ctx context.Context, id int64) (*models.Session, error) {
	return s.sessions.Get(ctx, id)
}

// List returns all sessions, optionally only those in state.
func (s *Service) List(ctx context.Context, state *models.SessionState) ([]*models.Session, error) {
	return s.sessions.List(ctx, state)
}

// Delete removes a session.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("session deleted", "id", id)
	return nil
}

// Next marks the current episode as watched and moves on, finishing the
// session after the last episode.
func (s *Service) Next(ctx context.Context, id int64) (*models.Session, error) {
	return s.apply(ctx, "next", id, navigator.AdvanceAt(s.now))
}

// Previous moves back one episode.
func (s *Service) Previous(ctx context.Context, id int64) (*models.Session, error) {
	return s.apply(ctx, "previous", id, navigator.RetreatStep)
}

// Goto jumps to an explicit season and episode.
func (s *Service) Goto(ctx context.Context, id int64, season, episode int) (*models.Session, error) {
	return s.apply(ctx, "goto", id, navigator.GotoStep(season, episode))
}

// Restart rewinds the session to S1E1 and clears its end date.
func (s *Service) Restart(ctx context.Context, id int64) (*models.Session, error) {
	return s.apply(ctx, "restart", id, navigator.RestartStep)
}

func (s *Service) apply(ctx context.Context, op string, id int64, step navigator.Transition) (*models.Session, error) {
	sess, err := s.sessions.ApplyTransition(ctx, id, step)
	if err != nil {
		s.logger.Debug("session transition rejected", "op", op, "id", id, "error", err)
		return nil, err
	}

	if sess.Finished() {
		s.logger.Info("session finished", "id", id, "show", sess.Show.Name)
	} else {
		s.logger.Debug("session moved", "op", op, "id", id, "position", sess.Label())
	}
	return sess, nil
}
