package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dgorozz/notflix/internal/models"
	"github.com/dgorozz/notflix/internal/navigator"
)

// SessionStore handles Session CRUD on SQLite and applies navigator
// transitions transactionally.
type SessionStore struct {
	db  *DB
	now func() time.Time
}

// NewSessionStore creates a new session store.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

const sessionSelect = `
	SELECT s.id, s.show_id, s.season, s.episode, s.state, s.start_date, s.end_date,
	       sh.id, sh.name, sh.description, sh.genre, sh.episode_counts
	FROM sessions s
	JOIN shows sh ON sh.id = s.show_id`

// Create starts a new session for a show at S1E1. A show may have at most
// one session.
func (s *SessionStore) Create(ctx context.Context, showID int64) (*models.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM shows WHERE id = ?`, showID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("show %d: %w", showID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("check show: %w", err)
	}

	var existingID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM sessions WHERE show_id = ?`, showID).Scan(&existingID)
	if err == nil {
		return nil, fmt.Errorf("%w: show %d already has session %d", ErrConflict, showID, existingID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check existing session: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (show_id, season, episode, state, start_date)
		VALUES (?, 1, 1, ?, ?)
	`, showID, models.SessionStateWatching, s.now().Unix())
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: show %d already has a session", ErrConflict, showID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}

	sess, err := scanSession(tx.QueryRowContext(ctx, sessionSelect+` WHERE s.id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return sess, nil
}

// Get fetches a session by ID with its show populated.
func (s *SessionStore) Get(ctx context.Context, id int64) (*models.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx, sessionSelect+` WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// List returns all sessions ordered by ID. A non-nil state keeps only
// sessions in exactly that state.
func (s *SessionStore) List(ctx context.Context, state *models.SessionState) ([]*models.Session, error) {
	query := sessionSelect
	var args []any
	if state != nil {
		query += ` WHERE s.state = ?`
		args = append(args, *state)
	}
	query += ` ORDER BY s.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	return nil
}

// ApplyTransition loads a session and its show's episode counts, runs fn on
// the session's position and persists the result, all in one transaction.
// When fn rejects the transition nothing is written and its error is
// returned unwrapped.
func (s *SessionStore) ApplyTransition(ctx context.Context, id int64, fn navigator.Transition) (*models.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	sess, err := scanSession(tx.QueryRowContext(ctx, sessionSelect+` WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	next, err := fn(navigator.PositionOf(sess), sess.Show.EpisodeCounts)
	if err != nil {
		return nil, err
	}
	next.Apply(sess)

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET season = ?, episode = ?, state = ?, end_date = ? WHERE id = ?
	`, sess.Season, sess.Episode, sess.State, nullInt64(sess.EndDate), sess.ID)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return sess, nil
}

func scanSession(row rowScanner) (*models.Session, error) {
	var sess models.Session
	var show models.Show
	var endDate sql.NullInt64
	var counts string

	err := row.Scan(
		&sess.ID, &sess.ShowID, &sess.Season, &sess.Episode, &sess.State, &sess.StartDate, &endDate,
		&show.ID, &show.Name, &show.Description, &show.Genre, &counts,
	)
	if err != nil {
		return nil, err
	}

	if endDate.Valid {
		sess.EndDate = &endDate.Int64
	}
	show.EpisodeCounts, err = decodeCounts(counts)
	if err != nil {
		return nil, err
	}
	sess.Show = &show
	return &sess, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
