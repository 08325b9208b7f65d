package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgorozz/notflix/internal/models"
	"github.com/dgorozz/notflix/internal/navigator"
)

// ShowStore handles Show CRUD on SQLite. It is the show catalog the session
// navigator reads episode counts from.
type ShowStore struct {
	db *DB
}

// NewShowStore creates a new show store.
func NewShowStore(db *DB) *ShowStore {
	return &ShowStore{db: db}
}

const showColumns = `id, name, description, genre, episode_counts`

// execer is satisfied by *DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create validates and inserts a show, filling in its ID.
func (s *ShowStore) Create(ctx context.Context, show *models.Show) error {
	if err := show.Validate(); err != nil {
		return err
	}
	return insertShow(ctx, s.db, show)
}

func insertShow(ctx context.Context, db execer, show *models.Show) error {
	counts, err := json.Marshal(show.EpisodeCounts)
	if err != nil {
		return fmt.Errorf("marshal episode counts: %w", err)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO shows (name, description, genre, episode_counts)
		VALUES (?, ?, ?, ?)
	`, show.Name, show.Description, show.Genre, string(counts))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: show %q already exists", ErrConflict, show.Name)
	}
	if err != nil {
		return fmt.Errorf("insert show: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("show id: %w", err)
	}
	show.ID = id
	return nil
}

// Upsert inserts the show or, when a show with the same name exists, updates
// its description, genre and episode counts. It reports whether a new row
// was created. New counts must still contain the position of every session
// of the show, otherwise nothing is written and ErrConflict is returned.
func (s *ShowStore) Upsert(ctx context.Context, show *models.Show) (bool, error) {
	if err := show.Validate(); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanShow(tx.QueryRowContext(ctx, `SELECT `+showColumns+` FROM shows WHERE name = ?`, show.Name))
	if errors.Is(err, sql.ErrNoRows) {
		if err := insertShow(ctx, tx, show); err != nil {
			return false, err
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get show by name: %w", err)
	}

	if err := checkSessionsFit(ctx, tx, existing.ID, show.EpisodeCounts); err != nil {
		return false, err
	}

	counts, err := json.Marshal(show.EpisodeCounts)
	if err != nil {
		return false, fmt.Errorf("marshal episode counts: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE shows SET description = ?, genre = ?, episode_counts = ? WHERE id = ?
	`, show.Description, show.Genre, string(counts), existing.ID)
	if err != nil {
		return false, fmt.Errorf("update show: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	show.ID = existing.ID
	return false, nil
}

// checkSessionsFit fails with ErrConflict when a session of the show sits at
// a position the new counts no longer contain.
func checkSessionsFit(ctx context.Context, tx *sql.Tx, showID int64, counts []int) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, season, episode FROM sessions WHERE show_id = ?`, showID)
	if err != nil {
		return fmt.Errorf("list show sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var season, episode int
		if err := rows.Scan(&id, &season, &episode); err != nil {
			return fmt.Errorf("scan session: %w", err)
		}
		if !navigator.EpisodeCounts(counts).Contains(season, episode) {
			return fmt.Errorf("%w: session %d is at S%dE%d, outside episode counts %v", ErrConflict, id, season, episode, counts)
		}
	}
	return rows.Err()
}

// Get fetches a show by ID.
func (s *ShowStore) Get(ctx context.Context, id int64) (*models.Show, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+showColumns+` FROM shows WHERE id = ?`, id)
	show, err := scanShow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("show %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get show: %w", err)
	}
	return show, nil
}

// GetByName fetches a show by its unique name.
func (s *ShowStore) GetByName(ctx context.Context, name string) (*models.Show, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+showColumns+` FROM shows WHERE name = ?`, name)
	show, err := scanShow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("show %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get show by name: %w", err)
	}
	return show, nil
}

// List returns every show ordered by ID.
func (s *ShowStore) List(ctx context.Context) ([]*models.Show, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+showColumns+` FROM shows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list shows: %w", err)
	}
	defer rows.Close()

	var shows []*models.Show
	for rows.Next() {
		show, err := scanShow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan show: %w", err)
		}
		shows = append(shows, show)
	}
	return shows, rows.Err()
}

// Delete removes a show. Its sessions are removed by the ON DELETE CASCADE
// foreign key.
func (s *ShowStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete show: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete show: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("show %d: %w", id, ErrNotFound)
	}
	return nil
}

// EpisodeCounts returns the per-season episode counts of a show.
func (s *ShowStore) EpisodeCounts(ctx context.Context, id int64) ([]int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT episode_counts FROM shows WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("show %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get episode counts: %w", err)
	}
	return decodeCounts(raw)
}

func scanShow(row rowScanner) (*models.Show, error) {
	var show models.Show
	var counts string
	if err := row.Scan(&show.ID, &show.Name, &show.Description, &show.Genre, &counts); err != nil {
		return nil, err
	}
	c, err := decodeCounts(counts)
	if err != nil {
		return nil, err
	}
	show.EpisodeCounts = c
	return &show, nil
}

func decodeCounts(raw string) ([]int, error) {
	var counts []int
	if err := json.Unmarshal([]byte(raw), &counts); err != nil {
		return nil, fmt.Errorf("decode episode counts: %w", err)
	}
	return counts, nil
}
