// Package navigator computes watch-session transitions across a show's
// (season, episode) grid. Every function is pure: it returns a new Position
// or a rejection and never touches storage.
package navigator

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgorozz/notflix/internal/models"
)

var (
	ErrAlreadyFinished = errors.New("show already finished, restart the session to watch again")
	ErrAtStart         = errors.New("already at the first episode of the first season")
	ErrInvalidSeason   = errors.New("season does not exist")
	ErrInvalidEpisode  = errors.New("episode does not exist")

	// ErrCorruptPosition means the stored position does not fit the show's
	// episode counts, so no transition can be computed from it.
	ErrCorruptPosition = errors.New("position outside the show's episode counts")
)

// EpisodeCounts holds the number of episodes per season, season 1 first.
type EpisodeCounts []int

// Seasons returns the number of seasons.
func (c EpisodeCounts) Seasons() int {
	return len(c)
}

// InSeason returns the number of episodes in the given 1-based season, or 0
// when the season is out of range.
func (c EpisodeCounts) InSeason(season int) int {
	if season < 1 || season > len(c) {
		return 0
	}
	return c[season-1]
}

// Contains reports whether season/episode is a valid position.
func (c EpisodeCounts) Contains(season, episode int) bool {
	return episode >= 1 && episode <= c.InSeason(season)
}

// Position is the navigable part of a session.
type Position struct {
	Season  int
	Episode int
	State   models.SessionState
	EndDate *int64
}

// PositionOf extracts the navigable fields of a session.
func PositionOf(s *models.Session) Position {
	return Position{
		Season:  s.Season,
		Episode: s.Episode,
		State:   s.State,
		EndDate: s.EndDate,
	}
}

// Apply copies a position back onto a session.
func (p Position) Apply(s *models.Session) {
	s.Season = p.Season
	s.Episode = p.Episode
	s.State = p.State
	s.EndDate = p.EndDate
}

func (p Position) finished() bool {
	return p.State == models.SessionStateFinished
}

func (p Position) check(counts EpisodeCounts) error {
	if !counts.Contains(p.Season, p.Episode) {
		return fmt.Errorf("%w: S%dE%d with counts %v", ErrCorruptPosition, p.Season, p.Episode, []int(counts))
	}
	return nil
}

// Advance moves to the next episode, rolling over into the next season, or
// finishes the session when called on the last episode of the last season.
// A finished session stays at its final coordinate.
func Advance(p Position, counts EpisodeCounts, now time.Time) (Position, error) {
	if p.finished() {
		return p, ErrAlreadyFinished
	}
	if err := p.check(counts); err != nil {
		return p, err
	}

	next := p
	switch {
	case p.Episode < counts.InSeason(p.Season):
		next.Episode++
	case p.Season < counts.Seasons():
		next.Season++
		next.Episode = 1
	default:
		end := now.Unix()
		next.State = models.SessionStateFinished
		next.EndDate = &end
	}
	return next, nil
}

// Retreat moves to the previous episode, rolling back to the last episode of
// the previous season when needed.
func Retreat(p Position, counts EpisodeCounts) (Position, error) {
	if p.finished() {
		return p, ErrAlreadyFinished
	}
	if err := p.check(counts); err != nil {
		return p, err
	}

	prev := p
	switch {
	case p.Episode > 1:
		prev.Episode--
	case p.Season > 1:
		prev.Season--
		prev.Episode = counts.InSeason(prev.Season)
	default:
		return p, ErrAtStart
	}
	prev.State = models.SessionStateWatching
	return prev, nil
}

// Goto jumps to an explicit coordinate. Finished sessions are rejected; use
// Restart to watch them again.
func Goto(p Position, counts EpisodeCounts, season, episode int) (Position, error) {
	if p.finished() {
		return p, ErrAlreadyFinished
	}
	if season < 1 || season > counts.Seasons() {
		return p, fmt.Errorf("%w: season %d (show has %d seasons)", ErrInvalidSeason, season, counts.Seasons())
	}
	if n := counts.InSeason(season); episode < 1 || episode > n {
		return p, fmt.Errorf("%w: episode %d of season %d (season has %d episodes)", ErrInvalidEpisode, episode, season, n)
	}

	return Position{
		Season:  season,
		Episode: episode,
		State:   models.SessionStateWatching,
	}, nil
}

// Restart returns to the first episode from any state.
func Restart(Position) Position {
	return Position{
		Season:  1,
		Episode: 1,
		State:   models.SessionStateWatching,
	}
}

// Transition is a navigation step that a store can apply inside a
// transaction.
type Transition func(p Position, counts EpisodeCounts) (Position, error)

// AdvanceAt returns a Transition that advances, stamping finishes with now().
func AdvanceAt(now func() time.Time) Transition {
	return func(p Position, counts EpisodeCounts) (Position, error) {
		return Advance(p, counts, now())
	}
}

// RetreatStep is Retreat as a Transition.
func RetreatStep(p Position, counts EpisodeCounts) (Position, error) {
	return Retreat(p, counts)
}

// GotoStep returns a Transition that jumps to season/episode.
func GotoStep(season, episode int) Transition {
	return func(p Position, counts EpisodeCounts) (Position, error) {
		return Goto(p, counts, season, episode)
	}
}

// RestartStep is Restart as a Transition.
func RestartStep(p Position, _ EpisodeCounts) (Position, error) {
	return Restart(p), nil
}
