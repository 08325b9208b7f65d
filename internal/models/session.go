package models

import (
	"errors"
	"fmt"
)

// SessionState is the lifecycle state of a watch session.
type SessionState string

const (
	SessionStateWatching SessionState = "watching"
	SessionStateFinished SessionState = "finished"
)

// ErrInvalidState is returned when a state filter is not a known SessionState.
var ErrInvalidState = errors.New("invalid session state")

func (s SessionState) IsValid() bool {
	return s == SessionStateWatching || s == SessionStateFinished
}

// ParseSessionState converts a raw value (e.g. a query parameter) into a
// SessionState, rejecting anything other than "watching" or "finished".
func ParseSessionState(raw string) (SessionState, error) {
	s := SessionState(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidState, raw, SessionStateWatching, SessionStateFinished)
	}
	return s, nil
}

// Session is a single watch-through of one show.
type Session struct {
	ID        int64        `json:"id"`
	ShowID    int64        `json:"showId"`
	Season    int          `json:"season"`
	Episode   int          `json:"episode"`
	State     SessionState `json:"state"`
	StartDate int64        `json:"startDate"`
	EndDate   *int64       `json:"endDate,omitempty"`

	// Populated by joins, not stored directly.
	Show *Show `json:"show,omitempty"`
}

// Finished reports whether the session reached its terminal state.
func (s *Session) Finished() bool {
	return s.State == SessionStateFinished
}

// Label formats the current position as S<season>E<episode>.
func (s *Session) Label() string {
	return fmt.Sprintf("S%dE%d", s.Season, s.Episode)
}

// GotoRequest is the payload for POST /sessions/{id}/goto.
type GotoRequest struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}

// ServiceCheck reports the health of a single dependency.
type ServiceCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status       string       `json:"status"`
	DB           ServiceCheck `json:"db"`
	ShowCount    int          `json:"showCount"`
	SessionCount int          `json:"sessionCount"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
