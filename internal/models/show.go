package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidShow is returned when a show's metadata or episode counts
// cannot describe a watchable show.
var ErrInvalidShow = errors.New("invalid show")

// Show is a catalog entry. EpisodeCounts holds one entry per season,
// each the number of episodes in that season.
type Show struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Genre         string `json:"genre"`
	EpisodeCounts []int  `json:"episodeCounts"`
}

// Seasons returns the number of seasons in the show.
func (s *Show) Seasons() int {
	return len(s.EpisodeCounts)
}

// TotalEpisodes returns the number of episodes across all seasons.
func (s *Show) TotalEpisodes() int {
	total := 0
	for _, n := range s.EpisodeCounts {
		total += n
	}
	return total
}

// Validate checks the show has a name and at least one season, and that
// every season has at least one episode.
func (s *Show) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidShow)
	}
	if len(s.EpisodeCounts) == 0 {
		return fmt.Errorf("%w: %q has no seasons", ErrInvalidShow, s.Name)
	}
	for i, n := range s.EpisodeCounts {
		if n < 1 {
			return fmt.Errorf("%w: season %d of %q has %d episodes", ErrInvalidShow, i+1, s.Name, n)
		}
	}
	return nil
}

// CreateShowRequest is the payload for POST /shows.
type CreateShowRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Genre         string `json:"genre"`
	EpisodeCounts []int  `json:"episodeCounts"`
}

// Show converts the request into an unsaved Show.
func (r *CreateShowRequest) Show() *Show {
	return &Show{
		Name:          strings.TrimSpace(r.Name),
		Description:   r.Description,
		Genre:         r.Genre,
		EpisodeCounts: r.EpisodeCounts,
	}
}
