// Package catalog loads show catalogs from YAML or JSON files and seeds them
// into the show store.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dgorozz/notflix/internal/models"
)

// Entry is one show as written in a catalog file.
type Entry struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Genre       string        `yaml:"genre"`
	Gender      string        `yaml:"gender"` // older catalogs used this key for the genre
	Episodes    EpisodeCounts `yaml:"episodes"`
}

// EpisodeCounts accepts either a sequence of counts or a mapping of season
// label to count. Mapping entries are taken in document order.
type EpisodeCounts []int

func (c *EpisodeCounts) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var counts []int
		if err := node.Decode(&counts); err != nil {
			return fmt.Errorf("line %d: episodes: %w", node.Line, err)
		}
		*c = counts
		return nil
	case yaml.MappingNode:
		counts := make([]int, 0, len(node.Content)/2)
		for i := 1; i < len(node.Content); i += 2 {
			var n int
			if err := node.Content[i].Decode(&n); err != nil {
				return fmt.Errorf("line %d: season %q: %w", node.Content[i].Line, node.Content[i-1].Value, err)
			}
			counts = append(counts, n)
		}
		*c = counts
		return nil
	default:
		return fmt.Errorf("line %d: episodes must be a list or a mapping", node.Line)
	}
}

// file is either a bare list of entries or a document with a "shows" key.
type file struct {
	Shows []Entry `yaml:"shows"`
}

// Parse decodes catalog data. JSON input is accepted since JSON is valid YAML.
func Parse(data []byte) ([]*models.Show, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	var entries []Entry
	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
	case yaml.MappingNode:
		var f file
		if err := doc.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		entries = f.Shows
	default:
		return nil, fmt.Errorf("decode catalog: line %d: expected a list of shows", doc.Line)
	}

	shows := make([]*models.Show, 0, len(entries))
	for i, e := range entries {
		genre := e.Genre
		if genre == "" {
			genre = e.Gender
		}
		show := &models.Show{
			Name:          e.Name,
			Description:   e.Description,
			Genre:         genre,
			EpisodeCounts: e.Episodes,
		}
		if err := show.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i+1, err)
		}
		shows = append(shows, show)
	}
	return shows, nil
}

// Load reads and parses a catalog file.
func Load(path string) ([]*models.Show, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Upserter stores shows by name.
type Upserter interface {
	Upsert(ctx context.Context, show *models.Show) (bool, error)
}

// SeedResult summarizes a Seed run.
type SeedResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Seed upserts every show into the store, stopping at the first failure.
func Seed(ctx context.Context, store Upserter, shows []*models.Show, logger *slog.Logger) (SeedResult, error) {
	var res SeedResult
	for _, show := range shows {
		created, err := store.Upsert(ctx, show)
		if err != nil {
			return res, fmt.Errorf("seed %q: %w", show.Name, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
		logger.Debug("catalog show seeded", "id", show.ID, "name", show.Name, "created", created)
	}
	return res, nil
}
