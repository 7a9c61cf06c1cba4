// internal/store/memory.go
package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/jasonkylefrank/prompt-jeopardy/internal/game"
)

// MemoryStore keeps game documents in a mutex-guarded map. It is used by
// tests and local development and carries the same conditional-write
// semantics as the Redis store.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string][]byte)}
}

// Get returns a private copy of the stored document, so callers can mutate
// freely before writing back.
func (s *MemoryStore) Get(ctx context.Context, id string) (*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.games[id]
	if !ok {
		return nil, game.ErrGameNotFound
	}
	var g game.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Put writes the document conditioned on g.Version matching the stored
// version, bumping the version on success. A missing document accepts only
// version 0 (a freshly created game).
func (s *MemoryStore) Put(ctx context.Context, g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data, ok := s.games[g.ID]; ok {
		var probe struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return err
		}
		if probe.Version != g.Version {
			return game.ErrVersionConflict
		}
	} else if g.Version != 0 {
		return game.ErrVersionConflict
	}

	g.Version++
	data, err := json.Marshal(g)
	if err != nil {
		g.Version--
		return err
	}
	s.games[g.ID] = data
	return nil
}

// List returns every stored document, ordered by game ID for stable output.
func (s *MemoryStore) List(ctx context.Context) ([]*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	games := make([]*game.Game, 0, len(s.games))
	for _, data := range s.games {
		var g game.Game
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, err
		}
		games = append(games, &g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
	return games, nil
}
