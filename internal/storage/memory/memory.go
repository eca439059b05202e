// Package memory provides an in-process game.Store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lox/rikiki/internal/game"
)

// Store keeps players and games in maps guarded by one RWMutex. Values are
// copied on the way in and out so callers never share state with the store.
type Store struct {
	mu      sync.RWMutex
	players map[string]game.Player
	games   map[string]*game.Game
}

// New creates an empty store.
func New() *Store {
	return &Store{
		players: make(map[string]game.Player),
		games:   make(map[string]*game.Game),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) CreatePlayer(ctx context.Context, p game.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[p.ID]; exists {
		return game.Errorf(game.CodeAlreadyExists, "player %s already exists", p.ID)
	}
	if s.nameTaken(p.Name, p.ID) {
		return game.Errorf(game.CodeAlreadyExists, "player with nickname %q already exists", p.Name)
	}
	s.players[p.ID] = p
	return nil
}

func (s *Store) UpdatePlayer(ctx context.Context, p game.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[p.ID]; !exists {
		return game.Errorf(game.CodeNotFound, "player %s not found", p.ID)
	}
	if s.nameTaken(p.Name, p.ID) {
		return game.Errorf(game.CodeAlreadyExists, "player with nickname %q already exists", p.Name)
	}
	s.players[p.ID] = p
	return nil
}

func (s *Store) nameTaken(name, self string) bool {
	for id, p := range s.players {
		if p.Name == name && id != self {
			return true
		}
	}
	return false
}

func (s *Store) GetPlayer(ctx context.Context, id string) (game.Player, error) {
	if err := ctx.Err(); err != nil {
		return game.Player{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return game.Player{}, game.Errorf(game.CodeNotFound, "player %s not found", id)
	}
	return p, nil
}

func (s *Store) FindPlayerByName(ctx context.Context, name string) (game.Player, error) {
	if err := ctx.Err(); err != nil {
		return game.Player{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.players {
		if p.Name == name {
			return p, nil
		}
	}
	return game.Player{}, game.Errorf(game.CodeNotFound, "player %q not found", name)
}

// ListPlayers returns players in creation order.
func (s *Store) ListPlayers(ctx context.Context) ([]game.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]game.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[id]; !ok {
		return game.Errorf(game.CodeNotFound, "player %s not found", id)
	}
	for _, g := range s.games {
		if g.Seat(id) >= 0 {
			return game.Errorf(game.CodeInUse, "player %s is referenced by game %s", id, g.ID)
		}
	}
	delete(s.players, id)
	return nil
}

func (s *Store) CreateGame(ctx context.Context, g *game.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[g.ID]; exists {
		return game.Errorf(game.CodeAlreadyExists, "game %s already exists", g.ID)
	}
	for _, p := range g.Participants {
		if _, ok := s.players[p.PlayerID]; !ok {
			return game.Errorf(game.CodeNotFound, "player %s not found", p.PlayerID)
		}
	}
	s.games[g.ID] = g.Clone()
	return nil
}

func (s *Store) GetGame(ctx context.Context, id string) (*game.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return nil, game.Errorf(game.CodeNotFound, "game %s not found", id)
	}
	return g.Clone(), nil
}

func (s *Store) SaveGame(ctx context.Context, g *game.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[g.ID]; !ok {
		return game.Errorf(game.CodeNotFound, "game %s not found", g.ID)
	}
	s.games[g.ID] = g.Clone()
	return nil
}

// ListGames returns matching games, newest first.
func (s *Store) ListGames(ctx context.Context, filter game.GameFilter) ([]*game.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*game.Game
	for _, g := range s.games {
		if filter.Matches(g) {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteGame(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[id]; !ok {
		return game.Errorf(game.CodeNotFound, "game %s not found", id)
	}
	delete(s.games, id)
	return nil
}

var _ game.Store = (*Store)(nil)
