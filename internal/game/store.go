package game

import "context"

// GameFilter narrows ListGames. Zero values match everything.
type GameFilter struct {
	Statuses []Status
	PlayerID string
}

// Matches reports whether g passes the filter.
func (f GameFilter) Matches(g *Game) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if g.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.PlayerID != "" && g.Seat(f.PlayerID) < 0 {
		return false
	}
	return true
}

// Store persists players and game aggregates.
//
// Implementations return errors coded CodeNotFound for unknown ids,
// CodeAlreadyExists for duplicate player names and CodeInUse when deleting a
// player that a game still references. GetGame and ListGames return copies
// the caller may mutate freely; SaveGame replaces the whole aggregate
// atomically. DeleteGame removes the game's rounds, results and
// participation records with it.
type Store interface {
	CreatePlayer(ctx context.Context, p Player) error
	UpdatePlayer(ctx context.Context, p Player) error
	GetPlayer(ctx context.Context, id string) (Player, error)
	FindPlayerByName(ctx context.Context, name string) (Player, error)
	ListPlayers(ctx context.Context) ([]Player, error)
	DeletePlayer(ctx context.Context, id string) error

	CreateGame(ctx context.Context, g *Game) error
	GetGame(ctx context.Context, id string) (*Game, error)
	SaveGame(ctx context.Context, g *Game) error
	ListGames(ctx context.Context, filter GameFilter) ([]*Game, error)
	DeleteGame(ctx context.Context, id string) error
}
