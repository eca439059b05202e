package game

import (
	"context"
	"errors"

	"github.com/lox/rikiki/internal/rules"
)

// GameView is a game with its participants resolved to players and the
// presentation order of the current round.
type GameView struct {
	Game      *Game    `json:"game"`
	Players   []Player `json:"players"`
	Current   *Round   `json:"current_round,omitempty"`
	Dealer    Player   `json:"dealer"`
	PlayOrder []Player `json:"play_order"`
}

// View loads a game together with the data a table display needs.
func (e *Engine) View(ctx context.Context, gameID string) (*GameView, error) {
	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	players, err := e.seatedPlayers(ctx, g)
	if err != nil {
		return nil, err
	}

	v := &GameView{
		Game:      g,
		Players:   players,
		Current:   g.Current(),
		PlayOrder: rules.PlayOrder(g.DealerIndex, players),
	}
	if len(players) > 0 {
		v.Dealer = players[g.DealerIndex%len(players)]
	}
	return v, nil
}

// seatedPlayers resolves participants in seating order. A player missing from
// the roster is reported by id.
func (e *Engine) seatedPlayers(ctx context.Context, g *Game) ([]Player, error) {
	players := make([]Player, len(g.Participants))
	for i, p := range g.Participants {
		player, err := e.store.GetPlayer(ctx, p.PlayerID)
		switch {
		case err == nil:
			players[i] = player
		case errors.Is(err, ErrNotFound):
			players[i] = Player{ID: p.PlayerID, Name: p.PlayerID}
		default:
			return nil, err
		}
	}
	return players, nil
}
