package postgres

import (
	"time"

	"github.com/lox/rikiki/internal/game"
	"github.com/lox/rikiki/internal/rules"
)

type playerRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"size:100;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`

	// Participation rows keep a player alive while any game references them.
	Seats []gamePlayerRow `gorm:"foreignKey:PlayerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
}

func (playerRow) TableName() string { return "players" }

type gameRow struct {
	ID            string     `gorm:"primaryKey;size:64"`
	Deck          string     `gorm:"size:16;not null"`
	ForceConflict bool       `gorm:"not null;default:true"`
	MaxRounds     int        `gorm:"not null"`
	CurrentRound  int        `gorm:"not null"`
	DealerIndex   int        `gorm:"not null"`
	Status        string     `gorm:"size:16;not null;index:idx_games_status_created,priority:1"`
	CreatedAt     time.Time  `gorm:"not null;index:idx_games_status_created,priority:2"`
	StartedAt     *time.Time `gorm:"default:null"`
	EndedAt       *time.Time `gorm:"default:null"`

	// Relationships
	Players []gamePlayerRow `gorm:"foreignKey:GameID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Rounds  []roundRow      `gorm:"foreignKey:GameID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (gameRow) TableName() string { return "games" }

type gamePlayerRow struct {
	GameID      string `gorm:"primaryKey;size:64"`
	PlayerID    string `gorm:"primaryKey;size:64;index:idx_game_players_player"`
	Seat        int    `gorm:"not null"`
	TotalPoints int    `gorm:"not null;default:0"`
}

func (gamePlayerRow) TableName() string { return "game_players" }

type roundRow struct {
	GameID    string `gorm:"primaryKey;size:64"`
	Number    int    `gorm:"primaryKey;autoIncrement:false"`
	Cards     int    `gorm:"not null"`
	Completed bool   `gorm:"not null;default:false"`

	Results []roundResultRow `gorm:"foreignKey:GameID,RoundNumber;references:GameID,Number;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (roundRow) TableName() string { return "rounds" }

type roundResultRow struct {
	GameID      string `gorm:"primaryKey;size:64"`
	RoundNumber int    `gorm:"primaryKey;autoIncrement:false"`
	PlayerID    string `gorm:"primaryKey;size:64"`
	Position    int    `gorm:"not null"`
	Guess       int    `gorm:"not null"`
	Hits        *int
	Points      *int
}

func (roundResultRow) TableName() string { return "round_results" }

func toPlayerRow(p game.Player) playerRow {
	return playerRow{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt.UTC()}
}

func (r playerRow) toPlayer() game.Player {
	return game.Player{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt.UTC()}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// toRows flattens an aggregate into its game row and child rows.
func toRows(g *game.Game) (gameRow, []gamePlayerRow, []roundRow, []roundResultRow) {
	row := gameRow{
		ID:            g.ID,
		Deck:          string(g.Deck),
		ForceConflict: g.ForceConflict,
		MaxRounds:     g.MaxRounds,
		CurrentRound:  g.CurrentRound,
		DealerIndex:   g.DealerIndex,
		Status:        string(g.Status),
		CreatedAt:     g.CreatedAt.UTC(),
		StartedAt:     utcPtr(g.StartedAt),
		EndedAt:       utcPtr(g.EndedAt),
	}

	players := make([]gamePlayerRow, len(g.Participants))
	for seat, p := range g.Participants {
		players[seat] = gamePlayerRow{GameID: g.ID, PlayerID: p.PlayerID, Seat: seat, TotalPoints: p.TotalPoints}
	}

	var (
		rounds  []roundRow
		results []roundResultRow
	)
	for _, r := range g.Rounds {
		rounds = append(rounds, roundRow{GameID: g.ID, Number: r.Number, Cards: r.Cards, Completed: r.Completed})
		for pos, res := range r.Results {
			results = append(results, roundResultRow{
				GameID:      g.ID,
				RoundNumber: r.Number,
				PlayerID:    res.PlayerID,
				Position:    pos,
				Guess:       res.Guess,
				Hits:        res.Hits,
				Points:      res.Points,
			})
		}
	}
	return row, players, rounds, results
}

// toGame assembles an aggregate from a row loaded with its preloads.
func (r gameRow) toGame() *game.Game {
	g := &game.Game{
		ID:            r.ID,
		Participants:  make([]game.Participant, len(r.Players)),
		Deck:          rules.DeckSize(r.Deck),
		ForceConflict: r.ForceConflict,
		MaxRounds:     r.MaxRounds,
		CurrentRound:  r.CurrentRound,
		DealerIndex:   r.DealerIndex,
		Status:        game.Status(r.Status),
		CreatedAt:     r.CreatedAt.UTC(),
		StartedAt:     utcPtr(r.StartedAt),
		EndedAt:       utcPtr(r.EndedAt),
		Rounds:        make([]game.Round, len(r.Rounds)),
	}
	for i, p := range r.Players {
		g.Participants[i] = game.Participant{PlayerID: p.PlayerID, TotalPoints: p.TotalPoints}
	}
	for i, rr := range r.Rounds {
		round := game.Round{Number: rr.Number, Cards: rr.Cards, Completed: rr.Completed, Results: make([]game.RoundResult, len(rr.Results))}
		for j, res := range rr.Results {
			round.Results[j] = game.RoundResult{PlayerID: res.PlayerID, Guess: res.Guess, Hits: res.Hits, Points: res.Points}
		}
		g.Rounds[i] = round
	}
	return g
}
