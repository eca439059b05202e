package game

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lox/rikiki/internal/rules"
)

// Standing is one player's line in the final table.
type Standing struct {
	Rank              int     `json:"rank"`
	PlayerID          string  `json:"player_id"`
	Name              string  `json:"name"`
	TotalPoints       int     `json:"total_points"`
	CorrectGuesses    int     `json:"correct_guesses"`
	ScoredRounds      int     `json:"scored_rounds"`
	Accuracy          float64 `json:"accuracy"`
	AvgPointsPerRound float64 `json:"avg_points_per_round"`
}

// Series is a player's cumulative score after each completed round, starting
// with 0 before the first round.
type Series struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Points   []int  `json:"points"`
}

// Summary is the read-only digest of a game.
type Summary struct {
	GameID          string         `json:"game_id"`
	Status          Status         `json:"status"`
	Deck            rules.DeckSize `json:"deck"`
	ForceConflict   bool           `json:"force_conflict"`
	MaxRounds       int            `json:"max_rounds"`
	CompletedRounds int            `json:"completed_rounds"`
	TotalPlayers    int            `json:"total_players"`
	Standings       []Standing     `json:"standings"`
	Winner          *Standing      `json:"winner,omitempty"`
	MaxPoints       int            `json:"max_points"`
	MinPoints       int            `json:"min_points"`
	PointSpread     int            `json:"point_spread"`
	Labels          []string       `json:"labels"`
	Series          []Series       `json:"series"`
	CreatedAt       time.Time      `json:"created_at"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	EndedAt         *time.Time     `json:"ended_at,omitempty"`
	Duration        time.Duration  `json:"duration,omitempty"`
}

// Summarize derives standings, accuracy and chart series from a game's
// rounds. Totals come from the round results, never from the cached
// participant totals. names maps player ids to display names; missing names
// fall back to the id.
func Summarize(g *Game, names map[string]string) *Summary {
	completed := g.CompletedRounds()

	s := &Summary{
		GameID:          g.ID,
		Status:          g.Status,
		Deck:            g.Deck,
		ForceConflict:   g.ForceConflict,
		MaxRounds:       g.MaxRounds,
		CompletedRounds: len(completed),
		TotalPlayers:    len(g.Participants),
		CreatedAt:       g.CreatedAt,
		StartedAt:       cloneTime(g.StartedAt),
		EndedAt:         cloneTime(g.EndedAt),
		Labels:          make([]string, 0, len(completed)+1),
	}
	if g.StartedAt != nil && g.EndedAt != nil {
		s.Duration = g.EndedAt.Sub(*g.StartedAt)
	}

	s.Labels = append(s.Labels, "Round 0")
	for _, r := range completed {
		s.Labels = append(s.Labels, fmt.Sprintf("Round %d", r.Number))
	}

	standings := make([]Standing, len(g.Participants))
	for i, p := range g.Participants {
		name := names[p.PlayerID]
		if name == "" {
			name = p.PlayerID
		}

		st := Standing{PlayerID: p.PlayerID, Name: name}
		series := Series{PlayerID: p.PlayerID, Name: name, Points: make([]int, 1, len(completed)+1)}
		cumulative := 0
		for _, r := range completed {
			res := r.Result(p.PlayerID)
			if res != nil && res.Points != nil {
				cumulative += *res.Points
				st.ScoredRounds++
				if res.Hits != nil && *res.Hits == res.Guess {
					st.CorrectGuesses++
				}
			}
			series.Points = append(series.Points, cumulative)
		}
		st.TotalPoints = cumulative
		if st.ScoredRounds > 0 {
			st.Accuracy = float64(st.CorrectGuesses) / float64(st.ScoredRounds)
			st.AvgPointsPerRound = float64(st.TotalPoints) / float64(st.ScoredRounds)
		}

		standings[i] = st
		s.Series = append(s.Series, series)
	}

	// stable sort keeps seating order between equal totals
	sort.SliceStable(standings, func(a, b int) bool {
		return standings[a].TotalPoints > standings[b].TotalPoints
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	s.Standings = standings

	if len(standings) > 0 {
		winner := standings[0]
		s.Winner = &winner
		s.MaxPoints = standings[0].TotalPoints
		s.MinPoints = standings[len(standings)-1].TotalPoints
		s.PointSpread = s.MaxPoints - s.MinPoints
	}
	return s
}

// Summary loads a game and summarizes it.
func (e *Engine) Summary(ctx context.Context, gameID string) (*Summary, error) {
	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	players, err := e.seatedPlayers(ctx, g)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}
	return Summarize(g, names), nil
}
