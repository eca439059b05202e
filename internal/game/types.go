package game

import (
	"sort"
	"time"

	"github.com/lox/rikiki/internal/rules"
)

// Status is the lifecycle state of a game.
type Status string

const (
	StatusActive     Status = "active"
	StatusCompleted  Status = "completed"
	StatusEndedEarly Status = "ended_early"
)

// Terminal reports whether no further rounds can be played.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusEndedEarly
}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusCompleted, StatusEndedEarly:
		return Status(s), nil
	default:
		return "", Errorf(CodeInvalidArgument, "unknown game status %q", s)
	}
}

// Player is a member of the roster. Games reference players by ID.
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Participant is a player's seat in one game with the cached running total.
type Participant struct {
	PlayerID    string `json:"player_id"`
	TotalPoints int    `json:"total_points"`
}

// RoundResult is one player's guess and outcome in a round. Hits and Points
// stay nil until results are submitted.
type RoundResult struct {
	PlayerID string `json:"player_id"`
	Guess    int    `json:"guess"`
	Hits     *int   `json:"hits,omitempty"`
	Points   *int   `json:"points,omitempty"`
}

// Round is one deal of Cards cards to every participant.
type Round struct {
	Number    int           `json:"number"`
	Cards     int           `json:"cards"`
	Completed bool          `json:"completed"`
	Results   []RoundResult `json:"results"`
}

// Result returns the result recorded for playerID, or nil.
func (r *Round) Result(playerID string) *RoundResult {
	for i := range r.Results {
		if r.Results[i].PlayerID == playerID {
			return &r.Results[i]
		}
	}
	return nil
}

// HasHits reports whether any outcome has been recorded in the round.
func (r *Round) HasHits() bool {
	for _, res := range r.Results {
		if res.Hits != nil {
			return true
		}
	}
	return false
}

// Game is the aggregate persisted by a Store: the game row together with its
// participants, rounds and round results.
type Game struct {
	ID            string         `json:"id"`
	Participants  []Participant  `json:"participants"`
	Deck          rules.DeckSize `json:"deck"`
	ForceConflict bool           `json:"force_conflict"`
	MaxRounds     int            `json:"max_rounds"`
	CurrentRound  int            `json:"current_round"`
	DealerIndex   int            `json:"dealer_index"`
	Status        Status         `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	EndedAt       *time.Time     `json:"ended_at,omitempty"`
	Rounds        []Round        `json:"rounds"`
}

// PlayerIDs returns participant ids in seating order.
func (g *Game) PlayerIDs() []string {
	ids := make([]string, len(g.Participants))
	for i, p := range g.Participants {
		ids[i] = p.PlayerID
	}
	return ids
}

// Seat returns the seating index of playerID, or -1.
func (g *Game) Seat(playerID string) int {
	for i, p := range g.Participants {
		if p.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// Round returns round n, or nil.
func (g *Game) Round(n int) *Round {
	for i := range g.Rounds {
		if g.Rounds[i].Number == n {
			return &g.Rounds[i]
		}
	}
	return nil
}

// Current returns the open round of an active game, or nil.
func (g *Game) Current() *Round {
	if g.Status != StatusActive {
		return nil
	}
	r := g.Round(g.CurrentRound)
	if r == nil || r.Completed {
		return nil
	}
	return r
}

// Dealer returns the player id dealing the current round.
func (g *Game) Dealer() string {
	if len(g.Participants) == 0 {
		return ""
	}
	return g.Participants[g.DealerIndex%len(g.Participants)].PlayerID
}

// CompletedRounds returns the scored rounds in round order.
func (g *Game) CompletedRounds() []*Round {
	var out []*Round
	for i := range g.Rounds {
		if g.Rounds[i].Completed {
			out = append(out, &g.Rounds[i])
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Number < out[b].Number })
	return out
}

// Totals sums each participant's points over completed rounds, keyed by
// player id. Results without points count as zero.
func (g *Game) Totals() map[string]int {
	totals := make(map[string]int, len(g.Participants))
	for _, p := range g.Participants {
		totals[p.PlayerID] = 0
	}
	for _, r := range g.CompletedRounds() {
		for _, res := range r.Results {
			if res.Points == nil {
				continue
			}
			if _, ok := totals[res.PlayerID]; ok {
				totals[res.PlayerID] += *res.Points
			}
		}
	}
	return totals
}

// RecomputeTotals rebuilds every cached running total from the round results
// and reports whether any total changed.
func (g *Game) RecomputeTotals() bool {
	totals := g.Totals()
	changed := false
	for i := range g.Participants {
		want := totals[g.Participants[i].PlayerID]
		if g.Participants[i].TotalPoints != want {
			g.Participants[i].TotalPoints = want
			changed = true
		}
	}
	return changed
}

// Clone returns a deep copy of the game.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.Participants = append([]Participant(nil), g.Participants...)
	c.StartedAt = cloneTime(g.StartedAt)
	c.EndedAt = cloneTime(g.EndedAt)
	c.Rounds = make([]Round, len(g.Rounds))
	for i, r := range g.Rounds {
		c.Rounds[i] = r
		c.Rounds[i].Results = make([]RoundResult, len(r.Results))
		for j, res := range r.Results {
			c.Rounds[i].Results[j] = RoundResult{
				PlayerID: res.PlayerID,
				Guess:    res.Guess,
				Hits:     cloneInt(res.Hits),
				Points:   cloneInt(res.Points),
			}
		}
	}
	return &c
}

// sortResults keeps every round's results in seating order.
func (g *Game) sortResults() {
	for i := range g.Rounds {
		results := g.Rounds[i].Results
		sort.SliceStable(results, func(a, b int) bool {
			return g.Seat(results[a].PlayerID) < g.Seat(results[b].PlayerID)
		})
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
