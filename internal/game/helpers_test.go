package game_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lox/rikiki/internal/game"
	"github.com/lox/rikiki/internal/rules"
	"github.com/lox/rikiki/internal/storage/memory"
)

var gameStart = time.Date(2025, time.January, 4, 20, 0, 0, 0, time.UTC)

// fixedRand always picks the same seat.
type fixedRand int

func (f fixedRand) IntN(n int) int { return int(f) % n }

type recorder struct {
	mu     sync.Mutex
	events []game.Event
}

func (r *recorder) OnGameEvent(e game.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []game.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]game.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	engine *game.Engine
	store  *memory.Store
	clock  *quartz.Mock
	events *recorder
}

func newHarness(t *testing.T, dealer int) *harness {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(gameStart)

	n := 0
	h := &harness{store: memory.New(), clock: clock, events: &recorder{}}
	h.engine = game.NewEngine(h.store, zerolog.New(io.Discard),
		game.WithClock(clock),
		game.WithRand(fixedRand(dealer)),
		game.WithObserver(h.events),
		game.WithPlayerIDs(game.IDFunc(func() string {
			n++
			return fmt.Sprintf("player-%02d", n)
		})),
	)
	return h
}

func (h *harness) players(t *testing.T, names ...string) []string {
	t.Helper()
	ids := make([]string, len(names))
	for i, name := range names {
		p, err := h.engine.CreatePlayer(context.Background(), name)
		require.NoError(t, err)
		ids[i] = p.ID
	}
	return ids
}

func (h *harness) newGame(t *testing.T, ids []string, forceConflict bool) *game.Game {
	t.Helper()
	g, err := h.engine.CreateGame(context.Background(), game.NewGame{
		PlayerIDs:     ids,
		Deck:          rules.SingleDeck,
		ForceConflict: forceConflict,
	})
	require.NoError(t, err)
	return g
}

// playRound guesses zero for everyone and gives every trick to the first
// seat. Zero guesses never hit the forced conflict.
func (h *harness) playRound(t *testing.T, g *game.Game) *game.Game {
	t.Helper()
	ctx := context.Background()
	cards := g.Round(g.CurrentRound).Cards

	guesses := make(map[string]int)
	hits := make(map[string]int)
	for i, id := range g.PlayerIDs() {
		guesses[id] = 0
		hits[id] = 0
		if i == 0 {
			hits[id] = cards
		}
	}
	_, err := h.engine.SubmitGuesses(ctx, g.ID, g.CurrentRound, guesses)
	require.NoError(t, err)
	g, err = h.engine.SubmitResults(ctx, g.ID, g.CurrentRound, hits)
	require.NoError(t, err)
	return g
}

func seatMap(ids []string, values ...int) map[string]int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		m[id] = values[i]
	}
	return m
}

func totals(g *game.Game) []int {
	out := make([]int, len(g.Participants))
	for i, p := range g.Participants {
		out[i] = p.TotalPoints
	}
	return out
}

// requireTotalsMatchResults checks each cached total against the points in
// its completed rounds.
func requireTotalsMatchResults(t *testing.T, g *game.Game) {
	t.Helper()
	for _, p := range g.Participants {
		sum := 0
		for _, r := range g.Rounds {
			if !r.Completed {
				continue
			}
			if res := r.Result(p.PlayerID); res != nil && res.Points != nil {
				sum += *res.Points
			}
		}
		require.Equal(t, sum, p.TotalPoints, "total for %s", p.PlayerID)
	}
}
