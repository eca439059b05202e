// Package storagetest holds the behaviour every game.Store must share. Store
// packages call Run from their tests.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/rikiki/internal/game"
	"github.com/lox/rikiki/internal/rules"
)

// Opener returns an empty store for one subtest.
type Opener func(t *testing.T) game.Store

var epoch = time.Date(2025, time.March, 14, 19, 30, 0, 0, time.UTC)

// Run exercises store semantics against open.
func Run(t *testing.T, open Opener) {
	t.Run("player round trip", func(t *testing.T) { testPlayerRoundTrip(t, open(t)) })
	t.Run("player name unique", func(t *testing.T) { testPlayerNameUnique(t, open(t)) })
	t.Run("player not found", func(t *testing.T) { testPlayerNotFound(t, open(t)) })
	t.Run("delete player in use", func(t *testing.T) { testDeletePlayerInUse(t, open(t)) })
	t.Run("game round trip", func(t *testing.T) { testGameRoundTrip(t, open(t)) })
	t.Run("save replaces aggregate", func(t *testing.T) { testSaveReplacesAggregate(t, open(t)) })
	t.Run("returned games are copies", func(t *testing.T) { testReturnedGamesAreCopies(t, open(t)) })
	t.Run("list games filter and order", func(t *testing.T) { testListGames(t, open(t)) })
	t.Run("delete game cascades", func(t *testing.T) { testDeleteGameCascades(t, open(t)) })
}

func seedPlayers(t *testing.T, s game.Store, names ...string) []game.Player {
	t.Helper()
	var out []game.Player
	for i, name := range names {
		p := game.Player{ID: "p-" + name, Name: name, CreatedAt: epoch.Add(time.Duration(i) * time.Second)}
		require.NoError(t, s.CreatePlayer(context.Background(), p))
		out = append(out, p)
	}
	return out
}

// sampleGame builds a game in round 2 of a three player table: round 1 is
// scored and round 2 has guesses only.
func sampleGame(id string, created time.Time, players []game.Player) *game.Game {
	started := created.Add(time.Minute)
	g := &game.Game{
		ID:            id,
		Deck:          rules.SingleDeck,
		ForceConflict: true,
		MaxRounds:     33,
		CurrentRound:  2,
		DealerIndex:   1,
		Status:        game.StatusActive,
		CreatedAt:     created,
		StartedAt:     &started,
	}
	for _, p := range players {
		g.Participants = append(g.Participants, game.Participant{PlayerID: p.ID})
	}
	r1 := game.Round{Number: 1, Cards: 1, Completed: true}
	r2 := game.Round{Number: 2, Cards: 2}
	for i, p := range players {
		hits := 0
		if i == len(players)-1 {
			hits = 1
		}
		r1.Results = append(r1.Results, game.RoundResult{
			PlayerID: p.ID,
			Guess:    0,
			Hits:     game.IntPtr(hits),
			Points:   game.IntPtr(rules.Score(0, hits)),
		})
		r2.Results = append(r2.Results, game.RoundResult{PlayerID: p.ID, Guess: 1})
	}
	g.Rounds = []game.Round{r1, r2}
	g.RecomputeTotals()
	return g
}

func testPlayerRoundTrip(t *testing.T, s game.Store) {
	ctx := context.Background()
	players := seedPlayers(t, s, "alice", "bob")

	got, err := s.GetPlayer(ctx, players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)
	assert.True(t, got.CreatedAt.Equal(players[0].CreatedAt))

	byName, err := s.FindPlayerByName(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, players[1].ID, byName.ID)

	got.Name = "alicia"
	require.NoError(t, s.UpdatePlayer(ctx, got))
	renamed, err := s.GetPlayer(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", renamed.Name)

	list, err := s.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, players[0].ID, list[0].ID)
	assert.Equal(t, players[1].ID, list[1].ID)

	require.NoError(t, s.DeletePlayer(ctx, players[1].ID))
	list, err = s.ListPlayers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testPlayerNameUnique(t *testing.T, s game.Store) {
	ctx := context.Background()
	seedPlayers(t, s, "alice", "bob")

	err := s.CreatePlayer(ctx, game.Player{ID: "p-other", Name: "alice", CreatedAt: epoch})
	assert.True(t, errors.Is(err, game.ErrAlreadyExists), "got %v", err)

	err = s.UpdatePlayer(ctx, game.Player{ID: "p-bob", Name: "alice", CreatedAt: epoch})
	assert.True(t, errors.Is(err, game.ErrAlreadyExists), "got %v", err)
}

func testPlayerNotFound(t *testing.T, s game.Store) {
	ctx := context.Background()

	_, err := s.GetPlayer(ctx, "nobody")
	assert.ErrorIs(t, err, game.ErrNotFound)
	_, err = s.FindPlayerByName(ctx, "nobody")
	assert.ErrorIs(t, err, game.ErrNotFound)
	assert.ErrorIs(t, s.UpdatePlayer(ctx, game.Player{ID: "nobody", Name: "x"}), game.ErrNotFound)
	assert.ErrorIs(t, s.DeletePlayer(ctx, "nobody"), game.ErrNotFound)
}

func testDeletePlayerInUse(t *testing.T, s game.Store) {
	ctx := context.Background()
	players := seedPlayers(t, s, "alice", "bob", "carol")
	require.NoError(t, s.CreateGame(ctx, sampleGame("g1", epoch, players)))

	err := s.DeletePlayer(ctx, players[0].ID)
	assert.ErrorIs(t, err, game.ErrInUse)

	_, err = s.GetPlayer(ctx, players[0].ID)
	assert.NoError(t, err)
}

func testGameRoundTrip(t *testing.T, s game.Store) {
	ctx := context.Background()
	players := seedPlayers(t, s, "alice", "bob", "carol")
	want := sampleGame("g1", epoch, players)
	require.NoError(t, s.CreateGame(ctx, want))

	got, err := s.GetGame(ctx, "g1")
	require.NoError(t, err)
	assertSameGame(t, want, got)

	_, err = s.GetGame(ctx, "missing")
	assert.ErrorIs(t, err, game.ErrNotFound)
	assert.ErrorIs(t, s.SaveGame(ctx, sampleGame("missing", epoch, players)), game.ErrNotFound)
}

func testSaveReplacesAggregate(t *testing.T, s game.Store) {
	ctx := context.Background()
	players := seedPlayers(t, s, "alice", "bob", "carol")
	g := sampleGame("g1", epoch, players)
	require.NoError(t, s.CreateGame(ctx, g))

	// score round 2, open round 3 and finish the game early
	r2 := g.Round(2)
	for i := range r2.Results {
		h := 0
		if i == 0 {
			h = 2
		}
		r2.Results[i].Hits = game.IntPtr(h)
		r2.Results[i].Points = game.IntPtr(rules.Score(r2.Results[i].Guess, h))
	}
	r2.Completed = true
	g.Rounds = append(g.Rounds, game.Round{Number: 3, Cards: 3})
	g.CurrentRound = 3
	g.DealerIndex = 2
	g.Status = game.StatusEndedEarly
	ended := epoch.Add(time.Hour)
	g.EndedAt = &ended
	g.RecomputeTotals()
	require.NoError(t, s.SaveGame(ctx, g))

	got, err := s.GetGame(ctx, "g1")
	require.NoError(t, err)
	assertSameGame(t, g, got)

	// replacing guesses wholesale removes the old rows
	g.Round(3).Results = []game.RoundResult{{PlayerID: players[1].ID, Guess: 3}}
	require.NoError(t, s.SaveGame(ctx, g))
	got, err = s.GetGame(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, got.Round(3).Results, 1)
	assert.Equal(t, 3, got.Round(3).Results[0].Guess)
}

func testReturnedGamesAreCopies(t *testing.T, s game.Store) {
	ctx := context.Background()
	players := seedPlayers(t, s, "alice", "bob", "carol")
	require.NoError(t, s.CreateGame(ctx, sampleGame("g1", epoch, players)))

	got, err := s.GetGame(ctx, "g1")
	require.NoError(t, err)
	got.Status = game.StatusCompleted
	got.Rounds[0].Results[0].Guess = 9

	again, err := s.GetGame(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, game.StatusActive, again.Status)
	assert.Equal(t, 0, again.Rounds[0].Results[0].Guess)
}

func testListGames(t *testing.T, s game.Store) {
	ctx := context.Background()
	players := seedPlayers(t, s, "alice", "bob", "carol", "dave")

	older := sampleGame("g-old", epoch, players[:3])
	older.Status = game.StatusCompleted
	newer := sampleGame("g-new", epoch.Add(time.Hour), players[1:])
	require.NoError(t, s.CreateGame(ctx, older))
	require.NoError(t, s.CreateGame(ctx, newer))

	all, err := s.ListGames(ctx, game.GameFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "g-new", all[0].ID)
	assert.Equal(t, "g-old", all[1].ID)

	active, err := s.ListGames(ctx, game.GameFilter{Statuses: []game.Status{game.StatusActive}})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "g-new", active[0].ID)

	history, err := s.ListGames(ctx, game.GameFilter{Statuses: []game.Status{game.StatusCompleted, game.StatusEndedEarly}})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "g-old", history[0].ID)

	withAlice, err := s.ListGames(ctx, game.GameFilter{PlayerID: players[0].ID})
	require.NoError(t, err)
	require.Len(t, withAlice, 1)
	assert.Equal(t, "g-old", withAlice[0].ID)
}

func testDeleteGameCascades(t *testing.T, s game.Store) {
	ctx := context.Background()
	players := seedPlayers(t, s, "alice", "bob", "carol")
	require.NoError(t, s.CreateGame(ctx, sampleGame("g1", epoch, players)))

	require.NoError(t, s.DeleteGame(ctx, "g1"))
	_, err := s.GetGame(ctx, "g1")
	assert.ErrorIs(t, err, game.ErrNotFound)
	assert.ErrorIs(t, s.DeleteGame(ctx, "g1"), game.ErrNotFound)

	// no participation rows remain, so the players are free to go
	for _, p := range players {
		assert.NoError(t, s.DeletePlayer(ctx, p.ID))
	}
}

func assertSameGame(t *testing.T, want, got *game.Game) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Participants, got.Participants)
	assert.Equal(t, want.Deck, got.Deck)
	assert.Equal(t, want.ForceConflict, got.ForceConflict)
	assert.Equal(t, want.MaxRounds, got.MaxRounds)
	assert.Equal(t, want.CurrentRound, got.CurrentRound)
	assert.Equal(t, want.DealerIndex, got.DealerIndex)
	assert.Equal(t, want.Status, got.Status)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", want.CreatedAt, got.CreatedAt)
	assertSameTime(t, want.StartedAt, got.StartedAt)
	assertSameTime(t, want.EndedAt, got.EndedAt)
	require.Len(t, got.Rounds, len(want.Rounds))
	for i := range want.Rounds {
		w, g := want.Rounds[i], got.Rounds[i]
		assert.Equal(t, w.Number, g.Number)
		assert.Equal(t, w.Cards, g.Cards)
		assert.Equal(t, w.Completed, g.Completed)
		assert.Equal(t, len(w.Results), len(g.Results), "round %d results", w.Number)
		for j := range w.Results {
			if j >= len(g.Results) {
				break
			}
			assert.Equal(t, w.Results[j], g.Results[j], "round %d result %d", w.Number, j)
		}
	}
}

func assertSameTime(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "%v != %v", *want, *got)
}
