package game_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/rikiki/internal/game"
	"github.com/lox/rikiki/internal/rules"
)

func TestThreePlayerOpeningRound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B", "C")

	g := h.newGame(t, ids, true)
	assert.Equal(t, 33, g.MaxRounds)
	assert.Equal(t, 1, g.CurrentRound)
	assert.Equal(t, 0, g.DealerIndex)
	assert.Equal(t, game.StatusActive, g.Status)
	require.Len(t, g.Rounds, 1)
	assert.Equal(t, 1, g.Rounds[0].Cards)
	assert.Nil(t, g.StartedAt)

	_, err := h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids, 0, 0, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, game.ErrForcedConflict)
	assert.Equal(t, game.CodeForcedConflictViolation, game.CodeOf(err))

	stored, err := h.engine.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Round(1).Results, "rejected guesses must not be stored")
	assert.Nil(t, stored.StartedAt)

	h.clock.Advance(time.Minute)
	g, err = h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids, 0, 0, 0))
	require.NoError(t, err)
	require.NotNil(t, g.StartedAt)
	assert.Equal(t, gameStart.Add(time.Minute), *g.StartedAt)

	g, err = h.engine.SubmitResults(ctx, g.ID, 1, seatMap(ids, 0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, []int{10, 10, -2}, totals(g))
	r1 := g.Round(1)
	require.NotNil(t, r1)
	assert.True(t, r1.Completed)
	assert.Equal(t, -2, *r1.Result(ids[2]).Points)

	assert.Equal(t, 2, g.CurrentRound)
	assert.Equal(t, 1, g.DealerIndex)
	assert.Equal(t, ids[1], g.Dealer())
	require.NotNil(t, g.Current())
	assert.Equal(t, 2, g.Current().Cards)
	assert.Empty(t, g.Current().Results)

	assert.Equal(t, []game.EventType{
		game.EventGameCreated,
		game.EventGuessesSubmitted,
		game.EventRoundCompleted,
	}, h.events.types())
}

func TestForcedConflictOnlyWhenEnabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B", "C")

	g := h.newGame(t, ids, false)
	g, err := h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids, 0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, g.Round(1).Result(ids[2]).Guess)
}

func TestFullGameRotatesDealer(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 2)
	ids := h.players(t, "A", "B", "C")
	g := h.newGame(t, ids, true)

	schedule, err := rules.ComputeSchedule(3, rules.SingleDeck)
	require.NoError(t, err)

	visits := make([]int, len(ids))
	for round := 1; round <= g.MaxRounds; round++ {
		require.Equal(t, round, g.CurrentRound)
		require.Equal(t, rules.DealerIndexForRound(2, round, len(ids)), g.DealerIndex, "round %d", round)
		want, err := schedule.CardsForRound(round)
		require.NoError(t, err)
		require.Equal(t, want, g.Round(round).Cards, "round %d", round)

		visits[g.DealerIndex]++
		before := g.DealerIndex
		g = h.playRound(t, g)
		if g.Status == game.StatusActive {
			require.Equal(t, (before+1)%len(ids), g.DealerIndex)
		}
	}

	assert.Equal(t, []int{11, 11, 11}, visits)
	assert.Equal(t, game.StatusCompleted, g.Status)
	assert.Equal(t, 33, g.CurrentRound)
	assert.Len(t, g.Rounds, 33)
	assert.NotNil(t, g.EndedAt)
	assert.Nil(t, g.Current())
	requireTotalsMatchResults(t, g)

	_, err = h.engine.SubmitGuesses(context.Background(), g.ID, 33, seatMap(ids, 0, 0, 0))
	assert.ErrorIs(t, err, game.ErrInvalidStateTransition)

	types := h.events.types()
	assert.Equal(t, game.EventGameCompleted, types[len(types)-1])
}

func TestForceEndAtRoundFive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B", "C")
	g := h.newGame(t, ids, true)

	for i := 0; i < 4; i++ {
		g = h.playRound(t, g)
	}
	require.Equal(t, 5, g.CurrentRound)

	h.clock.Advance(time.Hour)
	g, err := h.engine.ForceEndGame(ctx, g.ID)
	require.NoError(t, err)

	assert.Equal(t, game.StatusEndedEarly, g.Status)
	require.NotNil(t, g.EndedAt)
	assert.Equal(t, gameStart.Add(time.Hour), *g.EndedAt)
	assert.Len(t, g.Rounds, 5)
	assert.False(t, g.Round(5).Completed)
	assert.Nil(t, g.Round(6))
	assert.Len(t, g.CompletedRounds(), 4)

	// seat A took every trick on zero guesses: -2-4-6-8; B and C scored 10 each round
	assert.Equal(t, []int{-20, 40, 40}, totals(g))
	requireTotalsMatchResults(t, g)

	_, err = h.engine.ForceEndGame(ctx, g.ID)
	assert.ErrorIs(t, err, game.ErrInvalidStateTransition)
	_, err = h.engine.SubmitGuesses(ctx, g.ID, 5, seatMap(ids, 0, 0, 0))
	assert.ErrorIs(t, err, game.ErrInvalidStateTransition)
}

func TestResubmitGuessesReplacesSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B", "C")
	g := h.newGame(t, ids, true)

	_, err := h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids, 0, 0, 0))
	require.NoError(t, err)
	firstStart := gameStart

	h.clock.Advance(time.Minute)
	g, err = h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids, 1, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, g.Round(1).Result(ids[0]).Guess)
	assert.Len(t, g.Round(1).Results, 3)
	assert.Equal(t, firstStart, *g.StartedAt, "start time is kept from the first submission")

	g, err = h.engine.SubmitResults(ctx, g.ID, 1, seatMap(ids, 1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{12, 10, -2}, totals(g))

	_, err = h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids, 0, 0, 0))
	assert.ErrorIs(t, err, game.ErrInvalidStateTransition, "round 1 is no longer current")
}

func TestSubmissionErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B", "C", "D")
	g := h.newGame(t, ids[:3], true)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"unknown game", func() error {
			_, err := h.engine.SubmitGuesses(ctx, "missing", 1, seatMap(ids[:3], 0, 0, 0))
			return err
		}, game.ErrNotFound},
		{"unknown round", func() error {
			_, err := h.engine.SubmitGuesses(ctx, g.ID, 7, seatMap(ids[:3], 0, 0, 0))
			return err
		}, game.ErrNotFound},
		{"missing guess", func() error {
			_, err := h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids[:2], 0, 0))
			return err
		}, game.ErrIncompleteGuesses},
		{"stranger guesses", func() error {
			_, err := h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids, 0, 0, 0, 0))
			return err
		}, game.ErrNotFound},
		{"guess above cards", func() error {
			_, err := h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids[:3], 2, 0, 0))
			return err
		}, game.ErrOutOfRangeGuess},
		{"negative guess", func() error {
			_, err := h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids[:3], -1, 0, 0))
			return err
		}, game.ErrOutOfRangeGuess},
		{"results before guesses", func() error {
			_, err := h.engine.SubmitResults(ctx, g.ID, 1, seatMap(ids[:3], 0, 0, 1))
			return err
		}, game.ErrIncompleteGuesses},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	// with guesses in place, the result checks apply
	_, err := h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids[:3], 0, 0, 0))
	require.NoError(t, err)

	_, err = h.engine.SubmitResults(ctx, g.ID, 1, seatMap(ids[:2], 0, 0))
	assert.ErrorIs(t, err, game.ErrIncompleteResults)
	_, err = h.engine.SubmitResults(ctx, g.ID, 1, seatMap(ids[:3], 0, 0, 2))
	assert.ErrorIs(t, err, game.ErrOutOfRangeHits)

	stored, err := h.engine.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, stored.Round(1).HasHits())
	assert.Equal(t, 1, stored.CurrentRound)
}

func TestHitsNeedNotMatchCards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B")
	g := h.newGame(t, ids, false)

	_, err := h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids, 0, 0))
	require.NoError(t, err)
	g, err = h.engine.SubmitResults(ctx, g.ID, 1, seatMap(ids, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []int{-2, -2}, totals(g))
	assert.Equal(t, 2, g.CurrentRound)
}

func TestCreateGameValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B")

	_, err := h.engine.CreateGame(ctx, game.NewGame{PlayerIDs: ids[:1]})
	assert.ErrorIs(t, err, game.ErrInvalidConfiguration)

	_, err = h.engine.CreateGame(ctx, game.NewGame{PlayerIDs: []string{ids[0], ids[0]}})
	assert.ErrorIs(t, err, game.ErrInvalidConfiguration)

	_, err = h.engine.CreateGame(ctx, game.NewGame{PlayerIDs: []string{ids[0], "ghost"}})
	assert.ErrorIs(t, err, game.ErrNotFound)

	_, err = h.engine.CreateGame(ctx, game.NewGame{PlayerIDs: ids, Deck: "triple"})
	assert.ErrorIs(t, err, game.ErrInvalidConfiguration)

	g, err := h.engine.CreateGame(ctx, game.NewGame{PlayerIDs: ids})
	require.NoError(t, err)
	assert.Equal(t, rules.SingleDeck, g.Deck, "deck defaults to single")
	assert.Equal(t, 49, g.MaxRounds)

	g, err = h.engine.CreateGame(ctx, game.NewGame{PlayerIDs: ids, Deck: rules.DoubleDeck})
	require.NoError(t, err)
	assert.Equal(t, 101, g.MaxRounds)

	games, err := h.engine.ListGames(ctx, game.GameFilter{})
	require.NoError(t, err)
	assert.Len(t, games, 2)
}

func TestCreateGameRejectsOversizedTable(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	names := make([]string, 52)
	for i := range names {
		names[i] = fmt.Sprintf("player %d", i)
	}
	ids := h.players(t, names...)

	_, err := h.engine.CreateGame(context.Background(), game.NewGame{PlayerIDs: ids})
	assert.ErrorIs(t, err, game.ErrInvalidConfiguration)

	g, err := h.engine.CreateGame(context.Background(), game.NewGame{PlayerIDs: ids, Deck: rules.DoubleDeck})
	require.NoError(t, err)
	assert.Equal(t, 1, g.MaxRounds)
}

func TestEditHistoricalKeepsTotalsConsistent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B", "C")
	g := h.newGame(t, ids, true)
	for i := 0; i < 3; i++ {
		g = h.playRound(t, g)
	}
	require.Equal(t, []int{-12, 30, 30}, totals(g))

	// out of round order, bypassing range checks
	g, err := h.engine.EditHistorical(ctx, g.ID, []game.Edit{
		{Round: 3, PlayerID: ids[1], Guess: 2, Hits: 2},
		{Round: 1, PlayerID: ids[0], Guess: 1, Hits: 1},
		{Round: 2, PlayerID: ids[2], Guess: 5, Hits: 0},
	})
	require.NoError(t, err)

	assert.Equal(t, 14, *g.Round(3).Result(ids[1]).Points)
	assert.Equal(t, 12, *g.Round(1).Result(ids[0]).Points)
	assert.Equal(t, -10, *g.Round(2).Result(ids[2]).Points)
	// A: 12-4-6, B: 10+10+14, C: 10-10+10
	assert.Equal(t, []int{2, 34, 10}, totals(g))
	requireTotalsMatchResults(t, g)

	summary, err := h.engine.Summary(ctx, g.ID)
	require.NoError(t, err)
	for _, st := range summary.Standings {
		seat := g.Seat(st.PlayerID)
		assert.Equal(t, g.Participants[seat].TotalPoints, st.TotalPoints)
	}
	assert.Equal(t, game.EventGameEdited, h.events.types()[len(h.events.types())-1])
}

func TestEditHistoricalRejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B", "C")
	g := h.newGame(t, ids, true)
	g = h.playRound(t, g)

	_, err := h.engine.EditHistorical(ctx, g.ID, nil)
	assert.ErrorIs(t, err, game.ErrInvalidArgument)

	_, err = h.engine.EditHistorical(ctx, g.ID, []game.Edit{{Round: 2, PlayerID: ids[0]}})
	assert.ErrorIs(t, err, game.ErrInvalidStateTransition, "the open round is played, not edited")

	_, err = h.engine.EditHistorical(ctx, g.ID, []game.Edit{{Round: 9, PlayerID: ids[0]}})
	assert.ErrorIs(t, err, game.ErrNotFound)

	_, err = h.engine.EditHistorical(ctx, g.ID, []game.Edit{{Round: 1, PlayerID: "ghost"}})
	assert.ErrorIs(t, err, game.ErrNotFound)

	// a failing edit in a batch leaves earlier edits of the batch unsaved
	_, err = h.engine.EditHistorical(ctx, g.ID, []game.Edit{
		{Round: 1, PlayerID: ids[0], Guess: 1, Hits: 1},
		{Round: 9, PlayerID: ids[0]},
	})
	assert.ErrorIs(t, err, game.ErrNotFound)
	stored, err := h.engine.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Round(1).Result(ids[0]).Guess)
}

func TestEditHistoricalCompletesAbandonedRound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B")
	g := h.newGame(t, ids, false)
	g = h.playRound(t, g)

	_, err := h.engine.ForceEndGame(ctx, g.ID)
	require.NoError(t, err)

	g, err = h.engine.EditHistorical(ctx, g.ID, []game.Edit{
		{Round: 2, PlayerID: ids[0], Guess: 1, Hits: 1},
		{Round: 2, PlayerID: ids[1], Guess: 0, Hits: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, game.StatusEndedEarly, g.Status)
	assert.True(t, g.Round(2).Completed)
	// round 1: A -2, B 10; round 2: A 12, B -2
	assert.Equal(t, []int{10, 8}, totals(g))
}

func TestRecomputeTotalsRepairsDrift(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B", "C")
	g := h.newGame(t, ids, true)
	g = h.playRound(t, g)
	g = h.playRound(t, g)
	want := totals(g)

	corrupt := g.Clone()
	corrupt.Participants[1].TotalPoints = 999
	require.NoError(t, h.store.SaveGame(ctx, corrupt))

	g, err := h.engine.RecomputeTotals(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, want, totals(g))

	stored, err := h.engine.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, want, totals(stored))
}

func TestConcurrentResultsAreSerialized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B", "C")
	g := h.newGame(t, ids, true)
	_, err := h.engine.SubmitGuesses(ctx, g.ID, 1, seatMap(ids, 0, 0, 0))
	require.NoError(t, err)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.SubmitResults(ctx, g.ID, 1, seatMap(ids, 0, 0, 1))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, game.ErrInvalidStateTransition):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, rejected)

	stored, err := h.engine.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentRound)
	assert.Len(t, stored.Rounds, 2)
	assert.Equal(t, []int{10, 10, -2}, totals(stored))
}

func TestDeleteGame(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B")
	g := h.newGame(t, ids, true)
	g = h.playRound(t, g)

	require.NoError(t, h.engine.DeleteGame(ctx, g.ID))
	_, err := h.engine.GetGame(ctx, g.ID)
	assert.ErrorIs(t, err, game.ErrNotFound)
	assert.ErrorIs(t, h.engine.DeleteGame(ctx, g.ID), game.ErrNotFound)

	// no game references the players any more
	require.NoError(t, h.engine.DeletePlayer(ctx, ids[0]))
}

func TestBackfillTimestamps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B")

	played := h.newGame(t, ids, false)
	_, err := h.engine.SubmitGuesses(ctx, played.ID, 1, seatMap(ids, 0, 0))
	require.NoError(t, err)
	ended := h.newGame(t, ids, false)
	_, err = h.engine.ForceEndGame(ctx, ended.ID)
	require.NoError(t, err)
	untouched := h.newGame(t, ids, false)

	// simulate rows written before timestamps were tracked
	for _, id := range []string{played.ID, ended.ID} {
		g, err := h.store.GetGame(ctx, id)
		require.NoError(t, err)
		g.StartedAt = nil
		g.EndedAt = nil
		require.NoError(t, h.store.SaveGame(ctx, g))
	}

	h.clock.Advance(24 * time.Hour)
	n, err := h.engine.BackfillTimestamps(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	g, err := h.engine.GetGame(ctx, played.ID)
	require.NoError(t, err)
	require.NotNil(t, g.StartedAt)
	assert.Equal(t, gameStart.Add(24*time.Hour), *g.StartedAt)
	assert.Nil(t, g.EndedAt)

	g, err = h.engine.GetGame(ctx, ended.ID)
	require.NoError(t, err)
	assert.Nil(t, g.StartedAt, "no guesses were recorded")
	assert.NotNil(t, g.EndedAt)

	g, err = h.engine.GetGame(ctx, untouched.ID)
	require.NoError(t, err)
	assert.Nil(t, g.StartedAt)
	assert.Nil(t, g.EndedAt)

	n, err = h.engine.BackfillTimestamps(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPlayerRoster(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 0)

	alice, err := h.engine.CreatePlayer(ctx, "  alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Name)
	assert.Equal(t, gameStart, alice.CreatedAt)

	_, err = h.engine.CreatePlayer(ctx, "   ")
	assert.ErrorIs(t, err, game.ErrInvalidArgument)
	_, err = h.engine.CreatePlayer(ctx, "alice")
	assert.ErrorIs(t, err, game.ErrAlreadyExists)

	bob, err := h.engine.CreatePlayer(ctx, "bob")
	require.NoError(t, err)

	_, err = h.engine.RenamePlayer(ctx, bob.ID, "alice")
	assert.ErrorIs(t, err, game.ErrAlreadyExists)
	_, err = h.engine.RenamePlayer(ctx, alice.ID, "alice")
	assert.NoError(t, err, "keeping your own name is not a conflict")
	bob, err = h.engine.RenamePlayer(ctx, bob.ID, "robert")
	require.NoError(t, err)
	assert.Equal(t, "robert", bob.Name)
	_, err = h.engine.RenamePlayer(ctx, "ghost", "casper")
	assert.ErrorIs(t, err, game.ErrNotFound)

	carol, err := h.engine.CreatePlayer(ctx, "carol")
	require.NoError(t, err)
	g := h.newGame(t, []string{alice.ID, bob.ID}, true)

	err = h.engine.DeletePlayer(ctx, alice.ID)
	assert.ErrorIs(t, err, game.ErrInUse)

	_, err = h.engine.ForceEndGame(ctx, g.ID)
	require.NoError(t, err)
	err = h.engine.DeletePlayer(ctx, alice.ID)
	assert.ErrorIs(t, err, game.ErrInUse, "finished games still reference the player")

	require.NoError(t, h.engine.DeletePlayer(ctx, carol.ID))
	assert.ErrorIs(t, h.engine.DeletePlayer(ctx, carol.ID), game.ErrNotFound)

	players, err := h.engine.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "alice", players[0].Name)
	assert.Equal(t, "robert", players[1].Name)
}

func TestView(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 1)
	ids := h.players(t, "A", "B", "C", "D")
	g := h.newGame(t, ids, true)

	v, err := h.engine.View(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", v.Dealer.Name)
	require.NotNil(t, v.Current)
	assert.Equal(t, 1, v.Current.Number)

	var order []string
	for _, p := range v.PlayOrder {
		order = append(order, p.Name)
	}
	assert.Equal(t, []string{"C", "D", "A", "B"}, order)

	h.playRound(t, g)
	v, err = h.engine.View(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "C", v.Dealer.Name)
	assert.Equal(t, "C", v.PlayOrder[len(v.PlayOrder)-1].Name)
}

func TestEventsCarrySnapshots(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	ids := h.players(t, "A", "B")
	g := h.newGame(t, ids, true)
	h.playRound(t, g)

	h.events.mu.Lock()
	defer h.events.mu.Unlock()
	require.Len(t, h.events.events, 3)
	created := h.events.events[0]
	assert.Equal(t, g.ID, created.GameID)
	assert.Equal(t, 1, created.Round)
	assert.Equal(t, 1, created.Game.CurrentRound, "snapshot is not affected by later rounds")
	assert.Equal(t, 2, h.events.events[2].Game.CurrentRound)
}
