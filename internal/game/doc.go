// Package game implements the rikiki scorekeeping engine.
//
// The main type is Engine, which drives one Game through its lifecycle:
//
//	active ──SubmitGuesses/SubmitResults──▶ active (next round)
//	active ──SubmitResults on last round──▶ completed
//	active ──ForceEndGame────────────────▶ ended_early
//
// Each round is played in two steps. SubmitGuesses records every
// participant's prediction at once (re-submission replaces the whole set
// until results exist) and SubmitResults records the tricks taken, scores the
// round and opens the next one with the next dealer.
//
// # Basic Usage
//
//	eng := game.NewEngine(store, logger)
//	g, _ := eng.CreateGame(ctx, game.NewGame{PlayerIDs: ids, Deck: rules.SingleDeck, ForceConflict: true})
//	g, _ = eng.SubmitGuesses(ctx, g.ID, 1, map[string]int{a: 0, b: 0, c: 0})
//	g, _ = eng.SubmitResults(ctx, g.ID, 1, map[string]int{a: 0, b: 0, c: 1})
//	summary, _ := eng.Summary(ctx, g.ID)
//
// # Administrative edits
//
// EditHistorical rewrites recorded guesses and hits of past rounds without
// the range and forced-conflict checks of the normal path, then recomputes
// every running total. It is the only way to change a round that is not the
// current one.
//
// # Deterministic Testing
//
// The clock, the first-dealer randomness and the id generators are injected
// with WithClock, WithRand, WithGameIDs and WithPlayerIDs.
//
// # Concurrency
//
// Mutations of one game are serialized by a per-game lock held from loading
// the game until it is saved; concurrent calls for the same game queue up.
package game
