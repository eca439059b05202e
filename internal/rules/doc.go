// Package rules holds the pure rules of rikiki scoring: how many rounds a
// game lasts for a given table, how many cards each round deals, who deals,
// which guesses are legal and how a guess and its outcome turn into points.
//
// Nothing in this package touches storage, clocks or randomness. The game
// engine composes these functions into its state machine.
//
// # Schedule
//
//	s, err := rules.ComputeSchedule(3, rules.SingleDeck)
//	// s.MaxCardsPerPlayer == 17, s.MaxRounds == 33
//	cards, _ := s.CardsForRound(18) // 16
//
// # Scoring
//
//	rules.Score(3, 3) // 16
//	rules.Score(2, 5) // -6
package rules
