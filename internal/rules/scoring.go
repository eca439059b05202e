package rules

import (
	"errors"
	"fmt"
)

// Guess validation errors.
var (
	ErrOutOfRangeGuess = errors.New("guess out of range")
	ErrOutOfRangeHits  = errors.New("hits out of range")
	ErrForcedConflict  = errors.New("guesses may not add up to the cards dealt")
)

// Exact predictions earn a base bonus plus two points per trick taken; misses
// cost two points per trick of error.
const (
	exactBonus     = 10
	pointsPerTrick = 2
)

// Score converts a prediction and the tricks actually taken into points.
func Score(guess, hits int) int {
	if guess == hits {
		return exactBonus + pointsPerTrick*hits
	}
	return -pointsPerTrick * abs(guess-hits)
}

// ValidateGuessSet checks one round's complete set of predictions and returns
// their sum. With forceConflict the sum may not equal the cards dealt, so at
// least one player must miss.
func ValidateGuessSet(guesses []int, cards int, forceConflict bool) (int, error) {
	total := 0
	for _, g := range guesses {
		if g < 0 || g > cards {
			return 0, fmt.Errorf("%w: %d not in 0..%d", ErrOutOfRangeGuess, g, cards)
		}
		total += g
	}
	if forceConflict && total == cards {
		return total, fmt.Errorf("%w: total guesses (%d) equal the cards dealt (%d)", ErrForcedConflict, total, cards)
	}
	return total, nil
}

// ValidateHits checks the tricks taken by each player and returns their sum.
// The sum is not required to equal the cards dealt.
func ValidateHits(hits []int, cards int) (int, error) {
	total := 0
	for _, h := range hits {
		if h < 0 || h > cards {
			return 0, fmt.Errorf("%w: %d not in 0..%d", ErrOutOfRangeHits, h, cards)
		}
		total += h
	}
	return total, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
