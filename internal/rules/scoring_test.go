package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreExact(t *testing.T) {
	for hits := 0; hits <= 25; hits++ {
		if got := Score(hits, hits); got != 10+2*hits {
			t.Errorf("Score(%d, %d) = %d, want %d", hits, hits, got, 10+2*hits)
		}
	}
	assert.Equal(t, 16, Score(3, 3))
	assert.Equal(t, 10, Score(0, 0))
}

func TestScoreMiss(t *testing.T) {
	for guess := 0; guess <= 17; guess++ {
		for hits := 0; hits <= 17; hits++ {
			if guess == hits {
				continue
			}
			got := Score(guess, hits)
			want := -2 * abs(guess-hits)
			if got != want {
				t.Fatalf("Score(%d, %d) = %d, want %d", guess, hits, got, want)
			}
			if got > -2 {
				t.Fatalf("Score(%d, %d) = %d, misses must cost at least 2", guess, hits, got)
			}
		}
	}
	assert.Equal(t, -6, Score(2, 5))
	assert.Equal(t, -2, Score(0, 1))
}

func TestValidateGuessSetForcedConflict(t *testing.T) {
	guesses := []int{0, 0, 1}

	_, err := ValidateGuessSet(guesses, 1, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForcedConflict))

	total, err := ValidateGuessSet(guesses, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	total, err = ValidateGuessSet([]int{0, 0, 0}, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestValidateGuessSetRange(t *testing.T) {
	tests := []struct {
		name    string
		guesses []int
		cards   int
		wantErr error
	}{
		{"negative", []int{-1, 0}, 2, ErrOutOfRangeGuess},
		{"above cards", []int{3, 0}, 2, ErrOutOfRangeGuess},
		{"at cards", []int{2, 1}, 2, nil},
		{"range checked before conflict", []int{5, -3}, 2, ErrOutOfRangeGuess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateGuessSet(tt.guesses, tt.cards, true)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateHits(t *testing.T) {
	total, err := ValidateHits([]int{0, 2, 1}, 2)
	require.NoError(t, err, "hit totals are not checked against cards dealt")
	assert.Equal(t, 3, total)

	_, err = ValidateHits([]int{3}, 2)
	assert.ErrorIs(t, err, ErrOutOfRangeHits)

	_, err = ValidateHits([]int{-1}, 2)
	assert.ErrorIs(t, err, ErrOutOfRangeHits)
}
