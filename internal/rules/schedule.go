package rules

import (
	"errors"
	"fmt"
	"strings"
)

// DeckSize selects how many physical decks are shuffled together.
type DeckSize string

const (
	SingleDeck DeckSize = "single"
	DoubleDeck DeckSize = "double"
)

// Usable card capacity per deck size. One card of each pack stays out of the
// deal.
const (
	singleDeckCapacity = 51
	doubleDeckCapacity = 103
)

// ErrInvalidConfiguration is returned when no schedule exists for the
// requested table.
var ErrInvalidConfiguration = errors.New("invalid game configuration")

// ParseDeckSize converts user input into a DeckSize. The empty string maps
// to SingleDeck.
func ParseDeckSize(s string) (DeckSize, error) {
	switch DeckSize(strings.ToLower(strings.TrimSpace(s))) {
	case "", SingleDeck:
		return SingleDeck, nil
	case DoubleDeck:
		return DoubleDeck, nil
	default:
		return "", fmt.Errorf("%w: unknown deck size %q", ErrInvalidConfiguration, s)
	}
}

// Capacity returns the number of cards that can be dealt from the deck.
func (d DeckSize) Capacity() (int, error) {
	switch d {
	case SingleDeck:
		return singleDeckCapacity, nil
	case DoubleDeck:
		return doubleDeckCapacity, nil
	default:
		return 0, fmt.Errorf("%w: unknown deck size %q", ErrInvalidConfiguration, string(d))
	}
}

func (d DeckSize) String() string { return string(d) }

// Schedule is the up-then-down pyramid of card counts for one game.
type Schedule struct {
	MaxCardsPerPlayer int
	MaxRounds         int
}

// ComputeSchedule returns the schedule for participants players sharing the
// given deck.
func ComputeSchedule(participants int, deck DeckSize) (Schedule, error) {
	if participants < 2 {
		return Schedule{}, fmt.Errorf("%w: need at least 2 players, got %d", ErrInvalidConfiguration, participants)
	}
	capacity, err := deck.Capacity()
	if err != nil {
		return Schedule{}, err
	}
	maxCards := capacity / participants
	if maxCards < 1 {
		return Schedule{}, fmt.Errorf("%w: %d players cannot share a %s deck", ErrInvalidConfiguration, participants, deck)
	}
	return Schedule{
		MaxCardsPerPlayer: maxCards,
		MaxRounds:         2*maxCards - 1,
	}, nil
}

// ScheduleFromMaxRounds rebuilds the schedule fixed at game creation from the
// stored round count, so later rounds never depend on re-running the deck
// formula.
func ScheduleFromMaxRounds(maxRounds int) (Schedule, error) {
	if maxRounds < 1 || maxRounds%2 == 0 {
		return Schedule{}, fmt.Errorf("%w: max rounds must be a positive odd number, got %d", ErrInvalidConfiguration, maxRounds)
	}
	return Schedule{
		MaxCardsPerPlayer: maxRounds/2 + 1,
		MaxRounds:         maxRounds,
	}, nil
}

// CardsForRound returns how many cards each player receives in round n.
// Rounds up to and including the peak deal n cards, later rounds mirror back
// down to a single card.
func (s Schedule) CardsForRound(n int) (int, error) {
	if n < 1 || n > s.MaxRounds {
		return 0, fmt.Errorf("%w: round %d outside 1..%d", ErrInvalidConfiguration, n, s.MaxRounds)
	}
	peak := s.MaxCardsPerPlayer
	if n <= peak {
		return n, nil
	}
	return peak - (n - peak), nil
}

// Rounds lists the card count of every round in order.
func (s Schedule) Rounds() []int {
	out := make([]int, 0, s.MaxRounds)
	for n := 1; n <= s.MaxRounds; n++ {
		cards, _ := s.CardsForRound(n)
		out = append(out, cards)
	}
	return out
}
