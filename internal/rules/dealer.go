package rules

// RandSource is the randomness needed to pick the first dealer. *rand.Rand
// from math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

// PickInitialDealer chooses the seat that deals round 1.
func PickInitialDealer(rng RandSource, participants int) int {
	if participants <= 1 {
		return 0
	}
	return rng.IntN(participants)
}

// NextDealer moves the deal one seat to the left.
func NextDealer(dealer, participants int) int {
	if participants <= 0 {
		return 0
	}
	return (dealer + 1) % participants
}

// DealerIndexForRound returns the seat dealing the given 1-based round when
// initial dealt round 1.
func DealerIndexForRound(initial, round, participants int) int {
	if participants <= 0 || round < 1 {
		return 0
	}
	return (initial + round - 1) % participants
}

// PlayOrder returns participants starting with the seat after the dealer and
// ending with the dealer. It is a presentation order only; scoring and
// storage always use seating order.
func PlayOrder[T any](dealer int, participants []T) []T {
	n := len(participants)
	ordered := make([]T, 0, n)
	for i := 0; i < n; i++ {
		ordered = append(ordered, participants[(dealer+1+i)%n])
	}
	return ordered
}
