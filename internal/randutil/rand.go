package randutil

import (
	rand "math/rand/v2"
	"time"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Both PCG seeds derive from the one value so a single --seed flag reproduces
// every dealer draw.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Seeded returns a generator for the optional seed and the seed actually
// used. A nil seed falls back to the wall clock.
func Seeded(seed *int64, now time.Time) (*rand.Rand, int64) {
	s := now.UnixNano()
	if seed != nil {
		s = *seed
	}
	return New(s), s
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
