package randutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIsDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.IntN(7), b.IntN(7))
	}
}

func TestSeeded(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	seed := int64(7)
	_, used := Seeded(&seed, now)
	assert.Equal(t, int64(7), used)

	_, used = Seeded(nil, now)
	assert.Equal(t, now.UnixNano(), used)
}
