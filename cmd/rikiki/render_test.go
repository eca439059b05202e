package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/rikiki/internal/game"
)

func TestTableAlignsColumns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newRenderer(&buf).table(
		[]string{"NAME", "POINTS"},
		[][]string{{"alexandra", "12"}, {"bo", "-4"}},
	)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"NAME       POINTS",
		"alexandra  12",
		"bo         -4",
	}, lines)
}

func TestCell(t *testing.T) {
	t.Parallel()

	r := newRenderer(&bytes.Buffer{})
	tests := []struct {
		res  *game.RoundResult
		want string
	}{
		{nil, "-"},
		{&game.RoundResult{Guess: 2}, "2/?"},
		{&game.RoundResult{Guess: 1, Hits: game.IntPtr(1), Points: game.IntPtr(12)}, "1/1 (12)"},
		{&game.RoundResult{Guess: 0, Hits: game.IntPtr(2), Points: game.IntPtr(-4)}, "0/2 (-4)"},
	}
	for _, tt := range tests {
		if got := r.cell(tt.res); got != tt.want {
			t.Errorf("cell(%+v) = %q, want %q", tt.res, got, tt.want)
		}
	}
}
