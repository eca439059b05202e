package memory

import (
	"testing"

	"github.com/lox/rikiki/internal/game"
	"github.com/lox/rikiki/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) game.Store { return New() })
}
