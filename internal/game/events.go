package game

import "time"

// EventType names a state change published to observers.
type EventType string

const (
	EventGameCreated      EventType = "game_created"
	EventGuessesSubmitted EventType = "guesses_submitted"
	EventRoundCompleted   EventType = "round_completed"
	EventGameCompleted    EventType = "game_completed"
	EventGameEndedEarly   EventType = "game_ended_early"
	EventGameEdited       EventType = "game_edited"
	EventGameDeleted      EventType = "game_deleted"
)

// Event describes a committed change to one game. Game is the saved state
// and is nil for deletions.
type Event struct {
	Type   EventType `json:"type"`
	GameID string    `json:"game_id"`
	Round  int       `json:"round,omitempty"`
	At     time.Time `json:"at"`
	Game   *Game     `json:"game,omitempty"`
}

// Observer receives events after they are committed. Implementations must
// not block.
type Observer interface {
	OnGameEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnGameEvent(e Event) { f(e) }
