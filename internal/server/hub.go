package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/rikiki/internal/game"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	sendBuffer      = 16
	broadcastBuffer = 64
)

// Message is what subscribers of a game receive for every committed change.
type Message struct {
	Type   game.EventType `json:"type"`
	GameID string         `json:"game_id"`
	Round  int            `json:"round,omitempty"`
	At     time.Time      `json:"at"`
	Game   *game.Game     `json:"game,omitempty"`
}

// subscriber is one websocket following one game.
type subscriber struct {
	gameID string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub fans engine events out to the websocket subscribers of each game. It
// implements game.Observer.
type Hub struct {
	logger     zerolog.Logger
	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan game.Event
	done       chan struct{}

	mu   sync.RWMutex
	subs map[string]map[*subscriber]bool
}

// NewHub creates a hub. Run must be called for events to be delivered.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:     logger.With().Str("component", "hub").Logger(),
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		broadcast:  make(chan game.Event, broadcastBuffer),
		done:       make(chan struct{}),
		subs:       make(map[string]map[*subscriber]bool),
	}
}

// OnGameEvent queues e for delivery. It never blocks the engine; when the
// queue is full the event is dropped.
func (h *Hub) OnGameEvent(e game.Event) {
	select {
	case h.broadcast <- e:
	default:
		h.logger.Warn().Str("game_id", e.GameID).Str("type", string(e.Type)).Msg("Event queue full, dropping event")
	}
}

// Subscribers returns how many connections follow gameID.
func (h *Hub) Subscribers(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[gameID])
}

// Run handles subscriber lifecycle and delivery until ctx is done. It must
// be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			if h.subs[sub.gameID] == nil {
				h.subs[sub.gameID] = make(map[*subscriber]bool)
			}
			h.subs[sub.gameID][sub] = true
			h.mu.Unlock()
			h.logger.Debug().Str("game_id", sub.gameID).Msg("Subscriber connected")

		case sub := <-h.unregister:
			h.remove(sub)
			h.logger.Debug().Str("game_id", sub.gameID).Msg("Subscriber disconnected")

		case e := <-h.broadcast:
			h.deliver(e)

		case <-ctx.Done():
			h.mu.Lock()
			for _, subs := range h.subs {
				for sub := range subs {
					sub.close()
				}
			}
			h.subs = make(map[string]map[*subscriber]bool)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[sub.gameID]; ok {
		if _, ok := subs[sub]; ok {
			delete(subs, sub)
			sub.close()
		}
		if len(subs) == 0 {
			delete(h.subs, sub.gameID)
		}
	}
}

func (h *Hub) deliver(e game.Event) {
	payload, err := json.Marshal(Message{Type: e.Type, GameID: e.GameID, Round: e.Round, At: e.At, Game: e.Game})
	if err != nil {
		h.logger.Error().Err(err).Str("game_id", e.GameID).Msg("Failed to encode event")
		return
	}

	h.mu.RLock()
	var slow []*subscriber
	for sub := range h.subs[e.GameID] {
		select {
		case sub.send <- payload:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn().Str("game_id", e.GameID).Msg("Dropping slow subscriber")
		h.remove(sub)
	}
}

// serve registers conn as a subscriber of gameID and pumps messages until
// either side closes.
func (h *Hub) serve(ctx context.Context, gameID string, conn *websocket.Conn) {
	sub := &subscriber{gameID: gameID, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- sub:
	case <-h.done:
		_ = conn.Close()
		return
	case <-ctx.Done():
		_ = conn.Close()
		return
	}

	go sub.writePump()
	sub.readPump()

	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// readPump discards client messages and returns when the connection closes.
func (s *subscriber) readPump() {
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ game.Observer = (*Hub)(nil)
