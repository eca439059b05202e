// Package server exposes the game engine over a JSON HTTP API with a
// websocket feed per game.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/rikiki/internal/game"
	"github.com/lox/rikiki/internal/rules"
)

// Defaults apply to games created without explicit settings.
type Defaults struct {
	Deck          rules.DeckSize
	ForceConflict bool
}

// Server is the HTTP front end of an Engine.
type Server struct {
	engine   *game.Engine
	hub      *Hub
	logger   zerolog.Logger
	defaults Defaults
	upgrader websocket.Upgrader
	router   *gin.Engine

	mu     sync.Mutex
	http   *http.Server
	closed bool
}

// Option configures a Server.
type Option func(*Server)

// WithDefaults sets the settings used for new games.
func WithDefaults(d Defaults) Option {
	return func(s *Server) { s.defaults = d }
}

// New builds the router. hub should be the engine's observer so that
// websocket subscribers see the engine's events.
func New(engine *game.Engine, hub *Hub, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		hub:      hub,
		logger:   logger.With().Str("component", "server").Logger(),
		defaults: Defaults{Deck: rules.SingleDeck, ForceConflict: true},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.handleHealth)

	players := r.Group("/players")
	players.GET("", s.listPlayers)
	players.POST("", s.createPlayer)
	players.GET("/:id", s.getPlayer)
	players.PATCH("/:id", s.renamePlayer)
	players.DELETE("/:id", s.deletePlayer)

	games := r.Group("/games")
	games.GET("", s.listGames)
	games.POST("", s.createGame)
	games.GET("/:id", s.viewGame)
	games.DELETE("/:id", s.deleteGame)
	games.POST("/:id/rounds/:round/guesses", s.submitGuesses)
	games.POST("/:id/rounds/:round/results", s.submitResults)
	games.POST("/:id/end", s.endGame)
	games.POST("/:id/edits", s.editGame)
	games.POST("/:id/recompute", s.recomputeTotals)
	games.GET("/:id/summary", s.summary)
	games.GET("/:id/ws", s.subscribe)

	r.POST("/admin/backfill", s.backfill)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and serves until Shutdown. It returns
// http.ErrServerClosed after a clean shutdown.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.http = srv
	s.mu.Unlock()

	s.logger.Info().Str("addr", addr).Msg("Starting API server")
	return srv.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
// A Server that is shut down cannot be started again.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.http
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := s.logger.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = s.logger.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
