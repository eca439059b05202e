package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/lox/rikiki/cmd/rikiki/shared"
	"github.com/lox/rikiki/internal/game"
	"github.com/lox/rikiki/internal/server"
)

const shutdownTimeout = 5 * time.Second

// ServeCmd runs the HTTP API and the live game feed.
type ServeCmd struct {
	Addr string `help:"Listen address; defaults to the server block of the config file"`
}

func (c *ServeCmd) Run(g *Globals) error {
	if !g.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, logger, err := g.prepare()
	if err != nil {
		return err
	}
	// The hub must exist before the engine so it observes every event.
	hub := server.NewHub(logger)
	a, err := g.build(context.Background(), cfg, logger, game.WithObserver(hub))
	if err != nil {
		return err
	}
	defer a.Close()

	addr := c.Addr
	if addr == "" {
		addr = a.cfg.ServerAddress()
	}

	srv := server.New(a.engine, hub, a.logger, server.WithDefaults(server.Defaults{
		Deck:          a.cfg.DeckSize(),
		ForceConflict: *a.cfg.Game.ForceConflict,
	}))

	ctx, cancel := shared.SetupSignalHandler(a.logger)
	defer cancel()

	a.logger.Info().
		Str("address", addr).
		Str("storage", a.cfg.Storage.Driver).
		Str("deck", string(a.cfg.DeckSize())).
		Bool("force_conflict", *a.cfg.Game.ForceConflict).
		Msg("Starting rikiki server")

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	group.Go(func() error {
		if err := srv.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		a.logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

// BackfillCmd sets missing StartedAt and EndedAt timestamps.
type BackfillCmd struct{}

func (c *BackfillCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.engine.BackfillTimestamps(ctx)
	if err != nil {
		return err
	}
	a.logger.Info().Int("games", n).Msg("Backfilled timestamps")
	return nil
}
