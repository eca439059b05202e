package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/rikiki/cmd/rikiki/shared"
	"github.com/lox/rikiki/internal/config"
	"github.com/lox/rikiki/internal/game"
	"github.com/lox/rikiki/internal/gameid"
	"github.com/lox/rikiki/internal/randutil"
	"github.com/lox/rikiki/internal/storage/memory"
	"github.com/lox/rikiki/internal/storage/postgres"
	"github.com/lox/rikiki/internal/storage/sqlite"
)

// app is everything a command needs, built from the globals and the config
// file.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  game.Store
	engine *game.Engine
	out    io.Writer
	closer io.Closer
}

func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.DB != "" {
		cfg.Storage.Driver = config.DriverSQLite
		cfg.Storage.Path = g.DB
	}
	if g.DSN != "" {
		cfg.Storage.Driver = config.DriverPostgres
		cfg.Storage.DSN = g.DSN
	}
	if g.Seed != nil {
		cfg.Game.Seed = g.Seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", g.Config, err)
	}
	return cfg, nil
}

// prepare loads configuration and builds the logger.
func (g *Globals) prepare() (*config.Config, zerolog.Logger, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if g.JSON {
		return cfg, shared.SetupStructuredLogger(cfg.Server.LogLevel, g.Debug), nil
	}
	return cfg, shared.SetupLogger(cfg.Server.LogLevel, g.Debug), nil
}

// open prepares configuration and logging, then builds the app. opts are
// appended to the engine options.
func (g *Globals) open(ctx context.Context, opts ...game.Option) (*app, error) {
	cfg, logger, err := g.prepare()
	if err != nil {
		return nil, err
	}
	return g.build(ctx, cfg, logger, opts...)
}

// build opens the store and builds the engine.
func (g *Globals) build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...game.Option) (*app, error) {
	store, closer, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	clock := quartz.NewReal()
	rng, seed := randutil.Seeded(cfg.Game.Seed, clock.Now())
	if cfg.Game.Seed != nil {
		logger.Info().Int64("seed", seed).Msg("Using deterministic seed")
	} else {
		logger.Debug().Int64("seed", seed).Msg("Using random seed")
	}

	engineOpts := append([]game.Option{
		game.WithClock(clock),
		game.WithRand(rng),
		game.WithGameIDs(gameid.NewGenerator(clock, nil)),
	}, opts...)

	out := g.out
	if out == nil {
		out = os.Stdout
	}
	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		engine: game.NewEngine(store, logger, engineOpts...),
		out:    out,
		closer: closer,
	}, nil
}

func (a *app) Close() error {
	return a.closer.Close()
}

func openStore(ctx context.Context, s *config.StorageSettings, logger zerolog.Logger) (game.Store, io.Closer, error) {
	switch s.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, s.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, s.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.DriverMemory:
		store := memory.New()
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", s.Driver)
	}
}

// resolvePlayer finds a player by id or, failing that, by name
// (case-insensitive).
func (a *app) resolvePlayer(ctx context.Context, ref string) (game.Player, error) {
	players, err := a.engine.ListPlayers(ctx)
	if err != nil {
		return game.Player{}, err
	}
	for _, p := range players {
		if p.ID == ref {
			return p, nil
		}
	}
	for _, p := range players {
		if strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return game.Player{}, game.Errorf(game.CodeNotFound, "player %q not found", ref)
}

// playerNames maps player ids to names for display.
func (a *app) playerNames(ctx context.Context) (map[string]string, error) {
	players, err := a.engine.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}
	return names, nil
}
