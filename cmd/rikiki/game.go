package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/rikiki/internal/fileutil"
	"github.com/lox/rikiki/internal/game"
	"github.com/lox/rikiki/internal/gameid"
	"github.com/lox/rikiki/internal/rules"
)

type GameCmd struct {
	New       GameNewCmd       `cmd:"" help:"Start a game with players in seating order"`
	Ls        GameLsCmd        `cmd:"" default:"1" help:"List games, newest first"`
	Show      GameShowCmd      `cmd:"" help:"Show the current round and score sheet"`
	Guess     GameGuessCmd     `cmd:"" help:"Record guesses for the current round"`
	Result    GameResultCmd    `cmd:"" help:"Record hits and score the current round"`
	End       GameEndCmd       `cmd:"" help:"End a game early"`
	Edit      GameEditCmd      `cmd:"" help:"Correct guesses and hits of a played round"`
	Recompute GameRecomputeCmd `cmd:"" help:"Rebuild running totals from round results"`
	Summary   GameSummaryCmd   `cmd:"" help:"Show standings and statistics"`
	Export    GameExportCmd    `cmd:"" help:"Write a game and its summary as JSON"`
	Rm        GameRmCmd        `cmd:"" help:"Delete a game and all its rounds"`
}

// resolveGame accepts a full game id or a unique prefix of one.
func (a *app) resolveGame(ctx context.Context, ref string) (string, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if gameid.Validate(ref) == nil {
		if _, err := a.engine.GetGame(ctx, ref); err == nil {
			return ref, nil
		} else if !errors.Is(err, game.ErrNotFound) {
			return "", err
		}
	}

	games, err := a.engine.ListGames(ctx, game.GameFilter{})
	if err != nil {
		return "", err
	}
	var matches []string
	for _, g := range games {
		if ref != "" && strings.HasPrefix(g.ID, ref) {
			matches = append(matches, g.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", game.Errorf(game.CodeNotFound, "game %q not found", ref)
	case 1:
		return matches[0], nil
	default:
		return "", game.Errorf(game.CodeInvalidArgument, "game %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// roundOrCurrent returns round, or the game's current round when it is 0.
func (a *app) roundOrCurrent(ctx context.Context, gameID string, round int) (int, error) {
	if round != 0 {
		return round, nil
	}
	g, err := a.engine.GetGame(ctx, gameID)
	if err != nil {
		return 0, err
	}
	return g.CurrentRound, nil
}

// parseAssignments turns "player=value" pairs into a map keyed by player id.
func (a *app) parseAssignments(ctx context.Context, pairs []string) (map[string]int, error) {
	values := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		ref, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected player=value, got %q", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", ref, err)
		}
		p, err := a.resolvePlayer(ctx, strings.TrimSpace(ref))
		if err != nil {
			return nil, err
		}
		values[p.ID] = n
	}
	return values, nil
}

// parseEdits turns "player=guess:hits" pairs into edits of one round.
func (a *app) parseEdits(ctx context.Context, round int, pairs []string) ([]game.Edit, error) {
	edits := make([]game.Edit, 0, len(pairs))
	for _, pair := range pairs {
		ref, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected player=guess:hits, got %q", pair)
		}
		guess, hits, err := parseGuessHits(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid edit for %s: %w", ref, err)
		}
		p, err := a.resolvePlayer(ctx, strings.TrimSpace(ref))
		if err != nil {
			return nil, err
		}
		edits = append(edits, game.Edit{Round: round, PlayerID: p.ID, Guess: guess, Hits: hits})
	}
	return edits, nil
}

func parseGuessHits(s string) (int, int, error) {
	g, h, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("expected guess:hits, got %q", s)
	}
	guess, err := strconv.Atoi(strings.TrimSpace(g))
	if err != nil {
		return 0, 0, err
	}
	hits, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, err
	}
	return guess, hits, nil
}

type GameNewCmd struct {
	Players       []string `arg:"" help:"Player names or ids in seating order"`
	Deck          string   `help:"Deck size (single or double); defaults to the config file"`
	ForceConflict bool     `help:"Forbid guesses that sum to the cards dealt" xor:"conflict"`
	AllowConflict bool     `help:"Allow guesses that sum to the cards dealt" xor:"conflict"`
}

func (c *GameNewCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	deck := a.cfg.DeckSize()
	if c.Deck != "" {
		if deck, err = rules.ParseDeckSize(c.Deck); err != nil {
			return err
		}
	}
	forceConflict := *a.cfg.Game.ForceConflict
	switch {
	case c.ForceConflict:
		forceConflict = true
	case c.AllowConflict:
		forceConflict = false
	}

	ids := make([]string, 0, len(c.Players))
	for _, ref := range c.Players {
		p, err := a.resolvePlayer(ctx, ref)
		if err != nil {
			return err
		}
		ids = append(ids, p.ID)
	}

	created, err := a.engine.CreateGame(ctx, game.NewGame{PlayerIDs: ids, Deck: deck, ForceConflict: forceConflict})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Started game %s: %d rounds\n\n", created.ID, created.MaxRounds)
	return show(ctx, a, created.ID)
}

type GameLsCmd struct {
	Status string `help:"Filter by status: active, completed, ended_early or history"`
	Player string `help:"Only games with this player (name or id)"`
}

func (c *GameLsCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var filter game.GameFilter
	if c.Status == "history" {
		filter.Statuses = []game.Status{game.StatusCompleted, game.StatusEndedEarly}
	} else if c.Status != "" {
		s, err := game.ParseStatus(c.Status)
		if err != nil {
			return err
		}
		filter.Statuses = []game.Status{s}
	}
	if c.Player != "" {
		p, err := a.resolvePlayer(ctx, c.Player)
		if err != nil {
			return err
		}
		filter.PlayerID = p.ID
	}

	games, err := a.engine.ListGames(ctx, filter)
	if err != nil {
		return err
	}
	names, err := a.playerNames(ctx)
	if err != nil {
		return err
	}
	newRenderer(a.out).games(games, names)
	return nil
}

type GameShowCmd struct {
	Game string `arg:"" help:"Game id or unique prefix"`
}

func (c *GameShowCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.resolveGame(ctx, c.Game)
	if err != nil {
		return err
	}
	return show(ctx, a, id)
}

func show(ctx context.Context, a *app, id string) error {
	v, err := a.engine.View(ctx, id)
	if err != nil {
		return err
	}
	newRenderer(a.out).view(v)
	return nil
}

type GameGuessCmd struct {
	Game    string   `arg:"" help:"Game id or unique prefix"`
	Guesses []string `arg:"" help:"player=guess for every participant"`
	Round   int      `help:"Round number; defaults to the current round"`
}

func (c *GameGuessCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.resolveGame(ctx, c.Game)
	if err != nil {
		return err
	}
	round, err := a.roundOrCurrent(ctx, id, c.Round)
	if err != nil {
		return err
	}
	guesses, err := a.parseAssignments(ctx, c.Guesses)
	if err != nil {
		return err
	}
	if _, err := a.engine.SubmitGuesses(ctx, id, round, guesses); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Guesses recorded for round %d\n\n", round)
	return show(ctx, a, id)
}

type GameResultCmd struct {
	Game  string   `arg:"" help:"Game id or unique prefix"`
	Hits  []string `arg:"" help:"player=hits for every participant"`
	Round int      `help:"Round number; defaults to the current round"`
}

func (c *GameResultCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.resolveGame(ctx, c.Game)
	if err != nil {
		return err
	}
	round, err := a.roundOrCurrent(ctx, id, c.Round)
	if err != nil {
		return err
	}
	hits, err := a.parseAssignments(ctx, c.Hits)
	if err != nil {
		return err
	}
	updated, err := a.engine.SubmitResults(ctx, id, round, hits)
	if err != nil {
		return err
	}
	if updated.Status == game.StatusCompleted {
		fmt.Fprintf(a.out, "Round %d scored, game complete\n\n", round)
		return summary(ctx, a, id)
	}
	fmt.Fprintf(a.out, "Round %d scored\n\n", round)
	return show(ctx, a, id)
}

type GameEndCmd struct {
	Game string `arg:"" help:"Game id or unique prefix"`
}

func (c *GameEndCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.resolveGame(ctx, c.Game)
	if err != nil {
		return err
	}
	if _, err := a.engine.ForceEndGame(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Game %s ended early\n\n", id)
	return summary(ctx, a, id)
}

type GameEditCmd struct {
	Game  string   `arg:"" help:"Game id or unique prefix"`
	Edits []string `arg:"" help:"player=guess:hits pairs"`
	Round int      `required:"" help:"Round to correct"`
}

func (c *GameEditCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.resolveGame(ctx, c.Game)
	if err != nil {
		return err
	}
	edits, err := a.parseEdits(ctx, c.Round, c.Edits)
	if err != nil {
		return err
	}
	if _, err := a.engine.EditHistorical(ctx, id, edits); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Round %d corrected\n\n", c.Round)
	return show(ctx, a, id)
}

type GameRecomputeCmd struct {
	Game string `arg:"" help:"Game id or unique prefix"`
}

func (c *GameRecomputeCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.resolveGame(ctx, c.Game)
	if err != nil {
		return err
	}
	if _, err := a.engine.RecomputeTotals(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Totals recomputed for %s\n", id)
	return nil
}

type GameSummaryCmd struct {
	Game string `arg:"" help:"Game id or unique prefix"`
	JSON bool   `help:"Print the summary as JSON"`
}

func (c *GameSummaryCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.resolveGame(ctx, c.Game)
	if err != nil {
		return err
	}
	if c.JSON {
		s, err := a.engine.Summary(ctx, id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	return summary(ctx, a, id)
}

func summary(ctx context.Context, a *app, id string) error {
	s, err := a.engine.Summary(ctx, id)
	if err != nil {
		return err
	}
	newRenderer(a.out).summary(s)
	return nil
}

// export is the document written by game export.
type export struct {
	Game    *game.Game    `json:"game"`
	Players []game.Player `json:"players"`
	Summary *game.Summary `json:"summary"`
}

type GameExportCmd struct {
	Game string `arg:"" help:"Game id or unique prefix"`
	File string `arg:"" type:"path" help:"Destination JSON file"`
}

func (c *GameExportCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.resolveGame(ctx, c.Game)
	if err != nil {
		return err
	}
	v, err := a.engine.View(ctx, id)
	if err != nil {
		return err
	}
	s, err := a.engine.Summary(ctx, id)
	if err != nil {
		return err
	}
	if err := fileutil.WriteJSONAtomic(c.File, export{Game: v.Game, Players: v.Players, Summary: s}, 0o644); err != nil {
		return fmt.Errorf("export %s: %w", id, err)
	}
	fmt.Fprintf(a.out, "Exported %s to %s\n", id, c.File)
	return nil
}

type GameRmCmd struct {
	Game string `arg:"" help:"Game id or unique prefix"`
}

func (c *GameRmCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.resolveGame(ctx, c.Game)
	if err != nil {
		return err
	}
	if err := a.engine.DeleteGame(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted game %s\n", id)
	return nil
}
