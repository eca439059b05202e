package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/rikiki/internal/gameid"
	"github.com/lox/rikiki/internal/randutil"
	"github.com/lox/rikiki/internal/rules"
)

// IDGenerator produces identifiers for new records.
type IDGenerator interface {
	NewID() string
}

// IDFunc adapts a function to IDGenerator.
type IDFunc func() string

func (f IDFunc) NewID() string { return f() }

// Engine is the rikiki scoring state machine. It owns no state of its own
// beyond per-game locks; every operation loads the game from the Store,
// validates, and saves the result.
type Engine struct {
	store     Store
	logger    zerolog.Logger
	clock     quartz.Clock
	rng       rules.RandSource
	rngMu     sync.Mutex
	gameIDs   IDGenerator
	playerIDs IDGenerator
	observer  Observer

	locks    *gameLocks
	rosterMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for game timestamps.
func WithClock(clock quartz.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithRand sets the randomness used to pick the first dealer.
func WithRand(rng rules.RandSource) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithGameIDs sets the generator for game ids.
func WithGameIDs(gen IDGenerator) Option {
	return func(e *Engine) { e.gameIDs = gen }
}

// WithPlayerIDs sets the generator for player ids.
func WithPlayerIDs(gen IDGenerator) Option {
	return func(e *Engine) { e.playerIDs = gen }
}

// WithObserver registers the receiver of committed events.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates an engine over store.
func NewEngine(store Store, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: logger.With().Str("component", "engine").Logger(),
		locks:  newGameLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = quartz.NewReal()
	}
	if e.rng == nil {
		e.rng = randutil.New(e.clock.Now().UnixNano())
	}
	if e.gameIDs == nil {
		e.gameIDs = gameid.NewGenerator(e.clock, nil)
	}
	if e.playerIDs == nil {
		e.playerIDs = IDFunc(uuid.NewString)
	}
	return e
}

func (e *Engine) now() time.Time {
	return e.clock.Now("engine").UTC()
}

func (e *Engine) publish(t EventType, g *Game, gameID string, round int) {
	if e.observer == nil {
		return
	}
	e.observer.OnGameEvent(Event{
		Type:   t,
		GameID: gameID,
		Round:  round,
		At:     e.now(),
		Game:   g.Clone(),
	})
}

// CreatePlayer adds a player to the roster.
func (e *Engine) CreatePlayer(ctx context.Context, name string) (Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Player{}, Errorf(CodeInvalidArgument, "nickname is required")
	}

	e.rosterMu.Lock()
	defer e.rosterMu.Unlock()

	if err := e.ensureNameFree(ctx, name, ""); err != nil {
		return Player{}, err
	}

	p := Player{ID: e.playerIDs.NewID(), Name: name, CreatedAt: e.now()}
	if err := e.store.CreatePlayer(ctx, p); err != nil {
		return Player{}, err
	}
	e.logger.Info().Str("player_id", p.ID).Str("name", p.Name).Msg("Player created")
	return p, nil
}

// RenamePlayer changes a player's nickname.
func (e *Engine) RenamePlayer(ctx context.Context, id, name string) (Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Player{}, Errorf(CodeInvalidArgument, "nickname is required")
	}

	e.rosterMu.Lock()
	defer e.rosterMu.Unlock()

	p, err := e.store.GetPlayer(ctx, id)
	if err != nil {
		return Player{}, err
	}
	if err := e.ensureNameFree(ctx, name, id); err != nil {
		return Player{}, err
	}

	old := p.Name
	p.Name = name
	if err := e.store.UpdatePlayer(ctx, p); err != nil {
		return Player{}, err
	}
	e.logger.Info().Str("player_id", id).Str("from", old).Str("to", name).Msg("Player renamed")
	return p, nil
}

func (e *Engine) ensureNameFree(ctx context.Context, name, self string) error {
	existing, err := e.store.FindPlayerByName(ctx, name)
	switch {
	case err == nil && existing.ID != self:
		return Errorf(CodeAlreadyExists, "player with nickname %q already exists", name)
	case err == nil, errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

// DeletePlayer removes a player who is not seated in any active game.
func (e *Engine) DeletePlayer(ctx context.Context, id string) error {
	e.rosterMu.Lock()
	defer e.rosterMu.Unlock()

	p, err := e.store.GetPlayer(ctx, id)
	if err != nil {
		return err
	}
	active, err := e.store.ListGames(ctx, GameFilter{Statuses: []Status{StatusActive}, PlayerID: id})
	if err != nil {
		return err
	}
	if len(active) > 0 {
		return Errorf(CodeInUse, "cannot delete player %q: they are in an active game", p.Name)
	}
	if err := e.store.DeletePlayer(ctx, id); err != nil {
		return err
	}
	e.logger.Info().Str("player_id", id).Str("name", p.Name).Msg("Player deleted")
	return nil
}

// GetPlayer returns one player.
func (e *Engine) GetPlayer(ctx context.Context, id string) (Player, error) {
	return e.store.GetPlayer(ctx, id)
}

// ListPlayers returns the roster.
func (e *Engine) ListPlayers(ctx context.Context) ([]Player, error) {
	return e.store.ListPlayers(ctx)
}

// NewGame holds the parameters of CreateGame. PlayerIDs is the seating order.
type NewGame struct {
	PlayerIDs     []string
	Deck          rules.DeckSize
	ForceConflict bool
}

// CreateGame seats the players, fixes the round schedule, draws the first
// dealer and opens round 1.
func (e *Engine) CreateGame(ctx context.Context, params NewGame) (*Game, error) {
	if len(params.PlayerIDs) < 2 {
		return nil, Errorf(CodeInvalidConfiguration, "at least 2 players are required, got %d", len(params.PlayerIDs))
	}
	seen := make(map[string]bool, len(params.PlayerIDs))
	for _, id := range params.PlayerIDs {
		if seen[id] {
			return nil, Errorf(CodeInvalidConfiguration, "player %s is seated twice", id)
		}
		seen[id] = true
		if _, err := e.store.GetPlayer(ctx, id); err != nil {
			return nil, err
		}
	}

	deck := params.Deck
	if deck == "" {
		deck = rules.SingleDeck
	}
	schedule, err := rules.ComputeSchedule(len(params.PlayerIDs), deck)
	if err != nil {
		return nil, Wrap(CodeInvalidConfiguration, err)
	}
	cards, err := schedule.CardsForRound(1)
	if err != nil {
		return nil, Wrap(CodeInvalidConfiguration, err)
	}

	e.rngMu.Lock()
	dealer := rules.PickInitialDealer(e.rng, len(params.PlayerIDs))
	e.rngMu.Unlock()

	g := &Game{
		ID:            e.gameIDs.NewID(),
		Participants:  make([]Participant, len(params.PlayerIDs)),
		Deck:          deck,
		ForceConflict: params.ForceConflict,
		MaxRounds:     schedule.MaxRounds,
		CurrentRound:  1,
		DealerIndex:   dealer,
		Status:        StatusActive,
		CreatedAt:     e.now(),
		Rounds:        []Round{{Number: 1, Cards: cards, Results: []RoundResult{}}},
	}
	for i, id := range params.PlayerIDs {
		g.Participants[i] = Participant{PlayerID: id}
	}

	if err := e.store.CreateGame(ctx, g); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	e.logger.Info().
		Str("game_id", g.ID).
		Int("players", len(g.Participants)).
		Str("deck", string(g.Deck)).
		Bool("force_conflict", g.ForceConflict).
		Int("max_rounds", g.MaxRounds).
		Int("dealer", g.DealerIndex).
		Msg("Game created")
	e.publish(EventGameCreated, g, g.ID, 1)
	return g, nil
}

// GetGame returns a game aggregate.
func (e *Engine) GetGame(ctx context.Context, id string) (*Game, error) {
	return e.store.GetGame(ctx, id)
}

// ListGames returns games matching filter, newest first.
func (e *Engine) ListGames(ctx context.Context, filter GameFilter) ([]*Game, error) {
	return e.store.ListGames(ctx, filter)
}

// mutate runs fn on a freshly loaded copy of the game while holding the
// game's lock and saves the copy only when fn succeeds.
func (e *Engine) mutate(ctx context.Context, gameID string, fn func(g *Game, now time.Time) error) (*Game, error) {
	unlock := e.locks.lock(gameID)
	defer unlock()

	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := fn(g, e.now()); err != nil {
		return nil, err
	}
	if err := e.store.SaveGame(ctx, g); err != nil {
		return nil, fmt.Errorf("save game %s: %w", gameID, err)
	}
	return g, nil
}

// openRound returns round n when it is the game's current, incomplete round.
func openRound(g *Game, n int) (*Round, error) {
	if g.Status != StatusActive {
		return nil, Errorf(CodeInvalidStateTransition, "game %s is %s", g.ID, g.Status)
	}
	r := g.Round(n)
	if r == nil {
		return nil, Errorf(CodeNotFound, "round %d not found in game %s", n, g.ID)
	}
	if n != g.CurrentRound || r.Completed {
		return nil, Errorf(CodeInvalidStateTransition, "round %d is not the current round (current is %d)", n, g.CurrentRound)
	}
	return r, nil
}

// seatValues orders a per-player submission by seat. Every participant must
// be present and nobody else.
func seatValues(g *Game, values map[string]int, missing Code, what string) ([]int, error) {
	for id := range values {
		if g.Seat(id) < 0 {
			return nil, Errorf(CodeNotFound, "player %s is not part of game %s", id, g.ID)
		}
	}
	out := make([]int, len(g.Participants))
	var absent []string
	for i, p := range g.Participants {
		v, ok := values[p.PlayerID]
		if !ok {
			absent = append(absent, p.PlayerID)
			continue
		}
		out[i] = v
	}
	if len(absent) > 0 {
		return nil, Errorf(missing, "%s missing for %s", what, strings.Join(absent, ", "))
	}
	return out, nil
}

func ruleError(err error) error {
	switch {
	case errors.Is(err, rules.ErrForcedConflict):
		return Wrap(CodeForcedConflictViolation, err)
	case errors.Is(err, rules.ErrOutOfRangeGuess):
		return Wrap(CodeOutOfRangeGuess, err)
	case errors.Is(err, rules.ErrOutOfRangeHits):
		return Wrap(CodeOutOfRangeHits, err)
	case errors.Is(err, rules.ErrInvalidConfiguration):
		return Wrap(CodeInvalidConfiguration, err)
	default:
		return err
	}
}

// SubmitGuesses records the complete set of predictions for the current
// round, replacing any earlier set as long as no hits exist yet.
func (e *Engine) SubmitGuesses(ctx context.Context, gameID string, round int, guesses map[string]int) (*Game, error) {
	g, err := e.mutate(ctx, gameID, func(g *Game, now time.Time) error {
		r, err := openRound(g, round)
		if err != nil {
			return err
		}
		if r.HasHits() {
			return Errorf(CodeInvalidStateTransition, "round %d already has results", round)
		}
		values, err := seatValues(g, guesses, CodeIncompleteGuesses, "guess")
		if err != nil {
			return err
		}
		if _, err := rules.ValidateGuessSet(values, r.Cards, g.ForceConflict); err != nil {
			return ruleError(err)
		}

		r.Results = make([]RoundResult, len(g.Participants))
		for i, p := range g.Participants {
			r.Results[i] = RoundResult{PlayerID: p.PlayerID, Guess: values[i]}
		}
		if r.Number == 1 && g.StartedAt == nil {
			g.StartedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug().Str("game_id", gameID).Int("round", round).Msg("Guesses submitted")
	e.publish(EventGuessesSubmitted, g, gameID, round)
	return g, nil
}

// SubmitResults records the tricks each participant took in the current
// round, scores it, and either opens the next round with the next dealer or
// completes the game.
func (e *Engine) SubmitResults(ctx context.Context, gameID string, round int, hits map[string]int) (*Game, error) {
	g, err := e.mutate(ctx, gameID, func(g *Game, now time.Time) error {
		r, err := openRound(g, round)
		if err != nil {
			return err
		}
		for _, p := range g.Participants {
			if r.Result(p.PlayerID) == nil {
				return Errorf(CodeIncompleteGuesses, "round %d has no guess for %s", round, p.PlayerID)
			}
		}
		values, err := seatValues(g, hits, CodeIncompleteResults, "hits")
		if err != nil {
			return err
		}
		total, err := rules.ValidateHits(values, r.Cards)
		if err != nil {
			return ruleError(err)
		}
		if total != r.Cards {
			e.logger.Warn().
				Str("game_id", g.ID).
				Int("round", round).
				Int("hits", total).
				Int("cards", r.Cards).
				Msg("Hits do not add up to the cards dealt")
		}

		for i, p := range g.Participants {
			res := r.Result(p.PlayerID)
			h := values[i]
			points := rules.Score(res.Guess, h)
			res.Hits = &h
			res.Points = &points
		}
		r.Completed = true
		g.RecomputeTotals()

		if g.CurrentRound >= g.MaxRounds {
			g.Status = StatusCompleted
			g.EndedAt = &now
			return nil
		}
		return advance(g)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug().Str("game_id", gameID).Int("round", round).Msg("Round completed")
	e.publish(EventRoundCompleted, g, gameID, round)
	if g.Status == StatusCompleted {
		e.logger.Info().Str("game_id", gameID).Int("rounds", round).Msg("Game completed")
		e.publish(EventGameCompleted, g, gameID, round)
	}
	return g, nil
}

// advance opens the next round of the fixed schedule and passes the deal one
// seat on.
func advance(g *Game) error {
	schedule, err := rules.ScheduleFromMaxRounds(g.MaxRounds)
	if err != nil {
		return ruleError(err)
	}
	next := g.CurrentRound + 1
	cards, err := schedule.CardsForRound(next)
	if err != nil {
		return ruleError(err)
	}
	g.CurrentRound = next
	g.DealerIndex = rules.NextDealer(g.DealerIndex, len(g.Participants))
	g.Rounds = append(g.Rounds, Round{Number: next, Cards: cards, Results: []RoundResult{}})
	return nil
}

// ForceEndGame terminates an active game. The open round stays unscored.
func (e *Engine) ForceEndGame(ctx context.Context, gameID string) (*Game, error) {
	g, err := e.mutate(ctx, gameID, func(g *Game, now time.Time) error {
		if g.Status != StatusActive {
			return Errorf(CodeInvalidStateTransition, "game %s is %s", g.ID, g.Status)
		}
		g.Status = StatusEndedEarly
		g.EndedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info().Str("game_id", gameID).Int("round", g.CurrentRound).Msg("Game ended early")
	e.publish(EventGameEndedEarly, g, gameID, g.CurrentRound)
	return g, nil
}

// Edit rewrites one player's guess and hits in one round.
type Edit struct {
	Round    int    `json:"round"`
	PlayerID string `json:"player_id"`
	Guess    int    `json:"guess"`
	Hits     int    `json:"hits"`
}

// EditHistorical is the administrative correction path. It upserts results
// in any game regardless of status, rescoring them without the range and
// forced-conflict checks of the normal path, marks each edited round
// completed and recomputes all running totals. The open round of an active
// game cannot be edited; it must be finished with SubmitResults.
func (e *Engine) EditHistorical(ctx context.Context, gameID string, edits []Edit) (*Game, error) {
	if len(edits) == 0 {
		return nil, Errorf(CodeInvalidArgument, "no edits given")
	}

	g, err := e.mutate(ctx, gameID, func(g *Game, _ time.Time) error {
		edited := make(map[int]bool)
		for _, ed := range edits {
			r := g.Round(ed.Round)
			if r == nil {
				return Errorf(CodeNotFound, "round %d not found in game %s", ed.Round, g.ID)
			}
			if r == g.Current() {
				return Errorf(CodeInvalidStateTransition, "round %d is still being played", ed.Round)
			}
			if g.Seat(ed.PlayerID) < 0 {
				return Errorf(CodeNotFound, "player %s is not part of game %s", ed.PlayerID, g.ID)
			}

			res := r.Result(ed.PlayerID)
			if res == nil {
				r.Results = append(r.Results, RoundResult{PlayerID: ed.PlayerID})
				res = &r.Results[len(r.Results)-1]
			}
			hits := ed.Hits
			points := rules.Score(ed.Guess, hits)
			res.Guess = ed.Guess
			res.Hits = &hits
			res.Points = &points
			edited[r.Number] = true
		}

		for n := range edited {
			g.Round(n).Completed = true
		}
		g.sortResults()
		g.RecomputeTotals()
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info().Str("game_id", gameID).Int("edits", len(edits)).Msg("Game edited")
	e.publish(EventGameEdited, g, gameID, 0)
	return g, nil
}

// RecomputeTotals rebuilds every participant's running total from the stored
// round results.
func (e *Engine) RecomputeTotals(ctx context.Context, gameID string) (*Game, error) {
	changed := false
	g, err := e.mutate(ctx, gameID, func(g *Game, _ time.Time) error {
		changed = g.RecomputeTotals()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		e.logger.Warn().Str("game_id", gameID).Msg("Running totals drifted and were recomputed")
	}
	return g, nil
}

// DeleteGame irreversibly removes a game with its rounds, results and
// participation records.
func (e *Engine) DeleteGame(ctx context.Context, gameID string) error {
	unlock := e.locks.lock(gameID)
	defer unlock()

	if err := e.store.DeleteGame(ctx, gameID); err != nil {
		return err
	}
	e.logger.Info().Str("game_id", gameID).Msg("Game deleted")
	e.publish(EventGameDeleted, nil, gameID, 0)
	return nil
}

// BackfillTimestamps repairs games stored without lifecycle timestamps: a
// game with any recorded guess gets a start time and a finished game gets an
// end time. It returns how many games changed.
func (e *Engine) BackfillTimestamps(ctx context.Context) (int, error) {
	games, err := e.store.ListGames(ctx, GameFilter{})
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, listed := range games {
		changed := false
		_, err := e.mutate(ctx, listed.ID, func(g *Game, now time.Time) error {
			if g.StartedAt == nil && hasGuesses(g) {
				g.StartedAt = &now
				changed = true
			}
			if g.EndedAt == nil && g.Status.Terminal() {
				g.EndedAt = &now
				changed = true
			}
			return nil
		})
		if err != nil {
			return updated, err
		}
		if changed {
			updated++
			e.logger.Info().Str("game_id", listed.ID).Msg("Backfilled game timestamps")
		}
	}
	return updated, nil
}

func hasGuesses(g *Game) bool {
	for _, r := range g.Rounds {
		if len(r.Results) > 0 {
			return true
		}
	}
	return false
}
