// Package sqlite provides the SQLite-backed game.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/lox/rikiki/internal/game"
	"github.com/lox/rikiki/internal/rules"
	"github.com/lox/rikiki/internal/storage/sqlite/migrations"
	"github.com/lox/rikiki/internal/storage/sqlitemigrate"
)

const pragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// Store persists players and games in SQLite. A game aggregate is written in
// a single transaction.
type Store struct {
	db *sql.DB
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func timeFromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// Open opens the database at path, creating it if needed, and applies the
// embedded migrations.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	db, err := sql.Open("sqlite", filepath.Clean(path)+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	logger = logger.With().Str("component", "sqlite").Logger()
	if _, err := sqlitemigrate.Apply(ctx, db, migrations.FS, ".", logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Debug().Str("path", path).Msg("Opened database")
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func (s *Store) CreatePlayer(ctx context.Context, p game.Player) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, name, created_at) VALUES (?, ?, ?)`,
		p.ID, p.Name, toMillis(p.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return game.Errorf(game.CodeAlreadyExists, "player with nickname %q already exists", p.Name)
		}
		return fmt.Errorf("create player: %w", err)
	}
	return nil
}

func (s *Store) UpdatePlayer(ctx context.Context, p game.Player) error {
	res, err := s.db.ExecContext(ctx, `UPDATE players SET name = ? WHERE id = ?`, p.Name, p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return game.Errorf(game.CodeAlreadyExists, "player with nickname %q already exists", p.Name)
		}
		return fmt.Errorf("update player: %w", err)
	}
	return requireRow(res, "player %s not found", p.ID)
}

func (s *Store) GetPlayer(ctx context.Context, id string) (game.Player, error) {
	return scanPlayer(s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM players WHERE id = ?`, id), id)
}

func (s *Store) FindPlayerByName(ctx context.Context, name string) (game.Player, error) {
	return scanPlayer(s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM players WHERE name = ?`, name), name)
}

func scanPlayer(row *sql.Row, key string) (game.Player, error) {
	var (
		p       game.Player
		created int64
	)
	if err := row.Scan(&p.ID, &p.Name, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.Player{}, game.Errorf(game.CodeNotFound, "player %q not found", key)
		}
		return game.Player{}, fmt.Errorf("get player: %w", err)
	}
	p.CreatedAt = fromMillis(created)
	return p, nil
}

// ListPlayers returns players in creation order.
func (s *Store) ListPlayers(ctx context.Context) ([]game.Player, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM players ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var out []game.Player
	for rows.Next() {
		var (
			p       game.Player
			created int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &created); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.CreatedAt = fromMillis(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var gameID string
		err := tx.QueryRowContext(ctx, `SELECT game_id FROM game_players WHERE player_id = ? LIMIT 1`, id).Scan(&gameID)
		switch {
		case err == nil:
			return game.Errorf(game.CodeInUse, "player %s is referenced by game %s", id, gameID)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check player references: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete player: %w", err)
		}
		return requireRow(res, "player %s not found", id)
	})
}

func requireRow(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return game.Errorf(game.CodeNotFound, format, args...)
	}
	return nil
}

func (s *Store) CreateGame(ctx context.Context, g *game.Game) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range g.Participants {
			var found int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM players WHERE id = ?`, p.PlayerID).Scan(&found)
			if errors.Is(err, sql.ErrNoRows) {
				return game.Errorf(game.CodeNotFound, "player %s not found", p.PlayerID)
			}
			if err != nil {
				return fmt.Errorf("check player: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO games (
			   id, deck, force_conflict, max_rounds, current_round, dealer_index,
			   status, created_at, started_at, ended_at
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, string(g.Deck), g.ForceConflict, g.MaxRounds, g.CurrentRound, g.DealerIndex,
			string(g.Status), toMillis(g.CreatedAt), nullMillis(g.StartedAt), nullMillis(g.EndedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return game.Errorf(game.CodeAlreadyExists, "game %s already exists", g.ID)
			}
			return fmt.Errorf("insert game: %w", err)
		}
		return writeChildren(ctx, tx, g)
	})
}

// SaveGame replaces the stored aggregate with g.
func (s *Store) SaveGame(ctx context.Context, g *game.Game) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE games
			    SET deck = ?, force_conflict = ?, max_rounds = ?, current_round = ?,
			        dealer_index = ?, status = ?, created_at = ?, started_at = ?, ended_at = ?
			  WHERE id = ?`,
			string(g.Deck), g.ForceConflict, g.MaxRounds, g.CurrentRound,
			g.DealerIndex, string(g.Status), toMillis(g.CreatedAt), nullMillis(g.StartedAt), nullMillis(g.EndedAt),
			g.ID,
		)
		if err != nil {
			return fmt.Errorf("update game: %w", err)
		}
		if err := requireRow(res, "game %s not found", g.ID); err != nil {
			return err
		}
		if err := deleteChildren(ctx, tx, g.ID); err != nil {
			return err
		}
		return writeChildren(ctx, tx, g)
	})
}

func deleteChildren(ctx context.Context, q querier, gameID string) error {
	for _, table := range []string{"round_results", "rounds", "game_players"} {
		if _, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE game_id = ?`, gameID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func writeChildren(ctx context.Context, q querier, g *game.Game) error {
	for seat, p := range g.Participants {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO game_players (game_id, player_id, seat, total_points) VALUES (?, ?, ?, ?)`,
			g.ID, p.PlayerID, seat, p.TotalPoints,
		); err != nil {
			return fmt.Errorf("insert game player: %w", err)
		}
	}
	for _, r := range g.Rounds {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO rounds (game_id, number, cards, completed) VALUES (?, ?, ?, ?)`,
			g.ID, r.Number, r.Cards, r.Completed,
		); err != nil {
			return fmt.Errorf("insert round %d: %w", r.Number, err)
		}
		for pos, res := range r.Results {
			if _, err := q.ExecContext(ctx,
				`INSERT INTO round_results (game_id, round_number, player_id, position, guess, hits, points)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				g.ID, r.Number, res.PlayerID, pos, res.Guess, nullInt(res.Hits), nullInt(res.Points),
			); err != nil {
				return fmt.Errorf("insert result for round %d: %w", r.Number, err)
			}
		}
	}
	return nil
}

func (s *Store) GetGame(ctx context.Context, id string) (*game.Game, error) {
	return loadGame(ctx, s.db, id)
}

func loadGame(ctx context.Context, q querier, id string) (*game.Game, error) {
	g := &game.Game{ID: id}
	var (
		deck    string
		status  string
		created int64
		started sql.NullInt64
		ended   sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT deck, force_conflict, max_rounds, current_round, dealer_index,
		        status, created_at, started_at, ended_at
		   FROM games WHERE id = ?`, id,
	).Scan(&deck, &g.ForceConflict, &g.MaxRounds, &g.CurrentRound, &g.DealerIndex,
		&status, &created, &started, &ended)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, game.Errorf(game.CodeNotFound, "game %s not found", id)
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	g.Deck = rules.DeckSize(deck)
	g.Status = game.Status(status)
	g.CreatedAt = fromMillis(created)
	g.StartedAt = timeFromNull(started)
	g.EndedAt = timeFromNull(ended)

	if g.Participants, err = loadParticipants(ctx, q, id); err != nil {
		return nil, err
	}
	if g.Rounds, err = loadRounds(ctx, q, id); err != nil {
		return nil, err
	}
	return g, nil
}

func loadParticipants(ctx context.Context, q querier, gameID string) ([]game.Participant, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT player_id, total_points FROM game_players WHERE game_id = ? ORDER BY seat`, gameID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()

	var out []game.Participant
	for rows.Next() {
		var p game.Participant
		if err := rows.Scan(&p.PlayerID, &p.TotalPoints); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func loadRounds(ctx context.Context, q querier, gameID string) ([]game.Round, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT number, cards, completed FROM rounds WHERE game_id = ? ORDER BY number`, gameID)
	if err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}
	var rounds []game.Round
	index := make(map[int]int)
	for rows.Next() {
		r := game.Round{Results: []game.RoundResult{}}
		if err := rows.Scan(&r.Number, &r.Cards, &r.Completed); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan round: %w", err)
		}
		index[r.Number] = len(rounds)
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	results, err := q.QueryContext(ctx,
		`SELECT round_number, player_id, guess, hits, points
		   FROM round_results WHERE game_id = ? ORDER BY round_number, position`, gameID)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	defer results.Close()

	for results.Next() {
		var (
			number int
			res    game.RoundResult
			hits   sql.NullInt64
			points sql.NullInt64
		)
		if err := results.Scan(&number, &res.PlayerID, &res.Guess, &hits, &points); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.Hits = intFromNull(hits)
		res.Points = intFromNull(points)
		i, ok := index[number]
		if !ok {
			continue
		}
		rounds[i].Results = append(rounds[i].Results, res)
	}
	return rounds, results.Err()
}

// ListGames returns matching games, newest first.
func (s *Store) ListGames(ctx context.Context, filter game.GameFilter) ([]*game.Game, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.PlayerID != "" {
		where = append(where, "EXISTS (SELECT 1 FROM game_players gp WHERE gp.game_id = games.id AND gp.player_id = ?)")
		args = append(args, filter.PlayerID)
	}
	query := `SELECT id FROM games`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]*game.Game, 0, len(ids))
	for _, id := range ids {
		g, err := loadGame(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// DeleteGame removes a game and everything recorded under it.
func (s *Store) DeleteGame(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := deleteChildren(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete game: %w", err)
		}
		return requireRow(res, "game %s not found", id)
	})
}

var _ game.Store = (*Store)(nil)
