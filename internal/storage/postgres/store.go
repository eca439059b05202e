// Package postgres provides a PostgreSQL game.Store built on gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lox/rikiki/internal/game"
)

// Store persists players and games in PostgreSQL.
type Store struct {
	db *gorm.DB
}

// printfLogger routes gorm's log lines to zerolog.
type printfLogger struct {
	logger zerolog.Logger
}

func (l printfLogger) Printf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}

// Open connects to dsn and migrates the schema.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	logger = logger.With().Str("component", "postgres").Logger()

	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(printfLogger{logger}, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.WithContext(ctx).AutoMigrate(
		&playerRow{},
		&gameRow{},
		&gamePlayerRow{},
		&roundRow{},
		&roundResultRow{},
	); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto migration failed: %w", err)
	}
	logger.Debug().Msg("Connected to postgres")
	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreatePlayer(ctx context.Context, p game.Player) error {
	row := toPlayerRow(p)
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return game.Errorf(game.CodeAlreadyExists, "player with nickname %q already exists", p.Name)
		}
		return fmt.Errorf("create player: %w", err)
	}
	return nil
}

func (s *Store) UpdatePlayer(ctx context.Context, p game.Player) error {
	res := s.db.WithContext(ctx).Model(&playerRow{}).Where("id = ?", p.ID).Update("name", p.Name)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return game.Errorf(game.CodeAlreadyExists, "player with nickname %q already exists", p.Name)
		}
		return fmt.Errorf("update player: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return game.Errorf(game.CodeNotFound, "player %s not found", p.ID)
	}
	return nil
}

func (s *Store) GetPlayer(ctx context.Context, id string) (game.Player, error) {
	return s.findPlayer(ctx, "id = ?", id)
}

func (s *Store) FindPlayerByName(ctx context.Context, name string) (game.Player, error) {
	return s.findPlayer(ctx, "name = ?", name)
}

func (s *Store) findPlayer(ctx context.Context, where, key string) (game.Player, error) {
	var row playerRow
	if err := s.db.WithContext(ctx).Where(where, key).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return game.Player{}, game.Errorf(game.CodeNotFound, "player %q not found", key)
		}
		return game.Player{}, fmt.Errorf("get player: %w", err)
	}
	return row.toPlayer(), nil
}

// ListPlayers returns players in creation order.
func (s *Store) ListPlayers(ctx context.Context) ([]game.Player, error) {
	var rows []playerRow
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	out := make([]game.Player, len(rows))
	for i, r := range rows {
		out[i] = r.toPlayer()
	}
	return out, nil
}

func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seat gamePlayerRow
		err := tx.Where("player_id = ?", id).Take(&seat).Error
		switch {
		case err == nil:
			return game.Errorf(game.CodeInUse, "player %s is referenced by game %s", id, seat.GameID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("check player references: %w", err)
		}

		res := tx.Where("id = ?", id).Delete(&playerRow{})
		if res.Error != nil {
			return fmt.Errorf("delete player: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return game.Errorf(game.CodeNotFound, "player %s not found", id)
		}
		return nil
	})
}

func (s *Store) CreateGame(ctx context.Context, g *game.Game) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := g.PlayerIDs()
		var known int64
		if err := tx.Model(&playerRow{}).Where("id IN ?", ids).Count(&known).Error; err != nil {
			return fmt.Errorf("check players: %w", err)
		}
		if int(known) != len(ids) {
			return game.Errorf(game.CodeNotFound, "game %s seats unknown players", g.ID)
		}

		row, players, rounds, results := toRows(g)
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return game.Errorf(game.CodeAlreadyExists, "game %s already exists", g.ID)
			}
			return fmt.Errorf("insert game: %w", err)
		}
		return createChildren(tx, players, rounds, results)
	})
}

// SaveGame replaces the stored aggregate with g inside one transaction.
func (s *Store) SaveGame(ctx context.Context, g *game.Game) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, players, rounds, results := toRows(g)
		res := tx.Model(&gameRow{}).Where("id = ?", g.ID).Select("*").Omit(clause.Associations, "id").Updates(&row)
		if res.Error != nil {
			return fmt.Errorf("update game: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return game.Errorf(game.CodeNotFound, "game %s not found", g.ID)
		}
		if err := deleteChildren(tx, g.ID); err != nil {
			return err
		}
		return createChildren(tx, players, rounds, results)
	})
}

func deleteChildren(tx *gorm.DB, gameID string) error {
	for _, model := range []any{&roundResultRow{}, &roundRow{}, &gamePlayerRow{}} {
		if err := tx.Where("game_id = ?", gameID).Delete(model).Error; err != nil {
			return fmt.Errorf("clear game rows: %w", err)
		}
	}
	return nil
}

func createChildren(tx *gorm.DB, players []gamePlayerRow, rounds []roundRow, results []roundResultRow) error {
	tx = tx.Omit(clause.Associations)
	if len(players) > 0 {
		if err := tx.Create(&players).Error; err != nil {
			return fmt.Errorf("insert game players: %w", err)
		}
	}
	if len(rounds) > 0 {
		if err := tx.Create(&rounds).Error; err != nil {
			return fmt.Errorf("insert rounds: %w", err)
		}
	}
	if len(results) > 0 {
		if err := tx.Create(&results).Error; err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
	}
	return nil
}

// withAggregate preloads a game's children in stored order.
func withAggregate(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("seat") }).
		Preload("Rounds", func(db *gorm.DB) *gorm.DB { return db.Order("number") }).
		Preload("Rounds.Results", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
}

func (s *Store) GetGame(ctx context.Context, id string) (*game.Game, error) {
	var row gameRow
	if err := withAggregate(s.db.WithContext(ctx)).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.Errorf(game.CodeNotFound, "game %s not found", id)
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	return row.toGame(), nil
}

// ListGames returns matching games, newest first.
func (s *Store) ListGames(ctx context.Context, filter game.GameFilter) ([]*game.Game, error) {
	q := withAggregate(s.db.WithContext(ctx))
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status IN ?", statuses)
	}
	if filter.PlayerID != "" {
		q = q.Where("EXISTS (SELECT 1 FROM game_players gp WHERE gp.game_id = games.id AND gp.player_id = ?)", filter.PlayerID)
	}

	var rows []gameRow
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	out := make([]*game.Game, len(rows))
	for i, r := range rows {
		out[i] = r.toGame()
	}
	return out, nil
}

// DeleteGame removes a game together with its rounds, results and
// participation rows.
func (s *Store) DeleteGame(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteChildren(tx, id); err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&gameRow{})
		if res.Error != nil {
			return fmt.Errorf("delete game: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return game.Errorf(game.CodeNotFound, "game %s not found", id)
		}
		return nil
	})
}

var _ game.Store = (*Store)(nil)
