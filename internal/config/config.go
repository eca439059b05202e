// Package config loads the rikiki HCL configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"

	"github.com/lox/rikiki/internal/rules"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the complete configuration. Every block is optional.
type Config struct {
	Server  *ServerSettings  `hcl:"server,block"`
	Storage *StorageSettings `hcl:"storage,block"`
	Game    *GameSettings    `hcl:"game,block"`
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// StorageSettings selects where players and games are kept.
type StorageSettings struct {
	Driver string `hcl:"driver,optional"`
	Path   string `hcl:"path,optional"`
	DSN    string `hcl:"dsn,optional"`
}

// GameSettings holds defaults for new games.
type GameSettings struct {
	Deck          string `hcl:"deck,optional"`
	ForceConflict *bool  `hcl:"force_conflict,optional"`
	Seed          *int64 `hcl:"seed,optional"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads filename. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var c Config
	if diags := gohcl.DecodeBody(file.Body, nil, &c); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Storage == nil {
		c.Storage = &StorageSettings{}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.Path == "" {
		c.Storage.Path = "rikiki.db"
	}

	if c.Game == nil {
		c.Game = &GameSettings{}
	}
	if c.Game.Deck == "" {
		c.Game.Deck = string(rules.SingleDeck)
	}
	if c.Game.ForceConflict == nil {
		enabled := true
		c.Game.ForceConflict = &enabled
	}
}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := zerolog.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.Server.LogLevel)
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage: sqlite driver needs a path")
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage: postgres driver needs a dsn")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}

	if _, err := rules.ParseDeckSize(c.Game.Deck); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	return nil
}

// ServerAddress returns the host:port the API listens on.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// DeckSize returns the default deck for new games.
func (c *Config) DeckSize() rules.DeckSize {
	deck, err := rules.ParseDeckSize(c.Game.Deck)
	if err != nil {
		return rules.SingleDeck
	}
	return deck
}
