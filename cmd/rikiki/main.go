package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	Config string `short:"c" default:"rikiki.hcl" env:"RIKIKI_CONFIG" help:"HCL configuration file"`
	DB     string `env:"RIKIKI_DB" help:"SQLite database path (overrides the config file)"`
	DSN    string `env:"RIKIKI_DSN" help:"Postgres DSN (overrides the config file and selects the postgres driver)"`
	Debug  bool   `env:"RIKIKI_DEBUG" help:"Enable debug logging"`
	JSON   bool   `name:"log-json" help:"Log as JSON instead of console output"`
	Seed   *int64 `env:"RIKIKI_SEED" help:"Deterministic RNG seed for dealer draws"`

	out io.Writer `kong:"-"`
}

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Serve    ServeCmd         `cmd:"" help:"Run the HTTP API"`
	Player   PlayerCmd        `cmd:"" help:"Manage the player roster"`
	Game     GameCmd          `cmd:"" help:"Create, play and inspect games"`
	Backfill BackfillCmd      `cmd:"" help:"Fill in missing game start and end timestamps"`
}

func main() {
	cli := CLI{Globals: Globals{out: os.Stdout}}
	ctx := kong.Parse(&cli,
		kong.Name("rikiki"),
		kong.Description("Scorekeeper for the rikiki trick-prediction card game"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
