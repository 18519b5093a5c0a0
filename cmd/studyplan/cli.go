package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/brunobiangulo/studyplan"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	Config  string `type:"existingfile" help:"Path to config file (YAML or JSON)"`
	Store   string `default:"memory" enum:"memory,sqlite,badger" help:"Session store backend"`
	Verbose bool   `short:"v" help:"Enable debug logging"`
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	Parse   ParseCmd   `cmd:"" help:"Extract a study plan from a document"`
	Chain   ChainCmd   `cmd:"" help:"Show the prerequisite chain of a course"`
	Watch   WatchCmd   `cmd:"" help:"Extract every document dropped into a directory"`
	Formats FormatsCmd `cmd:"" help:"List supported document formats"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("studyplan"),
		kong.Description("Extract university study plans into CSV, XLSX and prerequisite graphs"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	c.setupLogging()
	return kongCtx.Run(&c.Globals)
}

func (c *CLI) setupLogging() {
	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// openEngine builds an engine from the config file, the environment and
// the global flags, in that order of precedence.
func (g *Globals) openEngine() (studyplan.Engine, error) {
	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("loading .env", "error", err)
	}

	cfg := studyplan.DefaultConfig()
	if g.Config != "" {
		loaded, err := studyplan.LoadConfig(g.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if g.Store != "" {
		cfg.StoreBackend = g.Store
	}

	e, err := studyplan.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return e, nil
}
