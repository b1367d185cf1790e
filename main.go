package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-ventilation/internal/config"
	"github.com/insightdelivered/statement-ventilation/internal/logger"
	"github.com/insightdelivered/statement-ventilation/internal/parser"
)

const (
	AppName = "statement-ventilation"
	AppDesc = `Parses BNP Paribas bank statements into reconciled transactions and
ventilates spending into user-defined categories.

Examples:
  # Parse every statement of a directory
  statement-ventilation parse releves/ --out releves.yml

  # Split spending into categories and draw a pie chart
  statement-ventilation ventilate releves.yml spec.yml --markdown ventilation.md`
)

var version = "1.0.0"

// Globals are the flags shared by every command.
type Globals struct {
	Config   string `env:"CONFIG_PATH" help:"${env} - Path to an optional YAML config file" type:"path"`
	LogLevel string `env:"LOG_LEVEL" help:"${env} - Log level (debug, info, warn, error); overrides the config file"`
}

var cli struct {
	Globals

	Parse     ParseCmd     `cmd:"" help:"Parse statement documents into a YAML or JSON file."`
	Ventilate VentilateCmd `cmd:"" help:"Assign spending to the categories of a spec."`
	Suggest   SuggestCmd   `cmd:"" help:"Suggest patterns for unassigned spending."`
	Serve     ServeCmd     `cmd:"" help:"Run the HTTP API."`
	Version   VersionCmd   `cmd:"" help:"Print version and exit."`
}

// App is what commands need once flags and config are resolved.
type App struct {
	Config    *config.Config
	Templates *parser.Registry
	Log       zerolog.Logger
	Ctx       context.Context
}

func newApp(ctx context.Context, g Globals) (*App, error) {
	cfg, err := config.Load(g.Config, false)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	templates, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	return &App{
		Config:    cfg,
		Templates: templates,
		Log:       logger.New(cfg.LogLevel),
		Ctx:       ctx,
	}, nil
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name(AppName),
		kong.Description(AppDesc),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cli.Globals)
	kctx.FatalIfErrorf(err)

	err = kctx.Run(app)
	if err != nil {
		app.Log.Error().Err(err).Str("command", kctx.Command()).Msg("command failed")
		stop()
		os.Exit(1)
	}
}
