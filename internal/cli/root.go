package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/cruciblehq/paxbuild/internal"
	"github.com/cruciblehq/paxbuild/internal/fault"
)

// Level of the default logger, set from the mode flags after parsing.
var LogLevel = new(slog.LevelVar)

// Root command of the paxbuild tool.
type CLI struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Verbose bool       `short:"v" help:"Enable verbose output."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	Build   BuildCmd   `cmd:"" help:"Build packages from a recipe."`
	Verify  VerifyCmd  `cmd:"" help:"Verify a package's integrity and signature."`
	Sign    SignCmd    `cmd:"" help:"Sign a package."`
	Info    InfoCmd    `cmd:"" help:"Show package information."`
	Extract ExtractCmd `cmd:"" help:"Extract a package's files."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parsed command line.
var RootCmd CLI

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	settings, err := internal.LoadSettings()
	if err != nil {
		return fault.Wrap(ErrConfig, err)
	}

	kongCtx := kong.Parse(&RootCmd, options(ctx, &settings)...)

	configureLogger(&RootCmd)

	return kongCtx.Run()
}

// Returns the parser options shared by [Execute] and tests.
func options(ctx context.Context, settings *internal.Settings) []kong.Option {
	return []kong.Option{
		kong.Name(internal.Name),
		kong.Description("Builds, signs and verifies .pax packages.\n\nRecipes describe a source and a build script; each target architecture is built in its own workspace and packaged into a deterministic, optionally signed archive."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(settings),
	}
}

// Applies the mode flags to the run mode switches and the log level.
func configureLogger(c *CLI) {
	if c.Debug {
		internal.SetDebug(true)
	}
	if c.Quiet {
		internal.SetQuiet(true)
	}
	if c.Verbose {
		internal.SetVerbose(true)
	}
	LogLevel.Set(Level())
}

// Returns the log level for the current run modes.
func Level() slog.Level {
	if internal.IsDebug() {
		return slog.LevelDebug
	}
	if internal.IsQuiet() {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
