package main

import (
	"log/slog"
	"os"

	"github.com/cruciblehq/paxbuild/internal"
	"github.com/cruciblehq/paxbuild/internal/cli"
)

// The entry point for the paxbuild tool.
//
// Initializes logging, displays startup information, and executes the root
// command. Errors exit with the code [cli.ExitCode] assigns to them.
func main() {
	slog.SetDefault(logger())

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("paxbuild is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(cli.ExitCode(err))
	}
}

// Creates a text logger on stderr seeded from build-time linker flags.
//
// The level is adjusted after flag parsing via cli.Execute.
func logger() *slog.Logger {
	cli.LogLevel.Set(cli.Level())
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cli.LogLevel})
	return slog.New(handler.WithGroup(internal.Name))
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
