package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/alecthomas/kong"
	"github.com/cruciblehq/paxbuild/internal"
	"github.com/cruciblehq/paxbuild/internal/build"
	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/paths"
	"github.com/cruciblehq/paxbuild/internal/recipe"
	"github.com/cruciblehq/paxbuild/internal/runtime"
	"github.com/cruciblehq/paxbuild/internal/signing"
	"github.com/cruciblehq/paxbuild/internal/source"
)

// Represents the 'paxbuild build' command.
type BuildCmd struct {
	Recipe     string   `arg:"" help:"Recipe file or http(s) URL."`
	Arch       []string `short:"a" placeholder:"ARCH" help:"Target architecture, repeatable. Defaults to the recipe's architectures or the host."`
	Output     string   `short:"o" placeholder:"PATH" help:"Output file or directory."`
	Jobs       int      `short:"j" placeholder:"N" help:"Maximum concurrent jobs. Defaults to the number of CPUs."`
	Key        string   `type:"existingfile" placeholder:"FILE" help:"Hex-encoded Ed25519 private key to sign packages with."`
	KeepFailed bool     `help:"Keep the workspaces of failed jobs."`
}

// Executes the build command.
//
// Prints one line per architecture. Returns the aggregated job failures, so
// the exit code reflects a partial failure.
func (c *BuildCmd) Run(ctx context.Context, kctx *kong.Context, s *internal.Settings) error {
	r, err := recipe.Open(ctx, &http.Client{Timeout: s.HTTPTimeout}, c.Recipe)
	if err != nil {
		return err
	}

	archs, err := parseArchitectures(c.Arch)
	if err != nil {
		return err
	}

	var seed []byte
	if c.Key != "" {
		if seed, err = signing.LoadPrivateKey(c.Key); err != nil {
			return err
		}
	}

	opts := c.options(s)
	opts.Recipe = r
	opts.Architectures = archs
	opts.SigningKey = seed

	report, err := build.Run(ctx, opts)
	if err != nil {
		return err
	}

	printReport(kctx.Stdout, report)
	return report.Err()
}

// Builds the orchestrator options from flags and settings.
func (c *BuildCmd) options(s *internal.Settings) build.Options {
	workDir := s.WorkDir
	if workDir == "" {
		workDir = paths.Work()
	}

	jobs := c.Jobs
	if jobs == 0 {
		jobs = s.Jobs
	}

	var scriptOutput io.Writer
	if internal.IsVerbose() {
		scriptOutput = os.Stderr
	}

	return build.Options{
		Output:       c.Output,
		OutputDir:    s.OutputDir,
		Jobs:         jobs,
		KeepFailed:   c.KeepFailed || s.KeepFailed,
		ScriptOutput: scriptOutput,
		Resolver: source.NewResolver(source.Options{
			WorkDir:     workDir,
			HTTPTimeout: s.HTTPTimeout,
			S3Region:    s.S3Region,
			S3Endpoint:  s.S3Endpoint,
			S3PathStyle: s.S3PathStyle,
		}),
		Runtime: runtime.New(runtime.Options{
			Base:    workDir,
			Shell:   s.Shell,
			PassEnv: s.PassEnv,
		}),
	}
}

// Parses architecture flags.
func parseArchitectures(names []string) ([]recipe.Architecture, error) {
	var archs []recipe.Architecture
	for _, n := range names {
		a, err := recipe.ParseArchitecture(n)
		if err != nil {
			return nil, err
		}
		archs = append(archs, a)
	}
	return archs, nil
}

// Prints one line per architecture job.
func printReport(w io.Writer, report *build.Report) {
	if !report.SourceVerified {
		slog.Warn("source was not verified against a hash", "digest", report.SourceDigest)
	}
	for _, res := range report.Results {
		if res.Err != nil {
			line := fmt.Sprintf("%-8s FAILED %v", res.Arch, res.Err)
			if res.Kept != "" {
				line += fmt.Sprintf(" (workspace kept at %s)", res.Kept)
			}
			fmt.Fprintln(w, line)
			continue
		}
		signed := "unsigned"
		if res.Signed {
			signed = "signed"
		}
		fmt.Fprintf(w, "%-8s ok     %s %s %s\n", res.Arch, res.Path, res.Digest, signed)
	}
}

// Wraps a flag combination error.
func usageError(format string, args ...any) error {
	return fault.Wrapf(ErrUsage, format, args...)
}
