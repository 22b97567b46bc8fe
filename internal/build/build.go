package build

import (
	"context"
	"io"
	"log/slog"
	"slices"

	"github.com/cruciblehq/paxbuild/internal"
	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/paths"
	"github.com/cruciblehq/paxbuild/internal/recipe"
	"github.com/cruciblehq/paxbuild/internal/runtime"
	"github.com/cruciblehq/paxbuild/internal/source"
	"github.com/hashicorp/go-multierror"
)

// Controls a build.
type Options struct {
	Recipe        *recipe.Recipe        // Recipe to build.
	Architectures []recipe.Architecture // Requested architectures; declared or host if empty.
	Output        string                // Output path, see the package documentation.
	OutputDir     string                // Default output directory, [paths.Packages] if empty.
	Jobs          int                   // Concurrent jobs, see [internal.EffectiveJobs].
	SigningKey    []byte                // Ed25519 seed; packages are unsigned if nil.
	KeepFailed    bool                  // Keep workspaces of failed jobs.
	FailedDir     string                // Where kept workspaces go, [paths.Failed] if empty.
	Resolver      *source.Resolver      // Source resolver, a default one if nil.
	Runtime       *runtime.Runtime      // Script runtime, a default one if nil.
	ScriptOutput  io.Writer             // Live copy of build script output, may be nil.
}

// Builds a recipe for every target architecture.
//
// Setup failures, that is an unsupported architecture, an unusable output
// path or an unresolvable source, abort before any job starts and are
// returned as the error. Job failures are recorded per architecture in the
// returned [Report] instead; use [Report.Err] to aggregate them.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Recipe == nil {
		return nil, fault.Wrapf(ErrBuild, "no recipe")
	}
	opts = withDefaults(opts)

	archs, err := SelectArchitectures(opts.Recipe, opts.Architectures)
	if err != nil {
		return nil, err
	}

	outputs, err := ResolveOutputs(opts.Output, opts.OutputDir, opts.Recipe, archs)
	if err != nil {
		return nil, err
	}

	slog.Info("building recipe",
		"package", opts.Recipe.ID(),
		"architectures", archs,
		"jobs", internal.EffectiveJobs(opts.Jobs),
		"signed", opts.SigningKey != nil,
	)

	src, err := opts.Resolver.Resolve(ctx, opts.Recipe.Source, opts.Recipe.Hash)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if !src.Verified {
		slog.Warn("source is unverified", "package", opts.Recipe.ID(), "digest", src.Digest)
	}

	report := &Report{
		Recipe:         opts.Recipe.ID(),
		SourceDigest:   src.Digest,
		SourceVerified: src.Verified,
	}
	report.Results = newOrchestrator(opts, src).run(ctx, archs, outputs)

	return report, nil
}

// Fills in the optional fields of opts.
func withDefaults(opts Options) Options {
	if opts.OutputDir == "" {
		opts.OutputDir = paths.Packages()
	}
	if opts.FailedDir == "" {
		opts.FailedDir = paths.Failed()
	}
	if opts.Resolver == nil {
		opts.Resolver = source.NewResolver(source.Options{})
	}
	if opts.Runtime == nil {
		opts.Runtime = runtime.New(runtime.Options{Base: paths.Work()})
	}
	return opts
}

// Returns the architectures to build.
//
// Requested architectures win, deduplicated in request order; when the
// recipe declares architectures, each requested one must be among them.
// Otherwise the declared architectures are used, and failing that the host
// architecture.
func SelectArchitectures(r *recipe.Recipe, requested []recipe.Architecture) ([]recipe.Architecture, error) {
	if len(requested) == 0 {
		if len(r.Architectures) > 0 {
			return slices.Clone(r.Architectures), nil
		}
		host, err := recipe.HostArchitecture()
		if err != nil {
			return nil, fault.Wrap(ErrUnsupportedArchitecture, err)
		}
		return []recipe.Architecture{host}, nil
	}

	var archs []recipe.Architecture
	var unsupported *multierror.Error
	for _, a := range requested {
		if slices.Contains(archs, a) {
			continue
		}
		switch {
		case !a.Valid():
			unsupported = multierror.Append(unsupported, fault.Wrapf(recipe.ErrInvalidArchitecture, "%q", a))
		case len(r.Architectures) > 0 && !r.Supports(a):
			unsupported = multierror.Append(unsupported, fault.Wrapf(ErrUnsupportedArchitecture, "%s is not declared by %s", a, r.ID()))
		}
		archs = append(archs, a)
	}

	if err := unsupported.ErrorOrNil(); err != nil {
		return nil, err
	}
	return archs, nil
}
