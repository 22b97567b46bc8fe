package build

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cruciblehq/paxbuild/internal"
	"github.com/cruciblehq/paxbuild/internal/archive"
	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/recipe"
	"github.com/cruciblehq/paxbuild/internal/runtime"
	"github.com/cruciblehq/paxbuild/internal/source"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Runs architecture jobs for one recipe against one resolved source.
type orchestrator struct {
	recipe     *recipe.Recipe   // Recipe shared read-only by all jobs.
	source     *source.Source   // Resolved source shared read-only by all jobs.
	rt         *runtime.Runtime // Runtime creating job workspaces.
	exec       *Executor        // Executor running build scripts.
	sign       archive.SignFunc // Package signer, nil for unsigned packages.
	jobs       int              // Maximum concurrent jobs.
	keepFailed bool             // Retain workspaces of failed jobs.
	failedDir  string           // Destination of retained workspaces.
}

// Creates a new orchestrator.
func newOrchestrator(opts Options, src *source.Source) *orchestrator {
	o := &orchestrator{
		recipe:     opts.Recipe,
		source:     src,
		rt:         opts.Runtime,
		exec:       NewExecutor(opts.Runtime, opts.ScriptOutput),
		jobs:       internal.EffectiveJobs(opts.Jobs),
		keepFailed: opts.KeepFailed,
		failedDir:  opts.FailedDir,
	}
	if opts.SigningKey != nil {
		o.sign = archive.SignWithSeed(opts.SigningKey)
	}
	return o
}

// Runs one job per architecture and returns their results in order.
//
// Jobs never report errors to the group, so a failure leaves its siblings
// running.
func (o *orchestrator) run(ctx context.Context, archs []recipe.Architecture, outputs []string) []Result {
	results := make([]Result, len(archs))

	var g errgroup.Group
	g.SetLimit(o.jobs)
	for i, a := range archs {
		g.Go(func() error {
			results[i] = o.job(ctx, a, outputs[i])
			return nil
		})
	}
	g.Wait()

	return results
}

// Builds and packages one architecture.
func (o *orchestrator) job(ctx context.Context, a recipe.Architecture, output string) (res Result) {
	res = Result{Arch: a, Path: output}

	if err := ctx.Err(); err != nil {
		res.Err = fault.Wrap(runtime.ErrCancelled, err)
		return res
	}

	id := uuid.NewString()
	log := slog.With("job", id, "package", o.recipe.ID(), "arch", a)
	log.Info("starting build job", "output", output)

	ws, err := o.rt.NewWorkspace(fmt.Sprintf("%s-%s", o.recipe.ID(), a))
	if err != nil {
		res.Err = fault.Wrap(ErrSetupFailed, err)
		return res
	}
	defer func() {
		res.Kept = o.cleanup(log, ws, res.Err != nil)
	}()

	staged, err := o.exec.Execute(ctx, ws, o.recipe, a, o.source.Dir)
	if err != nil {
		res.Err = err
		log.Error("build job failed", "error", err)
		return res
	}

	asm, sig, err := archive.AssembleFile(output, staged.Root, archive.NewMetadata(o.recipe, a), o.sign)
	if err != nil {
		res.Err = err
		log.Error("packaging failed", "error", err)
		return res
	}

	res.Digest = asm.Digest
	res.ContentDigest = asm.Metadata.ContentDigest
	res.Size = asm.Size
	res.Signed = sig != nil

	log.Info("build job finished", "path", output, "digest", asm.Digest, "files", len(asm.Metadata.Files))
	return res
}

// Removes the workspace, or moves it aside when the job failed and failed
// workspaces are kept. Returns the retained path, if any.
func (o *orchestrator) cleanup(log *slog.Logger, ws *runtime.Workspace, failed bool) string {
	if failed && o.keepFailed {
		kept, err := ws.Keep(o.failedDir)
		if err == nil {
			return kept
		}
		log.Warn("failed to keep workspace", "error", err)
	}

	if err := ws.Destroy(); err != nil {
		log.Warn("failed to remove workspace", "path", ws.Root, "error", err)
	}
	return ""
}
