package build

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/recipe"
	"github.com/cruciblehq/paxbuild/internal/runtime"
)

// Install root produced by a successful build script.
//
// The tree is owned by the job that produced it and must not change once it
// is handed to the assembler.
type StagedTree struct {
	Root string              // Install root directory.
	Arch recipe.Architecture // Architecture the tree was built for.
}

// Runs recipe build scripts inside workspaces.
type Executor struct {
	rt     *runtime.Runtime // Runtime providing the shell and passthrough policy.
	output io.Writer        // Live copy of script output, may be nil.
}

// Creates a new executor.
//
// When output is non-nil, script output is copied to it as it is produced.
// Jobs running in parallel share the writer, so writes are serialized.
func NewExecutor(rt *runtime.Runtime, output io.Writer) *Executor {
	if output != nil {
		output = &lockedWriter{w: output}
	}
	return &Executor{rt: rt, output: output}
}

// Builds r for architecture a in ws.
//
// The source tree at sourceDir is copied into the workspace, then the build
// script runs in the build directory with the PAX_* variables and the
// runtime's passthrough allowlist as its only environment. A non-zero exit
// fails with a [ScriptError] carrying the exact exit code. The workspace is
// left for the caller to clean up.
func (e *Executor) Execute(ctx context.Context, ws *runtime.Workspace, r *recipe.Recipe, a recipe.Architecture, sourceDir string) (*StagedTree, error) {
	if err := ws.CopyIn(sourceDir); err != nil {
		return nil, fault.Wrap(ErrSetupFailed, err)
	}

	env := e.rt.Environ(newScriptEnv(ws, r, a).environ())

	slog.Debug("running build script", "package", r.ID(), "arch", a, "workspace", ws.Root)

	result, err := ws.Exec(ctx, r.BuildScript(), env, e.output)
	if err != nil {
		if fault.Kind(err, runtime.ErrCancelled) != nil {
			return nil, fault.Wrap(ErrBuild, err)
		}
		return nil, fault.Wrap(ErrSetupFailed, err)
	}

	if result.ExitCode != 0 {
		slog.Debug("build script output", "arch", a, "stdout", result.Stdout, "stderr", result.Stderr)
		return nil, &ScriptError{Arch: a, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}

	return &StagedTree{Root: ws.Install, Arch: a}, nil
}

// Serializes writes to a shared writer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// Writes p while holding the lock.
func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
