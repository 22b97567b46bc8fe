package runtime

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"github.com/cruciblehq/paxbuild/internal/fault"
)

const (

	// Bytes of each output stream kept in an [ExecResult].
	outputTail = 64 << 10

	// Time allowed for output pipes to drain after a cancelled process is
	// killed.
	waitDelay = 5 * time.Second
)

// Parameters of a script execution.
type ExecSpec struct {
	Shell  string    // Shell binary, [DefaultShell] if empty.
	Script string    // Script passed to "shell -c".
	Dir    string    // Working directory.
	Env    []string  // Complete environment; nil means an empty environment.
	Stdout io.Writer // Optional live copy of standard output.
	Stderr io.Writer // Optional live copy of standard error.
}

// Output of a script execution.
type ExecResult struct {
	ExitCode int    // Exit code of the process, 128+signal if it was killed.
	Stdout   string // Last 64 KiB of standard output.
	Stderr   string // Last 64 KiB of standard error.
}

// Runs a script and waits for it to exit.
//
// The script is passed to the shell as a single argument via "shell -c
// script" and runs in its own process group with exactly spec.Env as its
// environment. A non-zero exit code is not treated as an error; the caller
// decides. When ctx is cancelled the whole process group is killed and
// [ErrCancelled] is returned.
func Exec(ctx context.Context, spec ExecSpec) (*ExecResult, error) {
	shell := spec.Shell
	if shell == "" {
		shell = DefaultShell
	}

	env := spec.Env
	if env == nil {
		env = []string{}
	}

	stdout := newTailBuffer(outputTail)
	stderr := newTailBuffer(outputTail)

	cmd := exec.CommandContext(ctx, shell, "-c", spec.Script)
	cmd.Dir = spec.Dir
	cmd.Env = env
	cmd.Stdout = tee(stdout, spec.Stdout)
	cmd.Stderr = tee(stderr, spec.Stderr)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, fault.Wrap(ErrCancelled, ctx.Err())
	}

	result := &ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitCode(exitErr)
	default:
		return nil, fault.Wrap(ErrRuntime, err)
	}

	return result, nil
}

// Returns a writer copying to both w and extra, or just w when extra is nil.
func tee(w, extra io.Writer) io.Writer {
	if extra == nil {
		return w
	}
	return io.MultiWriter(w, extra)
}
