//go:build !unix

package runtime

import "os/exec"

// Process groups are not available; cancellation kills the shell only.
func setProcessGroup(cmd *exec.Cmd) {}

// Returns the exit code of a finished process.
func exitCode(err *exec.ExitError) int {
	return err.ExitCode()
}
