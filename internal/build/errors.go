package build

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cruciblehq/paxbuild/internal/recipe"
)

var (
	ErrBuild                   = errors.New("build failed")
	ErrSetupFailed             = errors.New("build setup failed")
	ErrScriptFailed            = errors.New("build script failed")
	ErrFileSystemOperation     = errors.New("file system operation failed")
	ErrUnsupportedArchitecture = errors.New("architecture not supported by recipe")
)

// Reports a build script that exited with a non-zero code.
type ScriptError struct {
	Arch     recipe.Architecture // Architecture being built.
	ExitCode int                 // Exact exit code of the script.
	Stderr   string              // Tail of the script's standard error.
}

// Returns a message with the exit code and the last line of stderr.
func (e *ScriptError) Error() string {
	msg := fmt.Sprintf("%s for %s with exit code %d", ErrScriptFailed, e.Arch, e.ExitCode)
	if line := lastLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

// Matches [ErrScriptFailed].
func (e *ScriptError) Is(target error) bool {
	return target == ErrScriptFailed
}

// Returns the last non-empty line of s.
func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
