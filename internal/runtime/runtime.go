package runtime

import (
	"os"
)

const (

	// Shell used when none is configured.
	DefaultShell = "/bin/sh"
)

// Host variables passed through to scripts when none are configured.
var DefaultPassEnv = []string{"PATH", "PKG_CONFIG_PATH", "ACLOCAL_PATH"}

// Options for [New].
type Options struct {
	Base    string   // Parent directory of workspaces.
	Shell   string   // Shell that runs scripts, [DefaultShell] if empty.
	PassEnv []string // Host variables passed to scripts, [DefaultPassEnv] if nil.
}

// Creates workspaces and runs scripts with a fixed shell and environment
// policy.
type Runtime struct {
	base    string   // Parent directory of workspaces.
	shell   string   // Shell that runs scripts.
	passEnv []string // Host variables passed to scripts.
}

// Creates a runtime from opts.
func New(opts Options) *Runtime {
	shell := opts.Shell
	if shell == "" {
		shell = DefaultShell
	}

	pass := opts.PassEnv
	if pass == nil {
		pass = DefaultPassEnv
	}

	return &Runtime{
		base:    opts.Base,
		shell:   shell,
		passEnv: append([]string(nil), pass...),
	}
}

// Creates a fresh workspace under the runtime's base directory.
//
// The prefix appears in the directory name to make retained workspaces easy
// to identify.
func (rt *Runtime) NewWorkspace(prefix string) (*Workspace, error) {
	ws, err := NewWorkspace(rt.base, prefix)
	if err != nil {
		return nil, err
	}
	ws.shell = rt.shell
	return ws, nil
}

// Returns the shell used to run scripts.
func (rt *Runtime) Shell() string {
	return rt.shell
}

// Builds a script environment from explicit "KEY=value" entries and the
// passthrough allowlist.
//
// Allowlisted variables are read from the host; explicit entries override
// them. The result is sorted.
func (rt *Runtime) Environ(vars []string) []string {
	return Environ(vars, rt.passEnv, os.LookupEnv)
}
