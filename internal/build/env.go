package build

import (
	"sort"

	"github.com/cruciblehq/paxbuild/internal/recipe"
	"github.com/cruciblehq/paxbuild/internal/runtime"
)

// Variables exposed to build scripts.
const (
	EnvBuildRoot      = "PAX_BUILD_ROOT"      // Install root the script stages files into.
	EnvPackageName    = "PAX_PACKAGE_NAME"    // Recipe name.
	EnvPackageVersion = "PAX_PACKAGE_VERSION" // Recipe version.
	EnvArch           = "PAX_ARCH"            // Target architecture.
	EnvSourceDir      = "PAX_SOURCE_DIR"      // Private copy of the source tree.
	EnvBuildDir       = "PAX_BUILD_DIR"       // Working directory of the script.
)

// Variables a build script sees, apart from the host passthrough allowlist.
type scriptEnv struct {
	vars map[string]string
}

// Creates the script environment for building r on a in ws.
func newScriptEnv(ws *runtime.Workspace, r *recipe.Recipe, a recipe.Architecture) *scriptEnv {
	return &scriptEnv{vars: map[string]string{
		EnvBuildRoot:      ws.Install,
		EnvPackageName:    r.Name,
		EnvPackageVersion: r.Version,
		EnvArch:           a.String(),
		EnvSourceDir:      ws.Source,
		EnvBuildDir:       ws.Build,
	}}
}

// Formats the environment as a sorted list of "key=value" strings.
func (s *scriptEnv) environ() []string {
	env := make([]string, 0, len(s.vars))
	for k, v := range s.vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}
