package internal

import (
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v11"
)

// Prefix of environment variables read by [LoadSettings].
const envPrefix = "PAXBUILD_"

var (
	quietMode   atomic.Bool // Indicates whether quiet mode is enabled.
	debugMode   atomic.Bool // Indicates whether debug logging is enabled.
	verboseMode atomic.Bool // Indicates whether verbose logging is enabled.
)

// Parses the linker flags into the run mode switches.
func init() {
	if v, err := strconv.ParseBool(rawQuiet); err == nil {
		quietMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawDebug); err == nil {
		debugMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawVerbose); err == nil {
		verboseMode.Store(v)
	}
}

// Enables or disables quiet mode.
func SetQuiet(enabled bool) {
	quietMode.Store(enabled)
}

// Returns true if quiet mode is enabled.
func IsQuiet() bool {
	return quietMode.Load()
}

// Enables or disables debug mode.
func SetDebug(enabled bool) {
	debugMode.Store(enabled)
}

// Returns true if debug mode is enabled.
func IsDebug() bool {
	return debugMode.Load()
}

// Enables or disables verbose logging.
func SetVerbose(enabled bool) {
	verboseMode.Store(enabled)
}

// Returns true if verbose logging is enabled.
func IsVerbose() bool {
	return verboseMode.Load()
}

// Pipeline settings read from PAXBUILD_* environment variables.
//
// Command-line flags take precedence; a zero value means "not set" and the
// consumer falls back to its own default.
type Settings struct {

	// Maximum concurrent architecture jobs.
	Jobs int `env:"JOBS"`

	// Parent of per-job working trees.
	WorkDir string `env:"WORK_DIR"`

	// Default package directory.
	OutputDir string `env:"OUTPUT_DIR"`

	// Retain working trees of failed jobs.
	KeepFailed bool `env:"KEEP_FAILED"`

	// Shell that runs build scripts.
	Shell string `env:"SHELL" envDefault:"/bin/sh"`

	// Host variables passed to builds.
	PassEnv []string `env:"PASS_ENV" envSeparator:"," envDefault:"PATH,PKG_CONFIG_PATH,ACLOCAL_PATH"`

	// Timeout for HTTP source and recipe downloads.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10m"`

	// Region for s3:// sources.
	S3Region string `env:"S3_REGION"`

	// Custom endpoint for s3:// sources.
	S3Endpoint string `env:"S3_ENDPOINT"`

	// Use path-style S3 addressing.
	S3PathStyle bool `env:"S3_PATH_STYLE"`
}

// Reads [Settings] from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Prefix: envPrefix}); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Returns the effective job limit: n when positive, otherwise the number of
// CPUs available to the process.
func EffectiveJobs(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU()
}
