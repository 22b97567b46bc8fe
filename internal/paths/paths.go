package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory naming.
	appName = "paxbuild"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Base directory for cached data.
//
//	Linux:   $XDG_CACHE_HOME/paxbuild or ~/.cache/paxbuild
//	macOS:   ~/Library/Caches/paxbuild
func Cache() string {
	return filepath.Join(xdg.CacheHome, appName)
}

// Default directory for built packages when no output path is given.
//
//	Linux:   $XDG_CACHE_HOME/paxbuild/packages
//	macOS:   ~/Library/Caches/paxbuild/packages
func Packages() string {
	return filepath.Join(Cache(), "packages")
}

// Default parent of per-job working trees and fetched sources.
//
//	Linux:   $XDG_CACHE_HOME/paxbuild/work
//	macOS:   ~/Library/Caches/paxbuild/work
func Work() string {
	return filepath.Join(Cache(), "work")
}

// Directory for retained working trees of failed builds.
//
//	Linux:   $XDG_STATE_HOME/paxbuild/failed or ~/.local/state/paxbuild/failed
//	macOS:   ~/Library/Application Support/paxbuild/failed
func Failed() string {
	return filepath.Join(xdg.StateHome, appName, "failed")
}
