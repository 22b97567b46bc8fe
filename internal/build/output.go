package build

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/paths"
	"github.com/cruciblehq/paxbuild/internal/recipe"
)

// Returns the package path for each architecture, in order.
//
// Directories the paths need are created. A single-architecture output is
// taken as a file path unless it names an existing directory or ends with a
// path separator. Several architectures always treat output as a directory.
func ResolveOutputs(output, defaultDir string, r *recipe.Recipe, archs []recipe.Architecture) ([]string, error) {
	var dir string
	switch {
	case output == "":
		dir = defaultDir
	case len(archs) == 1 && !isDirectory(output):
		if err := os.MkdirAll(filepath.Dir(output), paths.DefaultDirMode); err != nil {
			return nil, fault.Wrap(ErrFileSystemOperation, err)
		}
		return []string{filepath.Clean(output)}, nil
	default:
		dir = output
	}

	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return nil, fault.Wrap(ErrFileSystemOperation, err)
	}

	outputs := make([]string, len(archs))
	for i, a := range archs {
		outputs[i] = filepath.Join(dir, r.CanonicalFilename(a))
	}
	return outputs, nil
}

// Reports whether path ends with a separator or is an existing directory.
func isDirectory(path string) bool {
	if strings.HasSuffix(path, string(filepath.Separator)) || strings.HasSuffix(path, "/") {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
