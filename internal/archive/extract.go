package archive

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/paths"
)

// Extracts the payload of the package at pkg into dest.
func Extract(pkg, dest string) error {
	p, err := Open(pkg)
	if err != nil {
		return err
	}
	defer p.Close()

	return p.Extract(dest)
}

// Extracts the payload into dest, creating it if needed.
//
// All writes go through an [os.Root] opened at dest, so neither entry names
// nor symbolic links created by earlier entries can place files outside it.
// File and directory modes are re-applied after writing; directory modes are
// applied last so read-only directories can still be populated.
func (p *Package) Extract(dest string) error {
	if err := os.MkdirAll(dest, paths.DefaultDirMode); err != nil {
		return fault.Wrap(ErrIO, err)
	}

	root, err := os.OpenRoot(dest)
	if err != nil {
		return fault.Wrap(ErrIO, err)
	}
	defer root.Close()

	var dirs []Entry
	err = p.Walk(func(e Entry, r io.Reader) error {
		if e.Kind == KindDir {
			dirs = append(dirs, e)
		}
		return extractEntry(root, e, r)
	})
	if err != nil {
		return err
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		if err := root.Chmod(dirs[i].Path, dirs[i].Mode); err != nil {
			return fault.Wrap(ErrIO, err)
		}
	}

	slog.Debug("package extracted", "name", p.Metadata.Name, "dest", dest, "dirs", len(dirs))
	return nil
}

// Writes one entry below root.
func extractEntry(root *os.Root, e Entry, r io.Reader) error {
	if parent := path.Dir(e.Path); parent != "." {
		if err := root.MkdirAll(parent, paths.DefaultDirMode); err != nil {
			return wrapRootErr(err)
		}
	}

	switch e.Kind {
	case KindDir:
		if err := root.MkdirAll(e.Path, paths.DefaultDirMode); err != nil {
			return wrapRootErr(err)
		}

	case KindFile:
		f, err := root.OpenFile(e.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, e.Mode)
		if err != nil {
			return wrapRootErr(err)
		}
		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fault.Wrap(ErrIO, err)
		}
		if err := root.Chmod(e.Path, e.Mode); err != nil {
			return wrapRootErr(err)
		}

	case KindSymlink:
		if err := root.Remove(e.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return wrapRootErr(err)
		}
		if err := root.Symlink(e.Linkname, e.Path); err != nil {
			return wrapRootErr(err)
		}
	}

	return nil
}

// Classifies an [os.Root] error, reporting escapes as path traversal.
func wrapRootErr(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) && pe.Err != nil && pe.Err.Error() == "path escapes from parent" {
		return fault.Wrap(ErrPathTraversal, err)
	}
	return fault.Wrap(ErrIO, err)
}
