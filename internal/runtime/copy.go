package runtime

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Copies the tree rooted at src into dst, which must exist.
//
// Directories are created writable by their owner so builds that work in the
// source tree can do so. Regular files keep their permission bits, symbolic
// links are recreated verbatim, and hard links become independent copies.
// Sockets, devices and named pipes are skipped.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch mode := info.Mode(); {
		case mode.IsDir():
			return os.Mkdir(target, mode.Perm()|0700)

		case mode&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)

		case mode.IsRegular():
			return copyFile(p, target, mode.Perm())
		}

		slog.Debug("skipping special file", "path", p, "mode", info.Mode().String())
		return nil
	})
}

// Copies a single regular file, applying mode regardless of umask.
func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode|0200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, mode)
}
