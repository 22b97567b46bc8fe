package source

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Unpacks the archive at archivePath into dest according to format.
//
// dest must exist and be empty.
func extract(archivePath string, format Format, dest string) error {
	root, err := os.OpenRoot(dest)
	if err != nil {
		return fault.Wrap(ErrExtractFailed, err)
	}
	defer root.Close()

	if format == FormatZip {
		return extractZip(archivePath, root)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fault.Wrap(ErrExtractFailed, err)
	}
	defer f.Close()

	r, closeFn, err := decompress(f, format)
	if err != nil {
		return fault.Wrap(ErrUnsupportedArchive, err)
	}
	defer closeFn()

	return extractTar(r, root)
}

// Wraps r in the decompressor for format.
func decompress(r io.Reader, format Format) (io.Reader, func(), error) {
	nop := func() {}

	switch format {
	case FormatTar:
		return r, nop, nil

	case FormatGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil

	case FormatBzip2:
		return bzip2.NewReader(r), nop, nil

	case FormatXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, nop, nil

	case FormatZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	}

	return nil, nil, fault.Wrapf(ErrUnsupportedArchive, "format %q", format)
}

// Unpacks a tar stream below root.
//
// Regular files, directories, symbolic links and hard links are created;
// device nodes, FIFOs and other special entries are skipped. The first header
// must parse, otherwise the stream is not a tar and the archive is
// unsupported.
func extractTar(r io.Reader, root *os.Root) error {
	tr := tar.NewReader(r)

	for first := true; ; first = false {
		hdr, err := tr.Next()
		if err == io.EOF {
			if first {
				return fault.Wrapf(ErrUnsupportedArchive, "empty archive")
			}
			return nil
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			if first {
				return fault.Wrap(ErrUnsupportedArchive, err)
			}
			return fault.Wrap(ErrExtractFailed, err)
		}

		name, err := cleanName(hdr.Name)
		if err != nil {
			return err
		}
		if name == "" {
			continue
		}

		if err := extractTarEntry(root, tr, hdr, name); err != nil {
			return err
		}
	}
}

// Writes one tar entry below root.
func extractTarEntry(root *os.Root, r io.Reader, hdr *tar.Header, name string) error {
	mode := fs.FileMode(hdr.Mode).Perm()

	switch hdr.Typeflag {
	case tar.TypeDir:
		return mkdir(root, name, mode)

	case tar.TypeReg:
		return writeFile(root, name, mode, r)

	case tar.TypeSymlink:
		return symlink(root, hdr.Linkname, name)

	case tar.TypeLink:
		target, err := cleanName(hdr.Linkname)
		if err != nil {
			return err
		}
		if err := mkparent(root, name); err != nil {
			return err
		}
		return rootErr(root.Link(target, name))

	case tar.TypeXGlobalHeader:
		return nil
	}

	slog.Debug("skipping special archive entry", "name", name, "type", string(hdr.Typeflag))
	return nil
}

// Unpacks the zip file at archivePath below root.
func extractZip(archivePath string, root *os.Root) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fault.Wrap(ErrUnsupportedArchive, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		name, err := cleanName(f.Name)
		if err != nil {
			return err
		}
		if name == "" {
			continue
		}

		if err := extractZipEntry(root, f, name); err != nil {
			return err
		}
	}
	return nil
}

// Writes one zip entry below root.
func extractZipEntry(root *os.Root, f *zip.File, name string) error {
	mode := f.Mode()

	if mode.IsDir() {
		return mkdir(root, name, mode.Perm())
	}
	if !mode.IsRegular() && mode&fs.ModeSymlink == 0 {
		slog.Debug("skipping special archive entry", "name", name, "mode", mode.String())
		return nil
	}

	rc, err := f.Open()
	if err != nil {
		return fault.Wrap(ErrExtractFailed, err)
	}
	defer rc.Close()

	if mode&fs.ModeSymlink != 0 {
		target, err := io.ReadAll(io.LimitReader(rc, 4096))
		if err != nil {
			return fault.Wrap(ErrExtractFailed, err)
		}
		return symlink(root, string(target), name)
	}

	return writeFile(root, name, mode.Perm(), rc)
}

// Creates a directory that stays writable by its owner during extraction.
func mkdir(root *os.Root, name string, mode fs.FileMode) error {
	return rootErr(root.MkdirAll(name, mode|0700))
}

// Creates the parent directories of name.
//
// A parent that is a symbolic link pointing outside the tree fails with
// [ErrPathTraversal] instead of the "file exists" error MkdirAll reports.
func mkparent(root *os.Root, name string) error {
	parent := path.Dir(name)
	if parent == "." {
		return nil
	}
	if err := checkParentLinks(root, parent); err != nil {
		return err
	}
	return rootErr(root.MkdirAll(parent, 0755))
}

// Fails if any existing component of dir is a symbolic link whose target
// leaves the tree.
func checkParentLinks(root *os.Root, dir string) error {
	prefix := ""
	for _, part := range strings.Split(dir, "/") {
		prefix = path.Join(prefix, part)

		info, err := root.Lstat(prefix)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return rootErr(err)
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			continue
		}

		target, err := root.Readlink(prefix)
		if err != nil {
			return rootErr(err)
		}
		if escapes(path.Dir(prefix), target) {
			return fault.Wrapf(ErrPathTraversal, "%q resolves through link %q to %q", dir, prefix, target)
		}
	}
	return nil
}

// Reports whether a link target, relative to the link's directory, leaves
// the tree.
func escapes(dir, target string) bool {
	if path.IsAbs(target) {
		return true
	}
	resolved := path.Join(dir, target)
	return resolved == ".." || strings.HasPrefix(resolved, "../")
}

// Writes a regular file with content from r.
func writeFile(root *os.Root, name string, mode fs.FileMode, r io.Reader) error {
	if err := mkparent(root, name); err != nil {
		return err
	}

	f, err := root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode|0600)
	if err != nil {
		return rootErr(err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fault.Wrap(ErrExtractFailed, err)
	}
	return rootErr(f.Close())
}

// Creates a symbolic link, replacing any existing entry of the same name.
func symlink(root *os.Root, target, name string) error {
	if err := mkparent(root, name); err != nil {
		return err
	}
	if err := root.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return rootErr(err)
	}
	return rootErr(root.Symlink(target, name))
}

// Cleans an archive entry name into a relative slash path.
//
// Absolute names and names with ".." components fail with
// [ErrPathTraversal]. Returns "" for the archive root.
func cleanName(name string) (string, error) {
	name = strings.TrimSuffix(name, "/")
	if name == "" || name == "." {
		return "", nil
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) || (len(name) > 1 && name[1] == ':') {
		return "", fault.Wrapf(ErrPathTraversal, "absolute entry %q", name)
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return "", fault.Wrapf(ErrPathTraversal, "entry %q", name)
		}
	}

	clean := path.Clean(name)
	if clean == "." {
		return "", nil
	}
	return clean, nil
}

// Classifies an [os.Root] error, reporting escapes as path traversal.
func rootErr(err error) error {
	if err == nil {
		return nil
	}
	var pe *fs.PathError
	var le *os.LinkError
	switch {
	case errors.As(err, &pe) && pe.Err != nil && pe.Err.Error() == "path escapes from parent":
		return fault.Wrap(ErrPathTraversal, err)
	case errors.As(err, &le) && le.Err != nil && le.Err.Error() == "path escapes from parent":
		return fault.Wrap(ErrPathTraversal, err)
	}
	return fault.Wrap(ErrExtractFailed, err)
}
