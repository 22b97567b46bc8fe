package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/opencontainers/go-digest"
)

// Type of a payload entry.
type Kind uint8

const (
	KindFile    Kind = iota + 1 // Regular file.
	KindDir                     // Directory.
	KindSymlink                 // Symbolic link.
)

// Returns the manifest name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	}
	return "unknown"
}

// Permission bits recorded for symbolic links, which have no meaningful mode
// of their own.
const symlinkMode fs.FileMode = 0777

// A single payload entry.
type Entry struct {
	Path     string        // Slash-separated path relative to the install root.
	Kind     Kind          // Entry type.
	Mode     fs.FileMode   // Permission bits.
	Size     int64         // Content size, zero for directories and links.
	Linkname string        // Target of a symbolic link.
	Digest   digest.Digest // Content digest of a regular file.
}

// Scans the tree under root in lexical order.
//
// Regular files are hashed. Sockets, devices and named pipes cannot be
// represented in a package and fail with [ErrUnsupportedEntry]. The root
// itself is not included.
func scanTree(root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		e, err := scanEntry(p, filepath.ToSlash(rel), info)
		if err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		if fault.Kind(err, ErrUnsupportedEntry) != nil {
			return nil, err
		}
		return nil, fault.Wrap(ErrIO, err)
	}

	return entries, nil
}

// Builds the entry for one filesystem object.
func scanEntry(p, rel string, info fs.FileInfo) (Entry, error) {
	e := Entry{Path: rel, Mode: info.Mode().Perm()}

	switch {
	case info.Mode().IsRegular():
		f, err := os.Open(p)
		if err != nil {
			return Entry{}, err
		}
		defer f.Close()

		dgst, err := digest.Canonical.FromReader(f)
		if err != nil {
			return Entry{}, err
		}
		e.Kind = KindFile
		e.Size = info.Size()
		e.Digest = dgst

	case info.IsDir():
		e.Kind = KindDir

	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(p)
		if err != nil {
			return Entry{}, err
		}
		e.Kind = KindSymlink
		e.Mode = symlinkMode
		e.Linkname = target

	default:
		return Entry{}, fault.Wrapf(ErrUnsupportedEntry, "%s: %s", rel, info.Mode().Type())
	}

	return e, nil
}

// Computes the content digest of a list of entries.
//
// The digest covers a canonical manifest with one line per entry, in the
// order given: kind, octal mode, size, content digest or quoted link target,
// and quoted path. Timestamps and ownership are not part of the manifest.
func contentDigest(entries []Entry) digest.Digest {
	d := digest.Canonical.Digester()
	for _, e := range entries {
		writeManifestLine(d.Hash(), e)
	}
	return d.Digest()
}

// Writes the manifest line for e.
func writeManifestLine(w io.Writer, e Entry) {
	ref := "-"
	switch e.Kind {
	case KindFile:
		ref = e.Digest.String()
	case KindSymlink:
		ref = strconv.Quote(e.Linkname)
	}
	fmt.Fprintf(w, "%s %04o %d %s %s\n", e.Kind, uint32(e.Mode.Perm()), e.Size, ref, strconv.Quote(e.Path))
}

// Returns the paths of all non-directory entries.
func fileList(entries []Entry) []string {
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Kind != KindDir {
			files = append(files, e.Path)
		}
	}
	return files
}

// Cleans an archive entry name into a relative slash path.
//
// Absolute names and names with ".." components are rejected with
// [ErrPathTraversal]. Returns "" for names that refer to the root itself.
func cleanName(name string) (string, error) {
	name = strings.TrimSuffix(name, "/")
	if name == "" || name == "." {
		return "", nil
	}
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) || filepath.IsAbs(name) {
		return "", fault.Wrapf(ErrPathTraversal, "absolute entry %q", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", fault.Wrapf(ErrPathTraversal, "entry %q", name)
		}
	}
	return path.Clean(name), nil
}
