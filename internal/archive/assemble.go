package archive

import (
	"archive/tar"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
)

// Fixed modification time stamped on every entry.
var epoch = time.Unix(0, 0).UTC()

// Result of assembling a package body.
type Assembled struct {
	Metadata Metadata      // Metadata as embedded, with files and content digest.
	Digest   digest.Digest // Digest of the compressed body.
	Size     int64         // Size of the compressed body in bytes.
}

// Writes the unsigned package body for the tree under root to w.
//
// The tree is scanned first to fill in meta.Files and meta.ContentDigest;
// meta is then embedded as the first entry, followed by every entry of the
// tree. The tree must not change while it is being assembled.
func Assemble(w io.Writer, root string, meta Metadata) (*Assembled, error) {
	entries, err := scanTree(root)
	if err != nil {
		return nil, err
	}

	meta.Format = FormatVersion
	meta.Files = fileList(entries)
	meta.ContentDigest = contentDigest(entries)

	doc, err := meta.Marshal()
	if err != nil {
		return nil, err
	}

	digester := digest.Canonical.Digester()
	counter := &countingWriter{w: io.MultiWriter(w, digester.Hash())}

	zw, err := newEncoder(counter)
	if err != nil {
		return nil, fault.Wrap(ErrIO, err)
	}

	if err := writeTar(zw, root, doc, entries); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fault.Wrap(ErrIO, err)
	}

	slog.Debug("package assembled", "name", meta.Name, "arch", meta.Architecture, "entries", len(entries), "size", counter.n)

	return &Assembled{
		Metadata: meta,
		Digest:   digester.Digest(),
		Size:     counter.n,
	}, nil
}

// Creates the zstd encoder used for package bodies.
//
// A single encoder goroutine at a fixed level keeps the output independent
// of the host's CPU count.
func newEncoder(w io.Writer) (*zstd.Encoder, error) {
	return zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderCRC(true),
	)
}

// Writes the metadata entry and the tree entries as a tar stream.
func writeTar(w io.Writer, root string, doc []byte, entries []Entry) error {
	tw := tar.NewWriter(w)

	hdr := header(Entry{Path: MetadataName, Kind: KindFile, Mode: 0644, Size: int64(len(doc))})
	if err := tw.WriteHeader(hdr); err != nil {
		return fault.Wrap(ErrIO, err)
	}
	if _, err := tw.Write(doc); err != nil {
		return fault.Wrap(ErrIO, err)
	}

	for _, e := range entries {
		if err := writeEntry(tw, root, e); err != nil {
			return fault.Wrap(ErrIO, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fault.Wrap(ErrIO, err)
	}
	return nil
}

// Writes one tree entry, copying file content from disk.
func writeEntry(tw *tar.Writer, root string, e Entry) error {
	if err := tw.WriteHeader(header(e)); err != nil {
		return err
	}
	if e.Kind != KindFile {
		return nil
	}

	f, err := os.Open(filepath.Join(root, filepath.FromSlash(e.Path)))
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.CopyN(tw, f, e.Size)
	return err
}

// Returns the normalized tar header for e.
func header(e Entry) *tar.Header {
	h := &tar.Header{
		Name:    e.Path,
		Mode:    int64(e.Mode.Perm()),
		ModTime: epoch,
	}

	switch e.Kind {
	case KindFile:
		h.Typeflag = tar.TypeReg
		h.Size = e.Size
	case KindDir:
		h.Typeflag = tar.TypeDir
		h.Name += "/"
	case KindSymlink:
		h.Typeflag = tar.TypeSymlink
		h.Linkname = e.Linkname
	}

	return h
}

// Counts bytes passed through to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
