package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/signing"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
)

// Frame magic at the start of every zstd stream.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// An opened package.
//
// Only the metadata is decoded when the package is opened; the payload is
// decompressed on demand by [Package.Walk], [Package.Verify] and
// [Package.Extract].
type Package struct {
	Metadata  *Metadata         // Decoded metadata document.
	Signature *signing.Signature // Embedded signature, nil when unsigned.

	raw      []byte      // Metadata document as stored.
	r        io.ReaderAt // Package bytes.
	size     int64       // Total package size including any trailer.
	bodySize int64       // Size of the unsigned body.
	closer   io.Closer   // Closes the underlying file, may be nil.
}

// Opens the package file at path.
//
// The caller must close the returned package.
func Open(path string) (*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.Wrap(ErrIO, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fault.Wrap(ErrIO, err)
	}

	p, err := Read(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}

	p.closer = f
	return p, nil
}

// Reads a package of the given size from r.
//
// Fails with [ErrNotAPackage] when the bytes are not a package body,
// [ErrCorruptMetadata] when the metadata entry cannot be decoded and
// [ErrTruncatedArchive] when the stream ends inside the metadata.
func Read(r io.ReaderAt, size int64) (*Package, error) {
	bodySize, sig, err := SplitTrailer(r, size)
	if err != nil {
		return nil, err
	}

	raw, meta, err := readMetadata(io.NewSectionReader(r, 0, bodySize))
	if err != nil {
		return nil, err
	}

	return &Package{
		Metadata:  meta,
		Signature: sig,
		raw:       raw,
		r:         r,
		size:      size,
		bodySize:  bodySize,
	}, nil
}

// Releases the underlying file.
func (p *Package) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// Returns a reader over the unsigned body, the bytes a signature covers.
func (p *Package) Body() *io.SectionReader {
	return io.NewSectionReader(p.r, 0, p.bodySize)
}

// Returns the digest of the unsigned body.
func (p *Package) BodyDigest() (digest.Digest, error) {
	d, err := digest.Canonical.FromReader(p.Body())
	if err != nil {
		return "", fault.Wrap(ErrIO, err)
	}
	return d, nil
}

// Returns the total size of the package, including any signature trailer.
func (p *Package) Size() int64 {
	return p.size
}

// Returns true if the package carries an embedded signature.
func (p *Package) Signed() bool {
	return p.Signature != nil
}

// Returns a copy of the metadata document exactly as stored.
func (p *Package) RawMetadata() []byte {
	return bytes.Clone(p.raw)
}

// Streams the payload entries in archive order.
//
// fn receives each entry and a reader over its content, which it may leave
// unread. Entry names that are absolute or contain ".." fail with
// [ErrPathTraversal] before fn sees them. Returns the first error from fn
// or from decoding.
func (p *Package) Walk(fn func(e Entry, r io.Reader) error) error {
	zr, err := zstd.NewReader(p.Body(), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return fault.Wrap(ErrCorruptPayload, err)
	}
	defer zr.Close()

	tr := tar.NewReader(payloadReader{zr})
	if _, err := tr.Next(); err != nil {
		return classify(err)
	}

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return fault.Wrapf(ErrPathTraversal, "entry %q", hdr.Name)
		}
		if err != nil {
			return classify(err)
		}

		e, err := entryFromHeader(hdr)
		if err != nil {
			return err
		}
		if err := fn(e, tr); err != nil {
			return err
		}
	}

	// Drain the rest of the frame so trailing corruption and the frame
	// checksum are checked.
	if _, err := io.Copy(io.Discard, payloadReader{zr}); err != nil {
		return err
	}
	return nil
}

// Recomputes the content digest of the payload and compares it with the
// digest recorded in the metadata.
func (p *Package) Verify() error {
	var entries []Entry
	err := p.Walk(func(e Entry, r io.Reader) error {
		if e.Kind == KindFile {
			d, err := digest.Canonical.FromReader(r)
			if err != nil {
				return err
			}
			e.Digest = d
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return err
	}

	if got := contentDigest(entries); got != p.Metadata.ContentDigest {
		return fault.Wrapf(ErrDigestMismatch, "payload digests to %s, metadata records %s", got, p.Metadata.ContentDigest)
	}
	return nil
}

// Verifies the embedded signature, or sig when non-nil, against pub.
//
// Fails with [signing.ErrSignatureMismatch] when the signature does not
// cover the body, and with [signing.ErrBadSignatureFormat] when there is no
// signature to check.
func (p *Package) VerifySignature(sig *signing.Signature, pub []byte) error {
	if sig == nil {
		sig = p.Signature
	}
	if sig == nil {
		return fault.Wrapf(signing.ErrBadSignatureFormat, "package is unsigned")
	}

	ok, err := signing.Verify(p.Body(), sig, pub)
	if err != nil {
		return err
	}
	if !ok {
		return fault.Wrapf(signing.ErrSignatureMismatch, "signature does not match %s-%s", p.Metadata.Name, p.Metadata.Version)
	}
	return nil
}

// Decodes the metadata entry at the start of a package body.
func readMetadata(body io.Reader) ([]byte, *Metadata, error) {
	magic := make([]byte, len(zstdMagic))
	if _, err := io.ReadFull(body, magic); err != nil || !bytes.Equal(magic, zstdMagic) {
		return nil, nil, fault.Wrapf(ErrNotAPackage, "missing zstd frame header")
	}

	zr, err := zstd.NewReader(io.MultiReader(bytes.NewReader(magic), body), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, nil, fault.Wrap(ErrNotAPackage, err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	hdr, err := tr.Next()
	if err != nil {
		if isTruncation(err) {
			return nil, nil, fault.Wrap(ErrTruncatedArchive, err)
		}
		return nil, nil, fault.Wrap(ErrNotAPackage, err)
	}
	if hdr.Name != MetadataName || hdr.Typeflag != tar.TypeReg {
		return nil, nil, fault.Wrapf(ErrNotAPackage, "first entry is %q, want %q", hdr.Name, MetadataName)
	}
	if hdr.Size > maxMetadataSize {
		return nil, nil, fault.Wrapf(ErrCorruptMetadata, "metadata is %d bytes", hdr.Size)
	}

	raw, err := io.ReadAll(tr)
	if err != nil {
		if isTruncation(err) {
			return nil, nil, fault.Wrap(ErrTruncatedArchive, err)
		}
		return nil, nil, fault.Wrap(ErrCorruptMetadata, err)
	}

	meta, err := ParseMetadata(raw)
	if err != nil {
		return nil, nil, err
	}

	return raw, meta, nil
}

// Checks that r starts with a readable package body.
func checkBody(r io.Reader) error {
	_, _, err := readMetadata(r)
	return err
}

// Converts a tar header into a payload entry.
func entryFromHeader(hdr *tar.Header) (Entry, error) {
	name, err := cleanName(hdr.Name)
	if err != nil {
		return Entry{}, err
	}
	if name == "" {
		return Entry{}, fault.Wrapf(ErrCorruptPayload, "empty entry name")
	}

	e := Entry{Path: name, Mode: os.FileMode(hdr.Mode).Perm()}
	switch hdr.Typeflag {
	case tar.TypeReg:
		e.Kind = KindFile
		e.Size = hdr.Size
	case tar.TypeDir:
		e.Kind = KindDir
	case tar.TypeSymlink:
		e.Kind = KindSymlink
		e.Mode = symlinkMode
		e.Linkname = hdr.Linkname
	default:
		return Entry{}, fault.Wrapf(ErrCorruptPayload, "%s: unexpected entry type %q", name, hdr.Typeflag)
	}

	return e, nil
}

// Tags payload decoding errors.
type payloadReader struct {
	r io.Reader
}

func (p payloadReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if err != nil && err != io.EOF {
		err = classify(err)
	}
	return n, err
}

// Maps a payload decoding error to its kind.
func classify(err error) error {
	if fault.Kind(err, ErrTruncatedArchive, ErrCorruptPayload) != nil {
		return err
	}
	if isTruncation(err) {
		return fault.Wrap(ErrTruncatedArchive, err)
	}
	return fault.Wrap(ErrCorruptPayload, err)
}

// Returns true if err means the stream ended early.
func isTruncation(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF
}
