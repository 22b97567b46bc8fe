package archive

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/paths"
	"github.com/cruciblehq/paxbuild/internal/signing"
)

// Produces a signature over an unsigned package body.
type SignFunc func(body io.Reader) (*signing.Signature, error)

// Returns a [SignFunc] that signs with a 32-byte Ed25519 seed.
func SignWithSeed(seed []byte) SignFunc {
	return func(body io.Reader) (*signing.Signature, error) {
		return signing.Sign(body, seed)
	}
}

// Assembles the tree under root into a package file at path.
//
// The package is written to a temporary file in the destination directory,
// signed when sign is non-nil, synced and renamed into place. Nothing is left
// at path, or next to it, when any step fails. The destination directory must
// exist.
func AssembleFile(path, root string, meta Metadata, sign SignFunc) (*Assembled, *signing.Signature, error) {
	var (
		asm *Assembled
		sig *signing.Signature
	)

	err := writeAtomic(path, func(f *os.File) error {
		var err error
		if asm, err = Assemble(f, root, meta); err != nil {
			return err
		}
		if sign == nil {
			return nil
		}
		if sig, err = sign(io.NewSectionReader(f, 0, asm.Size)); err != nil {
			return err
		}
		return WriteTrailer(f, sig)
	})
	if err != nil {
		return nil, nil, err
	}

	return asm, sig, nil
}

// Writes a signed copy of the package at src to dst.
//
// Any existing trailer is stripped first, so re-signing replaces the old
// signature instead of stacking a second one. src and dst may be the same
// path.
func SignFile(src, dst string, sign SignFunc) (*signing.Signature, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, fault.Wrap(ErrIO, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return nil, fault.Wrap(ErrIO, err)
	}

	bodySize, _, err := SplitTrailer(in, info.Size())
	if err != nil {
		return nil, err
	}
	if err := checkBody(io.NewSectionReader(in, 0, bodySize)); err != nil {
		return nil, err
	}

	sig, err := sign(io.NewSectionReader(in, 0, bodySize))
	if err != nil {
		return nil, err
	}

	err = writeAtomic(dst, func(f *os.File) error {
		if _, err := io.Copy(f, io.NewSectionReader(in, 0, bodySize)); err != nil {
			return fault.Wrap(ErrIO, err)
		}
		return WriteTrailer(f, sig)
	})
	if err != nil {
		return nil, err
	}

	return sig, nil
}

// Writes a detached signature file for sig at path.
func WriteSignatureFile(path string, sig *signing.Signature) error {
	data, err := sig.MarshalBinary()
	if err != nil {
		return fault.Wrap(ErrSerialization, err)
	}
	return writeAtomic(path, func(f *os.File) error {
		if _, err := f.Write(data); err != nil {
			return fault.Wrap(ErrIO, err)
		}
		return nil
	})
}

// Reads a detached signature file.
func ReadSignatureFile(path string) (*signing.Signature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.Wrap(ErrIO, err)
	}
	defer f.Close()
	return signing.ReadSignature(f)
}

// Returns the default detached signature path for a package.
func SignaturePath(pkg string) string {
	return pkg + ".sig"
}

// Creates path through a temporary sibling file.
//
// fn writes the content. On success the file is synced, given the default
// file mode and renamed over path; on failure the temporary file is removed.
func writeAtomic(path string, fn func(f *os.File) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fault.Wrap(ErrIO, err)
	}
	tmp := f.Name()

	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if err = fn(f); err != nil {
		return err
	}
	if err = f.Chmod(paths.DefaultFileMode); err != nil {
		return fault.Wrap(ErrIO, err)
	}
	if err = f.Sync(); err != nil {
		return fault.Wrap(ErrIO, err)
	}
	if err = f.Close(); err != nil {
		return fault.Wrap(ErrIO, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fault.Wrap(ErrIO, err)
	}
	return nil
}
