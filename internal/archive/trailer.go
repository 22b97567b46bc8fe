package archive

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/signing"
)

// Marks the end of a signed package.
var trailerMagic = []byte("PAXSIG\x00\x01")

// Size of the fixed trailer tail: block length plus magic.
var trailerTail = 4 + len(trailerMagic)

// Appends the signature trailer for sig to w.
func WriteTrailer(w io.Writer, sig *signing.Signature) error {
	block, err := sig.MarshalBinary()
	if err != nil {
		return fault.Wrap(ErrSerialization, err)
	}

	buf := make([]byte, 0, len(block)+trailerTail)
	buf = append(buf, block...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(block)))
	buf = append(buf, trailerMagic...)

	if _, err := w.Write(buf); err != nil {
		return fault.Wrap(ErrIO, err)
	}
	return nil
}

// Locates the signature trailer of a package of the given size.
//
// Returns the size of the unsigned body and the signature, or the full size
// and a nil signature when the package is unsigned. A trailer whose magic is
// present but whose block is malformed is an error, never silently treated
// as unsigned.
func SplitTrailer(r io.ReaderAt, size int64) (int64, *signing.Signature, error) {
	if size < int64(trailerTail) {
		return size, nil, nil
	}

	tail := make([]byte, trailerTail)
	if _, err := r.ReadAt(tail, size-int64(trailerTail)); err != nil {
		return 0, nil, fault.Wrap(ErrIO, err)
	}
	if !bytes.Equal(tail[4:], trailerMagic) {
		return size, nil, nil
	}

	n := int64(binary.BigEndian.Uint32(tail[:4]))
	if n == 0 || n > signing.MaxEncodedSize || n > size-int64(trailerTail) {
		return 0, nil, fault.Wrapf(signing.ErrBadSignatureFormat, "signature block length %d", n)
	}

	body := size - int64(trailerTail) - n
	block := make([]byte, n)
	if _, err := r.ReadAt(block, body); err != nil {
		return 0, nil, fault.Wrap(ErrIO, err)
	}

	sig, err := signing.ParseSignature(block)
	if err != nil {
		return 0, nil, err
	}

	return body, sig, nil
}
