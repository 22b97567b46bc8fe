package signing

import (
	"crypto/ed25519"
	_ "crypto/sha256"
	"io"
	"sync"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/fxamacker/cbor/v2"
	"github.com/opencontainers/go-digest"
)

const (

	// Digest algorithm covering the package body.
	Algorithm = digest.SHA256

	// Upper bound on an encoded signature block. An Ed25519 signature with a
	// short algorithm tag encodes to under 100 bytes.
	MaxEncodedSize = 512
)

// Signature over a package body.
type Signature struct {
	Algorithm digest.Algorithm // Digest algorithm the signature covers.
	Value     []byte           // Raw 64-byte Ed25519 signature.
}

// Wire form of a [Signature].
type wireSignature struct {
	Alg string `cbor:"alg"`
	Sig []byte `cbor:"sig"`
}

var (
	modesOnce sync.Once
	encMode   cbor.EncMode
	decMode   cbor.DecMode
)

// Builds the shared CBOR modes on first use.
//
// Encoding uses Core Deterministic Encoding. Decoding rejects duplicate map
// keys so that a crafted block cannot carry two competing signatures.
func modes() (cbor.EncMode, cbor.DecMode) {
	modesOnce.Do(func() {
		var err error
		encMode, err = cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			panic("signing: cbor encoder: " + err.Error())
		}
		decMode, err = cbor.DecOptions{
			DupMapKey:   cbor.DupMapKeyEnforcedAPF,
			MaxMapPairs: 16,
		}.DecMode()
		if err != nil {
			panic("signing: cbor decoder: " + err.Error())
		}
	})
	return encMode, decMode
}

// Encodes the signature as deterministic CBOR.
func (s *Signature) MarshalBinary() ([]byte, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	enc, _ := modes()
	data, err := enc.Marshal(wireSignature{Alg: s.Algorithm.String(), Sig: s.Value})
	if err != nil {
		return nil, fault.Wrap(ErrBadSignatureFormat, err)
	}
	return data, nil
}

// Decodes a signature previously produced by [Signature.MarshalBinary].
func (s *Signature) UnmarshalBinary(data []byte) error {
	_, dec := modes()
	var w wireSignature
	if err := dec.Unmarshal(data, &w); err != nil {
		return fault.Wrap(ErrBadSignatureFormat, err)
	}

	sig := Signature{Algorithm: digest.Algorithm(w.Alg), Value: w.Sig}
	if err := sig.validate(); err != nil {
		return err
	}
	*s = sig
	return nil
}

// Checks the signature length and digest algorithm.
func (s *Signature) validate() error {
	if len(s.Value) != ed25519.SignatureSize {
		return fault.Wrapf(ErrBadSignatureFormat, "signature is %d bytes, want %d", len(s.Value), ed25519.SignatureSize)
	}
	if !s.Algorithm.Available() {
		return fault.Wrapf(ErrBadSignatureFormat, "unsupported digest algorithm %q", s.Algorithm)
	}
	return nil
}

// Parses a signature from its CBOR encoding.
func ParseSignature(data []byte) (*Signature, error) {
	var s Signature
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &s, nil
}

// Reads and parses a signature from r.
func ReadSignature(r io.Reader) (*Signature, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxEncodedSize+1))
	if err != nil {
		return nil, fault.Wrap(ErrRead, err)
	}
	if len(data) > MaxEncodedSize {
		return nil, fault.Wrapf(ErrBadSignatureFormat, "signature block exceeds %d bytes", MaxEncodedSize)
	}
	return ParseSignature(data)
}
