package signing

import (
	"crypto/ed25519"
	"io"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/opencontainers/go-digest"
)

// Signs the package body read from body with the given 32-byte seed.
//
// The body is consumed to EOF. The returned signature covers the canonical
// digest string of the body, computed with [Algorithm].
func Sign(body io.Reader, seed []byte) (*Signature, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fault.Wrapf(ErrKeyLength, "private key is %d bytes, want %d", len(seed), ed25519.SeedSize)
	}

	dgst, err := Algorithm.FromReader(body)
	if err != nil {
		return nil, fault.Wrap(ErrRead, err)
	}

	key := ed25519.NewKeyFromSeed(seed)
	return &Signature{
		Algorithm: Algorithm,
		Value:     ed25519.Sign(key, message(dgst)),
	}, nil
}

// Verifies sig over the package body read from body.
//
// Returns false with a nil error when the signature does not match. Errors are
// reserved for malformed inputs: a key that is not 32 bytes, a signature of
// the wrong size or algorithm, or a body that cannot be read.
func Verify(body io.Reader, sig *Signature, pub []byte) (bool, error) {
	if len(pub) != ed25519.PublicKeySize {
		return false, fault.Wrapf(ErrKeyLength, "public key is %d bytes, want %d", len(pub), ed25519.PublicKeySize)
	}
	if sig == nil {
		return false, fault.Wrapf(ErrBadSignatureFormat, "no signature")
	}
	if err := sig.validate(); err != nil {
		return false, err
	}

	dgst, err := sig.Algorithm.FromReader(body)
	if err != nil {
		return false, fault.Wrap(ErrRead, err)
	}

	return ed25519.Verify(ed25519.PublicKey(pub), message(dgst), sig.Value), nil
}

// Returns the public key for a 32-byte seed.
func PublicKey(seed []byte) ([]byte, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fault.Wrapf(ErrKeyLength, "private key is %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	return []byte(pub), nil
}

// Returns the bytes that are actually signed for a body digest.
func message(d digest.Digest) []byte {
	return []byte(d.String())
}
