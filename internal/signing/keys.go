package signing

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"os"

	"github.com/cruciblehq/paxbuild/internal/fault"
)

// Reads a hex-encoded 32-byte Ed25519 seed from path.
func LoadPrivateKey(path string) ([]byte, error) {
	return loadKey(path, ed25519.SeedSize)
}

// Reads a hex-encoded 32-byte Ed25519 public key from path.
func LoadPublicKey(path string) ([]byte, error) {
	return loadKey(path, ed25519.PublicKeySize)
}

// Reads and decodes a hex key file, requiring exactly size bytes.
//
// Surrounding whitespace is ignored so files written with a trailing newline
// load cleanly.
func loadKey(path string, size int) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Wrap(ErrKeyFile, err)
	}

	key, err := hex.DecodeString(string(bytes.TrimSpace(raw)))
	if err != nil {
		return nil, fault.Wrapf(ErrKeyFile, "%s: %w", path, err)
	}
	if len(key) != size {
		return nil, fault.Wrapf(ErrKeyLength, "%s holds %d bytes, want %d", path, len(key), size)
	}

	return key, nil
}
