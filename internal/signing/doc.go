// Signs and verifies package bodies with Ed25519.
//
// The signed message is the canonical digest string ("sha256:<hex>") of the
// unsigned package body, exactly as stored on disk. Signing the digest rather
// than the body bounds the signing input, and verification always recomputes
// the digest from the bytes it is given; a digest recorded inside the package
// is never trusted.
//
// A [Signature] serializes to a small CBOR map using Core Deterministic
// Encoding, so equal signatures encode to equal bytes. The same encoding is
// used for the trailer appended to signed packages and for detached ".sig"
// files.
//
// Keys are raw 32-byte Ed25519 seeds and public keys. [LoadPrivateKey] and
// [LoadPublicKey] read them from hex-encoded files; generating, listing or
// backing up keys is left to the key store.
package signing
