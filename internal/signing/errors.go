package signing

import "errors"

var (
	ErrBadSignatureFormat = errors.New("bad signature format")
	ErrKeyLength          = errors.New("invalid key length")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrRead               = errors.New("failed to read signed data")
	ErrKeyFile            = errors.New("failed to load key")
)
