package source

import (
	"errors"
	"fmt"

	"github.com/opencontainers/go-digest"
)

var (
	ErrFetchFailed        = errors.New("failed to fetch source")
	ErrHashMismatch       = errors.New("source hash mismatch")
	ErrUnsupportedArchive = errors.New("unsupported source archive")
	ErrPathTraversal      = errors.New("archive entry escapes source directory")
	ErrExtractFailed      = errors.New("failed to extract source")
)

// Reports a fetched source whose digest differs from the declared hash.
type HashMismatchError struct {
	Expected digest.Digest // Hash declared by the recipe.
	Actual   digest.Digest // Digest of the fetched bytes.
}

// Returns a message with both digests.
func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", ErrHashMismatch, e.Expected, e.Actual)
}

// Matches [ErrHashMismatch].
func (e *HashMismatchError) Is(target error) bool {
	return target == ErrHashMismatch
}
