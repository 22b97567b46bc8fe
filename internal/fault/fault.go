// Wraps causes with a sentinel error kind.
//
// A wrapped error matches both its kind and its cause under [errors.Is] and
// [errors.As], so callers can classify failures by kind while still reaching
// the underlying error. The message reads "kind: cause".
package fault

import (
	"errors"
	"fmt"
)

// An error tagged with a sentinel kind.
type kindError struct {
	kind  error // Sentinel describing the failure category.
	cause error // Underlying error, may be nil.
}

// Returns "kind: cause", or just the kind when there is no cause.
func (e *kindError) Error() string {
	if e.cause == nil {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.cause.Error()
}

// Returns both the kind and the cause for [errors.Is] traversal.
func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Tags err with kind.
//
// Returns nil when err is nil, which lets call sites wrap unconditionally.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, cause: err}
}

// Tags a formatted error with kind.
//
// The format string follows [fmt.Errorf], including %w verbs.
func Wrapf(kind error, format string, args ...any) error {
	return &kindError{kind: kind, cause: fmt.Errorf(format, args...)}
}

// Returns the first of kinds that err matches, or nil.
func Kind(err error, kinds ...error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
