package cli

import "errors"

var (
	ErrConfig   = errors.New("invalid configuration")
	ErrUnsigned = errors.New("package is not signed")
	ErrUsage    = errors.New("invalid arguments")
)
