package runtime

import "errors"

var (
	ErrRuntime   = errors.New("runtime error")
	ErrWorkspace = errors.New("workspace error")
	ErrCancelled = errors.New("execution cancelled")
)
