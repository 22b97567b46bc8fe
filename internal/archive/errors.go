package archive

import "errors"

var (
	ErrIO               = errors.New("archive i/o error")
	ErrSerialization    = errors.New("archive serialization error")
	ErrUnsupportedEntry = errors.New("unsupported file type")
	ErrNotAPackage      = errors.New("not a package")
	ErrCorruptMetadata  = errors.New("corrupt package metadata")
	ErrTruncatedArchive = errors.New("truncated archive")
	ErrCorruptPayload   = errors.New("corrupt package payload")
	ErrPathTraversal    = errors.New("entry escapes destination")
	ErrDigestMismatch   = errors.New("content digest mismatch")
)
