package cli

import (
	"github.com/cruciblehq/paxbuild/internal/archive"
	"github.com/cruciblehq/paxbuild/internal/build"
	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/recipe"
	"github.com/cruciblehq/paxbuild/internal/runtime"
	"github.com/cruciblehq/paxbuild/internal/signing"
	"github.com/cruciblehq/paxbuild/internal/source"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitParse     = 2
	ExitFetch     = 3
	ExitSignature = 4
	ExitScript    = 5
	ExitIO        = 6
)

// Error kinds per exit code, checked in order.
//
// Build script failures come first so that a build whose only failures are
// scripts exits with [ExitScript] even though the report wraps them.
var exitKinds = []struct {
	code  int
	kinds []error
}{
	{ExitScript, []error{build.ErrScriptFailed}},
	{ExitSignature, []error{
		signing.ErrSignatureMismatch,
		signing.ErrBadSignatureFormat,
		ErrUnsigned,
		archive.ErrDigestMismatch,
		archive.ErrCorruptPayload,
		archive.ErrTruncatedArchive,
		archive.ErrPathTraversal,
	}},
	{ExitFetch, []error{
		source.ErrHashMismatch,
		recipe.ErrFetchFailed,
		source.ErrFetchFailed,
		source.ErrUnsupportedArchive,
		source.ErrPathTraversal,
		source.ErrExtractFailed,
	}},
	{ExitParse, []error{
		recipe.ErrMalformed,
		recipe.ErrMissingField,
		recipe.ErrInvalidField,
		recipe.ErrInvalidArchitecture,
		archive.ErrNotAPackage,
		archive.ErrCorruptMetadata,
		build.ErrUnsupportedArchitecture,
		signing.ErrKeyLength,
		ErrConfig,
		ErrUsage,
	}},
	{ExitIO, []error{
		recipe.ErrRead,
		signing.ErrKeyFile,
		signing.ErrRead,
		archive.ErrIO,
		build.ErrFileSystemOperation,
		build.ErrSetupFailed,
		runtime.ErrWorkspace,
	}},
}

// Returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	for _, e := range exitKinds {
		if fault.Kind(err, e.kinds...) != nil {
			return e.code
		}
	}
	return ExitFailure
}
