package build

import (
	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/recipe"
	"github.com/hashicorp/go-multierror"
	"github.com/opencontainers/go-digest"
)

// Outcome of one architecture job.
type Result struct {
	Arch          recipe.Architecture // Architecture built.
	Path          string              // Package path, set even when the job failed.
	Digest        digest.Digest       // Digest of the unsigned package body.
	ContentDigest digest.Digest       // Digest of the packaged file tree.
	Size          int64               // Size of the unsigned package body.
	Signed        bool                // True if a signature trailer was appended.
	Kept          string              // Retained workspace of a failed job, if any.
	Err           error               // Failure, nil on success.
}

// Outcome of a build across all target architectures.
type Report struct {
	Recipe         string        // Recipe identity, "name-version".
	SourceDigest   digest.Digest // Digest of the fetched source.
	SourceVerified bool          // True if the source matched the declared hash.
	Results        []Result      // One result per architecture, in target order.
}

// Returns the successful results.
func (r *Report) Succeeded() []Result {
	var ok []Result
	for _, res := range r.Results {
		if res.Err == nil {
			ok = append(ok, res)
		}
	}
	return ok
}

// Returns the failed results.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Aggregates job failures, or returns nil if every job succeeded.
//
// Each failure is prefixed with its architecture and stays reachable through
// [errors.Is].
func (r *Report) Err() error {
	var merr *multierror.Error
	for _, res := range r.Failed() {
		merr = multierror.Append(merr, fault.Wrapf(ErrBuild, "%s: %w", res.Arch, res.Err))
	}
	return merr.ErrorOrNil()
}
