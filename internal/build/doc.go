// Package build turns a recipe into signed packages, one per architecture.
//
// [Run] resolves the recipe's source once, then fans out one job per target
// architecture on a bounded worker pool. Each job creates its own workspace,
// copies the shared read-only source into it, runs the recipe's build script
// through the [Executor] and assembles the staged install root into a package,
// optionally signing it. A failing job never cancels its siblings; the
// [Report] lists every architecture's outcome in request order, and
// [Report.Err] aggregates the failures.
//
// Target architectures are, in order of preference: the requested ones,
// which must be declared by the recipe when it declares any; the recipe's
// declared ones; the host architecture. The build script is responsible for
// cross-compiling; the target is exposed to it as PAX_ARCH.
//
// Output paths follow a fixed policy:
//
//   - No output: canonical names in the default package directory.
//   - One architecture: exactly the given path, or the canonical name inside
//     it when it is an existing directory or ends with a path separator.
//   - Several architectures: the output is a directory, created if needed,
//     holding one canonically named package per architecture.
//
// Packages are written to a temporary file next to their destination and
// renamed into place only when complete, so a failed or cancelled job never
// leaves a partial artifact at its final path.
//
// Example usage:
//
//	report, err := build.Run(ctx, build.Options{
//	    Recipe:        r,
//	    Architectures: []recipe.Architecture{recipe.X86_64, recipe.AArch64},
//	    Output:        "dist/",
//	    SigningKey:    seed,
//	})
//	if err != nil {
//	    return err
//	}
//	return report.Err()
package build
