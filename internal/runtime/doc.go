// Runs build scripts in isolated working trees.
//
// A [Runtime] creates one [Workspace] per build job. Each workspace is a fresh
// directory holding an empty install root, a private copy of the source tree
// and a build directory; concurrent jobs never share mutable files. Scripts
// run through "shell -c script" with the build directory as the working
// directory and an environment built from explicit variables plus a small
// allowlist of host variables. Nothing else from the host environment leaks
// into the script.
//
// Script processes run in their own process group so cancellation kills the
// whole tree of processes a build spawns, not just the shell. A non-zero exit
// is reported through [ExecResult.ExitCode] and is not an error; the caller
// decides what a failure means.
//
// Example usage:
//
//	rt := runtime.New(runtime.Options{Base: paths.Work()})
//
//	ws, err := rt.NewWorkspace("hello-x86_64")
//	if err != nil {
//	    return err
//	}
//	defer ws.Destroy()
//
//	if err := ws.CopyIn(sourceDir); err != nil {
//	    return err
//	}
//
//	result, err := ws.Exec(ctx, "make && make install DESTDIR=\"$PAX_BUILD_ROOT\"", rt.Environ(vars))
//	if err != nil {
//	    return err
//	}
package runtime
