package runtime

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/paths"
	"github.com/google/uuid"
)

// Subdirectories of a workspace.
const (
	installDir = "install"
	sourceDir  = "source"
	buildDir   = "build"
)

// An isolated working tree for one build job.
type Workspace struct {
	ID      string // Unique identifier, part of the directory name.
	Root    string // Workspace directory.
	Install string // Staging root the script installs into.
	Source  string // Private copy of the source tree.
	Build   string // Working directory of the script.
	shell   string // Shell for [Workspace.Exec].
}

// Creates a fresh workspace directory under base.
//
// base is created if needed. The workspace holds empty install, source and
// build subdirectories.
func NewWorkspace(base, prefix string) (*Workspace, error) {
	if err := os.MkdirAll(base, paths.DefaultDirMode); err != nil {
		return nil, fault.Wrap(ErrWorkspace, err)
	}

	id := uuid.NewString()
	root, err := os.MkdirTemp(base, prefix+"-"+id[:8]+"-")
	if err != nil {
		return nil, fault.Wrap(ErrWorkspace, err)
	}

	ws := &Workspace{
		ID:      id,
		Root:    root,
		Install: filepath.Join(root, installDir),
		Source:  filepath.Join(root, sourceDir),
		Build:   filepath.Join(root, buildDir),
		shell:   DefaultShell,
	}

	for _, dir := range []string{ws.Install, ws.Source, ws.Build} {
		if err := os.Mkdir(dir, paths.DefaultDirMode); err != nil {
			os.RemoveAll(root)
			return nil, fault.Wrap(ErrWorkspace, err)
		}
	}

	slog.Debug("workspace created", "id", id, "root", root)
	return ws, nil
}

// Copies the tree at src into the workspace's source directory.
//
// Modes and symbolic links are preserved; special files are skipped.
func (ws *Workspace) CopyIn(src string) error {
	if err := CopyTree(src, ws.Source); err != nil {
		return fault.Wrap(ErrWorkspace, err)
	}
	return nil
}

// Runs script in the build directory with exactly env as its environment.
//
// Both output streams are copied to output as they are produced when it is
// non-nil.
func (ws *Workspace) Exec(ctx context.Context, script string, env []string, output io.Writer) (*ExecResult, error) {
	return Exec(ctx, ExecSpec{
		Shell:  ws.shell,
		Script: script,
		Dir:    ws.Build,
		Env:    env,
		Stdout: output,
		Stderr: output,
	})
}

// Removes the workspace.
//
// Build scripts sometimes leave read-only directories behind; these are made
// writable so the removal can complete.
func (ws *Workspace) Destroy() error {
	if err := removeAll(ws.Root); err != nil {
		slog.Warn("failed to remove workspace", "id", ws.ID, "root", ws.Root, "error", err)
		return fault.Wrap(ErrWorkspace, err)
	}
	slog.Debug("workspace removed", "id", ws.ID)
	return nil
}

// Moves the workspace into dir for later inspection and returns its new
// location.
//
// When the move fails, for example across filesystems, the workspace is left
// where it is and its current location is returned.
func (ws *Workspace) Keep(dir string) (string, error) {
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return ws.Root, fault.Wrap(ErrWorkspace, err)
	}

	dest := filepath.Join(dir, filepath.Base(ws.Root))
	if err := os.Rename(ws.Root, dest); err != nil {
		slog.Warn("failed to move workspace, keeping it in place", "id", ws.ID, "root", ws.Root, "error", err)
		return ws.Root, nil
	}

	slog.Info("workspace kept", "id", ws.ID, "path", dest)
	return dest, nil
}

// Removes path, making directories writable when a first attempt fails.
func removeAll(path string) error {
	err := os.RemoveAll(path)
	if err == nil || !errors.Is(err, fs.ErrPermission) {
		return err
	}

	filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			os.Chmod(p, 0700)
		}
		return nil
	})
	return os.RemoveAll(path)
}
