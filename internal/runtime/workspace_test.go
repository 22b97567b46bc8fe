package runtime

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWorkspaceLayout(t *testing.T) {
	base := filepath.Join(t.TempDir(), "work")

	ws, err := NewWorkspace(base, "hello-x86_64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ws.Destroy()

	if !strings.HasPrefix(filepath.Base(ws.Root), "hello-x86_64-") {
		t.Fatalf("root %q missing prefix", ws.Root)
	}
	for _, dir := range []string{ws.Install, ws.Source, ws.Build} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("%s: %v", dir, err)
		}
		if len(entries) != 0 {
			t.Fatalf("%s is not empty", dir)
		}
	}
}

func TestWorkspacesAreDistinct(t *testing.T) {
	base := t.TempDir()
	a, err := NewWorkspace(base, "pkg")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Destroy()
	b, err := NewWorkspace(base, "pkg")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Destroy()

	if a.Root == b.Root || a.ID == b.ID {
		t.Fatal("two workspaces share a root or id")
	}
}

func TestCopyInPreservesTree(t *testing.T) {
	src := t.TempDir()
	os.MkdirAll(filepath.Join(src, "src"), 0755)
	os.WriteFile(filepath.Join(src, "configure"), []byte("#!/bin/sh\n"), 0755)
	os.Chmod(filepath.Join(src, "configure"), 0755)
	os.WriteFile(filepath.Join(src, "src/a.c"), []byte("int a;\n"), 0644)
	os.Symlink("a.c", filepath.Join(src, "src/b.c"))

	ws, err := NewWorkspace(t.TempDir(), "copy")
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Destroy()

	if err := ws.CopyIn(src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(filepath.Join(ws.Source, "configure"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Fatalf("configure mode = %o, want 755", info.Mode().Perm())
	}

	target, err := os.Readlink(filepath.Join(ws.Source, "src/b.c"))
	if err != nil || target != "a.c" {
		t.Fatalf("symlink = %q, %v", target, err)
	}

	data, err := os.ReadFile(filepath.Join(ws.Source, "src/a.c"))
	if err != nil || string(data) != "int a;\n" {
		t.Fatalf("a.c = %q, %v", data, err)
	}
}

func TestWorkspaceExecRunsInBuildDir(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), "exec")
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Destroy()

	res, err := ws.Exec(context.Background(), `echo built > artifact`, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d, stderr %q", res.ExitCode, res.Stderr)
	}
	if _, err := os.Stat(filepath.Join(ws.Build, "artifact")); err != nil {
		t.Fatalf("artifact not written to build dir: %v", err)
	}
}

func TestDestroyRemovesReadOnlyTrees(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), "ro")
	if err != nil {
		t.Fatal(err)
	}

	locked := filepath.Join(ws.Install, "usr/share")
	os.MkdirAll(locked, 0755)
	os.WriteFile(filepath.Join(locked, "file"), []byte("x"), 0644)
	os.Chmod(locked, 0555)

	if err := ws.Destroy(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(ws.Root); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("workspace still exists: %v", err)
	}
}

func TestKeepMovesWorkspace(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), "keep")
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(ws.Build, "config.log"), []byte("checking..."), 0644)

	failed := filepath.Join(t.TempDir(), "failed")
	kept, err := ws.Keep(failed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(kept) != failed {
		t.Fatalf("kept at %q, want under %q", kept, failed)
	}
	if _, err := os.Stat(filepath.Join(kept, "build", "config.log")); err != nil {
		t.Fatalf("kept workspace lost its files: %v", err)
	}
}

func TestRuntimeDefaults(t *testing.T) {
	rt := New(Options{Base: t.TempDir()})
	if rt.Shell() != DefaultShell {
		t.Fatalf("shell = %q, want %q", rt.Shell(), DefaultShell)
	}

	t.Setenv("PKG_CONFIG_PATH", "/opt/lib/pkgconfig")
	t.Setenv("PAXBUILD_TEST_SECRET", "x")

	env := rt.Environ([]string{"PAX_ARCH=aarch64"})
	joined := strings.Join(env, "\n")
	if !strings.Contains(joined, "PKG_CONFIG_PATH=/opt/lib/pkgconfig") {
		t.Fatalf("allowlisted variable missing: %v", env)
	}
	if strings.Contains(joined, "PAXBUILD_TEST_SECRET") {
		t.Fatalf("non-allowlisted variable leaked: %v", env)
	}
}
