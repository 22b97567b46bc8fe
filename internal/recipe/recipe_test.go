package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

const helloRecipe = `
name: hello
version: 2.12.1
description: GNU hello
source: https://example.com/hello-2.12.1.tar.gz
hash: sha256:8d99142afd92576f30b0cd7cb42a8dc6809998bc5d607d88761f512e26c7db20
arch: [x86_64, aarch64, x86_64]
dependencies:
  - libc>=2.31
runtime_dependencies: [libc]
conflicts: [hello-legacy]
build: |
  make && make install DESTDIR=$PAX_BUILD_ROOT
install: echo installed
uninstall: echo removed
maintainer: ignored@example.com
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(helloRecipe))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.Name != "hello" {
		t.Fatalf("name = %q, want hello", r.Name)
	}
	if r.Version != "2.12.1" {
		t.Fatalf("version = %q, want 2.12.1", r.Version)
	}
	if !r.Verified() {
		t.Fatal("recipe with hash reported as unverified")
	}
	if r.Hash.Algorithm() != "sha256" {
		t.Fatalf("hash algorithm = %q, want sha256", r.Hash.Algorithm())
	}
	if want := []Architecture{X86_64, AArch64}; !slices.Equal(r.Architectures, want) {
		t.Fatalf("architectures = %v, want %v", r.Architectures, want)
	}
	if len(r.Dependencies) != 1 || r.Dependencies[0] != "libc>=2.31" {
		t.Fatalf("dependencies = %v", r.Dependencies)
	}
	if r.Install != "echo installed" || r.Uninstall != "echo removed" {
		t.Fatalf("scripts = %q / %q", r.Install, r.Uninstall)
	}
	if r.BuildScript() == DefaultBuildScript {
		t.Fatal("explicit build script replaced by default")
	}
}

func TestParseDefaults(t *testing.T) {
	r, err := Parse([]byte("name: tool\nversion: '1.0'\nsource: ./tool.tar\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Verified() {
		t.Fatal("recipe without hash reported as verified")
	}
	if r.Hash != Unverified {
		t.Fatalf("hash = %q, want unverified sentinel", r.Hash)
	}
	if r.BuildScript() != DefaultBuildScript {
		t.Fatalf("build script = %q, want default", r.BuildScript())
	}
	if len(r.Architectures) != 0 {
		t.Fatalf("architectures = %v, want none", r.Architectures)
	}
	if got := r.ProvidedNames(); !slices.Equal(got, []string{"tool"}) {
		t.Fatalf("provides = %v, want [tool]", got)
	}
	if !r.Supports(RISCV64) {
		t.Fatal("recipe without declared architectures should support all")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"not yaml", "name: [unterminated", ErrMalformed},
		{"sequence document", "- a\n- b\n", ErrMalformed},
		{"missing name", "version: 1.0.0\nsource: x\n", ErrMissingField},
		{"missing version", "name: a\nsource: x\n", ErrMissingField},
		{"missing source", "name: a\nversion: 1.0.0\n", ErrMissingField},
		{"empty document", "", ErrMissingField},
		{"slash in name", "name: a/b\nversion: 1.0.0\nsource: x\n", ErrInvalidField},
		{"dot dot name", "name: ..\nversion: 1.0.0\nsource: x\n", ErrInvalidField},
		{"slash in version", "name: a\nversion: 1.0/2\nsource: x\n", ErrInvalidField},
		{"version without digit", "name: a\nversion: latest\nsource: x\n", ErrInvalidField},
		{"bad hash", "name: a\nversion: 1.0.0\nsource: x\nhash: sha256:zz\n", ErrInvalidField},
		{"unknown hash algorithm", "name: a\nversion: 1.0.0\nsource: x\nhash: md5:d41d8cd98f00b204e9800998ecf8427e\n", ErrInvalidField},
		{"bad architecture", "name: a\nversion: 1.0.0\nsource: x\narch: [sparc]\n", ErrInvalidArchitecture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMissingFieldNamesField(t *testing.T) {
	_, err := Parse([]byte("name: a\nsource: x\n"))

	var mf *MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("err = %v, want MissingFieldError", err)
	}
	if mf.Field != "version" {
		t.Fatalf("field = %q, want version", mf.Field)
	}
}

func TestParseHashUppercase(t *testing.T) {
	d, err := ParseHash("SHA256:8D99142AFD92576F30B0CD7CB42A8DC6809998BC5D607D88761F512E26C7DB20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Encoded() != "8d99142afd92576f30b0cd7cb42a8dc6809998bc5d607d88761f512e26c7db20" {
		t.Fatalf("encoded = %q", d.Encoded())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.paxmeta")
	if err := os.WriteFile(path, []byte(helloRecipe), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID() != "hello-2.12.1" {
		t.Fatalf("id = %q, want hello-2.12.1", r.ID())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrRead) {
		t.Fatalf("err = %v, want %v", err, ErrRead)
	}
}

func TestParseUpstreamVersions(t *testing.T) {
	tests := []struct {
		version  string
		semantic bool
	}{
		{"1.1.1w", false},
		{"9.4p1", false},
		{"2.0.0.1", false},
		{"20240101", true},
		{"1.2.3-beta1", true},
		{"v2.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			r, err := Parse([]byte("name: a\nversion: " + tt.version + "\nsource: x\n"))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if r.Version != tt.version {
				t.Fatalf("version = %q, want %q", r.Version, tt.version)
			}
			if _, ok := SemanticVersion(tt.version); ok != tt.semantic {
				t.Fatalf("SemanticVersion(%q) ok = %v, want %v", tt.version, ok, tt.semantic)
			}
		})
	}
}

func TestProvidedNamesIsACopy(t *testing.T) {
	r := &Recipe{Name: "a", Provides: []string{"x", "y"}}

	names := r.ProvidedNames()
	names[0] = "changed"
	if r.Provides[0] != "x" {
		t.Fatalf("Provides = %v, modified through ProvidedNames", r.Provides)
	}

	r.Provides = nil
	names = r.ProvidedNames()
	if !slices.Equal(names, []string{"a"}) {
		t.Fatalf("ProvidedNames() = %v, want [a]", names)
	}
}
