package archive

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"math/rand/v2"
	"slices"
	"syscall"
	"testing"

	"github.com/cruciblehq/paxbuild/internal/recipe"
	"github.com/cruciblehq/paxbuild/internal/signing"
)

func testMetadata() Metadata {
	r := &recipe.Recipe{
		Name:         "hello",
		Version:      "2.12.1",
		Description:  "GNU hello",
		Dependencies: []string{"make"},
		Install:      "echo installed",
	}
	return NewMetadata(r, recipe.X86_64)
}

// Creates a small install tree with nested directories, modes and links.
func writeTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "usr/bin"), 0755)
	mustMkdir(t, filepath.Join(root, "usr/share/doc/hello"), 0755)
	mustMkdir(t, filepath.Join(root, "etc"), 0750)
	mustWrite(t, filepath.Join(root, "usr/bin/hello"), "#!/bin/sh\necho hello\n", 0755)
	mustWrite(t, filepath.Join(root, "usr/share/doc/hello/README"), "read me\n", 0644)
	mustWrite(t, filepath.Join(root, "etc/hello.conf"), "greeting=hi\n", 0600)
	if err := os.Symlink("hello", filepath.Join(root, "usr/bin/hi")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("/usr/share/doc/hello", filepath.Join(root, "usr/share/doc/hi")); err != nil {
		t.Fatal(err)
	}
	return root
}

func mustMkdir(t *testing.T, p string, mode fs.FileMode) {
	t.Helper()
	if err := os.MkdirAll(p, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(p, mode); err != nil {
		t.Fatal(err)
	}
}

func mustWrite(t *testing.T, p, content string, mode fs.FileMode) {
	t.Helper()
	if err := os.WriteFile(p, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(p, mode); err != nil {
		t.Fatal(err)
	}
}

func assemble(t *testing.T, root string) ([]byte, *Assembled) {
	t.Helper()
	var buf bytes.Buffer
	asm, err := Assemble(&buf, root, testMetadata())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return buf.Bytes(), asm
}

func TestAssembleDeterministic(t *testing.T) {
	root := writeTree(t)

	a, asmA := assemble(t, root)
	b, asmB := assemble(t, root)

	if !bytes.Equal(a, b) {
		t.Fatal("assembling the same tree twice produced different bodies")
	}
	if asmA.Digest != asmB.Digest {
		t.Fatalf("digest = %s, then %s", asmA.Digest, asmB.Digest)
	}
	if asmA.Size != int64(len(a)) {
		t.Fatalf("size = %d, want %d", asmA.Size, len(a))
	}
}

func TestAssembleIgnoresTimestamps(t *testing.T) {
	root := writeTree(t)
	a, _ := assemble(t, root)

	later := filepath.Join(root, "usr/bin/hello")
	if err := os.Chtimes(later, epoch.AddDate(30, 0, 0), epoch.AddDate(30, 0, 0)); err != nil {
		t.Fatal(err)
	}
	b, _ := assemble(t, root)

	if !bytes.Equal(a, b) {
		t.Fatal("modification time leaked into the package body")
	}
}

func TestAssembleMetadata(t *testing.T) {
	root := writeTree(t)
	_, asm := assemble(t, root)

	want := []string{
		"etc/hello.conf",
		"usr/bin/hello",
		"usr/bin/hi",
		"usr/share/doc/hello/README",
		"usr/share/doc/hi",
	}
	if !slices.Equal(asm.Metadata.Files, want) {
		t.Fatalf("files = %v, want %v", asm.Metadata.Files, want)
	}
	if asm.Metadata.ContentDigest == "" {
		t.Fatal("content digest not recorded")
	}
	if !slices.Equal(asm.Metadata.Provides, []string{"hello"}) {
		t.Fatalf("provides = %v, want [hello]", asm.Metadata.Provides)
	}
	if asm.Metadata.Platform != "linux/amd64" {
		t.Fatalf("platform = %q, want linux/amd64", asm.Metadata.Platform)
	}
}

func TestNewMetadataCopiesRecipeLists(t *testing.T) {
	r := &recipe.Recipe{
		Name:                "hello",
		Version:             "2.12.1",
		Dependencies:        []string{"make"},
		RuntimeDependencies: []string{"libc"},
		Provides:            []string{"greeter"},
		Conflicts:           []string{"hello-legacy"},
	}

	m := NewMetadata(r, recipe.X86_64)
	m.Dependencies[0] = "x"
	m.RuntimeDependencies[0] = "x"
	m.Provides[0] = "x"
	m.Conflicts[0] = "x"

	if r.Dependencies[0] != "make" || r.RuntimeDependencies[0] != "libc" || r.Provides[0] != "greeter" || r.Conflicts[0] != "hello-legacy" {
		t.Fatalf("recipe lists changed through metadata: %+v", r)
	}
}

func TestAssembleRejectsSpecialFiles(t *testing.T) {
	root := t.TempDir()
	if err := syscall.Mkfifo(filepath.Join(root, "pipe"), 0644); err != nil {
		t.Skipf("cannot create fifo: %v", err)
	}

	_, err := Assemble(io.Discard, root, testMetadata())
	if !errors.Is(err, ErrUnsupportedEntry) {
		t.Fatalf("expected ErrUnsupportedEntry, got %v", err)
	}
}

func TestOpenRoundTrip(t *testing.T) {
	root := writeTree(t)
	body, asm := assemble(t, root)

	p, err := Read(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	defer p.Close()

	want, _ := asm.Metadata.Marshal()
	if !bytes.Equal(p.RawMetadata(), want) {
		t.Fatalf("metadata bytes differ:\n%s\nwant:\n%s", p.RawMetadata(), want)
	}
	if p.Metadata.Name != "hello" || p.Metadata.Architecture != recipe.X86_64 {
		t.Fatalf("identity = %s %s", p.Metadata.Name, p.Metadata.Architecture)
	}
	if p.Signed() {
		t.Fatal("unsigned package reported as signed")
	}
	if err := p.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestExtractRoundTrip(t *testing.T) {
	root := writeTree(t)
	pkg := filepath.Join(t.TempDir(), "hello.pax")
	if _, _, err := AssembleFile(pkg, root, testMetadata(), nil); err != nil {
		t.Fatalf("assemble: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "out")
	if err := Extract(pkg, dest); err != nil {
		t.Fatalf("extract: %v", err)
	}

	want, err := scanTree(root)
	if err != nil {
		t.Fatal(err)
	}
	got, err := scanTree(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, want) {
		t.Fatalf("extracted tree differs:\n got %+v\nwant %+v", got, want)
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"parent", "../escape"},
		{"nested parent", "usr/../../escape"},
		{"absolute", "/tmp/escape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := craftBody(t, []Entry{{Path: tt.entry, Kind: KindSymlink, Mode: symlinkMode, Linkname: "x"}})
			pkg := filepath.Join(t.TempDir(), "evil.pax")
			if err := os.WriteFile(pkg, body, 0644); err != nil {
				t.Fatal(err)
			}

			parent := t.TempDir()
			dest := filepath.Join(parent, "dest")
			err := Extract(pkg, dest)
			if !errors.Is(err, ErrPathTraversal) {
				t.Fatalf("expected ErrPathTraversal, got %v", err)
			}

			if _, err := os.Lstat(filepath.Join(parent, "escape")); !errors.Is(err, fs.ErrNotExist) {
				t.Fatal("entry was written outside the destination")
			}
		})
	}
}

func TestExtractRejectsSymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	body := craftBody(t, []Entry{
		{Path: "link", Kind: KindSymlink, Mode: symlinkMode, Linkname: outside},
		{Path: "link/planted", Kind: KindSymlink, Mode: symlinkMode, Linkname: "x"},
	})
	pkg := filepath.Join(t.TempDir(), "evil.pax")
	os.WriteFile(pkg, body, 0644)

	if err := Extract(pkg, t.TempDir()); err == nil {
		t.Fatal("expected an error writing through an escaping symlink")
	}
	if _, err := os.Lstat(filepath.Join(outside, "planted")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("entry was written through a symlink outside the destination")
	}
}

func TestSignedPackage(t *testing.T) {
	root := writeTree(t)
	seed := bytes.Repeat([]byte{4}, 32)
	pub, _ := signing.PublicKey(seed)
	pkg := filepath.Join(t.TempDir(), "hello.pax")

	asm, sig, err := AssembleFile(pkg, root, testMetadata(), SignWithSeed(seed))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if sig == nil {
		t.Fatal("no signature returned")
	}

	p, err := Open(pkg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	if !p.Signed() {
		t.Fatal("signed package reported as unsigned")
	}
	if p.Body().Size() != asm.Size {
		t.Fatalf("body size = %d, want %d", p.Body().Size(), asm.Size)
	}
	d, _ := p.BodyDigest()
	if d != asm.Digest {
		t.Fatalf("body digest = %s, want %s", d, asm.Digest)
	}
	if err := p.VerifySignature(nil, pub); err != nil {
		t.Fatalf("verify signature: %v", err)
	}
	if err := p.Verify(); err != nil {
		t.Fatalf("verify payload: %v", err)
	}
}

func TestSplitTrailerRecoversBody(t *testing.T) {
	root := writeTree(t)
	body, _ := assemble(t, root)
	sig, err := signing.Sign(bytes.NewReader(body), bytes.Repeat([]byte{1}, 32))
	if err != nil {
		t.Fatal(err)
	}

	var signed bytes.Buffer
	signed.Write(body)
	if err := WriteTrailer(&signed, sig); err != nil {
		t.Fatal(err)
	}

	n, got, err := SplitTrailer(bytes.NewReader(signed.Bytes()), int64(signed.Len()))
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if !bytes.Equal(signed.Bytes()[:n], body) {
		t.Fatal("stripped body differs from the signed body")
	}
	if !bytes.Equal(got.Value, sig.Value) {
		t.Fatal("signature changed through the trailer")
	}
}

func TestTamperedBodyFailsSignature(t *testing.T) {
	root := writeTree(t)
	seed := bytes.Repeat([]byte{6}, 32)
	pub, _ := signing.PublicKey(seed)
	pkg := filepath.Join(t.TempDir(), "hello.pax")

	asm, _, err := AssembleFile(pkg, root, testMetadata(), SignWithSeed(seed))
	if err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(pkg)
	for _, off := range []int64{0, asm.Size / 2, asm.Size - 1} {
		tampered := bytes.Clone(data)
		tampered[off] ^= 0x80

		p, err := Read(bytes.NewReader(tampered), int64(len(tampered)))
		if err != nil {
			continue
		}
		if err := p.VerifySignature(nil, pub); !errors.Is(err, signing.ErrSignatureMismatch) {
			t.Fatalf("offset %d: expected ErrSignatureMismatch, got %v", off, err)
		}
	}
}

func TestReadErrors(t *testing.T) {
	root := writeTree(t)
	body, _ := assemble(t, root)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrNotAPackage},
		{"text", []byte("definitely not a package"), ErrNotAPackage},
		{"truncated metadata", body[:12], ErrTruncatedArchive},
		{"bad metadata", craftRaw(t, []byte("format: [")), ErrCorruptMetadata},
		{"missing identity", craftRaw(t, []byte("format: 1\n")), ErrCorruptMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data), int64(len(tt.data)))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDamagedPayloadKeepsMetadata(t *testing.T) {
	root := writeTree(t)
	mustWrite(t, filepath.Join(root, "usr/bin/big"), string(randomBytes(512<<10)), 0644)
	body, _ := assemble(t, root)

	truncated := body[:len(body)-16]
	p, err := Read(bytes.NewReader(truncated), int64(len(truncated)))
	if err != nil {
		t.Fatalf("metadata should still be readable: %v", err)
	}
	if p.Metadata.Name != "hello" {
		t.Fatalf("name = %q", p.Metadata.Name)
	}

	err = p.Verify()
	if !errors.Is(err, ErrTruncatedArchive) && !errors.Is(err, ErrCorruptPayload) {
		t.Fatalf("expected a payload error, got %v", err)
	}
}

func TestSignFileReplacesSignature(t *testing.T) {
	root := writeTree(t)
	pkg := filepath.Join(t.TempDir(), "hello.pax")
	if _, _, err := AssembleFile(pkg, root, testMetadata(), SignWithSeed(bytes.Repeat([]byte{1}, 32))); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(pkg)

	seed := bytes.Repeat([]byte{2}, 32)
	pub, _ := signing.PublicKey(seed)
	if _, err := SignFile(pkg, pkg, SignWithSeed(seed)); err != nil {
		t.Fatalf("sign: %v", err)
	}

	after, _ := os.ReadFile(pkg)
	if len(after) != len(before) {
		t.Fatalf("re-signed size = %d, want %d", len(after), len(before))
	}

	p, err := Open(pkg)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if err := p.VerifySignature(nil, pub); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestDetachedSignature(t *testing.T) {
	root := writeTree(t)
	pkg := filepath.Join(t.TempDir(), "hello.pax")
	if _, _, err := AssembleFile(pkg, root, testMetadata(), nil); err != nil {
		t.Fatal(err)
	}

	seed := bytes.Repeat([]byte{8}, 32)
	pub, _ := signing.PublicKey(seed)
	f, _ := os.Open(pkg)
	sig, err := signing.Sign(f, seed)
	f.Close()
	if err != nil {
		t.Fatal(err)
	}

	sigPath := SignaturePath(pkg)
	if err := WriteSignatureFile(sigPath, sig); err != nil {
		t.Fatal(err)
	}
	loaded, err := ReadSignatureFile(sigPath)
	if err != nil {
		t.Fatal(err)
	}

	p, err := Open(pkg)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if err := p.VerifySignature(loaded, pub); err != nil {
		t.Fatalf("verify detached: %v", err)
	}
	if err := p.VerifySignature(nil, pub); !errors.Is(err, signing.ErrBadSignatureFormat) {
		t.Fatalf("expected unsigned error, got %v", err)
	}
}

func TestAssembleFileLeavesNothingOnFailure(t *testing.T) {
	root := writeTree(t)
	dir := t.TempDir()
	pkg := filepath.Join(dir, "hello.pax")

	failing := func(io.Reader) (*signing.Signature, error) {
		return nil, errors.New("no key")
	}
	if _, _, err := AssembleFile(pkg, root, testMetadata(), failing); err == nil {
		t.Fatal("expected error")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("leftover files: %v", entries)
	}
}

// Builds a package body with hand-made payload entries.
func craftBody(t *testing.T, entries []Entry) []byte {
	t.Helper()
	meta := testMetadata()
	doc, err := meta.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	return craftWith(t, doc, entries)
}

// Builds a package body whose metadata entry holds doc verbatim.
func craftRaw(t *testing.T, doc []byte) []byte {
	t.Helper()
	return craftWith(t, doc, nil)
}

func craftWith(t *testing.T, doc []byte, entries []Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := newEncoder(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := writeTar(zw, t.TempDir(), doc, entries); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// Returns n incompressible bytes from a fixed seed, enough to force the
// encoder to emit several blocks.
func randomBytes(n int) []byte {
	r := rand.New(rand.NewPCG(1, 2))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.Uint32())
	}
	return b
}
