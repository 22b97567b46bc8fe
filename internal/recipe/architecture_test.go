package recipe

import (
	"errors"
	"testing"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestParseArchitecture(t *testing.T) {
	for _, a := range Architectures() {
		got, err := ParseArchitecture(string(a))
		if err != nil {
			t.Fatalf("ParseArchitecture(%q): %v", a, err)
		}
		if got != a {
			t.Fatalf("ParseArchitecture(%q) = %q", a, got)
		}
	}

	for _, s := range []string{"", "amd64", "X86_64", "sparc"} {
		if _, err := ParseArchitecture(s); !errors.Is(err, ErrInvalidArchitecture) {
			t.Fatalf("ParseArchitecture(%q) err = %v, want %v", s, err, ErrInvalidArchitecture)
		}
	}
}

func TestFromPlatform(t *testing.T) {
	tests := []struct {
		platform ocispec.Platform
		want     Architecture
	}{
		{ocispec.Platform{OS: "linux", Architecture: "amd64"}, X86_64},
		{ocispec.Platform{OS: "linux", Architecture: "arm64"}, AArch64},
		{ocispec.Platform{OS: "linux", Architecture: "arm64", Variant: "v8"}, AArch64},
		{ocispec.Platform{OS: "linux", Architecture: "arm", Variant: "v7"}, ARMv7},
		{ocispec.Platform{OS: "linux", Architecture: "arm"}, ARMv7},
		{ocispec.Platform{OS: "linux", Architecture: "386"}, I686},
		{ocispec.Platform{OS: "linux", Architecture: "riscv64"}, RISCV64},
	}

	for _, tt := range tests {
		got, err := FromPlatform(tt.platform)
		if err != nil {
			t.Fatalf("FromPlatform(%v): %v", tt.platform, err)
		}
		if got != tt.want {
			t.Fatalf("FromPlatform(%v) = %q, want %q", tt.platform, got, tt.want)
		}
	}

	if _, err := FromPlatform(ocispec.Platform{OS: "linux", Architecture: "s390x"}); !errors.Is(err, ErrInvalidArchitecture) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidArchitecture)
	}
}

func TestPlatformRoundTrip(t *testing.T) {
	for _, a := range Architectures() {
		got, err := FromPlatform(a.Platform())
		if err != nil {
			t.Fatalf("FromPlatform(%q.Platform()): %v", a, err)
		}
		if got != a {
			t.Fatalf("round trip of %q gave %q", a, got)
		}
	}
}
