package recipe

import (
	"slices"

	"github.com/containerd/platforms"
	"github.com/cruciblehq/paxbuild/internal/fault"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Target instruction set of a build.
//
// The value doubles as the lowercase tag used in canonical package filenames
// and in the PAX_ARCH build variable.
type Architecture string

const (
	X86_64  Architecture = "x86_64"
	AArch64 Architecture = "aarch64"
	ARMv7   Architecture = "armv7"
	I686    Architecture = "i686"
	RISCV64 Architecture = "riscv64"
)

// Closed set of supported architectures, in canonical order.
var architectures = []Architecture{X86_64, AArch64, ARMv7, I686, RISCV64}

// OCI platform for each architecture. All packages target Linux.
var ociPlatforms = map[Architecture]ocispec.Platform{
	X86_64:  {OS: "linux", Architecture: "amd64"},
	AArch64: {OS: "linux", Architecture: "arm64"},
	ARMv7:   {OS: "linux", Architecture: "arm", Variant: "v7"},
	I686:    {OS: "linux", Architecture: "386"},
	RISCV64: {OS: "linux", Architecture: "riscv64"},
}

// Returns all supported architectures in canonical order.
func Architectures() []Architecture {
	return slices.Clone(architectures)
}

// Parses an architecture tag.
//
// Only the exact lowercase tags are accepted; aliases such as "amd64" are
// rejected so that filenames stay canonical.
func ParseArchitecture(s string) (Architecture, error) {
	a := Architecture(s)
	if !a.Valid() {
		return "", fault.Wrapf(ErrInvalidArchitecture, "%q (supported: %v)", s, architectures)
	}
	return a, nil
}

// Whether the architecture belongs to the supported set.
func (a Architecture) Valid() bool {
	return slices.Contains(architectures, a)
}

// Returns the tag.
func (a Architecture) String() string {
	return string(a)
}

// Returns the OCI platform corresponding to the architecture.
func (a Architecture) Platform() ocispec.Platform {
	return ociPlatforms[a]
}

// Returns the architecture matching an OCI platform.
//
// A 32-bit ARM platform without an explicit variant is treated as armv7.
func FromPlatform(p ocispec.Platform) (Architecture, error) {
	p = platforms.Normalize(p)
	for _, a := range architectures {
		want := ociPlatforms[a]
		if want.Architecture != p.Architecture {
			continue
		}
		if want.Variant != "" && p.Variant != "" && want.Variant != p.Variant {
			continue
		}
		return a, nil
	}
	return "", fault.Wrapf(ErrInvalidArchitecture, "no architecture for platform %s", platforms.Format(p))
}

// Returns the architecture of the invoking host.
func HostArchitecture() (Architecture, error) {
	return FromPlatform(platforms.DefaultSpec())
}
