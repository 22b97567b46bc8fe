package recipe

import (
	_ "crypto/sha256"
	_ "crypto/sha512"
	"os"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"
)

// Marks a recipe that declares no source hash.
//
// The source resolver treats an unverified source as acceptable but computes
// its digest and hands it back for logging, so the recipe can be pinned.
const Unverified digest.Digest = ""

// Build script used when a recipe does not provide one.
//
// Configures out of tree from the build directory and installs into the
// staging root.
const DefaultBuildScript = `"$PAX_SOURCE_DIR"/configure --prefix=/usr && make -j"$(nproc)" && make install DESTDIR="$PAX_BUILD_ROOT"`

// A parsed and validated build recipe.
//
// Instances are produced by [Parse] and must not be modified afterwards; the
// orchestrator shares one recipe between concurrent architecture jobs. Code
// that needs its own copy of a list field clones it, as [Recipe.ProvidedNames]
// does.
type Recipe struct {
	Name                string         // Package name, a filename component.
	Version             string         // Package version, a filename component.
	Description         string         // Human-readable summary.
	Source              string         // URL or local path of the upstream source.
	Hash                digest.Digest  // Expected source digest, or [Unverified].
	Build               string         // Build script, empty for [DefaultBuildScript].
	Install             string         // Post-install script embedded in metadata.
	Uninstall           string         // Pre-removal script embedded in metadata.
	Dependencies        []string       // Build dependencies.
	RuntimeDependencies []string       // Runtime dependencies.
	Provides            []string       // Virtual names this package provides.
	Conflicts           []string       // Packages this package conflicts with.
	Architectures       []Architecture // Declared architectures, may be empty.
}

// On-disk layout of a recipe document.
type document struct {
	Name                string   `yaml:"name"`
	Version             string   `yaml:"version"`
	Description         string   `yaml:"description"`
	Source              string   `yaml:"source"`
	Hash                string   `yaml:"hash"`
	Arch                []string `yaml:"arch"`
	Build               string   `yaml:"build"`
	Install             string   `yaml:"install"`
	Uninstall           string   `yaml:"uninstall"`
	Dependencies        []string `yaml:"dependencies"`
	RuntimeDependencies []string `yaml:"runtime_dependencies"`
	Provides            []string `yaml:"provides"`
	Conflicts           []string `yaml:"conflicts"`
}

// Reads and parses the recipe at path.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Wrap(ErrRead, err)
	}
	return Parse(data)
}

// Parses and validates a recipe document.
//
// Fails with [ErrMalformed] when the bytes are not a YAML mapping of the
// expected shape, [ErrMissingField] when name, version or source is absent,
// [ErrInvalidField] when a value cannot be used (unsafe filename component,
// bad version, bad hash) and [ErrInvalidArchitecture] when a declared
// architecture is not supported.
func Parse(data []byte) (*Recipe, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fault.Wrap(ErrMalformed, err)
	}
	return doc.recipe()
}

// Validates the document and converts it into a [Recipe].
func (d *document) recipe() (*Recipe, error) {
	r := &Recipe{
		Name:                strings.TrimSpace(d.Name),
		Version:             strings.TrimSpace(d.Version),
		Description:         strings.TrimSpace(d.Description),
		Source:              strings.TrimSpace(d.Source),
		Build:               d.Build,
		Install:             d.Install,
		Uninstall:           d.Uninstall,
		Dependencies:        d.Dependencies,
		RuntimeDependencies: d.RuntimeDependencies,
		Provides:            d.Provides,
		Conflicts:           d.Conflicts,
	}

	for _, f := range []struct{ name, value string }{
		{"name", r.Name},
		{"version", r.Version},
		{"source", r.Source},
	} {
		if f.value == "" {
			return nil, &MissingFieldError{Field: f.name}
		}
	}

	if err := validateName(r.Name); err != nil {
		return nil, err
	}
	if err := validateVersion(r.Version); err != nil {
		return nil, err
	}

	hash, err := ParseHash(d.Hash)
	if err != nil {
		return nil, err
	}
	r.Hash = hash

	for _, s := range d.Arch {
		a, err := ParseArchitecture(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		if !slices.Contains(r.Architectures, a) {
			r.Architectures = append(r.Architectures, a)
		}
	}

	return r, nil
}

// Parses a `<algorithm>:<hex>` source hash.
//
// An empty string yields [Unverified]. Hex digits are accepted in either case.
func ParseHash(s string) (digest.Digest, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unverified, nil
	}
	d, err := digest.Parse(strings.ToLower(s))
	if err != nil {
		return "", fault.Wrapf(ErrInvalidField, "hash %q: %w", s, err)
	}
	return d, nil
}

// Returns the script to run for the build step.
func (r *Recipe) BuildScript() string {
	if strings.TrimSpace(r.Build) == "" {
		return DefaultBuildScript
	}
	return r.Build
}

// Whether the recipe pins its source with a hash.
func (r *Recipe) Verified() bool {
	return r.Hash != Unverified
}

// Returns the "name-version" identifier.
func (r *Recipe) ID() string {
	return r.Name + "-" + r.Version
}

// Whether the recipe declares support for the architecture.
//
// A recipe that declares no architectures supports every architecture.
func (r *Recipe) Supports(a Architecture) bool {
	return len(r.Architectures) == 0 || slices.Contains(r.Architectures, a)
}

// Returns the names this package provides, defaulting to its own name.
func (r *Recipe) ProvidedNames() []string {
	if len(r.Provides) == 0 {
		return []string{r.Name}
	}
	return slices.Clone(r.Provides)
}

// Checks that the package name is usable as a filename component.
//
// Names start with an alphanumeric character followed by alphanumerics,
// '.', '_', '+' or '-'.
func validateName(name string) error {
	for i, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case i > 0 && strings.ContainsRune("._+-", c):
		default:
			return fault.Wrapf(ErrInvalidField, "name %q: invalid character %q", name, c)
		}
	}
	return nil
}

// Checks that the version is a safe filename component containing a digit.
//
// Upstream versions such as "1.1.1w", "9.4p1" or "2.0.0.1" are accepted;
// [SemanticVersion] tells whether a version also follows semver.
func validateVersion(version string) error {
	if strings.ContainsAny(version, "/\\\x00 \t") || version == "." || version == ".." {
		return fault.Wrapf(ErrInvalidField, "version %q: not a valid filename component", version)
	}
	if !strings.ContainsFunc(version, func(c rune) bool { return c >= '0' && c <= '9' }) {
		return fault.Wrapf(ErrInvalidField, "version %q: must contain a digit", version)
	}
	return nil
}

// Parses version as a semantic version, leniently.
//
// Returns false for versions that are valid package versions but not
// semantic ones.
func SemanticVersion(version string) (*semver.Version, bool) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, false
	}
	return v, true
}
