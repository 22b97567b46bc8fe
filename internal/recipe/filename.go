package recipe

import (
	"strings"
)

// Extension of package files.
const Extension = ".pax"

// Returns the canonical package filename for an architecture.
//
// The name is "<name>-<version>-<arch>.pax". Packages for the same name and
// version never collide across architectures because the tag is unique.
func (r *Recipe) CanonicalFilename(a Architecture) string {
	return CanonicalFilename(r.Name, r.Version, a)
}

// Returns "<name>-<version>-<arch>.pax".
func CanonicalFilename(name, version string, a Architecture) string {
	return name + "-" + version + "-" + string(a) + Extension
}

// Splits a canonical package filename into name, version and architecture.
//
// Both names and versions may contain dashes, so the split is a heuristic.
// The architecture is the final dash-separated component. The version starts
// at the first component after the name that looks like a version number: a
// digit followed by a digit, a dot or nothing. Failing that, it starts at the
// first component that begins with a digit, so "foo-2fa-1.0" splits after
// "2fa" but "foo-2fa-beta" splits before it. Names with a component that
// looks like a version number, such as "foo-2-bar", cannot be told apart;
// callers holding the package metadata should compare against
// [CanonicalFilename] instead. Returns false when the filename does not
// follow the canonical scheme.
func ParseFilename(filename string) (name, version string, arch Architecture, ok bool) {
	base, found := strings.CutSuffix(filename, Extension)
	if !found {
		return "", "", "", false
	}

	parts := strings.Split(base, "-")
	if len(parts) < 3 {
		return "", "", "", false
	}

	last := len(parts) - 1
	arch = Architecture(parts[last])
	if !arch.Valid() {
		return "", "", "", false
	}

	start, weak := -1, -1
	for i := 1; i < last; i++ {
		p := parts[i]
		if p == "" || !isDigit(p[0]) {
			continue
		}
		if len(p) == 1 || isDigit(p[1]) || p[1] == '.' {
			start = i
			break
		}
		if weak < 0 {
			weak = i
		}
	}
	if start < 0 {
		start = weak
	}
	if start < 0 {
		return "", "", "", false
	}

	name = strings.Join(parts[:start], "-")
	version = strings.Join(parts[start:last], "-")
	return name, version, arch, true
}

// Whether c is an ASCII digit.
func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
