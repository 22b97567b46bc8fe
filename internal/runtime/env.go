package runtime

import (
	"sort"
	"strings"
)

// Builds a process environment from explicit variables and an allowlist of
// host variables.
//
// lookup reads host variables, typically [os.LookupEnv]. Variables that are
// not set on the host are omitted. Explicit entries override passthrough
// values. The result is sorted by key.
func Environ(vars, pass []string, lookup func(string) (string, bool)) []string {
	host := make([]string, 0, len(pass))
	for _, name := range pass {
		if v, ok := lookup(name); ok {
			host = append(host, name+"="+v)
		}
	}
	return mergeEnv(host, vars)
}

// Merges override env vars on top of a base env slice.
//
// Malformed entries without "=" are dropped. The result is sorted so the
// environment a script sees does not depend on map iteration order.
func mergeEnv(base, overrides []string) []string {
	merged := make(map[string]string, len(base)+len(overrides))
	for _, entry := range base {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}
	for _, entry := range overrides {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}

	result := make([]string, 0, len(merged))
	for k, v := range merged {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}
