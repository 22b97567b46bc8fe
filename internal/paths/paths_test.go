package paths

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLayout(t *testing.T) {
	tests := []struct {
		name string
		got  string
		base string
		leaf string
	}{
		{"packages", Packages(), Cache(), "packages"},
		{"work", Work(), Cache(), "work"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if filepath.Dir(tt.got) != tt.base {
				t.Fatalf("%s parent = %q, want %q", tt.name, filepath.Dir(tt.got), tt.base)
			}
			if filepath.Base(tt.got) != tt.leaf {
				t.Fatalf("%s leaf = %q, want %q", tt.name, filepath.Base(tt.got), tt.leaf)
			}
		})
	}
}

func TestNamespaced(t *testing.T) {
	for _, p := range []string{Cache(), Packages(), Work(), Failed()} {
		if !strings.Contains(p, appName) {
			t.Fatalf("path %q is not namespaced under %q", p, appName)
		}
	}
}
