// Package filter selects repository paths by include/exclude path prefixes.
// Matching is on path-segment boundaries: "src" matches "src/main.go" but
// not "srcfoo/main.go".
package filter

import (
	"strings"

	"github.com/tilsley/ghgrab/pkg/gitrepo"
)

// Filter holds normalized include and exclude prefix sets. A path is
// selected iff it matches at least one include prefix (or the include set is
// empty) and matches no exclude prefix. The zero value selects everything.
type Filter struct {
	include []string
	exclude []string
}

// New builds a Filter, normalizing every prefix with the same rules applied
// to tree paths so that comparisons line up. A prefix that escapes the tree
// root can never match a tree path and is kept only so a non-empty include
// set stays restrictive.
func New(include, exclude []string) Filter {
	return Filter{
		include: normalizeAll(include),
		exclude: normalizeAll(exclude),
	}
}

// All returns the identity filter: every path passes.
func All() Filter {
	return Filter{}
}

// Match reports whether the given repository-relative path is selected.
// Pure string comparison; no I/O.
func (f Filter) Match(p string) bool {
	clean, ok := gitrepo.NormalizePath(p)
	if !ok {
		return false
	}
	if len(f.include) > 0 && !matchAny(f.include, clean) {
		return false
	}
	return !matchAny(f.exclude, clean)
}

func normalizeAll(prefixes []string) []string {
	if len(prefixes) == 0 {
		return nil
	}
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if clean, ok := gitrepo.NormalizePath(p); ok {
			out = append(out, clean)
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchAny(prefixes []string, p string) bool {
	for _, prefix := range prefixes {
		if matchPrefix(prefix, p) {
			return true
		}
	}
	return false
}

// matchPrefix compares on segment boundaries. The empty prefix is the tree
// root and matches every path.
func matchPrefix(prefix, p string) bool {
	if prefix == "" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
