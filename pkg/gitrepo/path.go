package gitrepo

import (
	"path"
	"strings"
)

// NormalizePath canonicalizes a slash-separated repository-relative path:
// leading and trailing separators are stripped, duplicate separators and
// "." / ".." segments are resolved. The empty result denotes the tree root.
// ok is false when the path escapes the root (e.g. "../x") or is absolute
// after cleaning; such a path can never name a tree entry.
//
// Normalization is idempotent: NormalizePath(p) == NormalizePath(NormalizePath(p)).
func NormalizePath(p string) (clean string, ok bool) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", true
	}
	p = path.Clean(p)
	if p == "." {
		return "", true
	}
	if p == ".." || strings.HasPrefix(p, "../") || strings.HasPrefix(p, "/") {
		return "", false
	}
	return p, true
}
