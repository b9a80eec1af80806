// Package sourcetree builds an immutable, indexed view of a repository's
// file and directory structure from the flat recursive tree listing.
//
// The listing is kept as a flat table keyed by normalized path rather than a
// nested node graph: one map lookup resolves any path, and the tree can be
// shared read-only across concurrent download workers without locking.
package sourcetree

import (
	"context"
	"fmt"
	"path"

	"github.com/tilsley/ghgrab/pkg/gitrepo"
)

// Tree is the indexed entry collection for one repository ref. Constructed
// once, never mutated. A Tree may also hold a single resolved entry (see
// Singleton), which downloads treat the same as a full tree.
type Tree struct {
	ref     gitrepo.RepoRef
	entries []gitrepo.TreeEntry
	index   map[string]int // normalized path → position in entries
}

// Get fetches the full recursive listing for ref and builds a Tree.
// One logical network operation; a failed fetch or an inconsistent listing
// leaves no partially-built tree behind.
func Get(ctx context.Context, client gitrepo.Client, ref gitrepo.RepoRef) (*Tree, error) {
	entries, err := client.ListTree(ctx, ref)
	if err != nil {
		return nil, err
	}
	return New(ref, entries)
}

// New builds a Tree from a flat entry listing. Entry paths are normalized
// before indexing. The listing is rejected with a
// gitrepo.MalformedResponseError when an entry path is empty or escapes the
// root, when two entries normalize to the same path, or when a file entry
// appears as an ancestor of another entry.
func New(ref gitrepo.RepoRef, entries []gitrepo.TreeEntry) (*Tree, error) {
	t := &Tree{
		ref:     ref,
		entries: make([]gitrepo.TreeEntry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		p, ok := gitrepo.NormalizePath(e.Path)
		if !ok || p == "" {
			return nil, gitrepo.MalformedResponseError{Reason: fmt.Sprintf("invalid tree entry path %q", e.Path)}
		}
		if prev, dup := t.index[p]; dup {
			return nil, gitrepo.MalformedResponseError{
				Reason: fmt.Sprintf("entries %q and %q collide at %q", t.entries[prev].Path, e.Path, p),
			}
		}
		e.Path = p
		t.index[p] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	for _, e := range t.entries {
		for dir := path.Dir(e.Path); dir != "."; dir = path.Dir(dir) {
			if i, ok := t.index[dir]; ok && t.entries[i].Kind != gitrepo.KindDir {
				return nil, gitrepo.MalformedResponseError{
					Reason: fmt.Sprintf("file entry %q is an ancestor of %q", dir, e.Path),
				}
			}
		}
	}
	return t, nil
}

// Singleton wraps a single resolved entry as a one-entry Tree, the form
// download.DownloadTree accepts for fetching one file.
func Singleton(ref gitrepo.RepoRef, entry gitrepo.TreeEntry) *Tree {
	if p, ok := gitrepo.NormalizePath(entry.Path); ok {
		entry.Path = p
	}
	return &Tree{
		ref:     ref,
		entries: []gitrepo.TreeEntry{entry},
		index:   map[string]int{entry.Path: 0},
	}
}

// Ref returns the repository reference this tree was built for.
func (t *Tree) Ref() gitrepo.RepoRef { return t.ref }

// Len returns the number of entries, directories included.
func (t *Tree) Len() int { return len(t.entries) }

// Entries returns a copy of the ordered entry listing.
func (t *Tree) Entries() []gitrepo.TreeEntry {
	out := make([]gitrepo.TreeEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Resolve normalizes p and looks it up. A miss, an empty path, or a path
// that escapes the root all report ok=false; resolution never fails with an
// error. Directory entries resolve too, which is how a subtree is used as a
// filter root.
func (t *Tree) Resolve(p string) (gitrepo.TreeEntry, bool) {
	clean, ok := gitrepo.NormalizePath(p)
	if !ok || clean == "" {
		return gitrepo.TreeEntry{}, false
	}
	i, ok := t.index[clean]
	if !ok {
		return gitrepo.TreeEntry{}, false
	}
	return t.entries[i], true
}

// ResolveBlob is Resolve restricted to file entries.
func (t *Tree) ResolveBlob(p string) (gitrepo.TreeEntry, bool) {
	e, ok := t.Resolve(p)
	if !ok || !e.IsFile() {
		return gitrepo.TreeEntry{}, false
	}
	return e, true
}
