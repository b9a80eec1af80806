// Package gitrepo defines the domain types and the client port for reading
// a repository hosted on GitHub (or a compatible mock) over its REST API.
// Adapters live in pkg/github; everything here is transport-free.
package gitrepo

import (
	"context"
	"fmt"
	"strings"
)

// EntryKind classifies a tree entry as a file or a directory.
type EntryKind string

const (
	// KindFile is a blob entry whose content can be fetched.
	KindFile EntryKind = "file"
	// KindDir is a tree entry. Directories have no content of their own.
	KindDir EntryKind = "dir"
)

// RepoRef identifies a repository snapshot: owner, repository name, and a
// ref (branch name or commit SHA). Immutable after construction.
type RepoRef struct {
	Owner string
	Name  string
	Ref   string
}

// NewRepoRef validates and builds a RepoRef. Owner and name must be single
// path segments; ref must be non-empty. Existence is the API's business.
func NewRepoRef(owner, name, ref string) (RepoRef, error) {
	switch {
	case owner == "" || strings.Contains(owner, "/"):
		return RepoRef{}, fmt.Errorf("invalid repository owner %q", owner)
	case name == "" || strings.Contains(name, "/"):
		return RepoRef{}, fmt.Errorf("invalid repository name %q", name)
	case ref == "":
		return RepoRef{}, fmt.Errorf("empty ref for %s/%s", owner, name)
	}
	return RepoRef{Owner: owner, Name: name, Ref: ref}, nil
}

// WithRef returns a copy of the reference pointing at a different ref.
// Used when walking subtrees by SHA.
func (r RepoRef) WithRef(ref string) RepoRef {
	return RepoRef{Owner: r.Owner, Name: r.Name, Ref: ref}
}

// String renders the reference as "owner/name@ref".
func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name + "@" + r.Ref
}

// TreeEntry is one record of a repository's flat tree listing.
type TreeEntry struct {
	// Path is slash-separated and relative to the repository root.
	Path string
	Kind EntryKind
	// SHA is the content address used to fetch blob content.
	// For directories it addresses the subtree.
	SHA string
	// Size in bytes, advisory. Zero for directories.
	Size int64
	// Mode is the unix permission mode in numeric notation, e.g. "100644".
	Mode string
}

// IsFile reports whether the entry's content can be fetched as a blob.
func (e TreeEntry) IsFile() bool { return e.Kind == KindFile }

// Client is the port for reading a remote repository. ListTree returns the
// full recursive entry listing for a ref in one logical operation; GetBlob
// fetches and decodes the content of a single blob.
type Client interface {
	ListTree(ctx context.Context, ref RepoRef) ([]TreeEntry, error)
	GetBlob(ctx context.Context, ref RepoRef, sha string) ([]byte, error)
}
