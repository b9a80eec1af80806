package github

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"path"
	"sync"

	"github.com/tilsley/ghgrab/pkg/gitrepo"
)

// InMem is an in-memory gitrepo.Client for unit tests. Files are seeded
// with SetFile; directory entries for ancestors are derived automatically.
// FailBlob injects a per-path error so partial-failure behavior can be
// exercised without a network.
type InMem struct {
	mu       sync.Mutex
	order    []string // entry paths in seed order, dirs interleaved
	entries  map[string]gitrepo.TreeEntry
	blobs    map[string][]byte // sha → content
	failures map[string]error  // sha → injected error
	listErr  error
	fetched  map[string]int // sha → GetBlob call count
}

// NewInMem creates an empty InMem client.
func NewInMem() *InMem {
	return &InMem{
		entries:  make(map[string]gitrepo.TreeEntry),
		blobs:    make(map[string][]byte),
		failures: make(map[string]error),
		fetched:  make(map[string]int),
	}
}

// SetFile seeds a file and its ancestor directories, returning the file's
// content address.
func (m *InMem) SetFile(p, content string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if _, ok := m.entries[dir]; ok {
			continue
		}
		m.add(gitrepo.TreeEntry{Path: dir, Kind: gitrepo.KindDir, SHA: blobSHA("dir:" + dir), Mode: "040000"})
	}

	sha := blobSHA(p + ":" + content)
	m.add(gitrepo.TreeEntry{Path: p, Kind: gitrepo.KindFile, SHA: sha, Size: int64(len(content)), Mode: "100644"})
	m.blobs[sha] = []byte(content)
	return sha
}

// SetEntry seeds a raw entry without content, for malformed-listing tests.
func (m *InMem) SetEntry(e gitrepo.TreeEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(e)
}

// FailBlob makes GetBlob return err for the file previously seeded at p.
func (m *InMem) FailBlob(p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[p]; ok {
		m.failures[e.SHA] = err
	}
}

// FailList makes ListTree return err.
func (m *InMem) FailList(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// Fetches returns how many times the blob at p was requested.
func (m *InMem) Fetches(p string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[p]; ok {
		return m.fetched[e.SHA]
	}
	return 0
}

// ListTree returns the seeded entries in seed order.
func (m *InMem) ListTree(_ context.Context, _ gitrepo.RepoRef) ([]gitrepo.TreeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]gitrepo.TreeEntry, 0, len(m.order))
	for _, p := range m.order {
		out = append(out, m.entries[p])
	}
	return out, nil
}

// GetBlob returns seeded content, the injected failure, or NotFound.
func (m *InMem) GetBlob(_ context.Context, ref gitrepo.RepoRef, sha string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched[sha]++
	if err, ok := m.failures[sha]; ok {
		return nil, err
	}
	content, ok := m.blobs[sha]
	if !ok {
		return nil, gitrepo.NotFoundError{Ref: ref, Path: sha}
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

// add records an entry, replacing any previous one at the same path without
// duplicating it in the ordering.
func (m *InMem) add(e gitrepo.TreeEntry) {
	if _, ok := m.entries[e.Path]; !ok {
		m.order = append(m.order, e.Path)
	}
	m.entries[e.Path] = e
}

func blobSHA(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
