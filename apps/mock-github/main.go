// mock-github serves the subset of the GitHub Git Data API that ghgrab
// talks to: GET a tree (recursive or one level) and GET a blob. It exists
// for local development of the CLI without burning real API quota.
//
// Admin endpoints allow simulating the awkward cases: response truncation
// (forcing the client's level-by-level fallback) and secondary rate limits
// on individual blobs.
package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// treeEntry matches the Git Data API tree record shape.
type treeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"` // "blob" or "tree"
	SHA  string `json:"sha"`
	Size int    `json:"size,omitempty"`
	URL  string `json:"url"`
}

// store holds seeded repositories keyed by "owner/repo". Each repo maps a
// file path to its content; tree and blob SHAs are derived determinstically
// at seed time.
type store struct {
	mu        sync.RWMutex
	repos     map[string]map[string]string // "owner/repo" → path → content
	blobs     map[string][]byte            // blob sha → content
	truncated map[string]bool              // "owner/repo" → truncate recursive listing
	throttled map[string]bool              // blob sha → respond with secondary rate limit
}

func newStore() *store {
	return &store{
		repos:     make(map[string]map[string]string),
		blobs:     make(map[string][]byte),
		truncated: make(map[string]bool),
		throttled: make(map[string]bool),
	}
}

func (s *store) addRepo(key string, files map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repos[key] = files
	for p, content := range files {
		s.blobs[blobSHA(key, p)] = []byte(content)
	}
}

// tree renders the flat listing for a repo. When recursive is false only
// entries directly under parent are returned, mirroring the real endpoint.
func (s *store) tree(key, parent string, recursive bool) ([]treeEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, ok := s.repos[key]
	if !ok {
		return nil, false
	}

	prefix := parent
	if prefix != "" {
		prefix += "/"
	}

	seen := map[string]bool{}
	var entries []treeEntry
	for p := range files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		if recursive {
			// Emit every ancestor directory once, then the blob itself.
			segs := strings.Split(rest, "/")
			for i := 1; i < len(segs); i++ {
				dir := strings.Join(segs[:i], "/")
				if !seen[dir] {
					seen[dir] = true
					entries = append(entries, dirEntry(key, dir))
				}
			}
			entries = append(entries, fileEntry(key, p, rest, files[p]))
			continue
		}
		name, _, isDir := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		if isDir {
			// One-level responses report child names; the SHA still
			// addresses the full subtree path.
			e := dirEntry(key, joinPath(parent, name))
			e.Path = name
			entries = append(entries, e)
		} else {
			entries = append(entries, fileEntry(key, p, name, files[p]))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, true
}

func (s *store) blob(sha string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[sha]
	return b, ok
}

func (s *store) setTruncated(key string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.truncated[key] = v
}

func (s *store) isTruncated(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.truncated[key]
}

func (s *store) setThrottled(sha string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttled[sha] = v
}

func (s *store) isThrottled(sha string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.throttled[sha]
}

func dirEntry(key, dir string) treeEntry {
	// In recursive responses the API reports full paths; in one-level
	// responses it reports names. The caller passes whichever it needs.
	return treeEntry{
		Path: dir,
		Mode: "040000",
		Type: "tree",
		SHA:  treeSHA(key, dir),
		URL:  apiURL(key, "trees", treeSHA(key, dir)),
	}
}

func fileEntry(key, fullPath, reportedPath, content string) treeEntry {
	return treeEntry{
		Path: reportedPath,
		Mode: "100644",
		Type: "blob",
		SHA:  blobSHA(key, fullPath),
		Size: len(content),
		URL:  apiURL(key, "blobs", blobSHA(key, fullPath)),
	}
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	port := envOr("PORT", "9090")

	s := newStore()
	seedRepos(s)

	r := gin.Default()

	r.GET("/repos/:owner/:repo/git/trees/*ref", func(c *gin.Context) {
		key := c.Param("owner") + "/" + c.Param("repo")
		ref := strings.TrimPrefix(c.Param("ref"), "/")
		recursive := c.Query("recursive") != ""

		// A ref of the form tree:<path> addresses a subtree (the SHAs
		// handed out in tree listings decode to this form).
		parent, bySubtree := decodeTreeSHA(key, ref)
		if !bySubtree {
			parent = ""
		}

		entries, ok := s.tree(key, parent, recursive)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
			return
		}
		truncated := false
		if recursive && !bySubtree && s.isTruncated(key) {
			// Simulate the API's truncation: drop everything and tell the
			// client to walk level by level.
			entries = entries[:0]
			truncated = true
		}
		c.JSON(http.StatusOK, gin.H{
			"sha":       treeSHA(key, parent),
			"url":       apiURL(key, "trees", treeSHA(key, parent)),
			"tree":      entries,
			"truncated": truncated,
		})
	})

	r.GET("/repos/:owner/:repo/git/blobs/:sha", func(c *gin.Context) {
		sha := c.Param("sha")
		if s.isThrottled(sha) {
			c.Header("Retry-After", "30")
			c.JSON(http.StatusForbidden, gin.H{
				"message":           "You have exceeded a secondary rate limit. Please wait a few minutes before you try again.",
				"documentation_url": "https://docs.github.com/rest/overview/resources-in-the-rest-api#secondary-rate-limits",
			})
			return
		}
		content, ok := s.blob(sha)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sha":      sha,
			"content":  wrapBase64(content),
			"encoding": "base64",
			"size":     len(content),
		})
	})

	// Admin toggles for exercising client failure paths.
	r.POST("/admin/truncate/:owner/:repo", func(c *gin.Context) {
		key := c.Param("owner") + "/" + c.Param("repo")
		s.setTruncated(key, c.Query("off") == "")
		c.Status(http.StatusNoContent)
	})
	r.POST("/admin/throttle/:sha", func(c *gin.Context) {
		s.setThrottled(c.Param("sha"), c.Query("off") == "")
		c.Status(http.StatusNoContent)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info("mock-github starting", "port", port)
	if err := r.Run(":" + port); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// wrapBase64 encodes content and inserts newlines every 60 characters, as
// the real blob endpoint does.
func wrapBase64(content []byte) string {
	enc := base64.StdEncoding.EncodeToString(content)
	var b strings.Builder
	for len(enc) > 60 {
		b.WriteString(enc[:60])
		b.WriteByte('\n')
		enc = enc[60:]
	}
	b.WriteString(enc)
	b.WriteByte('\n')
	return b.String()
}

func blobSHA(key, path string) string {
	return fmt.Sprintf("blob-%x", key+":"+path)
}

func treeSHA(key, dir string) string {
	return fmt.Sprintf("tree-%x", key+":"+dir)
}

// decodeTreeSHA recovers the subtree path from a SHA minted by treeSHA.
func decodeTreeSHA(key, ref string) (string, bool) {
	hexPart, ok := strings.CutPrefix(ref, "tree-")
	if !ok {
		return "", false
	}
	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return "", false
	}
	decoded, ok := strings.CutPrefix(string(raw), key+":")
	if !ok {
		return "", false
	}
	return decoded, true
}

func apiURL(key, kind, sha string) string {
	return fmt.Sprintf("http://localhost:9090/repos/%s/git/%s/%s", key, kind, sha)
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
