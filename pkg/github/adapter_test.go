package github_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	gogithub "github.com/google/go-github/v75/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/ghgrab/pkg/github"
	"github.com/tilsley/ghgrab/pkg/gitrepo"
)

func testRef(t *testing.T) gitrepo.RepoRef {
	t.Helper()
	ref, err := gitrepo.NewRepoRef("githubtraining", "hellogitworld", "master")
	require.NoError(t, err)
	return ref
}

// newAdapter points a real go-github client at the test server.
func newAdapter(t *testing.T, srv *httptest.Server) *github.Adapter {
	t.Helper()
	c := gogithub.NewClient(nil)
	u, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	c.BaseURL = u
	return github.New(c)
}

type treeJSON struct {
	SHA       string          `json:"sha"`
	Tree      []treeEntryJSON `json:"tree"`
	Truncated bool            `json:"truncated"`
}

type treeEntryJSON struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	Size int    `json:"size,omitempty"`
	SHA  string `json:"sha"`
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestListTree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/githubtraining/hellogitworld/git/trees/master", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		writeJSON(t, w, treeJSON{
			SHA: "root-sha",
			Tree: []treeEntryJSON{
				{Path: "build.gradle", Mode: "100644", Type: "blob", Size: 112, SHA: "sha-gradle"},
				{Path: "src", Mode: "040000", Type: "tree", SHA: "sha-src"},
				{Path: "src/App.java", Mode: "100644", Type: "blob", Size: 750, SHA: "sha-app"},
				{Path: "vendored", Mode: "160000", Type: "commit", SHA: "sha-sub"},
			},
		})
	}))
	defer srv.Close()

	entries, err := newAdapter(t, srv).ListTree(context.Background(), testRef(t))
	require.NoError(t, err)

	require.Len(t, entries, 3, "submodule entries are skipped")
	assert.Equal(t, gitrepo.TreeEntry{Path: "build.gradle", Kind: gitrepo.KindFile, SHA: "sha-gradle", Size: 112, Mode: "100644"}, entries[0])
	assert.Equal(t, gitrepo.KindDir, entries[1].Kind)
	assert.Equal(t, "src/App.java", entries[2].Path)
}

func TestListTreeTruncatedFallback(t *testing.T) {
	var recursiveCalls, shallowCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("recursive") != "" {
			recursiveCalls++
			writeJSON(t, w, treeJSON{SHA: "root-sha", Truncated: true})
			return
		}
		shallowCalls++
		switch r.URL.Path {
		case "/repos/githubtraining/hellogitworld/git/trees/master":
			writeJSON(t, w, treeJSON{SHA: "root-sha", Tree: []treeEntryJSON{
				{Path: "a.txt", Mode: "100644", Type: "blob", SHA: "sha-a"},
				{Path: "src", Mode: "040000", Type: "tree", SHA: "sha-src"},
			}})
		case "/repos/githubtraining/hellogitworld/git/trees/sha-src":
			writeJSON(t, w, treeJSON{SHA: "sha-src", Tree: []treeEntryJSON{
				{Path: "b.txt", Mode: "100644", Type: "blob", SHA: "sha-b"},
			}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	entries, err := newAdapter(t, srv).ListTree(context.Background(), testRef(t))
	require.NoError(t, err)

	assert.Equal(t, 1, recursiveCalls)
	assert.Equal(t, 2, shallowCalls)

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	assert.ElementsMatch(t, []string{"a.txt", "src", "src/b.txt"}, paths,
		"subtree paths are joined onto their parent")
}

func TestListTreeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}))
	defer srv.Close()

	_, err := newAdapter(t, srv).ListTree(context.Background(), testRef(t))
	var notFound gitrepo.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "githubtraining/hellogitworld@master", notFound.Ref.String())
}

func TestSecondaryRateLimitMapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{
			"message": "You have exceeded a secondary rate limit. Please wait a few minutes before you try again.",
			"documentation_url": "https://docs.github.com/rest/overview/resources-in-the-rest-api#secondary-rate-limits"
		}`)
	}))
	defer srv.Close()

	_, err := newAdapter(t, srv).GetBlob(context.Background(), testRef(t), "sha-x")
	var limited gitrepo.RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 30*time.Second, limited.RetryAfter)
}

func TestGetBlob(t *testing.T) {
	content := "apply plugin: 'java'\n"
	// GitHub wraps base64 payloads in newlines; decoding must tolerate them.
	wrapped := base64.StdEncoding.EncodeToString([]byte(content))[:10] + "\n" +
		base64.StdEncoding.EncodeToString([]byte(content))[10:] + "\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/githubtraining/hellogitworld/git/blobs/sha-gradle", r.URL.Path)
		writeJSON(t, w, map[string]any{
			"sha":      "sha-gradle",
			"size":     len(content),
			"content":  wrapped,
			"encoding": "base64",
		})
	}))
	defer srv.Close()

	data, err := newAdapter(t, srv).GetBlob(context.Background(), testRef(t), "sha-gradle")
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestGetBlobBadBase64(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"sha": "x", "content": "!!! not base64 !!!", "encoding": "base64"})
	}))
	defer srv.Close()

	_, err := newAdapter(t, srv).GetBlob(context.Background(), testRef(t), "x")
	var malformed gitrepo.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestGetBlobUnknownEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"sha": "x", "content": "zzzz", "encoding": "punycode"})
	}))
	defer srv.Close()

	_, err := newAdapter(t, srv).GetBlob(context.Background(), testRef(t), "x")
	var malformed gitrepo.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestTransportErrorMapped(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close() // connection refused from here on

	_, err := newAdapter(t, srv).ListTree(context.Background(), testRef(t))
	var transport gitrepo.TransportError
	require.ErrorAs(t, err, &transport)
}
