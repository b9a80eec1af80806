// Package github implements the gitrepo.Client port using the official
// go-github library, plus factories for authenticated clients and an
// in-memory fake for tests.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v75/github"

	"github.com/tilsley/ghgrab/pkg/gitrepo"
)

// Adapter wraps a go-github client and implements gitrepo.Client. Wire it
// up with a client from NewTokenClient or NewAppClient.
type Adapter struct {
	gh *gogithub.Client
}

// New creates an Adapter from a *github.Client.
func New(gh *gogithub.Client) *Adapter {
	return &Adapter{gh: gh}
}

// ListTree fetches the full recursive listing for ref. The recursive tree
// endpoint truncates very large repositories; when that happens the listing
// is completed by walking subtrees one level at a time by SHA.
func (a *Adapter) ListTree(ctx context.Context, ref gitrepo.RepoRef) ([]gitrepo.TreeEntry, error) {
	tree, _, err := a.gh.Git.GetTree(ctx, ref.Owner, ref.Name, ref.Ref, true)
	if err != nil {
		return nil, mapError("list tree "+ref.String(), ref, err)
	}
	if !tree.GetTruncated() {
		return convertEntries(tree.Entries, "")
	}
	var out []gitrepo.TreeEntry
	if err := a.walkTree(ctx, ref, ref.Ref, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// walkTree collects entries below the tree identified by sha, one
// non-recursive request per directory level.
func (a *Adapter) walkTree(ctx context.Context, ref gitrepo.RepoRef, sha, prefix string, out *[]gitrepo.TreeEntry) error {
	tree, _, err := a.gh.Git.GetTree(ctx, ref.Owner, ref.Name, sha, false)
	if err != nil {
		return mapError(fmt.Sprintf("list tree %s/%s@%s", ref.Owner, ref.Name, sha), ref, err)
	}
	converted, err := convertEntries(tree.Entries, prefix)
	if err != nil {
		return err
	}
	*out = append(*out, converted...)
	for _, e := range converted {
		if e.Kind == gitrepo.KindDir {
			if err := a.walkTree(ctx, ref, e.SHA, e.Path, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetBlob fetches one blob by content address and returns its decoded bytes.
func (a *Adapter) GetBlob(ctx context.Context, ref gitrepo.RepoRef, sha string) ([]byte, error) {
	blob, _, err := a.gh.Git.GetBlob(ctx, ref.Owner, ref.Name, sha)
	if err != nil {
		return nil, mapError("get blob "+sha, ref, err)
	}
	switch blob.GetEncoding() {
	case "base64":
		// GitHub wraps base64 payloads with newlines.
		raw := strings.NewReplacer("\n", "", "\r", "").Replace(blob.GetContent())
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, gitrepo.MalformedResponseError{Reason: "blob " + sha + " content is not valid base64", Err: err}
		}
		return data, nil
	case "utf-8":
		return []byte(blob.GetContent()), nil
	default:
		return nil, gitrepo.MalformedResponseError{
			Reason: fmt.Sprintf("blob %s has unsupported encoding %q", sha, blob.GetEncoding()),
		}
	}
}

func convertEntries(entries []*gogithub.TreeEntry, prefix string) ([]gitrepo.TreeEntry, error) {
	out := make([]gitrepo.TreeEntry, 0, len(entries))
	for _, e := range entries {
		var kind gitrepo.EntryKind
		switch e.GetType() {
		case "blob":
			kind = gitrepo.KindFile
		case "tree":
			kind = gitrepo.KindDir
		case "commit":
			// Submodule pointer. It has no blob content and is not part of
			// this repository's own tree.
			continue
		default:
			return nil, gitrepo.MalformedResponseError{
				Reason: fmt.Sprintf("unknown tree entry type %q at %q", e.GetType(), e.GetPath()),
			}
		}
		p := e.GetPath()
		if prefix != "" {
			p = path.Join(prefix, p)
		}
		out = append(out, gitrepo.TreeEntry{
			Path: p,
			Kind: kind,
			SHA:  e.GetSHA(),
			Size: int64(e.GetSize()),
			Mode: e.GetMode(),
		})
	}
	return out, nil
}

// mapError translates go-github failures into the gitrepo error taxonomy.
func mapError(op string, ref gitrepo.RepoRef, err error) error {
	var abuse *gogithub.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return gitrepo.RateLimitedError{RetryAfter: abuse.GetRetryAfter()}
	}
	var limit *gogithub.RateLimitError
	if errors.As(err, &limit) {
		retry := time.Until(limit.Rate.Reset.Time)
		if retry < 0 {
			retry = 0
		}
		return gitrepo.RateLimitedError{RetryAfter: retry}
	}
	var apiErr *gogithub.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		switch apiErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusUnprocessableEntity:
			return gitrepo.NotFoundError{Ref: ref}
		}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return gitrepo.MalformedResponseError{Reason: op, Err: err}
	}
	return gitrepo.TransportError{Op: op, Err: err}
}
