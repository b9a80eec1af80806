// Package download orchestrates concurrent, filtered retrieval of blob
// contents onto local storage.
//
// Failure policy is best-effort: every selected file is attempted, per-file
// failures are collected, and DownloadTree returns a *gitrepo.DownloadError
// enumerating each failed path with its cause. Partial success is therefore
// never reported as full success. Nothing is retried internally: a
// rate-limit failure surfaces attributed to its path and the caller picks
// the backoff policy. Context cancellation is the one exception: it stops
// new fetches and surfaces the context's error directly.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tilsley/ghgrab/pkg/filter"
	"github.com/tilsley/ghgrab/pkg/gitrepo"
	"github.com/tilsley/ghgrab/pkg/sourcetree"
)

// DefaultMaxConcurrent bounds in-flight blob fetches, chosen to stay under
// GitHub's secondary rate limit for typical repositories.
const DefaultMaxConcurrent = 5

// TokenEnv is the environment variable consulted for an access token when
// the Config does not carry one explicitly.
const TokenEnv = "GITHUB_ACCESS_TOKEN"

// Config holds the parameters of one download operation. Immutable for its
// duration.
type Config struct {
	// Dest is the local directory downloaded files are written under,
	// preserving their repository-relative paths.
	Dest string
	// Token is the access token, resolved once at construction. The
	// downloader itself never reads the environment; callers pass Token to
	// github.NewTokenClient.
	Token string
	// MaxConcurrent bounds simultaneous blob fetches. Zero or negative
	// means DefaultMaxConcurrent.
	MaxConcurrent int
	// Reporter receives per-file progress events. Nil means no reporting.
	// Invoked from worker goroutines, so implementations must be cheap.
	Reporter Reporter
}

// NewConfig builds a Config for dest with the token taken from TokenEnv and
// the default concurrency bound.
func NewConfig(dest string) Config {
	return Config{
		Dest:          dest,
		Token:         os.Getenv(TokenEnv),
		MaxConcurrent: DefaultMaxConcurrent,
	}
}

// Result lists the outcome of a download operation: repository-relative
// paths written, and per-path failures. Both are sorted by path.
type Result struct {
	Files    []string
	Failures []gitrepo.Failure
}

// Downloader fetches selected blob contents and writes them to disk.
type Downloader struct {
	client gitrepo.Client
	log    *slog.Logger
}

// New creates a Downloader on top of the given client. A nil logger falls
// back to slog.Default.
func New(client gitrepo.Client, log *slog.Logger) *Downloader {
	if log == nil {
		log = slog.Default()
	}
	return &Downloader{client: client, log: log}
}

// Download fetches the source tree for ref and delegates to DownloadTree.
func (d *Downloader) Download(ctx context.Context, cfg Config, ref gitrepo.RepoRef, f filter.Filter) (*Result, error) {
	tree, err := sourcetree.Get(ctx, d.client, ref)
	if err != nil {
		return nil, err
	}
	return d.DownloadTree(ctx, cfg, tree, f)
}

// DownloadTree downloads every file entry of tree selected by f into
// cfg.Dest. Fetches run concurrently up to the configured bound; each file
// is written atomically, so the destination only ever observes absent or
// complete files. Directories are created lazily, only to hold a written
// file. Returns a non-nil *gitrepo.DownloadError iff at least one selected
// file failed.
func (d *Downloader) DownloadTree(ctx context.Context, cfg Config, tree *sourcetree.Tree, f filter.Filter) (*Result, error) {
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = NullReporter{}
	}
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}

	var selected []gitrepo.TreeEntry
	for _, e := range tree.Entries() {
		if !f.Match(e.Path) {
			continue
		}
		if !e.IsFile() {
			if tree.Len() == 1 {
				// A directory entry passed directly as the download target.
				return nil, gitrepo.NotAFileError{Path: e.Path}
			}
			continue
		}
		selected = append(selected, e)
	}

	res := &Result{}
	if len(selected) == 0 {
		return res, nil
	}

	d.log.Debug("starting download",
		"ref", tree.Ref().String(), "files", len(selected), "dest", cfg.Dest, "concurrency", limit)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, entry := range selected {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reporter.Started(entry.Path)
			n, err := d.fetchOne(gctx, cfg, tree.Ref(), entry)
			mu.Lock()
			if err != nil {
				res.Failures = append(res.Failures, gitrepo.Failure{Path: entry.Path, Err: err})
			} else {
				res.Files = append(res.Files, entry.Path)
			}
			mu.Unlock()
			if err != nil {
				reporter.Failed(entry.Path, err)
				d.log.Warn("file download failed", "path", entry.Path, "error", err)
				if cause := gctx.Err(); cause != nil {
					return cause
				}
				return nil
			}
			reporter.Completed(entry.Path, n)
			return nil
		})
	}
	waitErr := g.Wait()

	sort.Strings(res.Files)
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Path < res.Failures[j].Path })

	if waitErr != nil {
		// Cancellation: in-flight work was abandoned, fully-written files stay.
		return res, waitErr
	}
	if len(res.Failures) > 0 {
		return res, &gitrepo.DownloadError{Failures: res.Failures}
	}
	return res, nil
}

// fetchOne retrieves one blob and writes it under the destination root.
func (d *Downloader) fetchOne(ctx context.Context, cfg Config, ref gitrepo.RepoRef, e gitrepo.TreeEntry) (int64, error) {
	data, err := d.client.GetBlob(ctx, ref, e.SHA)
	if err != nil {
		return 0, err
	}
	target := filepath.Join(cfg.Dest, filepath.FromSlash(e.Path))
	if err := writeFileAtomic(target, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// writeFileAtomic writes data to target via a temp file and rename, so a
// crashed or failed write never leaves a partial file at the target path.
func writeFileAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", target, err)
	}
	return nil
}
