package download_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/ghgrab/pkg/download"
	"github.com/tilsley/ghgrab/pkg/filter"
	"github.com/tilsley/ghgrab/pkg/github"
	"github.com/tilsley/ghgrab/pkg/gitrepo"
	"github.com/tilsley/ghgrab/pkg/sourcetree"
)

func testRef(t *testing.T) gitrepo.RepoRef {
	t.Helper()
	ref, err := gitrepo.NewRepoRef("githubtraining", "hellogitworld", "master")
	require.NoError(t, err)
	return ref
}

// recordingReporter captures events for assertions. Mutex-guarded because
// the downloader invokes it from worker goroutines.
type recordingReporter struct {
	mu        sync.Mutex
	started   []string
	completed []string
	failed    []string
}

func (r *recordingReporter) Started(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, path)
}

func (r *recordingReporter) Completed(path string, _ int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, path)
}

func (r *recordingReporter) Failed(path string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, path)
}

func seedClient() *github.InMem {
	client := github.NewInMem()
	client.SetFile("build.gradle", "apply plugin: 'java'\n")
	client.SetFile("README.txt", "hello\n")
	client.SetFile("src/main/App.java", "class App {}\n")
	client.SetFile("src/test/AppTest.java", "class AppTest {}\n")
	return client
}

func readFile(t *testing.T, dest, rel string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(raw)
}

func TestDownloadAll(t *testing.T) {
	client := seedClient()
	dest := t.TempDir()

	cfg := download.Config{Dest: dest}
	dl := download.New(client, nil)

	res, err := dl.Download(context.Background(), cfg, testRef(t), filter.All())
	require.NoError(t, err)
	require.Len(t, res.Files, 4)
	assert.Empty(t, res.Failures)

	assert.Equal(t, "apply plugin: 'java'\n", readFile(t, dest, "build.gradle"))
	assert.Equal(t, "class App {}\n", readFile(t, dest, "src/main/App.java"))
}

func TestDownloadIsRepeatable(t *testing.T) {
	client := seedClient()
	dl := download.New(client, nil)

	var contents [2]string
	for i := range contents {
		dest := t.TempDir()
		_, err := dl.Download(context.Background(), download.Config{Dest: dest}, testRef(t), filter.All())
		require.NoError(t, err)
		contents[i] = readFile(t, dest, "src/test/AppTest.java")
	}
	assert.Equal(t, contents[0], contents[1])
}

func TestDownloadFiltered(t *testing.T) {
	client := seedClient()
	dest := t.TempDir()
	dl := download.New(client, nil)

	res, err := dl.Download(context.Background(), download.Config{Dest: dest},
		testRef(t), filter.New([]string{"src/main"}, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main/App.java"}, res.Files)

	// Unselected subtrees leave no directories behind.
	_, statErr := os.Stat(filepath.Join(dest, "src", "test"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dest, "build.gradle"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadNothingSelected(t *testing.T) {
	client := seedClient()
	dest := t.TempDir()
	dl := download.New(client, nil)

	res, err := dl.Download(context.Background(), download.Config{Dest: dest},
		testRef(t), filter.New([]string{"nonexistent-dir"}, nil))
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.Empty(t, res.Failures)

	// No lazy directory creation without a written file.
	listing, readErr := os.ReadDir(dest)
	require.NoError(t, readErr)
	assert.Empty(t, listing)
}

func TestDownloadSingleResolvedFile(t *testing.T) {
	client := seedClient()
	dest := t.TempDir()
	dl := download.New(client, nil)

	tree, err := sourcetree.Get(context.Background(), client, testRef(t))
	require.NoError(t, err)
	entry, ok := tree.ResolveBlob("build.gradle")
	require.True(t, ok)

	res, err := dl.DownloadTree(context.Background(), download.Config{Dest: dest},
		sourcetree.Singleton(testRef(t), entry), filter.All())
	require.NoError(t, err)
	assert.Equal(t, []string{"build.gradle"}, res.Files)
	assert.NotEmpty(t, readFile(t, dest, "build.gradle"))
}

func TestDownloadDirectoryEntryFails(t *testing.T) {
	client := seedClient()
	dl := download.New(client, nil)

	tree, err := sourcetree.Get(context.Background(), client, testRef(t))
	require.NoError(t, err)
	dir, ok := tree.Resolve("src")
	require.True(t, ok)

	_, err = dl.DownloadTree(context.Background(), download.Config{Dest: t.TempDir()},
		sourcetree.Singleton(testRef(t), dir), filter.All())
	var notAFile gitrepo.NotAFileError
	require.ErrorAs(t, err, &notAFile)
	assert.Equal(t, "src", notAFile.Path)
}

func TestPartialFailureIsAggregated(t *testing.T) {
	client := seedClient()
	client.FailBlob("README.txt", gitrepo.RateLimitedError{})
	dest := t.TempDir()

	reporter := &recordingReporter{}
	cfg := download.Config{Dest: dest, Reporter: reporter}
	dl := download.New(client, nil)

	res, err := dl.Download(context.Background(), cfg, testRef(t), filter.All())

	// The other files still download; the failure is attributed to its path.
	require.Len(t, res.Files, 3)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "README.txt", res.Failures[0].Path)

	var dlErr *gitrepo.DownloadError
	require.ErrorAs(t, err, &dlErr)
	require.Len(t, dlErr.Failures, 1)
	var rl gitrepo.RateLimitedError
	assert.ErrorAs(t, dlErr.Failures[0].Err, &rl)

	assert.ElementsMatch(t, []string{"README.txt"}, reporter.failed)
	assert.Len(t, reporter.completed, 3)
	assert.Len(t, reporter.started, 4)

	// Partial failure leaves no file at the failed path.
	_, statErr := os.Stat(filepath.Join(dest, "README.txt"))
	assert.True(t, os.IsNotExist(statErr))
	assert.NotEmpty(t, readFile(t, dest, "build.gradle"))
}

func TestEveryFailureEnumerated(t *testing.T) {
	client := seedClient()
	client.FailBlob("README.txt", gitrepo.RateLimitedError{})
	client.FailBlob("build.gradle", errors.New("connection reset"))
	dl := download.New(client, nil)

	res, err := dl.Download(context.Background(), download.Config{Dest: t.TempDir()},
		testRef(t), filter.All())

	var dlErr *gitrepo.DownloadError
	require.ErrorAs(t, err, &dlErr)
	require.Len(t, dlErr.Failures, 2)
	assert.Equal(t, "README.txt", dlErr.Failures[0].Path)
	assert.Equal(t, "build.gradle", dlErr.Failures[1].Path)
	assert.Len(t, res.Files, 2)
}

func TestCancelledContext(t *testing.T) {
	client := seedClient()
	dl := download.New(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := dl.Download(ctx, download.Config{Dest: t.TempDir()}, testRef(t), filter.All())
	require.Error(t, err)
}

func TestNewConfigTokenFallback(t *testing.T) {
	t.Setenv(download.TokenEnv, "env-token")
	cfg := download.NewConfig("out")
	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, download.DefaultMaxConcurrent, cfg.MaxConcurrent)

	t.Setenv(download.TokenEnv, "")
	cfg = download.NewConfig("out")
	assert.Empty(t, cfg.Token)
}
