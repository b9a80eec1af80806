// Package cli wires flags, environment, and manifest files into a download
// run. It is a thin collaborator: all tree, filter, and download semantics
// live under pkg/.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/tilsley/ghgrab/pkg/download"
	"github.com/tilsley/ghgrab/pkg/filter"
	"github.com/tilsley/ghgrab/pkg/github"
	"github.com/tilsley/ghgrab/pkg/gitrepo"
)

type options struct {
	ref          string
	dest         string
	include      []string
	exclude      []string
	token        string
	apiURL       string
	concurrency  int
	manifestPath string
}

// NewRootCmd builds the ghgrab command.
func NewRootCmd(log *slog.Logger) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "ghgrab <owner>/<repo>",
		Short: "Download a filtered slice of a GitHub repository without git",
		Long: "ghgrab fetches a repository's tree over the GitHub REST API and " +
			"downloads the files selected by include/exclude path prefixes " +
			"into a local directory, preserving relative paths.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), log, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.ref, "ref", "", "branch name or commit SHA (default: manifest ref or \"main\")")
	cmd.Flags().StringVarP(&opts.dest, "dest", "d", "", "destination directory (default: repository name)")
	cmd.Flags().StringArrayVarP(&opts.include, "include", "i", nil, "path prefix to include (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.exclude, "exclude", "x", nil, "path prefix to exclude (repeatable)")
	cmd.Flags().StringVar(&opts.token, "token", "", "access token (default: $"+download.TokenEnv+")")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", os.Getenv("GITHUB_API_URL"), "API base URL, for mock or enterprise servers")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", download.DefaultMaxConcurrent, "maximum simultaneous blob fetches")
	cmd.Flags().StringVar(&opts.manifestPath, "manifest", "", "YAML manifest with ref/dest/include/exclude")

	return cmd
}

func run(ctx context.Context, log *slog.Logger, opts options, repoArg string) error {
	owner, name, ok := strings.Cut(repoArg, "/")
	if !ok {
		return fmt.Errorf("repository must be given as <owner>/<repo>, got %q", repoArg)
	}

	if opts.manifestPath != "" {
		m, err := loadManifest(opts.manifestPath)
		if err != nil {
			return err
		}
		opts = m.apply(opts)
	}
	if opts.ref == "" {
		opts.ref = "main"
	}
	if opts.dest == "" {
		opts.dest = name
	}

	ref, err := gitrepo.NewRepoRef(owner, name, opts.ref)
	if err != nil {
		return err
	}

	cfg := download.NewConfig(opts.dest)
	cfg.MaxConcurrent = opts.concurrency
	if opts.token != "" {
		cfg.Token = opts.token
	}

	metrics, err := download.NewMetricsReporter()
	if err != nil {
		return err
	}
	cfg.Reporter = download.MultiReporter{download.LogReporter{Log: log}, metrics}

	ghClient, err := newGithubClient(log, cfg.Token, opts.apiURL)
	if err != nil {
		return err
	}
	client := github.New(ghClient)
	dl := download.New(client, log)
	f := filter.New(opts.include, opts.exclude)

	ctx, span := otel.Tracer("github.com/tilsley/ghgrab/apps/ghgrab").Start(ctx, "download")
	res, err := dl.Download(ctx, cfg, ref, f)
	span.End()

	if res != nil {
		log.Info("download finished",
			"ref", ref.String(), "written", len(res.Files), "failed", len(res.Failures), "dest", opts.dest)
	}
	var dlErr *gitrepo.DownloadError
	if errors.As(err, &dlErr) {
		for _, failure := range dlErr.Failures {
			log.Error("failed", "path", failure.Path, "error", failure.Err)
		}
	}
	return err
}
