package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	gogithub "github.com/google/go-github/v75/github"

	"github.com/tilsley/ghgrab/pkg/github"
)

const (
	appIDEnv      = "GITHUB_APP_ID"
	appInstallEnv = "GITHUB_APP_INSTALLATION_ID"
	appKeyEnv     = "GITHUB_APP_PRIVATE_KEY_PATH"
)

// newGithubClient selects the API client's auth mode. Token auth (local dev,
// CI) uses --token or GITHUB_ACCESS_TOKEN. App auth (deployed) is chosen when
// GITHUB_APP_ID, GITHUB_APP_INSTALLATION_ID and GITHUB_APP_PRIVATE_KEY_PATH
// are all set.
func newGithubClient(log *slog.Logger, token, apiURL string) (*gogithub.Client, error) {
	appID := os.Getenv(appIDEnv)
	installID := os.Getenv(appInstallEnv)
	keyPath := os.Getenv(appKeyEnv)

	if appID != "" && installID != "" && keyPath != "" {
		parsedAppID, err := strconv.ParseInt(appID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", appIDEnv, appID, err)
		}
		parsedInstallID, err := strconv.ParseInt(installID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", appInstallEnv, installID, err)
		}
		c, err := github.NewAppClient(parsedAppID, parsedInstallID, keyPath, apiURL)
		if err != nil {
			return nil, err
		}
		log.Info("github: using app auth", "appID", parsedAppID, "installationID", parsedInstallID)
		return c, nil
	}

	log.Debug("github: using token auth", "authenticated", token != "")
	return github.NewTokenClient(token, apiURL), nil
}
