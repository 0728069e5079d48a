package handlers

import (
	"net/http"
	"runtime"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/version"
)

type VersionResponse struct {
	version.Info
	Build             BuildInfo         `json:"build"`
	SupportedBackends []string          `json:"supported_backends"`
	Endpoints         map[string]string `json:"endpoints"`
	Links             map[string]string `json:"links"`
}

type BuildInfo struct {
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func (a *Application) versionHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, VersionResponse{
		Info: version.Current(),
		Build: BuildInfo{
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		SupportedBackends: []string{"local", "cloud"},
		Endpoints: map[string]string{
			"summarize": constants.PathSummarize,
			"generate":  constants.PathGenerate,
			"health":    constants.DefaultHealthCheckEndpoint,
			"status":    constants.DefaultStatusEndpoint,
			"stats":     constants.DefaultStatsEndpoint,
			"process":   constants.DefaultProcessEndpoint,
		},
		Links: map[string]string{
			"homepage": version.GithubHomeUri,
			"latest":   version.GithubLatestUri,
		},
	})
}
