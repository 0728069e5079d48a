package version

import (
	"fmt"
	"log"
	"strings"

	"github.com/mineradorx/relay/theme"
)

var (
	Name        = "relay"
	Authors     = "MineradorX"
	Description = "Service-oriented inference gateway for local and cloud models"
	Version     = "v0.0.1"
	Commit      = "none"
	Date        = "nowish"
	User        = "local"
)

const (
	GithubHomeText  = "github.com/mineradorx/relay"
	GithubHomeUri   = "https://github.com/mineradorx/relay"
	GithubLatestUri = "https://github.com/mineradorx/relay/releases/latest"
)

// Info is what /version reports
type Info struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Commit      string `json:"commit"`
	Date        string `json:"build_date"`
	User        string `json:"build_user"`
}

func Current() Info {
	return Info{
		Name:        Name,
		Version:     Version,
		Description: Description,
		Commit:      Commit,
		Date:        Date,
		User:        User,
	}
}

func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	githubUri := theme.Hyperlink(GithubHomeUri, GithubHomeText)
	latestUri := theme.Hyperlink(GithubLatestUri, Version)

	var b strings.Builder

	b.WriteString(theme.ColourSplash(`
╔──────────────────────────────────────────────╗
│   ██████╗ ███████╗██╗      █████╗ ██╗   ██╗  │
│   ██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝  │
│   ██████╔╝█████╗  ██║     ███████║ ╚████╔╝   │
│   ██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝    │
│   ██║  ██║███████╗███████╗██║  ██║   ██║     │
│   ╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝     │` + "\n"))

	b.WriteString(theme.ColourSplash("│ "))
	b.WriteString(theme.StyleUrl(githubUri))
	b.WriteString(fmt.Sprintf("%*s", max(1, 44-len(GithubHomeText)-len(Version)), ""))
	b.WriteString(theme.ColourVersion(latestUri))
	b.WriteString(theme.ColourSplash(" │\n"))
	b.WriteString(theme.ColourSplash("╚──────────────────────────────────────────────╝"))

	if extendedInfo {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s\n", Date))
		b.WriteString(fmt.Sprintf("  Using: %s\n", User))
	}

	vlog.Println(b.String())
}
