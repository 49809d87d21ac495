// Package priority ranks repository paths so the most informative files are
// fetched first.
package priority

import (
	"strings"
)

// Priority values, highest first.
const (
	Manifest      = 100
	RootReadme    = 90
	Readme        = 80
	SourceInSrc   = 70
	SourceInApp   = 65
	SourceInPages = 60
	Source        = 50
	Config        = 40
	Doc           = 30
	Other         = 10
)

var sourceExts = []string{".ts", ".js", ".tsx", ".jsx"}
var configExts = []string{".json", ".yml", ".yaml", ".toml", ".env"}
var docExts = []string{".md", ".txt", ".sql"}

// Of returns the fetch priority of path. The first matching rule wins and
// matching is case-insensitive. Manifest and root README rules compare the
// whole path, so only root-level files qualify.
func Of(path string) int {
	p := strings.ToLower(path)

	switch {
	case p == "package.json":
		return Manifest
	case p == "readme.md":
		return RootReadme
	case strings.Contains(p, "readme"):
		return Readme
	}

	if hasAnySuffix(p, sourceExts) {
		switch {
		case strings.Contains(p, "src/"):
			return SourceInSrc
		case strings.Contains(p, "app/"):
			return SourceInApp
		case strings.Contains(p, "pages/"):
			return SourceInPages
		default:
			return Source
		}
	}

	if hasAnySuffix(p, configExts) || strings.Contains(p, "config") {
		return Config
	}
	if hasAnySuffix(p, docExts) || strings.Contains(p, "documentation") {
		return Doc
	}
	return Other
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
