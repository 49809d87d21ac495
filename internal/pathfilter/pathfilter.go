// Package pathfilter decides which repository paths are worth ingesting.
//
// Paths are evaluated as stored, relative to the repository root with any
// archive root folder already stripped.
package pathfilter

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignoredNames are matched against the lowercased base name.
var ignoredNames = map[string]bool{
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	".ds_store":         true,
	".editorconfig":     true,
	".env":              true,
	"id_rsa":            true,
	"id_ed25519":        true,
	"credentials.json":  true,
	".npmrc":            true,
	".pypirc":           true,
	".netrc":            true,
}

// ignoredDirs are matched against every directory segment of the path.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"__pycache__":  true,
	"venv":         true,
	".venv":        true,
	"coverage":     true,
	".vscode":      true,
	".idea":        true,
}

// ignoredGlobs are doublestar patterns matched against the lowercased base name.
var ignoredGlobs = []string{
	".env*",
	"*.min.js", "*.min.css", "*.map",
	"*.sublime-*",
	"*.{jpg,jpeg,png,gif,svg,ico}",
	"*.{woff,woff2,ttf,eot}",
	"*.{mp4,webm,mp3,wav}",
	"*.pdf",
	"*.{zip,tar,gz}",
	"*.{log,tmp,temp,lock}",
}

// textExtensions is the allowlist of source, config and doc suffixes.
var textExtensions = []string{
	".js", ".jsx", ".ts", ".tsx", ".py", ".java", ".c", ".cpp", ".h", ".hpp",
	".cs", ".go", ".rs", ".rb", ".php", ".swift", ".kt", ".scala", ".vue",
	".svelte", ".html", ".css", ".scss", ".sass", ".less", ".json", ".xml",
	".yaml", ".yml", ".md", ".txt", ".sh", ".bash", ".zsh", ".fish",
	".dockerfile", ".gitignore", ".env.example", ".toml", ".ini", ".cfg",
	".sql", ".graphql", ".prisma", ".proto",
}

// textNames are extensionless (or special) files accepted by bare name.
var textNames = map[string]bool{
	"dockerfile":   true,
	"makefile":     true,
	"readme":       true,
	"readme.md":    true,
	"license":      true,
	"license.md":   true,
	"package.json": true,
}

func init() {
	for _, g := range ignoredGlobs {
		if !doublestar.ValidatePattern(g) {
			panic(fmt.Sprintf("pathfilter: invalid glob %q", g))
		}
	}
}

// ShouldIgnore reports whether p is a build artifact, lockfile, binary or
// credential-shaped file that must never be ingested.
func ShouldIgnore(p string) bool {
	p = strings.ToLower(strings.Trim(p, "/"))
	if p == "" {
		return true
	}

	segments := strings.Split(p, "/")
	for _, dir := range segments[:len(segments)-1] {
		if ignoredDirs[dir] {
			return true
		}
	}

	base := segments[len(segments)-1]
	if ignoredNames[base] {
		return true
	}
	for _, g := range ignoredGlobs {
		if ok, _ := doublestar.Match(g, base); ok {
			return true
		}
	}
	return false
}

// IsTextFile reports whether p looks like a text source, config or doc file.
func IsTextFile(p string) bool {
	base := strings.ToLower(path.Base(p))
	if textNames[base] {
		return true
	}
	for _, ext := range textExtensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

// Accept reports whether p should be fetched and stored. Ignore rules take
// precedence over the text allowlist.
func Accept(p string) bool {
	return !ShouldIgnore(p) && IsTextFile(p)
}
