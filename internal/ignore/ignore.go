// Package ignore turns gitignore-style files into doublestar globs and
// matches repository paths against them.
package ignore

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Parser reads gitignore-style files from a directory.
type Parser struct {
	// IgnoreFiles is the list of ignore file names to look for.
	IgnoreFiles []string

	// FallbackPatterns are returned when no ignore files are found.
	FallbackPatterns []string
}

// NewParser creates a new ignore file parser with the given configuration.
func NewParser(ignoreFiles, fallbackPatterns []string) *Parser {
	return &Parser{
		IgnoreFiles:      ignoreFiles,
		FallbackPatterns: fallbackPatterns,
	}
}

// ParseProject reads all ignore files from the project root and returns
// combined patterns. If no ignore files are found, returns fallback patterns.
func (p *Parser) ParseProject(projectRoot string) ([]string, error) {
	var patterns []string
	foundAny := false

	for _, name := range p.IgnoreFiles {
		f, err := os.Open(filepath.Join(projectRoot, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		filePatterns, err := Parse(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, filePatterns...)
		foundAny = true
	}

	if !foundAny {
		return p.FallbackPatterns, nil
	}
	return deduplicate(patterns), nil
}

// Parse reads gitignore lines from r and returns glob patterns. Comments,
// blank lines, negations and patterns doublestar cannot compile are skipped.
func Parse(r io.Reader) ([]string, error) {
	var patterns []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if pattern := parseLine(scanner.Text()); pattern != "" {
			patterns = append(patterns, pattern)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}

// parseLine parses a single line from a gitignore file.
// Returns empty string for comments and blank lines.
func parseLine(line string) string {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	// Negations would need ordered evaluation; they are not supported.
	if strings.HasPrefix(line, "!") {
		return ""
	}

	pattern := toGlobPattern(line)
	if !doublestar.ValidatePattern(pattern) {
		return ""
	}
	return pattern
}

// toGlobPattern converts a gitignore pattern to a doublestar pattern.
//
//	node_modules/  -> **/node_modules/**
//	*.log          -> **/*.log
//	/dist          -> dist
//	docs/internal  -> docs/internal
func toGlobPattern(pattern string) string {
	// A leading slash anchors to the root, as does any inner slash.
	anchored := strings.HasPrefix(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")

	dirOnly := strings.HasSuffix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")
	if pattern == "" {
		return ""
	}

	if !anchored && !strings.Contains(pattern, "/") {
		pattern = "**/" + pattern
	}
	if dirOnly {
		pattern += "/**"
	}
	return pattern
}

// deduplicate removes duplicate patterns while preserving order.
func deduplicate(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}

	return result
}

// Matcher reports whether slash-separated relative paths are ignored.
type Matcher struct {
	patterns []string
}

// NewMatcher creates a Matcher over glob patterns as returned by Parse.
func NewMatcher(patterns []string) *Matcher {
	return &Matcher{patterns: patterns}
}

// Match reports whether path, or any directory containing it, matches a
// pattern.
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return false
	}
	path = strings.Trim(filepath.ToSlash(path), "/")
	for _, g := range m.patterns {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
		if strings.HasSuffix(g, "/**") {
			continue
		}
		// A pattern naming a directory covers everything beneath it.
		if ok, _ := doublestar.Match(g+"/**", path); ok {
			return true
		}
	}
	return false
}

// Len returns the number of patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}
