package search

import (
	"fmt"
	"path"
	"strings"
)

const (
	// promptFileChars bounds each file excerpt injected into a prompt.
	promptFileChars = 1500

	previewChars = 200
)

// Preview returns the first 200 characters of content, with an ellipsis
// when it was cut.
func Preview(content string) string {
	p := truncate(content, previewChars)
	if len(p) < len(content) {
		return p + "..."
	}
	return p
}

// PromptContext renders results as a prompt fragment of at most maxChars
// runes. Each file contributes a header and a bounded excerpt; files that
// no longer fit are dropped.
func PromptContext(results []Result, maxChars int) string {
	var b strings.Builder
	used := 0
	for _, r := range results {
		block := fmt.Sprintf("--- %s ---\n%s\n\n", r.Path, truncate(r.Content, promptFileChars))
		n := len([]rune(block))
		if used+n > maxChars {
			if used == 0 {
				b.WriteString(truncate(block, maxChars))
			}
			break
		}
		b.WriteString(block)
		used += n
	}
	return strings.TrimRight(b.String(), "\n")
}

// Summarize renders results as a markdown answer that needs no completion
// backend.
func Summarize(query string, results []Result) string {
	var b strings.Builder
	if len(results) == 1 {
		fmt.Fprintf(&b, "Found 1 file relevant to %q:\n\n", query)
	} else {
		fmt.Fprintf(&b, "Found %d files relevant to %q:\n\n", len(results), query)
	}
	for i, r := range results {
		fmt.Fprintf(&b, "%d. **%s** (relevance %d)\n", i+1, r.Path, r.Relevance)
		for _, m := range r.Matches {
			fmt.Fprintf(&b, "   - %s\n", m)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Listing is the answer given when nothing matched: a short inventory of
// the project and examples of questions that do.
func Listing(docs []Document, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "No files matched that question directly. The project has %d files", len(docs))

	if exts := extensions(docs); len(exts) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(exts, ", "))
	}
	b.WriteString(".\n")

	if n > 0 && len(docs) > 0 {
		b.WriteString("\n")
		for _, d := range docs[:min(n, len(docs))] {
			fmt.Fprintf(&b, "- %s\n", d.Path)
		}
		if len(docs) > n {
			fmt.Fprintf(&b, "- ... and %d more\n", len(docs)-n)
		}
	}

	b.WriteString("\nTry asking specific questions like:\n")
	b.WriteString("- \"Where is the main component?\"\n")
	b.WriteString("- \"Show me configuration files\"\n")
	b.WriteString("- \"Find files with API endpoints\"")
	return b.String()
}

// extensions returns the distinct file extensions in first-seen order.
func extensions(docs []Document) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range docs {
		ext := strings.TrimPrefix(path.Ext(d.Path), ".")
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}
