// Package analyze runs a basic static analysis over a single file without
// any completion backend, and redacts secrets before content leaves the
// process.
package analyze

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
)

// MaxIssues caps the issues returned for one file.
const MaxIssues = 10

// largeFileLines is the line count above which a file is flagged.
const largeFileLines = 500

const redactionString = "[REDACTED]"

var (
	lineRules   = compile(DefaultRules())
	secretRules = compileAll(secretPatterns)
)

// Issue is one finding.
type Issue struct {
	Category Category `json:"type"`
	Message  string   `json:"message"`
	Line     int      `json:"line,omitempty"`
	Severity Severity `json:"severity"`
}

func compile(rules []Rule) []compiledRule {
	out := make([]compiledRule, len(rules))
	for i, r := range rules {
		out[i] = compiledRule{Rule: r, re: regexp.MustCompile(r.Pattern)}
	}
	return out
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Analyze checks content line by line, then applies file-level checks:
// localhost URLs in config files, file length, and async JavaScript or
// TypeScript without any error handling. At most MaxIssues are returned.
func Analyze(content, language, filename string) []Issue {
	var issues []Issue
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		for _, r := range lineRules {
			if r.re.MatchString(line) {
				issues = append(issues, Issue{
					Category: r.Category,
					Message:  r.Message,
					Line:     i + 1,
					Severity: r.Severity,
				})
			}
		}
	}

	if strings.Contains(filename, "config") || strings.Contains(filename, "env") {
		if strings.Contains(content, "localhost") || strings.Contains(content, "127.0.0.1") {
			issues = append(issues, Issue{
				Category: Security,
				Message:  "Hardcoded localhost URL in configuration file",
				Severity: Medium,
			})
		}
	}

	if len(lines) > largeFileLines {
		issues = append(issues, Issue{
			Category: Maintainability,
			Message:  fmt.Sprintf("Large file detected (%d lines). Consider splitting into smaller modules.", len(lines)),
			Severity: Medium,
		})
	}

	lang := strings.ToLower(language)
	if strings.Contains(lang, "typescript") || strings.Contains(lang, "javascript") {
		handled := (strings.Contains(content, "try {") && strings.Contains(content, "} catch")) ||
			strings.Contains(content, ".catch(")
		if !handled && strings.Contains(content, "async") {
			issues = append(issues, Issue{
				Category: BestPractice,
				Message:  "Async functions without error handling detected",
				Severity: Medium,
			})
		}
	}

	if len(issues) > MaxIssues {
		issues = issues[:MaxIssues]
	}
	return issues
}

// Report renders issues as markdown.
func Report(issues []Issue, filename, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Local Code Analysis: %s\n\n", filename)

	if len(issues) == 0 {
		b.WriteString("**No major issues found!**\n\n")
		b.WriteString("This file looks clean based on basic static analysis.\n\n")
		b.WriteString("*Note: This is a basic analysis. For a more in-depth review, configure a completion backend.*")
		return b.String()
	}

	counts := make(map[Category]int)
	for _, is := range issues {
		counts[is.Category]++
	}

	fmt.Fprintf(&b, "**Language:** %s\n", language)
	fmt.Fprintf(&b, "**Total Issues Found:** %d\n\n", len(issues))
	b.WriteString("### Summary:\n")
	for _, c := range Categories {
		fmt.Fprintf(&b, "- **%s:** %d\n", c, counts[c])
	}
	b.WriteString("\n### Detailed Issues:\n")
	for i, is := range issues {
		fmt.Fprintf(&b, "\n**%d. %s - %s**\n", i+1, strings.ToUpper(string(is.Category)), strings.ToUpper(string(is.Severity)))
		b.WriteString(is.Message + "\n")
		if is.Line > 0 {
			fmt.Fprintf(&b, "*Line %d*\n", is.Line)
		}
	}
	b.WriteString("\n---\n*Note: This is a basic static analysis. For an AI-powered review, configure a completion backend.*")
	return b.String()
}

// languages maps lowercased extensions to display names.
var languages = map[string]string{
	"js": "JavaScript", "jsx": "JavaScript", "ts": "TypeScript", "tsx": "TypeScript",
	"py": "Python", "rb": "Ruby", "go": "Go", "rs": "Rust", "java": "Java",
	"cpp": "C++", "c": "C", "cs": "C#", "php": "PHP", "swift": "Swift",
	"kt": "Kotlin", "scala": "Scala", "html": "HTML", "css": "CSS",
	"scss": "SCSS", "sass": "Sass", "less": "Less", "json": "JSON", "xml": "XML",
	"yaml": "YAML", "yml": "YAML", "md": "Markdown", "sql": "SQL",
	"graphql": "GraphQL", "prisma": "Prisma", "proto": "Protobuf",
	"sh": "Shell", "bash": "Bash", "zsh": "Bash", "fish": "Bash",
	"dockerfile": "Dockerfile", "gitignore": "Gitignore",
	"env": "Environment Variables", "toml": "TOML", "ini": "INI", "cfg": "Configuration",
}

// Language names the language of filename from its extension. Unknown
// extensions are returned upper-cased.
func Language(filename string) string {
	base := strings.ToLower(path.Base(filename))
	ext := base
	if i := strings.LastIndex(base, "."); i >= 0 {
		ext = base[i+1:]
	}
	if name, ok := languages[ext]; ok {
		return name
	}
	return strings.ToUpper(ext)
}

type span struct{ start, end int }

// Redact replaces every secret-shaped substring of content with
// [REDACTED]. Overlapping matches are merged first.
func Redact(content string) string {
	var spans []span
	for _, re := range secretRules {
		for _, m := range re.FindAllStringIndex(content, -1) {
			spans = append(spans, span{m[0], m[1]})
		}
	}
	if len(spans) == 0 {
		return content
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			last.end = max(last.end, s.end)
			continue
		}
		merged = append(merged, s)
	}

	var b strings.Builder
	prev := 0
	for _, s := range merged {
		b.WriteString(content[prev:s.start])
		b.WriteString(redactionString)
		prev = s.end
	}
	b.WriteString(content[prev:])
	return b.String()
}
