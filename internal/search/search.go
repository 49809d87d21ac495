// Package search ranks in-memory project files against a free-text query.
//
// Scoring is additive over independent signals. Path matches dominate,
// API-shaped structure comes second and raw term frequency is the weakest
// signal, so a file that merely repeats a word cannot outrank the file whose
// name or shape answers the question.
package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Signal weights.
const (
	weightPathTerm    = 15
	weightPathAPI     = 10
	weightAPIPattern  = 5
	weightContentTerm = 2
	weightLineMethod  = 20
	weightLineTerm    = 10
	weightSourceExt   = 3
	weightJSONExt     = 2
)

const (
	maxMatches   = 3
	excerptChars = 100
	minTermLen   = 3
)

// apiPatterns recognise endpoint declarations and HTTP calls in content.
var apiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)app\.(get|post|put|delete|patch)\s*\(`),
	regexp.MustCompile(`(?i)router\.(get|post|put|delete|patch)\s*\(`),
	regexp.MustCompile(`(?i)fetch\s*\(`),
	regexp.MustCompile(`(?i)axios\.(get|post|put|delete|patch)\s*\(`),
	regexp.MustCompile(`(?i)@app\.(get|post|put|delete|patch)`),
	regexp.MustCompile(`(?i)@Route`),
	regexp.MustCompile(`(?i)api\s*:`),
	regexp.MustCompile(`(?i)/api/`),
}

var apiKeywords = []string{"api", "route", "endpoint"}

// httpMethods are matched case-sensitively against the raw line.
var httpMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

var sourceExts = []string{".ts", ".js", ".tsx", ".jsx"}

// Document is a file as held by the project store.
type Document struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Result is a ranked file with the reasons it matched.
type Result struct {
	Path      string   `json:"path"`
	Content   string   `json:"content"`
	Relevance int      `json:"relevance"`
	Matches   []string `json:"matches"`
}

// Engine scores documents. The zero value uses the default caps.
type Engine struct {
	// MaxResults caps the ranked list. Defaults to 10.
	MaxResults int

	// LineScan is how many leading lines of each file get per-line
	// scoring. Defaults to 30; matches further down a long file only
	// count through the whole-content signals.
	LineScan int
}

// Default returns an Engine with the reference caps.
func Default() Engine {
	return Engine{MaxResults: 10, LineScan: 30}
}

func (e Engine) withDefaults() Engine {
	d := Default()
	if e.MaxResults <= 0 {
		e.MaxResults = d.MaxResults
	}
	if e.LineScan <= 0 {
		e.LineScan = d.LineScan
	}
	return e
}

// Search ranks docs against query with the default caps.
func Search(docs []Document, query string) []Result {
	return Default().Search(docs, query)
}

// Search ranks docs against query. Terms of two characters or fewer are
// dropped; a query with no remaining terms yields nothing. Results are
// sorted by relevance, highest first, with ties kept in input order.
func (e Engine) Search(docs []Document, query string) []Result {
	e = e.withDefaults()

	terms := Terms(query)
	if len(terms) == 0 {
		return nil
	}

	var results []Result
	for _, doc := range docs {
		if r, ok := e.score(doc, terms); ok {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
	if len(results) > e.MaxResults {
		results = results[:e.MaxResults]
	}
	return results
}

// Terms lowercases query, splits it on whitespace and keeps terms longer
// than two characters, counted in runes.
func Terms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTermLen {
			terms = append(terms, f)
		}
	}
	return terms
}

func (e Engine) score(doc Document, terms []string) (Result, bool) {
	var (
		relevance int
		matches   []string
	)
	path := strings.ToLower(doc.Path)
	content := strings.ToLower(doc.Content)

	for _, term := range terms {
		if strings.Contains(path, term) {
			relevance += weightPathTerm
			matches = append(matches, fmt.Sprintf("File name contains %q", term))
		}
	}

	if containsAny(path, apiKeywords) {
		relevance += weightPathAPI
		matches = append(matches, "File path suggests API")
	}

	apiHits := 0
	for _, re := range apiPatterns {
		apiHits += len(re.FindAllStringIndex(doc.Content, -1))
	}
	if apiHits > 0 {
		relevance += apiHits * weightAPIPattern
		matches = append(matches, fmt.Sprintf("Found %d API endpoint patterns", apiHits))
	}

	for _, term := range terms {
		if n := strings.Count(content, term); n > 0 {
			relevance += n * weightContentTerm
			matches = append(matches, fmt.Sprintf("Contains %q %d times", term, n))
		}
	}

	lines := strings.Split(doc.Content, "\n")
	for i, line := range lines[:min(len(lines), e.LineScan)] {
		lower := strings.ToLower(line)
		hasTerm := containsAny(lower, terms)
		if !hasTerm && !containsAny(lower, apiKeywords) {
			continue
		}
		switch {
		case containsAny(line, httpMethods):
			relevance += weightLineMethod
		case hasTerm:
			relevance += weightLineTerm
		default:
			continue
		}
		matches = append(matches, fmt.Sprintf("Line %d: %s", i+1, truncate(strings.TrimSpace(line), excerptChars)))
	}

	if hasAnySuffix(doc.Path, sourceExts) {
		relevance += weightSourceExt
	}
	if strings.HasSuffix(doc.Path, ".json") {
		relevance += weightJSONExt
	}

	if relevance == 0 {
		return Result{}, false
	}
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	return Result{
		Path:      doc.Path,
		Content:   doc.Content,
		Relevance: relevance,
		Matches:   matches,
	}, true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
