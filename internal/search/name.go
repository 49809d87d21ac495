package search

import (
	"path"
	"regexp"
	"strings"
)

// exactNameRelevance ranks exact file-name hits above anything the scorer
// can produce for typical files.
const exactNameRelevance = 100

var fileNamePattern = regexp.MustCompile(`\b\w+\.\w{1,10}\b`)

// locationPhrases mark questions that ask where something lives rather than
// what it does.
var locationPhrases = []string{
	"where is", "where are", "where's", "which file", "what file",
	"find ", "locate", "show me", "look for",
}

// ExtractFileName returns the first name.ext shaped token in query.
func ExtractFileName(query string) (string, bool) {
	name := fileNamePattern.FindString(query)
	return name, name != ""
}

// FindByName returns every document whose base name equals name, ignoring
// case, in input order.
func FindByName(docs []Document, name string) []Result {
	var results []Result
	for _, doc := range docs {
		base := path.Base(doc.Path)
		if !strings.EqualFold(base, name) {
			continue
		}
		results = append(results, Result{
			Path:      doc.Path,
			Content:   doc.Content,
			Relevance: exactNameRelevance,
			Matches:   []string{"Exact file name match: " + base},
		})
	}
	return results
}

// Query answers query with the default caps. See Engine.Query.
func Query(docs []Document, query string) []Result {
	return Default().Query(docs, query)
}

// Query returns the exact-name hits when query names a file that exists,
// and the ranked search results otherwise.
func (e Engine) Query(docs []Document, query string) []Result {
	if name, ok := ExtractFileName(query); ok {
		if hits := FindByName(docs, name); len(hits) > 0 {
			return hits
		}
	}
	return e.Search(docs, query)
}

// LooksLikeLocation reports whether query asks where a file or feature
// lives. Such questions are answered from the local index.
func LooksLikeLocation(query string) bool {
	q := strings.ToLower(query)
	if containsAny(q, locationPhrases) {
		return true
	}
	_, named := ExtractFileName(q)
	return named && strings.HasPrefix(strings.TrimSpace(q), "where")
}
