package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFileName(t *testing.T) {
	tests := []struct {
		query  string
		want   string
		wantOK bool
	}{
		{"where is types.ts", "types.ts", true},
		{"open package.json please", "package.json", true},
		{"what does Dockerfile do", "", false},
		{"where is the router", "", false},
		{"compare a.tsx and b.ts", "a.tsx", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := ExtractFileName(tt.query)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuery_ExactFileNameShortcut(t *testing.T) {
	docs := []Document{
		{Path: "src/types.ts", Content: "export type A = string"},
		{Path: "src/index.ts", Content: "import { A } from './types'"},
		{Path: "lib/helpers/Types.ts", Content: "export type B = number"},
	}

	results := Query(docs, "where is types.ts")
	require.Len(t, results, 2)
	assert.Equal(t, "src/types.ts", results[0].Path)
	assert.Equal(t, "lib/helpers/Types.ts", results[1].Path)
	for _, r := range results {
		assert.NotEmpty(t, r.Matches)
		assert.Equal(t, 100, r.Relevance)
	}
}

func TestQuery_FallsBackToSearch(t *testing.T) {
	docs := []Document{{Path: "src/index.ts", Content: "const types = 1"}}

	results := Query(docs, "where is types.ts")
	require.Len(t, results, 1)
	assert.Equal(t, "src/index.ts", results[0].Path)
	assert.NotEqual(t, 100, results[0].Relevance)
}

func TestLooksLikeLocation(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"Where is the auth middleware?", true},
		{"which file defines the schema", true},
		{"Find files with API endpoints", true},
		{"show me configuration files", true},
		{"where's main.go", true},
		{"explain how caching works", false},
		{"why does login fail", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeLocation(tt.query))
		})
	}
}
