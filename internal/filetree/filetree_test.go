package filetree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	tree := Build([]string{"package.json", "src/index.ts", "src/lib/util.ts", "LICENSE"})

	require.Len(t, tree, 3)
	assert.Equal(t, "package.json", tree[0].Name)
	assert.Equal(t, TypeFile, tree[0].Type)
	assert.Nil(t, tree[0].Children)

	src := tree[1]
	assert.Equal(t, "src", src.Path)
	assert.Equal(t, TypeDirectory, src.Type)
	require.Len(t, src.Children, 2)
	assert.Equal(t, "src/index.ts", src.Children[0].Path)

	lib := src.Children[1]
	assert.Equal(t, "src/lib", lib.Path)
	require.Len(t, lib.Children, 1)
	assert.Equal(t, "src/lib/util.ts", lib.Children[0].Path)
	assert.Equal(t, "util.ts", lib.Children[0].Name)

	assert.Equal(t, "LICENSE", tree[2].Name)
}

func TestBuild_NoDuplicateSiblings(t *testing.T) {
	tree := Build([]string{"a/b.txt", "a/c.txt", "a/b.txt"})
	require.Len(t, tree, 1)
	assert.Len(t, tree[0].Children, 2)
}

func TestBuild_EmptySegments(t *testing.T) {
	tree := Build([]string{"/a//b.txt", "a/c.txt", ""})
	require.Len(t, tree, 1)
	assert.Equal(t, []string{"a/b.txt", "a/c.txt"}, Flatten(tree))
}

func TestBuild_FilePromotedToDirectory(t *testing.T) {
	tree := Build([]string{"docs", "docs/intro.md"})
	require.Len(t, tree, 1)
	assert.True(t, tree[0].IsDir())
	assert.Equal(t, []string{"docs/intro.md"}, Flatten(tree))
}

func TestBuild_JSONShape(t *testing.T) {
	tree := Build([]string{"a/b.txt"})
	tree[0].Children[0] = &Node{Name: "empty", Path: "a/empty", Type: TypeDirectory, Children: []*Node{}}

	b, err := json.Marshal(Build([]string{"a/b.txt"}))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"a","path":"a","type":"directory","children":[{"name":"b.txt","path":"a/b.txt","type":"file"}]}]`, string(b))

	b, err = json.Marshal(tree)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"path":"a/empty","type":"directory","children":[]`)
}

func TestNode_JSONChildrenOnlyOnDirectories(t *testing.T) {
	nodes := []*Node{
		{Name: "bare", Path: "bare", Type: TypeDirectory},
		{Name: "f.txt", Path: "f.txt", Type: TypeFile, Children: []*Node{}},
	}
	b, err := json.Marshal(nodes)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"name":"bare","path":"bare","type":"directory","children":[]},
		{"name":"f.txt","path":"f.txt","type":"file"}
	]`, string(b))
}

func TestBuild_FlattenIdempotent(t *testing.T) {
	paths := []string{
		"README.md", "src/index.ts", "src/app/page.tsx", "src/app/layout.tsx",
		"src/lib/a/b/c.go", "docs/intro.md", "Makefile",
	}
	first := Build(paths)
	second := Build(Flatten(first))

	assert.Equal(t, first, second)
}

func TestBuild_PermutationInvariantShape(t *testing.T) {
	paths := []string{"a/b/c.txt", "a/b/d.txt", "a/e.txt", "f.txt", "a/b/g/h.txt"}
	wantCount, wantDepth := Stats(Build(paths))
	assert.Equal(t, 8, wantCount)
	assert.Equal(t, 4, wantDepth)

	permute(paths, 0, func(p []string) {
		count, depth := Stats(Build(p))
		assert.Equal(t, wantCount, count, p)
		assert.Equal(t, wantDepth, depth, p)
		assert.ElementsMatch(t, paths, Flatten(Build(p)))
	})
}

func permute(s []string, k int, fn func([]string)) {
	if k == len(s) {
		cp := append([]string(nil), s...)
		fn(cp)
		return
	}
	for i := k; i < len(s); i++ {
		s[k], s[i] = s[i], s[k]
		permute(s, k+1, fn)
		s[k], s[i] = s[i], s[k]
	}
}

func TestStats_Empty(t *testing.T) {
	count, depth := Stats(nil)
	assert.Zero(t, count)
	assert.Zero(t, depth)
}
