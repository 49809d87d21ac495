package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/repolens/internal/search"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "ingest", "search", "analyze", "readme", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "repolens by Fyrsmith Labs")
	assert.Contains(t, out, "Version:    dev")
}

func TestAnalyzeCmd(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"app.ts":   "const x: any = 1\nconsole.log(x)\n",
		"clean.go": "package main\n",
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "analyze", "--json", filepath.Join(dir, "app.ts"))
		require.NoError(t, err)

		var res analyzeResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, "TypeScript", res.Language)
		require.Len(t, res.Issues, 2)
		assert.Equal(t, 1, res.Issues[0].Line)
		assert.Equal(t, 2, res.Issues[1].Line)
		assert.Contains(t, res.Issues[1].Message, "Console.log")
	})

	t.Run("report", func(t *testing.T) {
		out, err := execute(t, "analyze", filepath.Join(dir, "clean.go"))
		require.NoError(t, err)
		assert.Contains(t, out, "## Local Code Analysis: clean.go")
		assert.Contains(t, out, "No major issues found!")
	})

	t.Run("directory", func(t *testing.T) {
		_, err := execute(t, "analyze", dir)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "analyze", filepath.Join(dir, "nope.ts"))
		assert.Error(t, err)
	})
}

func TestSearchCmd_Dir(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/api/users.ts":      "router.get('/api/users', list)\n",
		"src/types.ts":          "export type User = { id: string }\n",
		"node_modules/lib/x.js": "users users users",
		"README.md":             "# Widget\n",
	})

	t.Run("ranks files", func(t *testing.T) {
		out, err := execute(t, "search", "--json", "--dir", dir, "users", "api")
		require.NoError(t, err)

		var results []search.Result
		require.NoError(t, json.Unmarshal([]byte(out), &results))
		require.NotEmpty(t, results)
		assert.Equal(t, "src/api/users.ts", results[0].Path)
		for _, r := range results {
			assert.NotContains(t, r.Path, "node_modules")
		}
	})

	t.Run("exact name", func(t *testing.T) {
		out, err := execute(t, "search", "--dir", dir, "types.ts")
		require.NoError(t, err)
		assert.Contains(t, out, "1 results for \"types.ts\"")
		assert.Contains(t, out, "src/types.ts")
	})

	t.Run("no matches lists the project", func(t *testing.T) {
		plain := writeFiles(t, map[string]string{
			"docs/notes.md":    "Release notes\n",
			"scripts/build.py": "print('build')\n",
			"README.md":        "# Widget\n",
		})
		out, err := execute(t, "search", "--dir", plain, "zzzqqq")
		require.NoError(t, err)
		assert.Contains(t, out, "No files matched that question directly. The project has 3 files")
		assert.Contains(t, out, "scripts/build.py")
	})

	t.Run("ask without backends answers locally", func(t *testing.T) {
		t.Setenv("ASSISTANT_OPENAI_API_KEY", "")
		t.Setenv("ASSISTANT_GEMINI_API_KEY", "")
		out, err := execute(t, "search", "--ask", "--dir", dir, "where is types.ts")
		require.NoError(t, err)
		assert.Contains(t, out, "src/types.ts")
		assert.NotContains(t, out, "answered by")
	})
}

func TestReadmeCmd_TemplateWithoutBackends(t *testing.T) {
	t.Setenv("ASSISTANT_OPENAI_API_KEY", "")
	t.Setenv("ASSISTANT_GEMINI_API_KEY", "")
	dir := writeFiles(t, map[string]string{
		"docs/notes.md": "Release notes\n",
		"main.py":       "print('hi')\n",
	})

	out, err := execute(t, "readme", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "# "+filepath.Base(dir))
	assert.Contains(t, out, "## Project Structure")
	assert.Contains(t, out, "- `docs/notes.md`")
	assert.NotContains(t, out, "completion backends unavailable")

	target := filepath.Join(t.TempDir(), "README.generated.md")
	out, err = execute(t, "readme", "--dir", dir, "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+target)
	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(written), "- `main.py`")
}

func TestIngestCmd_RejectsBadRepository(t *testing.T) {
	_, err := execute(t, "ingest", "not-a-repo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner/repo")
}

func TestParseRepoArg(t *testing.T) {
	tests := []struct {
		in          string
		owner, repo string
		wantErr     bool
	}{
		{"acme/widget", "acme", "widget", false},
		{"github.com/acme/widget", "acme", "widget", false},
		{"https://github.com/acme/widget.git", "acme", "widget", false},
		{"https://www.github.com/acme/widget/", "acme", "widget", false},
		{"acme", "", "", true},
		{"acme/", "", "", true},
		{"acme/widget/tree", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			owner, repo, err := parseRepoArg(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, repo)
		})
	}
}
