package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadme_NoBackendsUsesTemplate(t *testing.T) {
	p := widgetProject(t)
	p.Repository = "acme/widget"

	r, err := New(nil, Options{}, nil).Readme(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, SourceLocal, r.Source)
	assert.Empty(t, r.Provider)
	assert.True(t, strings.HasPrefix(r.Text, "# widget\n"))
	assert.Contains(t, r.Text, "GitHub Issues: https://github.com/acme/widget/issues")
	assert.Contains(t, r.Text, "This project contains 3 files.")
	assert.Contains(t, r.Text, "- `src/auth/login.ts`")
	assert.Contains(t, r.Text, "`git clone https://github.com/acme/widget`")
}

func TestReadme_UsesBackendWithRedactedContext(t *testing.T) {
	backend := &fakeCompleter{name: "ai", text: "# Widget\n\nA login service."}
	p := widgetProject(t)
	p.Repository = "acme/widget"

	r, err := New(NewChain(nil, backend), Options{}, nil).Readme(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, SourceAI, r.Source)
	assert.Equal(t, "ai", r.Provider)
	assert.Equal(t, "# Widget\n\nA login service.", r.Text)

	require.Equal(t, 1, backend.calls)
	assert.Contains(t, backend.prompt, `README.md for the project "widget"`)
	assert.Contains(t, backend.prompt, "--- README.md ---")
	assert.Contains(t, backend.prompt, "git clone https://github.com/acme/widget.git")
	assert.Contains(t, backend.prompt, "[REDACTED]")
	assert.NotContains(t, backend.prompt, ghToken)
}

func TestReadme_UploadedProjectHasNoCloneURL(t *testing.T) {
	backend := &fakeCompleter{name: "ai", text: "# x"}
	_, err := New(NewChain(nil, backend), Options{}, nil).Readme(context.Background(), widgetProject(t))
	require.NoError(t, err)
	assert.Contains(t, backend.prompt, "git clone <repository-url>")
	assert.NotContains(t, backend.prompt, "GitHub Issues")
}

func TestReadme_FallsBackToTemplate(t *testing.T) {
	a := New(NewChain(nil, &fakeCompleter{name: "a", err: errors.New("timeout")}), Options{}, nil)

	r, err := a.Readme(context.Background(), widgetProject(t))
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, r.Source)
	assert.Contains(t, r.Text, "# widget")
	assert.Contains(t, r.Text, "no AI service was available")
}

func TestReadme_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := New(NewChain(nil, &cancellingCompleter{cancel: cancel}), Options{}, nil)
	_, err := a.Readme(ctx, widgetProject(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadmeContext_RanksAndBounds(t *testing.T) {
	files := []ingest.File{
		{Path: "lib/util.go", Content: "package lib"},
		{Path: "src/main.ts", Content: strings.Repeat("x", 3000)},
		{Path: "README.md", Content: "# hi"},
		{Path: "package.json", Content: "{}"},
	}
	got := readmeContext(files)

	order := []string{"--- package.json ---", "--- README.md ---", "--- src/main.ts ---", "--- lib/util.go ---"}
	last := -1
	for _, header := range order {
		i := strings.Index(got, header)
		require.GreaterOrEqual(t, i, 0, header)
		assert.Greater(t, i, last, header)
		last = i
	}
	assert.Contains(t, got, strings.Repeat("x", readmeFileChars)+"\n")
	assert.NotContains(t, got, strings.Repeat("x", readmeFileChars+1))
}

func TestReadmeContext_TotalBudget(t *testing.T) {
	var files []ingest.File
	for i := 0; i < readmeFiles+5; i++ {
		files = append(files, ingest.File{Path: fmt.Sprintf("src/f%02d.ts", i), Content: strings.Repeat("y", readmeFileChars)})
	}
	got := readmeContext(files)
	assert.LessOrEqual(t, len(got), readmeContextChars)
	assert.NotContains(t, got, fmt.Sprintf("src/f%02d.ts", readmeFiles))
}

func TestPackageInfo(t *testing.T) {
	files := []ingest.File{{Path: "package.json", Content: `{
		"name": "widget",
		"version": "1.2.0",
		"scripts": {"test": "jest", "build": "tsc"},
		"dependencies": {"express": "^4"},
		"devDependencies": {"jest": "^29", "typescript": "^5"}
	}`}}

	info := packageInfo(files, "")
	assert.Contains(t, info, "- Name: widget")
	assert.Contains(t, info, "- Version: 1.2.0")
	assert.Contains(t, info, "- Description: Not specified")
	assert.Contains(t, info, "- Scripts: build, test")
	assert.Contains(t, info, "- Dependencies: 1")
	assert.Contains(t, info, "- Dev Dependencies: 2")

	assert.Contains(t, packageInfo([]ingest.File{{Path: "package.json", Content: "{}"}}, "widget"), "- Name: widget")
	assert.Empty(t, packageInfo([]ingest.File{{Path: "package.json", Content: "not json"}}, ""))
	assert.Empty(t, packageInfo([]ingest.File{{Path: "go.mod", Content: "module x"}}, ""))
}
