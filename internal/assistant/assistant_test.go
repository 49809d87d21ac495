package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/repolens/internal/config"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"github.com/fyrsmithlabs/repolens/internal/project"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ghToken = "ghp_" + strings.Repeat("A", 36)

func widgetProject(t *testing.T) *project.Project {
	t.Helper()
	p, err := project.New("widget", project.SourceGitHub, &ingest.Result{
		Files: []ingest.File{
			{Path: "README.md", Content: "# widget\n"},
			{Path: "src/auth/login.ts", Content: "export async function login(user) {\n  const token = \"" + ghToken + "\"\n  return fetch('/api/login')\n}\n"},
			{Path: "src/index.ts", Content: "import { login } from './auth/login'\n"},
		},
		FileCount: 3,
	})
	require.NoError(t, err)
	return p
}

func TestAnswer_LocationQuestionStaysLocal(t *testing.T) {
	backend := &fakeCompleter{name: "ai", text: "should not be used"}
	a := New(NewChain(nil, backend), Options{}, nil)

	ans, err := a.Answer(context.Background(), widgetProject(t), "Where is login.ts?")
	require.NoError(t, err)

	assert.Equal(t, SourceLocal, ans.Source)
	assert.Equal(t, 0, backend.calls)
	require.Len(t, ans.Results, 1)
	assert.Equal(t, "src/auth/login.ts", ans.Results[0].Path)
	assert.Contains(t, ans.Text, "src/auth/login.ts")
}

func TestAnswer_NoBackendsAnswersLocally(t *testing.T) {
	a := New(nil, Options{}, nil)
	assert.Equal(t, 0, a.Backends())

	ans, err := a.Answer(context.Background(), widgetProject(t), "how does login work")
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, ans.Source)
	assert.Empty(t, ans.Provider)
	assert.Contains(t, ans.Text, "src/auth/login.ts")
}

func TestAnswer_UsesBackendWithRedactedContext(t *testing.T) {
	backend := &fakeCompleter{name: "ai", text: "Login posts credentials to /api/login."}
	a := New(NewChain(nil, backend), Options{}, nil)

	ans, err := a.Answer(context.Background(), widgetProject(t), "how does login work")
	require.NoError(t, err)

	assert.Equal(t, SourceAI, ans.Source)
	assert.Equal(t, "ai", ans.Provider)
	assert.Equal(t, "Login posts credentials to /api/login.", ans.Text)

	require.Equal(t, 1, backend.calls)
	assert.Contains(t, backend.prompt, `code project called "widget"`)
	assert.Contains(t, backend.prompt, "--- src/auth/login.ts ---")
	assert.Contains(t, backend.prompt, "Question: how does login work")
	assert.Contains(t, backend.prompt, "[REDACTED]")
	assert.NotContains(t, backend.prompt, ghToken)
}

func TestAnswer_NoMatchesSeedsPromptWithFirstFiles(t *testing.T) {
	p, err := project.New("svc", project.SourceUpload, &ingest.Result{
		Files: []ingest.File{
			{Path: "main.go", Content: "package main\n"},
			{Path: "config/app.yaml", Content: "password: \"hunter2hunter2\"\n"},
		},
		FileCount: 2,
	})
	require.NoError(t, err)

	backend := &fakeCompleter{name: "ai", text: "A small service."}
	a := New(NewChain(nil, backend), Options{}, nil)

	ans, err := a.Answer(context.Background(), p, "summarize zzz qqq")
	require.NoError(t, err)
	assert.Equal(t, SourceAI, ans.Source)
	assert.Empty(t, ans.Results)

	assert.Contains(t, backend.prompt, "--- main.go ---")
	assert.Contains(t, backend.prompt, "--- config/app.yaml ---")
	assert.NotContains(t, backend.prompt, "hunter2hunter2")
}

func TestAnswer_PromptRespectsBudget(t *testing.T) {
	backend := &fakeCompleter{name: "ai", text: "ok"}
	a := New(NewChain(nil, backend), Options{PromptChars: 40}, nil)

	_, err := a.Answer(context.Background(), widgetProject(t), "how does login work")
	require.NoError(t, err)

	start := strings.Index(backend.prompt, "Project files:\n") + len("Project files:\n")
	end := strings.Index(backend.prompt, "\n\nQuestion:")
	require.Greater(t, end, start)
	assert.LessOrEqual(t, len([]rune(backend.prompt[start:end])), 40)
}

func TestAnswer_FallsBackWhenEveryBackendFails(t *testing.T) {
	a := New(NewChain(nil,
		&fakeCompleter{name: "a", err: errors.New("boom")},
		&fakeCompleter{name: "b", err: errors.New("bust")},
	), Options{}, nil)

	ans, err := a.Answer(context.Background(), widgetProject(t), "how does login work")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, ans.Source)
	assert.Contains(t, ans.Text, "unavailable")
	assert.Contains(t, ans.Text, "src/auth/login.ts")
}

func TestAnswer_FallbackListsProjectWhenNothingMatches(t *testing.T) {
	p, err := project.New("docs", project.SourceUpload, &ingest.Result{
		Files:     []ingest.File{{Path: "README.md", Content: "hello"}, {Path: "NOTES.md", Content: "notes"}},
		FileCount: 2,
	})
	require.NoError(t, err)

	a := New(NewChain(nil, &fakeCompleter{name: "a", err: errors.New("boom")}), Options{}, nil)
	ans, err := a.Answer(context.Background(), p, "summarize zzz qqq")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, ans.Source)
	assert.Contains(t, ans.Text, "The project has 2 files (md)")
	assert.Contains(t, ans.Text, "- README.md")
}

func TestAnswer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := New(NewChain(nil, &cancellingCompleter{cancel: cancel}), Options{}, nil)
	_, err := a.Answer(ctx, widgetProject(t), "how does login work")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	a := New(nil, Options{}, nil)
	_, err := a.Answer(context.Background(), widgetProject(t), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAnswer_EngineCapsResults(t *testing.T) {
	a := New(nil, Options{Engine: search.Engine{MaxResults: 1}}, nil)
	ans, err := a.Answer(context.Background(), widgetProject(t), "how does login work")
	require.NoError(t, err)
	assert.Len(t, ans.Results, 1)
}

func TestChainFromConfig(t *testing.T) {
	chain, err := ChainFromConfig(context.Background(), config.AssistantConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, chain.Len())

	chain, err = ChainFromConfig(context.Background(), config.AssistantConfig{
		OpenAI: config.OpenAIConfig{BaseURL: "http://localhost:1/v1", Model: "gpt-4o-mini", APIKey: "k1"},
		Gemini: config.GeminiConfig{Model: "gemini-2.5-flash", APIKey: "k2"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "chain(openai:gpt-4o-mini,gemini:gemini-2.5-flash)", chain.Name())
}
