package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/repolens/internal/analyze"
	"github.com/fyrsmithlabs/repolens/internal/config"
	"github.com/fyrsmithlabs/repolens/internal/project"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/repolens/internal/assistant")

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("question is required")

const (
	// contextFiles is how many files seed the prompt when nothing ranks.
	contextFiles = 15

	// listingFiles is how many paths a local inventory answer shows.
	listingFiles = 15
)

// Source tells where an answer came from.
type Source string

const (
	// SourceLocal answers come from the search index by choice.
	SourceLocal Source = "local"

	// SourceAI answers come from a completion backend.
	SourceAI Source = "ai"

	// SourceFallback answers come from the search index because every
	// completion backend failed.
	SourceFallback Source = "fallback"
)

// Answer is the response to one question.
type Answer struct {
	Text     string          `json:"message"`
	Source   Source          `json:"source"`
	Provider string          `json:"provider,omitempty"`
	Results  []search.Result `json:"-"`
}

// Options configures an Assistant.
type Options struct {
	// PromptChars bounds the file context injected into a prompt.
	PromptChars int

	Engine search.Engine
}

// Assistant answers questions about a project.
type Assistant struct {
	chain  *Chain
	opts   Options
	logger *zap.Logger
}

// New creates an Assistant. A nil or empty chain answers everything locally.
func New(chain *Chain, opts Options, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chain == nil {
		chain = NewChain(logger)
	}
	if opts.PromptChars <= 0 {
		opts.PromptChars = 12_000
	}
	return &Assistant{chain: chain, opts: opts, logger: logger}
}

// ChainFromConfig builds the backend chain from configuration. Backends
// without an API key are left out; the OpenAI-compatible endpoint is tried
// before Gemini.
func ChainFromConfig(ctx context.Context, cfg config.AssistantConfig, logger *zap.Logger) (*Chain, error) {
	var completers []Completer

	if cfg.OpenAI.APIKey.IsSet() {
		c, err := NewOpenAICompatible(OpenAIOptions{
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			APIKey:  cfg.OpenAI.APIKey.Value(),
		})
		if err != nil {
			return nil, err
		}
		completers = append(completers, c)
	}

	if cfg.Gemini.APIKey.IsSet() {
		c, err := NewGemini(ctx, GeminiOptions{
			APIKey: cfg.Gemini.APIKey.Value(),
			Model:  cfg.Gemini.Model,
		})
		if err != nil {
			return nil, err
		}
		completers = append(completers, c)
	}

	return NewChain(logger, completers...), nil
}

// Backends returns the number of configured completion backends.
func (a *Assistant) Backends() int {
	return a.chain.Len()
}

// Answer answers question about p.
//
// Location questions, and every question when no backend is configured, are
// answered from the search index. Otherwise the ranked files are sent to
// the backend chain; if the whole chain fails the local answer is returned
// with SourceFallback. Only cancellation is reported as an error.
func (a *Assistant) Answer(ctx context.Context, p *project.Project, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	ctx, span := tracer.Start(ctx, "assistant.Answer")
	defer span.End()

	docs := p.Documents()
	results := a.opts.Engine.Query(docs, question)
	span.SetAttributes(
		attribute.String("project.id", p.ID),
		attribute.Int("results", len(results)),
	)

	if a.chain.Len() == 0 || search.LooksLikeLocation(question) {
		return a.local(docs, question, results, SourceLocal), nil
	}

	text, provider, err := a.chain.complete(ctx, a.prompt(p, question, results))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("answering question: %w", ctxErr)
		}
		a.logger.Warn("all completion backends failed, answering locally",
			zap.String("project_id", p.ID),
			zap.Error(err),
		)
		return a.local(docs, question, results, SourceFallback), nil
	}

	span.SetAttributes(attribute.String("provider", provider))
	return &Answer{Text: text, Source: SourceAI, Provider: provider, Results: results}, nil
}

func (a *Assistant) local(docs []search.Document, question string, results []search.Result, src Source) *Answer {
	var text string
	if len(results) > 0 {
		text = search.Summarize(question, results)
	} else {
		text = search.Listing(docs, listingFiles)
	}
	if src == SourceFallback {
		text = "The AI service is unavailable right now. Here is what the project index shows:\n\n" + text
	}
	return &Answer{Text: text, Source: src, Results: results}
}

const promptTemplate = `You are a helpful AI assistant for a code project called %q.

You have access to project files and can help with:
- Explaining code and project structure
- Answering questions about the codebase
- Suggesting improvements

IMPORTANT: Keep responses concise. Focus on the specific question.
If you don't know, say so. Don't make up information.

Project files:
%s

Question: %s

Respond in 2-3 paragraphs maximum. Use Markdown for code snippets.`

// prompt builds the completion prompt. Secrets in file excerpts are masked
// before they leave the process.
func (a *Assistant) prompt(p *project.Project, question string, results []search.Result) string {
	if len(results) == 0 {
		for _, f := range p.Files[:min(contextFiles, len(p.Files))] {
			results = append(results, search.Result{Path: f.Path, Content: f.Content})
		}
	}
	files := analyze.Redact(search.PromptContext(results, a.opts.PromptChars))
	return fmt.Sprintf(promptTemplate, p.Name, files, question)
}
