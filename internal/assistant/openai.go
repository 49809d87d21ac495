package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIOptions configures an OpenAI-compatible chat completion endpoint.
type OpenAIOptions struct {
	BaseURL     string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
}

// OpenAICompatible completes prompts against any endpoint speaking the
// OpenAI chat completions protocol.
type OpenAICompatible struct {
	llm         llms.Model
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAICompatible creates a completer. An API key is required.
func NewOpenAICompatible(opts OpenAIOptions) (*OpenAICompatible, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai-compatible API key required")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1500
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}

	clientOpts := []openai.Option{openai.WithToken(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}
	if opts.Model != "" {
		clientOpts = append(clientOpts, openai.WithModel(opts.Model))
	}

	llm, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return &OpenAICompatible{
		llm:         llm,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}, nil
}

// Name implements Completer.
func (o *OpenAICompatible) Name() string {
	if o.model == "" {
		return "openai"
	}
	return "openai:" + o.model
}

// Complete implements Completer.
func (o *OpenAICompatible) Complete(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, o.llm, prompt,
		llms.WithMaxTokens(o.maxTokens),
		llms.WithTemperature(o.temperature),
	)
}
