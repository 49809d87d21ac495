package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiOptions configures the Gemini API backend.
type GeminiOptions struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32

	// BaseURL overrides the API endpoint. Tests only.
	BaseURL string
}

// Gemini completes prompts with the Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewGemini creates a completer. An API key is required.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini API key required")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1500
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{
		client:      client,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}, nil
}

// Name implements Completer.
func (g *Gemini) Name() string { return "gemini:" + g.model }

// Complete implements Completer.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	temp := g.temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			MaxOutputTokens: g.maxTokens,
			Temperature:     &temp,
		},
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}
