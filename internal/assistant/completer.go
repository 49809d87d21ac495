// Package assistant answers questions about an ingested project, from the
// local search index or through an ordered chain of completion backends.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrNoBackend is returned by an empty Chain.
var ErrNoBackend = errors.New("no completion backend configured")

// Completer turns a prompt into text.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderError reports that every completion backend failed. Err is the
// last backend's error.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("completion provider %s failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Chain tries completers in order. The first non-empty answer wins.
type Chain struct {
	completers []Completer
	logger     *zap.Logger
}

// NewChain creates a Chain. Nil completers are dropped.
func NewChain(logger *zap.Logger, completers ...Completer) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Chain{logger: logger}
	for _, comp := range completers {
		if comp != nil {
			c.completers = append(c.completers, comp)
		}
	}
	return c
}

// Len returns the number of backends.
func (c *Chain) Len() int {
	return len(c.completers)
}

// Name lists the backends in order.
func (c *Chain) Name() string {
	names := make([]string, len(c.completers))
	for i, comp := range c.completers {
		names[i] = comp.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Complete returns the first successful completion. Cancellation stops the
// chain immediately.
func (c *Chain) Complete(ctx context.Context, prompt string) (string, error) {
	text, _, err := c.complete(ctx, prompt)
	return text, err
}

func (c *Chain) complete(ctx context.Context, prompt string) (string, string, error) {
	if len(c.completers) == 0 {
		return "", "", ErrNoBackend
	}

	var (
		lastErr  error
		lastName string
	)
	for _, comp := range c.completers {
		text, err := comp.Complete(ctx, prompt)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("empty completion")
		}
		if err == nil {
			return text, comp.Name(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", "", ctxErr
		}

		c.logger.Warn("completion backend failed, trying next",
			zap.String("provider", comp.Name()),
			zap.Error(err),
		)
		lastErr, lastName = err, comp.Name()
	}
	return "", "", &ProviderError{Provider: lastName, Err: lastErr}
}
