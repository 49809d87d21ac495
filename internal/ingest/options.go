package ingest

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/config"
)

// Options tunes batching and budgets. The batch numbers encode GitHub's
// current rate-limit budget: authenticated callers get larger batches and
// shorter pauses.
type Options struct {
	AuthBatchSize  int
	AuthBatchDelay time.Duration
	AnonBatchSize  int
	AnonBatchDelay time.Duration

	// MaxFileBytes is the per-file ceiling; larger files are skipped.
	MaxFileBytes int

	// Timeout bounds a whole ingestion. Zero disables it.
	Timeout time.Duration

	// Sleep waits between batches. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultOptions returns the reference batching behavior.
func DefaultOptions() Options {
	return Options{
		AuthBatchSize:  8,
		AuthBatchDelay: 800 * time.Millisecond,
		AnonBatchSize:  4,
		AnonBatchDelay: 1500 * time.Millisecond,
		MaxFileBytes:   100_000,
		Timeout:        10 * time.Minute,
		Sleep:          sleepContext,
	}
}

// OptionsFromConfig maps the ingest config section onto Options.
func OptionsFromConfig(cfg config.IngestConfig) Options {
	opts := Options{
		AuthBatchSize:  cfg.AuthBatchSize,
		AuthBatchDelay: cfg.AuthBatchDelay,
		AnonBatchSize:  cfg.AnonBatchSize,
		AnonBatchDelay: cfg.AnonBatchDelay,
		MaxFileBytes:   cfg.MaxFileBytes,
		Timeout:        cfg.Timeout,
	}
	opts.ApplyDefaults()
	return opts
}

// ApplyDefaults sets default values for unset fields.
func (o *Options) ApplyDefaults() {
	d := DefaultOptions()
	if o.AuthBatchSize <= 0 {
		o.AuthBatchSize = d.AuthBatchSize
	}
	if o.AuthBatchDelay <= 0 {
		o.AuthBatchDelay = d.AuthBatchDelay
	}
	if o.AnonBatchSize <= 0 {
		o.AnonBatchSize = d.AnonBatchSize
	}
	if o.AnonBatchDelay <= 0 {
		o.AnonBatchDelay = d.AnonBatchDelay
	}
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = d.MaxFileBytes
	}
	if o.Sleep == nil {
		o.Sleep = d.Sleep
	}
}

func (o Options) batching(authenticated bool) (int, time.Duration) {
	if authenticated {
		return o.AuthBatchSize, o.AuthBatchDelay
	}
	return o.AnonBatchSize, o.AnonBatchDelay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
