package ghclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/logging"
	"go.uber.org/zap"
)

// RetryConfig configures retry behavior for GitHub API calls.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per request, first included.
	// Default: 3
	MaxAttempts int

	// Backoff is the base of the linear backoff for transient failures:
	// attempt n waits Backoff*n.
	// Default: 1 second
	Backoff time.Duration

	// ResetBuffer is added to the reported rate-limit reset time.
	// Default: 1 second
	ResetBuffer time.Duration

	// MaxRateLimitWait bounds how long a single rate-limit wait may be.
	// Longer waits fail fast with RateLimitError. Zero means no bound other
	// than the request context.
	// Default: 0
	MaxRateLimitWait time.Duration

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error

	// Now reports the current time. Tests replace it.
	Now func() time.Time
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:      3,
		Backoff:          time.Second,
		ResetBuffer:      time.Second,
		Sleep:            sleepContext,
		Now:              time.Now,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *RetryConfig) ApplyDefaults() {
	defaults := DefaultRetryConfig()

	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.Backoff <= 0 {
		c.Backoff = defaults.Backoff
	}
	if c.ResetBuffer <= 0 {
		c.ResetBuffer = defaults.ResetBuffer
	}
	if c.MaxRateLimitWait < 0 {
		c.MaxRateLimitWait = 0
	}
	if c.Sleep == nil {
		c.Sleep = defaults.Sleep
	}
	if c.Now == nil {
		c.Now = defaults.Now
	}
}

// Fetcher is an http.RoundTripper that retries GitHub requests. It waits out
// primary rate limits using the reported reset time and retries transient
// failures with linear backoff. Attempt counters live on the stack of a
// single RoundTrip call.
type Fetcher struct {
	base   http.RoundTripper
	cfg    RetryConfig
	logger *zap.Logger
}

// NewFetcher wraps base (http.DefaultTransport when nil).
func NewFetcher(base http.RoundTripper, cfg RetryConfig, logger *zap.Logger) *Fetcher {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	return &Fetcher{base: base, cfg: cfg, logger: logger}
}

// RoundTrip implements http.RoundTripper.
func (f *Fetcher) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	log := f.logger.With(logging.ContextFields(ctx)...)

	for attempt := 1; ; attempt++ {
		last := attempt >= f.cfg.MaxAttempts

		resp, err := f.base.RoundTrip(f.attemptRequest(req, attempt))
		if err != nil {
			if ctx.Err() != nil || last {
				return nil, err
			}
			wait := f.cfg.Backoff * time.Duration(attempt)
			log.Info("retrying github request after transport error",
				zap.String("path", req.URL.Path),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", f.cfg.MaxAttempts),
				zap.Duration("backoff", wait),
				zap.Error(err),
			)
			if err := f.cfg.Sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		if wait, reset, limited := f.rateLimitWait(resp); limited {
			discard(resp)
			if wait <= 0 || last || f.waitTooLong(wait) {
				log.Warn("github rate limit exhausted",
					zap.String("path", req.URL.Path),
					zap.Int("attempt", attempt),
					zap.Time("reset", reset),
					zap.Duration("wait", wait),
				)
				return nil, &RateLimitError{StatusCode: resp.StatusCode, Reset: reset}
			}
			log.Info("github rate limit hit, waiting for reset",
				zap.String("path", req.URL.Path),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
			)
			if err := f.cfg.Sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		if retryableStatus(resp.StatusCode) && !last {
			discard(resp)
			wait := f.cfg.Backoff * time.Duration(attempt)
			log.Info("retrying github request after transient status",
				zap.String("path", req.URL.Path),
				zap.Int("status_code", resp.StatusCode),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
			)
			if err := f.cfg.Sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		return resp, nil
	}
}

// attemptRequest returns req for the first attempt and a clone afterwards,
// since a RoundTripper must not reuse a consumed request body.
func (f *Fetcher) attemptRequest(req *http.Request, attempt int) *http.Request {
	if attempt == 1 {
		return req
	}
	r := req.Clone(req.Context())
	if req.Body != nil && req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			r.Body = body
		}
	}
	return r
}

func (f *Fetcher) waitTooLong(wait time.Duration) bool {
	return f.cfg.MaxRateLimitWait > 0 && wait > f.cfg.MaxRateLimitWait
}

// rateLimitWait reports whether resp is a rate-limit answer and, if so, how
// long to wait. Primary limits carry X-RateLimit-Remaining: 0 plus a reset
// epoch. Secondary limits carry Retry-After.
func (f *Fetcher) rateLimitWait(resp *http.Response) (time.Duration, time.Time, bool) {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return 0, time.Time{}, false
	}
	now := f.cfg.Now()

	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		if epoch, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil && epoch > 0 {
			reset := time.Unix(epoch, 0)
			return reset.Sub(now) + f.cfg.ResetBuffer, reset, true
		}
	}

	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
		wait := time.Duration(secs) * time.Second
		return wait + f.cfg.ResetBuffer, now.Add(wait), true
	}

	return 0, time.Time{}, false
}

// retryableStatus covers 5xx and a 429 that carried no reset data.
func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
