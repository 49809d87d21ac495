package ghclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/go-github/v69/github"
)

var (
	// ErrRepoNotFound is returned when repository metadata answers 404.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrRateLimitExceeded is returned once the API quota is exhausted and no
	// further retries are permitted.
	ErrRateLimitExceeded = errors.New("github rate limit exceeded")

	// ErrTooLarge is returned when file content exceeds the requested ceiling.
	ErrTooLarge = errors.New("content exceeds size limit")
)

// maxBodyExcerpt bounds the response body kept on ProviderError.
const maxBodyExcerpt = 200

// RateLimitError carries the reset time reported by the API.
type RateLimitError struct {
	StatusCode int
	Reset      time.Time
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return ErrRateLimitExceeded.Error()
	}
	return fmt.Sprintf("%s (resets at %s)", ErrRateLimitExceeded, e.Reset.UTC().Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}

// ProviderError is any other non-2xx answer from the API after retries.
type ProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("github api error: %s", e.Body)
	}
	return fmt.Sprintf("github api error: status %d: %s", e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// classify maps go-github and transport errors onto the package taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl
	}

	var ghRate *github.RateLimitError
	if errors.As(err, &ghRate) {
		return &RateLimitError{StatusCode: statusOf(ghRate.Response), Reset: ghRate.Rate.Reset.Time}
	}

	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		reset := time.Now()
		if abuse.RetryAfter != nil {
			reset = reset.Add(*abuse.RetryAfter)
		}
		return &RateLimitError{StatusCode: statusOf(abuse.Response), Reset: reset}
	}

	var resp *github.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		body := readExcerpt(resp.Response)
		if body == "" {
			body = resp.Message
		}
		return &ProviderError{StatusCode: resp.Response.StatusCode, Body: body, Err: err}
	}

	return &ProviderError{Body: truncate(err.Error(), maxBodyExcerpt), Err: err}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode
	}
	var resp *github.ErrorResponse
	if errors.As(err, &resp) {
		return statusOf(resp.Response)
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.StatusCode
	}
	return 0
}

func statusOf(r *http.Response) int {
	if r == nil {
		return 0
	}
	return r.StatusCode
}

// readExcerpt reads the body go-github re-populated after CheckResponse.
func readExcerpt(r *http.Response) string {
	if r.Body == nil {
		return ""
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyExcerpt*4))
	if err != nil {
		return ""
	}
	return truncate(string(b), maxBodyExcerpt)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
