// Package ghclient talks to the GitHub REST API on behalf of a single
// ingestion. Each Client carries its own credential and retry policy.
package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v69/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const defaultBranch = "main"

// Options configures a Client.
type Options struct {
	// BaseURL overrides https://api.github.com/.
	BaseURL string

	// Transport is the network transport under the retry layer.
	Transport http.RoundTripper

	Retry RetryConfig

	// ListingInterval spaces directory listings during manual traversal.
	// Default: 500ms
	ListingInterval time.Duration

	UserAgent string
	Logger    *zap.Logger
}

// Client is a GitHub API client bound to one (possibly empty) credential.
type Client struct {
	gh              *github.Client
	authenticated   bool
	listingInterval time.Duration
	logger          *zap.Logger
}

// New creates a client. A token without a recognized prefix is treated as
// absent and the client runs unauthenticated.
func New(token string, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ListingInterval <= 0 {
		opts.ListingInterval = 500 * time.Millisecond
	}

	var rt http.RoundTripper = NewFetcher(opts.Transport, opts.Retry, logger)

	authenticated := false
	switch {
	case token == "":
	case ValidToken(token):
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   rt,
		}
		authenticated = true
	default:
		logger.Warn("ignoring github token with unrecognized format",
			zap.Int("length", len(token)))
	}

	gh := github.NewClient(&http.Client{Transport: rt})
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url %q: %w", opts.BaseURL, err)
		}
		gh.BaseURL = u
	}
	if opts.UserAgent != "" {
		gh.UserAgent = opts.UserAgent
	}

	return &Client{
		gh:              gh,
		authenticated:   authenticated,
		listingInterval: opts.ListingInterval,
		logger:          logger,
	}, nil
}

// Authenticated reports whether requests carry a bearer credential.
func (c *Client) Authenticated() bool {
	return c.authenticated
}

// DefaultBranch returns the repository's default branch, "main" when the
// API leaves it empty.
func (c *Client) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	r, resp, err := c.gh.Repositories.Get(apiContext(ctx), owner, repo)
	if err != nil {
		if resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%s/%s: %w", owner, repo, ErrRepoNotFound)
		}
		return "", fmt.Errorf("fetching repository %s/%s: %w", owner, repo, classify(err))
	}

	c.logger.Debug("repository metadata",
		zap.String("repository", owner+"/"+repo),
		zap.String("default_branch", r.GetDefaultBranch()),
		zap.Int("size_kb", r.GetSize()),
	)

	if branch := r.GetDefaultBranch(); branch != "" {
		return branch, nil
	}
	return defaultBranch, nil
}

// apiContext disables go-github's local rate-limit bookkeeping so that
// every request reaches the Fetcher, which owns the wait and retry policy.
// Without it a 200 that spends the last unit of quota makes go-github fail
// later calls locally until the reset, without sending them.
func apiContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, github.BypassRateLimitCheck, true)
}
