package ghclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v69/github"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// EntryKind distinguishes blobs from trees.
type EntryKind string

const (
	Blob EntryKind = "blob"
	Tree EntryKind = "tree"
)

// Entry is one path discovered in a repository.
type Entry struct {
	Path string
	Kind EntryKind
	Size int64
}

// ResolveTree lists every blob in the repository's default branch.
//
// It prefers a single recursive tree call. When the API refuses (422), the
// tree comes back truncated, or the call fails for a non-fatal reason, it
// falls back to a paced breadth-first walk of the contents API. An
// exhausted rate limit is surfaced instead, since the walk would only burn
// more quota.
func (c *Client) ResolveTree(ctx context.Context, owner, repo string) ([]Entry, error) {
	ctx = apiContext(ctx)
	branch, err := c.DefaultBranch(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	log := c.logger.With(zap.String("repository", owner+"/"+repo), zap.String("branch", branch))

	tree, resp, err := c.gh.Git.GetTree(ctx, owner, repo, branch, true)
	switch {
	case err == nil && !tree.GetTruncated():
		return blobs(tree), nil
	case err == nil:
		log.Warn("recursive tree truncated, walking contents",
			zap.Int("partial_entries", len(tree.Entries)))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case isRateLimit(err):
		return nil, fmt.Errorf("listing tree of %s/%s: %w", owner, repo, classify(err))
	case resp != nil && resp.Response != nil && resp.StatusCode == http.StatusUnprocessableEntity:
		log.Info("repository too large for recursive tree, walking contents")
	default:
		log.Warn("recursive tree failed, walking contents", zap.Error(err))
	}

	return c.walk(ctx, owner, repo, branch, log)
}

// walk lists directories breadth-first starting at the root. A directory
// that fails to list is logged and skipped; partial results are returned.
func (c *Client) walk(ctx context.Context, owner, repo, branch string, log *zap.Logger) ([]Entry, error) {
	ctx = apiContext(ctx)
	limiter := rate.NewLimiter(rate.Every(c.listingInterval), 1)
	opts := &github.RepositoryContentGetOptions{Ref: branch}

	var entries []Entry
	skipped := 0
	queue := []string{""}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		_, listing, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, dir, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			skipped++
			log.Warn("skipping directory that failed to list",
				zap.String("dir", displayDir(dir)),
				zap.Int("status_code", StatusCode(err)),
				zap.Error(err),
			)
			if isRateLimit(err) {
				log.Warn("rate limit exhausted during walk, returning partial listing",
					zap.Int("pending_dirs", len(queue)))
				break
			}
			continue
		}

		for _, item := range listing {
			switch item.GetType() {
			case "file":
				entries = append(entries, Entry{Path: item.GetPath(), Kind: Blob, Size: int64(item.GetSize())})
			case "dir":
				queue = append(queue, item.GetPath())
			}
		}

		log.Debug("walked directory",
			zap.String("dir", displayDir(dir)),
			zap.Int("files_found", len(entries)),
			zap.Int("dirs_remaining", len(queue)),
		)
	}

	log.Info("contents walk finished",
		zap.Int("files_found", len(entries)),
		zap.Int("dirs_skipped", skipped),
	)
	return entries, nil
}

func blobs(tree *github.Tree) []Entry {
	out := make([]Entry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.GetType() != string(Blob) {
			continue
		}
		out = append(out, Entry{Path: e.GetPath(), Kind: Blob, Size: int64(e.GetSize())})
	}
	return out
}

func isRateLimit(err error) bool {
	var ghRate *github.RateLimitError
	var abuse *github.AbuseRateLimitError
	return errors.Is(err, ErrRateLimitExceeded) || errors.As(err, &ghRate) || errors.As(err, &abuse)
}

func displayDir(dir string) string {
	if dir == "" {
		return "/"
	}
	return dir
}
