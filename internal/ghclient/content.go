package ghclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

const rawMediaType = "application/vnd.github.v3.raw"

// FetchContent downloads the raw bytes of path at ref (the default branch
// when ref is empty). Bodies larger than maxBytes fail with ErrTooLarge.
func (c *Client) FetchContent(ctx context.Context, owner, repo, path, ref string, maxBytes int) (string, error) {
	u := fmt.Sprintf("repos/%s/%s/contents/%s", owner, repo, (&url.URL{Path: path}).String())
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}

	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("building content request for %s: %w", path, err)
	}
	req.Header.Set("Accept", rawMediaType)

	buf := &boundedBuffer{max: maxBytes}
	if _, err := c.gh.Do(apiContext(ctx), req, buf); err != nil {
		if errors.Is(err, ErrTooLarge) {
			return "", fmt.Errorf("%s: %w", path, ErrTooLarge)
		}
		return "", fmt.Errorf("fetching %s: %w", path, classify(err))
	}
	return buf.String(), nil
}

// boundedBuffer refuses writes past max bytes. It must not implement
// io.ReaderFrom, or io.Copy would bypass Write.
type boundedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if b.max > 0 && b.buf.Len()+len(p) > b.max {
		return 0, ErrTooLarge
	}
	return b.buf.Write(p)
}

func (b *boundedBuffer) String() string {
	return b.buf.String()
}
