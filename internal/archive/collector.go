package archive

import (
	"errors"
	"io"
	"unicode/utf8"

	"github.com/fyrsmithlabs/repolens/internal/filetree"
	"github.com/fyrsmithlabs/repolens/internal/ignore"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"github.com/fyrsmithlabs/repolens/internal/pathfilter"
	"go.uber.org/zap"
)

type opener func() (io.ReadCloser, error)

// collector applies the ignore, text and size filters to a stream of
// entries and accumulates the result.
type collector struct {
	opts    Options
	log     *zap.Logger
	matcher *ignore.Matcher

	stats ingest.Stats
	files []ingest.File
	paths []string
}

func newCollector(opts Options, log *zap.Logger) *collector {
	return &collector{opts: opts, log: log}
}

func (c *collector) loadIgnore(open opener) error {
	rc, err := open()
	if err != nil {
		return err
	}
	defer rc.Close()

	patterns, err := ignore.Parse(io.LimitReader(rc, int64(c.opts.MaxFileBytes)))
	if err != nil {
		return err
	}
	c.matcher = ignore.NewMatcher(patterns)
	c.log.Debug("loaded .gitignore", zap.Int("patterns", len(patterns)))
	return nil
}

func (c *collector) ignored(p string) bool {
	return pathfilter.ShouldIgnore(p) || c.matcher.Match(p)
}

// add considers one file entry. Read failures are counted, not returned.
func (c *collector) add(p string, size int64, open opener) {
	c.stats.Seen++
	if c.ignored(p) {
		c.stats.Ignored++
		return
	}
	c.paths = append(c.paths, p)

	if !pathfilter.IsTextFile(p) {
		c.stats.NonText++
		return
	}
	if size > int64(c.opts.MaxFileBytes) {
		c.log.Info("skipping large file", zap.String("path", p), zap.Int64("size", size))
		c.stats.Oversized++
		return
	}

	content, err := readBounded(open, c.opts.MaxFileBytes)
	switch {
	case errors.Is(err, errFileTooLarge):
		c.stats.Oversized++
	case err != nil:
		c.log.Warn("failed to read file", zap.String("path", p), zap.Error(err))
		c.stats.Failed++
	case !utf8.Valid(content):
		c.stats.NonText++
	default:
		c.files = append(c.files, ingest.File{Path: p, Content: string(content)})
		c.stats.Accepted++
	}
}

func (c *collector) result() (*ingest.Result, error) {
	if len(c.files) == 0 {
		return nil, &ingest.NoTextFilesError{
			Total:        c.stats.Seen,
			TextEligible: c.stats.Seen - c.stats.Ignored - c.stats.NonText,
		}
	}
	return &ingest.Result{
		Files:     c.files,
		FileCount: c.stats.Seen,
		Tree:      filetree.Build(c.paths),
		Stats:     c.stats,
	}, nil
}

var errFileTooLarge = errors.New("file exceeds size ceiling")

// readBounded reads at most limit bytes. Declared sizes are not trusted.
func readBounded(open opener, limit int) ([]byte, error) {
	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if len(b) > limit {
		return nil, errFileTooLarge
	}
	return b, nil
}
