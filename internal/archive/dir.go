package archive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/repolens/internal/ignore"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"github.com/fyrsmithlabs/repolens/internal/pathfilter"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultIgnoreFiles are read from the root of a local directory.
var DefaultIgnoreFiles = []string{".gitignore", ".dockerignore"}

// LoadDir reads a local directory the way Extract reads an archive. Ignore
// files at root add to the built-in rules, and ignored directories are not
// descended into.
func (e *Extractor) LoadDir(ctx context.Context, root string) (res *ingest.Result, err error) {
	ctx, span := tracer.Start(ctx, "archive.LoadDir")
	defer span.End()
	defer e.observe("local", span, &err)()

	patterns, err := ignore.NewParser(DefaultIgnoreFiles, nil).ParseProject(root)
	if err != nil {
		return nil, err
	}

	c := newCollector(e.opts, e.logger.With(zap.String("root", root)))
	c.matcher = ignore.NewMatcher(patterns)

	var total int64
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			// A synthetic child tells whether the directory segment is denylisted.
			if pathfilter.ShouldIgnore(rel+"/_") || c.matcher.Match(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if c.stats.Seen >= e.opts.MaxEntries {
			return ErrTooManyEntries
		}
		total += info.Size()
		if total > e.opts.MaxTotalBytes {
			return ErrTooLarge
		}

		c.add(rel, info.Size(), func() (io.ReadCloser, error) { return os.Open(p) })
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("files.seen", c.stats.Seen),
		attribute.Int("files.accepted", c.stats.Accepted),
	)
	return c.result()
}
