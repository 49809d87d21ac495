// Package archive loads uploaded ZIP archives and local directories into
// the same shape a repository ingestion produces.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/config"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/repolens/internal/archive")

var (
	// ErrInvalidArchive is returned when the upload is not a readable ZIP.
	ErrInvalidArchive = errors.New("invalid zip archive")

	// ErrTooManyEntries is returned when an archive holds more files than
	// MaxEntries.
	ErrTooManyEntries = errors.New("archive has too many entries")

	// ErrTooLarge is returned when the uncompressed size of an archive
	// exceeds MaxTotalBytes.
	ErrTooLarge = errors.New("archive too large")
)

// macOS archivers add this folder next to the real root.
const resourceForkDir = "__MACOSX"

// Options bounds extraction.
type Options struct {
	// MaxEntries caps the number of file entries considered.
	MaxEntries int

	// MaxTotalBytes caps the summed uncompressed size of all entries.
	MaxTotalBytes int64

	// MaxFileBytes is the per-file ceiling; larger files are skipped.
	MaxFileBytes int
}

// DefaultOptions returns the upload limits used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxEntries:    20_000,
		MaxTotalBytes: 200 << 20,
		MaxFileBytes:  100_000,
	}
}

// OptionsFromConfig builds Options from the upload and ingest sections.
func OptionsFromConfig(up config.UploadConfig, in config.IngestConfig) Options {
	opts := Options{
		MaxEntries:    up.MaxEntries,
		MaxTotalBytes: up.MaxTotalBytes,
		MaxFileBytes:  in.MaxFileBytes,
	}
	opts.applyDefaults()
	return opts
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.MaxEntries <= 0 {
		o.MaxEntries = d.MaxEntries
	}
	if o.MaxTotalBytes <= 0 {
		o.MaxTotalBytes = d.MaxTotalBytes
	}
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = d.MaxFileBytes
	}
}

// Extractor turns archives and directories into ingestion results.
type Extractor struct {
	opts    Options
	logger  *zap.Logger
	metrics *ingest.Metrics
}

// New creates an Extractor.
func New(opts Options, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.applyDefaults()
	return &Extractor{
		opts:    opts,
		logger:  logger,
		metrics: ingest.NewMetrics(),
	}
}

// Extract reads a ZIP archive with a discarded logger. See Extractor.Extract.
func Extract(ctx context.Context, r io.ReaderAt, size int64, opts Options) (*ingest.Result, error) {
	return New(opts, nil).Extract(ctx, r, size)
}

// Extract reads every file of a ZIP archive. A single folder shared by all
// entries is stripped, and a .gitignore at the stripped root adds to the
// built-in ignore rules.
func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (res *ingest.Result, err error) {
	ctx, span := tracer.Start(ctx, "archive.Extract")
	defer span.End()
	defer e.observe("upload", span, &err)()

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	entries := make([]*zip.File, 0, len(zr.File))
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, ok := cleanName(f.Name)
		if !ok {
			continue
		}
		if strings.HasPrefix(name, resourceForkDir+"/") {
			continue
		}
		entries = append(entries, f)
		names = append(names, name)
	}
	if len(entries) > e.opts.MaxEntries {
		return nil, fmt.Errorf("%w: %d entries (max %d)", ErrTooManyEntries, len(entries), e.opts.MaxEntries)
	}

	var total uint64
	for _, f := range entries {
		total += f.UncompressedSize64
	}
	if total > uint64(e.opts.MaxTotalBytes) {
		return nil, fmt.Errorf("%w: %d bytes uncompressed (max %d)", ErrTooLarge, total, e.opts.MaxTotalBytes)
	}

	prefix := sharedRoot(names)
	for i := range names {
		names[i] = strings.TrimPrefix(names[i], prefix)
	}

	c := newCollector(e.opts, e.logger)
	for i, f := range entries {
		if names[i] == ".gitignore" {
			if err := c.loadIgnore(f.Open); err != nil {
				e.logger.Warn("unreadable .gitignore in archive", zap.Error(err))
			}
			break
		}
	}

	for i, f := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.add(names[i], int64(f.UncompressedSize64), f.Open)
	}

	span.SetAttributes(
		attribute.Int("files.seen", c.stats.Seen),
		attribute.Int("files.accepted", c.stats.Accepted),
		attribute.String("root", strings.TrimSuffix(prefix, "/")),
	)
	return c.result()
}

// observe records the outcome and duration of one load. Call the returned
// func with defer.
func (e *Extractor) observe(source string, span trace.Span, errp *error) func() {
	start := time.Now()
	return func() {
		err := *errp
		e.metrics.IngestionsTotal.WithLabelValues(source, ingest.Outcome(err)).Inc()
		e.metrics.Duration.WithLabelValues(source).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
}

// cleanName normalizes an entry name to a slash-separated relative path.
// Parent references are resolved against the archive root.
func cleanName(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean("/" + name)[1:]
	if name == "" || name == "." {
		return "", false
	}
	return name, true
}

// sharedRoot returns "dir/" when every name lives under the same top-level
// directory, and "" otherwise.
func sharedRoot(names []string) string {
	if len(names) == 0 {
		return ""
	}
	root, _, ok := strings.Cut(names[0], "/")
	if !ok {
		return ""
	}
	prefix := root + "/"
	for _, n := range names[1:] {
		if !strings.HasPrefix(n, prefix) {
			return ""
		}
	}
	return prefix
}
