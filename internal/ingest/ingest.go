// Package ingest pulls the text files of a GitHub repository into memory.
//
// Paths are filtered, ordered by priority, and fetched in bounded concurrent
// batches. Every batch is a barrier: no request of batch N+1 is issued before
// all of batch N has completed or failed.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fyrsmithlabs/repolens/internal/filetree"
	"github.com/fyrsmithlabs/repolens/internal/ghclient"
	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/pathfilter"
	"github.com/fyrsmithlabs/repolens/internal/priority"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/repolens/internal/ingest")

// File is a fetched text file.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Stats counts what happened to every discovered file.
type Stats struct {
	Seen      int `json:"seen"`
	Ignored   int `json:"ignored"`
	NonText   int `json:"non_text"`
	Oversized int `json:"oversized"`
	Failed    int `json:"failed"`
	Accepted  int `json:"accepted"`
	Batches   int `json:"batches"`
}

// Result is the outcome of one ingestion.
type Result struct {
	Files []File `json:"files"`

	// FileCount is the number of blobs discovered, rejected ones included.
	FileCount int              `json:"file_count"`
	Tree      []*filetree.Node `json:"tree"`
	Stats     Stats            `json:"stats"`
}

// Source is the subset of the GitHub client an ingestion needs.
type Source interface {
	Authenticated() bool
	ResolveTree(ctx context.Context, owner, repo string) ([]ghclient.Entry, error)
	FetchContent(ctx context.Context, owner, repo, path, ref string, maxBytes int) (string, error)
}

// Connector opens a Source bound to one credential.
type Connector func(token string) (Source, error)

// GitHub returns a Connector that builds a fresh ghclient.Client per call,
// so credentials never leak between concurrent ingestions.
func GitHub(opts ghclient.Options) Connector {
	return func(token string) (Source, error) {
		return ghclient.New(token, opts)
	}
}

// Ingestor runs ingestions. It holds no per-ingestion state and is safe for
// concurrent use.
type Ingestor struct {
	connect Connector
	opts    Options
	logger  *zap.Logger
	metrics *Metrics
}

// New creates an Ingestor.
func New(connect Connector, opts Options, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.ApplyDefaults()
	return &Ingestor{
		connect: connect,
		opts:    opts,
		logger:  logger,
		metrics: NewMetrics(),
	}
}

type prioritized struct {
	ghclient.Entry
	Priority int
}

type disposition int

const (
	accepted disposition = iota
	nonText
	oversized
	failed
)

type fetchResult struct {
	file        File
	disposition disposition
}

// Ingest fetches every text file of owner/repo. token may be empty; a
// malformed token is treated as absent.
func (i *Ingestor) Ingest(ctx context.Context, owner, repo, token string) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "ingest.Ingest", trace.WithAttributes(
		attribute.String("repository", owner+"/"+repo),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		i.metrics.IngestionsTotal.WithLabelValues("github", Outcome(err)).Inc()
		i.metrics.Duration.WithLabelValues("github").Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if i.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.opts.Timeout)
		defer cancel()
	}

	src, err := i.connect(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to github: %w", err)
	}
	fields := logging.ContextFields(ctx)
	if logging.RepositoryFromContext(ctx) == "" {
		fields = append(fields, zap.String("repository", owner+"/"+repo))
	}
	log := i.logger.With(append(fields, zap.Bool("authenticated", src.Authenticated()))...)

	entries, err := src.ResolveTree(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("resolving tree of %s/%s: %w", owner, repo, err)
	}

	stats := Stats{Seen: len(entries)}
	queue := make([]prioritized, 0, len(entries))
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if pathfilter.ShouldIgnore(e.Path) {
			stats.Ignored++
			continue
		}
		queue = append(queue, prioritized{Entry: e, Priority: priority.Of(e.Path)})
		paths = append(paths, e.Path)
	}
	sort.SliceStable(queue, func(a, b int) bool {
		return queue[a].Priority > queue[b].Priority
	})

	size, delay := i.opts.batching(src.Authenticated())
	log.Info("fetching repository contents",
		zap.Int("discovered", len(entries)),
		zap.Int("queued", len(queue)),
		zap.Int("batch_size", size),
		zap.Duration("batch_delay", delay),
	)

	files := make([]File, 0, len(queue))
	for lo := 0; lo < len(queue); lo += size {
		hi := min(lo+size, len(queue))
		results := i.fetchBatch(ctx, src, owner, repo, queue[lo:hi], log)
		stats.Batches++

		for _, r := range results {
			switch r.disposition {
			case accepted:
				files = append(files, r.file)
				stats.Accepted++
			case nonText:
				stats.NonText++
			case oversized:
				stats.Oversized++
			case failed:
				stats.Failed++
			}
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("ingesting %s/%s: %w", owner, repo, err)
		}

		log.Debug("batch complete",
			zap.Int("batch", stats.Batches),
			zap.Int("fetched", len(files)),
			zap.Int("queued", len(queue)),
		)

		if hi < len(queue) {
			if err := i.opts.Sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("ingesting %s/%s: %w", owner, repo, err)
			}
		}
	}

	i.metrics.RecordFiles("github", stats)
	span.SetAttributes(
		attribute.Int("files.seen", stats.Seen),
		attribute.Int("files.accepted", stats.Accepted),
		attribute.Int("batches", stats.Batches),
	)

	if len(files) == 0 {
		return nil, &NoTextFilesError{Total: stats.Seen, TextEligible: len(queue) - stats.NonText}
	}

	log.Info("repository ingested",
		zap.Int("accepted", stats.Accepted),
		zap.Int("ignored", stats.Ignored),
		zap.Int("non_text", stats.NonText),
		zap.Int("oversized", stats.Oversized),
		zap.Int("failed", stats.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		Files:     files,
		FileCount: stats.Seen,
		Tree:      filetree.Build(paths),
		Stats:     stats,
	}, nil
}

// fetchBatch fetches one batch concurrently and waits for all of it.
// Results are indexed by position in the batch.
func (i *Ingestor) fetchBatch(ctx context.Context, src Source, owner, repo string, batch []prioritized, log *zap.Logger) []fetchResult {
	results := make([]fetchResult, len(batch))

	var wg sync.WaitGroup
	for j, p := range batch {
		if !pathfilter.IsTextFile(p.Path) {
			results[j].disposition = nonText
			continue
		}
		if p.Size > int64(i.opts.MaxFileBytes) {
			log.Info("skipping large file", zap.String("path", p.Path), zap.Int64("size", p.Size))
			results[j].disposition = oversized
			continue
		}

		wg.Add(1)
		go func(j int, path string) {
			defer wg.Done()
			results[j] = i.fetchOne(ctx, src, owner, repo, path, log)
		}(j, p.Path)
	}
	wg.Wait()

	return results
}

func (i *Ingestor) fetchOne(ctx context.Context, src Source, owner, repo, path string, log *zap.Logger) fetchResult {
	content, err := src.FetchContent(ctx, owner, repo, path, "", i.opts.MaxFileBytes)
	switch {
	case errors.Is(err, ghclient.ErrTooLarge):
		log.Info("skipping large file", zap.String("path", path))
		return fetchResult{disposition: oversized}
	case err != nil:
		log.Warn("failed to fetch file", zap.String("path", path), zap.Error(err))
		return fetchResult{disposition: failed}
	case !utf8.ValidString(content):
		log.Debug("skipping file with invalid utf-8", zap.String("path", path))
		return fetchResult{disposition: nonText}
	}
	return fetchResult{file: File{Path: path, Content: content}, disposition: accepted}
}
