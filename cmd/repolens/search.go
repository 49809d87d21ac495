package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/repolens/internal/assistant"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/project"
	"github.com/fyrsmithlabs/repolens/internal/search"
)

type searchFlags struct {
	dir     string
	repo    string
	ask     bool
	jsonOut bool
}

func newSearchCmd() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank the files of a directory or repository against a query",
		Long: `Rank files against a query, or ask a question with --ask.

Examples:
  # Search the current directory
  repolens search "auth middleware"

  # Search a GitHub repository
  repolens search --repo acme/widget "where is the router"

  # Ask a configured completion backend
  repolens search --ask --dir ./widget "how are users stored?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("query is required")
			}

			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			p, err := loadProject(ctx, a, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.ask {
				return runAsk(ctx, out, a, p, query, f.jsonOut)
			}

			docs := p.Documents()
			results := newEngine(a.cfg).Query(docs, query)
			if f.jsonOut {
				return printJSON(out, results)
			}
			printResults(out, query, docs, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.dir, "dir", ".", "directory to search")
	cmd.Flags().StringVar(&f.repo, "repo", "", "GitHub repository (owner/repo) to search instead of --dir")
	cmd.Flags().BoolVar(&f.ask, "ask", false, "answer the query as a question")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print results as JSON")
	return cmd
}

// loadProject ingests the repository named by --repo, or the --dir tree.
func loadProject(ctx context.Context, a *app, f searchFlags) (*project.Project, error) {
	logger := a.logger.Underlying()

	var (
		res    *ingest.Result
		name   string
		source project.Source
		err    error
	)
	if f.repo != "" {
		owner, repo, perr := parseRepoArg(f.repo)
		if perr != nil {
			return nil, perr
		}
		ctx = logging.WithRepository(ctx, owner, repo)
		name, source = owner+"/"+repo, project.SourceGitHub
		res, err = newIngestor(a.cfg, logger).Ingest(ctx, owner, repo, a.cfg.GitHub.Token.Value())
	} else {
		abs, aerr := filepath.Abs(f.dir)
		if aerr != nil {
			return nil, fmt.Errorf("resolving %s: %w", f.dir, aerr)
		}
		name, source = filepath.Base(abs), project.SourceLocal
		res, err = newExtractor(a.cfg, logger).LoadDir(ctx, abs)
	}
	if err != nil {
		return nil, err
	}
	return project.New(name, source, res)
}

func runAsk(ctx context.Context, w io.Writer, a *app, p *project.Project, question string, jsonOut bool) error {
	asst, err := newAssistant(ctx, a.cfg, a.logger.Underlying())
	if err != nil {
		return err
	}
	ans, err := asst.Answer(ctx, p, question)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, ans)
	}

	switch ans.Source {
	case assistant.SourceAI:
		_, _ = dim.Fprintf(w, "answered by %s\n\n", ans.Provider)
	case assistant.SourceFallback:
		printWarning(w, "completion backends unavailable, answering from the index")
	}
	fmt.Fprintln(w, ans.Text)
	return nil
}

func printResults(w io.Writer, query string, docs []search.Document, results []search.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, search.Listing(docs, 10))
		return
	}

	printHeader(w, "%d results for %q", len(results), query)
	for i, r := range results {
		fmt.Fprintf(w, "%2d. ", i+1)
		_, _ = bold.Fprint(w, r.Path)
		_, _ = cyan.Fprintf(w, "  %d\n", r.Relevance)
		for _, m := range r.Matches {
			_, _ = dim.Fprintf(w, "      %s\n", m)
		}
	}
}
