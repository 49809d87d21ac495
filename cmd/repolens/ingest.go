package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/repolens/internal/filetree"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"github.com/fyrsmithlabs/repolens/internal/logging"
)

type ingestFlags struct {
	token    string
	jsonOut  bool
	showTree bool
}

func newIngestCmd() *cobra.Command {
	var f ingestFlags
	cmd := &cobra.Command{
		Use:   "ingest <owner/repo>",
		Short: "Fetch a GitHub repository and summarize it",
		Long: `Fetch the text files of a GitHub repository and print what was found.

Examples:
  # Public repository, anonymous rate limits
  repolens ingest acme/widget

  # Use a token for the higher rate limit
  GITHUB_TOKEN=ghp_... repolens ingest https://github.com/acme/widget`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := parseRepoArg(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			token := f.token
			if token == "" {
				token = a.cfg.GitHub.Token.Value()
			}

			ctx = logging.WithRepository(ctx, owner, repo)
			res, err := newIngestor(a.cfg, a.logger.Underlying()).Ingest(ctx, owner, repo, token)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.jsonOut {
				return printJSON(out, ingestSummary{
					Repository: owner + "/" + repo,
					FileCount:  res.FileCount,
					Imported:   len(res.Files),
					Stats:      res.Stats,
					Tree:       res.Tree,
				})
			}
			printIngestResult(out, owner+"/"+repo, res, f.showTree)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.token, "token", "", "GitHub token (default $GITHUB_TOKEN)")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print the summary as JSON")
	cmd.Flags().BoolVar(&f.showTree, "tree", false, "print the file tree")
	return cmd
}

type ingestSummary struct {
	Repository string           `json:"repository"`
	FileCount  int              `json:"file_count"`
	Imported   int              `json:"imported"`
	Stats      ingest.Stats     `json:"stats"`
	Tree       []*filetree.Node `json:"tree"`
}

func printIngestResult(w io.Writer, name string, res *ingest.Result, showTree bool) {
	printSuccess(w, "Imported %d of %d files from %s", len(res.Files), res.FileCount, name)
	printKV(w, "ignored", res.Stats.Ignored)
	printKV(w, "non-text", res.Stats.NonText)
	printKV(w, "oversized", res.Stats.Oversized)
	printKV(w, "batches", res.Stats.Batches)
	if res.Stats.Failed > 0 {
		printWarning(w, "%d files could not be fetched", res.Stats.Failed)
	}

	if showTree {
		fmt.Fprintln(w)
		printTree(w, res.Tree, "")
	}
}

func printTree(w io.Writer, nodes []*filetree.Node, indent string) {
	for _, n := range nodes {
		if n.IsDir() {
			_, _ = cyan.Fprintf(w, "%s%s/\n", indent, n.Name)
			printTree(w, n.Children, indent+"  ")
			continue
		}
		fmt.Fprintf(w, "%s%s\n", indent, n.Name)
	}
}
