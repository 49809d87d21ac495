package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/repolens/internal/assistant"
)

func newReadmeCmd() *cobra.Command {
	var (
		f       searchFlags
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "readme",
		Short: "Generate a README for a directory or repository",
		Long: `Generate a README.md from the project's files.

Without a configured completion backend a template README is written.

Examples:
  # Print a README for the current directory
  repolens readme

  # Write a README for a GitHub repository to a file
  repolens readme --repo acme/widget --out README.generated.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			asst, err := newAssistant(ctx, a.cfg, a.logger.Underlying())
			if err != nil {
				return err
			}
			r, err := asst.Readme(ctx, p)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.jsonOut {
				return printJSON(out, r)
			}
			if r.Source == assistant.SourceFallback {
				printWarning(out, "completion backends unavailable, writing a template README")
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(r.Text+"\n"), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", outPath, err)
				}
				printSuccess(out, "wrote %s", outPath)
				return nil
			}
			fmt.Fprintln(out, r.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.dir, "dir", ".", "directory to describe")
	cmd.Flags().StringVar(&f.repo, "repo", "", "GitHub repository (owner/repo) to describe instead of --dir")
	cmd.Flags().StringVar(&outPath, "out", "", "write the README to this file instead of stdout")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print the result as JSON")
	return cmd
}
