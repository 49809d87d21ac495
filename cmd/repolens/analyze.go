package main

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/repolens/internal/analyze"
)

// maxAnalyzeBytes bounds the file read by the analyze command.
const maxAnalyzeBytes = 1 << 20

type analyzeResult struct {
	Path     string          `json:"path"`
	Language string          `json:"language"`
	Issues   []analyze.Issue `json:"issues"`
}

func newAnalyzeCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Run the local static analysis over a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}
			if info.Size() > maxAnalyzeBytes {
				return fmt.Errorf("%s is too large to analyze (%d bytes, max %d)", path, info.Size(), maxAnalyzeBytes)
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if !utf8.Valid(content) {
				return fmt.Errorf("%s is not a text file", path)
			}

			filename := filepath.Base(path)
			language := analyze.Language(filename)
			issues := analyze.Analyze(string(content), language, filename)

			out := cmd.OutOrStdout()
			if jsonOut {
				if issues == nil {
					issues = []analyze.Issue{}
				}
				return printJSON(out, analyzeResult{Path: path, Language: language, Issues: issues})
			}
			fmt.Fprintln(out, analyze.Report(issues, filename, language))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print issues as JSON")
	return cmd
}
