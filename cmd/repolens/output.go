package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Terminal styles. They honor color.NoColor, which --no-color, NO_COLOR
// and a non-TTY stdout all set.
var (
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func printSuccess(w io.Writer, format string, args ...any) {
	_, _ = green.Fprintf(w, "✓ "+format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	_, _ = yellow.Fprintf(w, "⚠ "+format+"\n", args...)
}

func printError(w io.Writer, err error) {
	_, _ = red.Fprintf(w, "✗ %v\n", err)
}

func printHeader(w io.Writer, format string, args ...any) {
	_, _ = bold.Fprintf(w, format+"\n", args...)
}

// printKV prints an aligned label/value pair.
func printKV(w io.Writer, label string, value any) {
	_, _ = dim.Fprintf(w, "  %-12s", label+":")
	fmt.Fprintf(w, " %v\n", value)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
