package ingest

import (
	"errors"
	"fmt"
)

// ErrNoTextFiles is returned when the source was reachable but nothing
// survived the ignore, text and size filters.
var ErrNoTextFiles = errors.New("no text files found")

// NoTextFilesError reports how many files were seen versus how many were
// text-eligible.
type NoTextFilesError struct {
	Total        int
	TextEligible int
}

func (e *NoTextFilesError) Error() string {
	return fmt.Sprintf("%s: %d files in repository, %d text-eligible", ErrNoTextFiles, e.Total, e.TextEligible)
}

func (e *NoTextFilesError) Unwrap() error {
	return ErrNoTextFiles
}
