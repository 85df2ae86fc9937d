package core

import (
	"errors"
	"fmt"
)

// ErrSourceUnavailable is matched by every error that means the input source
// could not be read. Callers test for it with errors.Is.
var ErrSourceUnavailable = errors.New("source unavailable")

// Causes carried inside a SourceError.
var (
	ErrSourceTooLarge = errors.New("file too large")
	ErrEmptySource    = errors.New("empty file")
	ErrNoHeader       = errors.New("no header row")
)

// SourceError describes an input source that could not be read or parsed.
// It is returned together with an empty dataset, never with partial rows.
type SourceError struct {
	Source string // file path or upload name
	Op     string // open, stat, read, parse
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is reports ErrSourceUnavailable for every SourceError.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

func sourceErr(source, op string, err error) error {
	return &SourceError{Source: source, Op: op, Err: err}
}
