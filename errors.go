// Package yt maps simulation output formats onto a uniform dataset model:
// a unit system with dimensional conversion, a field registry covering
// on-disk and derived fields, and spatial sub-selection over the
// dataset's discretization blocks.
package yt

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrFormat reports a path no registered frontend recognizes, or a
	// header that fails its frontend's signature check.
	ErrFormat = errors.New("yt: unrecognized dataset format")

	// ErrNoBlockSource reports a data access on a metadata-only dataset.
	ErrNoBlockSource = errors.New("yt: dataset has no block source")

	// ErrStopIteration stops a Blocks traversal early without error.
	ErrStopIteration = errors.New("yt: stop iteration")
)

// MissingFileError reports an expected sibling data file that is absent
// from the output directory.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("yt: missing data file %s", e.Path)
}

// InvalidSelectorError reports a malformed spatial selection spec.
type InvalidSelectorError struct {
	Reason string
	Err    error
}

func (e *InvalidSelectorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("yt: invalid selector: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("yt: invalid selector: %s", e.Reason)
}

func (e *InvalidSelectorError) Unwrap() error { return e.Err }
