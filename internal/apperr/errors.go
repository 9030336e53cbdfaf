// Package apperr defines the error taxonomy shared across the core.
package apperr

import "errors"

// Document-level failures are local and non-fatal: they degrade the
// affected node or link, are logged, and never abort a build.
var (
	// ErrLoad marks a file that could not be read.
	ErrLoad = errors.New("load failed")
	// ErrParse marks front matter that could not be parsed.
	ErrParse = errors.New("parse failed")
	// ErrLinkResolution marks a single malformed link target.
	ErrLinkResolution = errors.New("link resolution failed")
	// ErrNotFound marks a document absent from the index.
	ErrNotFound = errors.New("not found")
)
