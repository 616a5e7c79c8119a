// Package manifest inspects rendered deployment manifests.
// This is part of the Functional Core - all functions are pure with no I/O.
package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyManifest is returned when a rendered file has no documents.
	ErrEmptyManifest = errors.New("manifest is empty")

	// ErrInvalidYAML is returned when a document does not parse.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrNotMapping is returned when a document is not a YAML mapping.
	ErrNotMapping = errors.New("document is not a mapping")
)

// ParseError wraps errors with the index of the document that failed.
type ParseError struct {
	Document int
	Message  string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("document %d: %s", e.Document, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(doc int, message string, err error) *ParseError {
	return &ParseError{
		Document: doc,
		Message:  message,
		Err:      err,
	}
}
