package dataset

import (
	"errors"
	"fmt"
)

// ErrMalformedLine marks a record that is missing fields or carries a
// non-numeric id.
var ErrMalformedLine = errors.New("malformed line")

// LineError locates a malformed record.
type LineError struct {
	Path   string
	Line   int
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %s", e.Path, e.Line, ErrMalformedLine, e.Reason)
}

func (e *LineError) Unwrap() error { return ErrMalformedLine }
