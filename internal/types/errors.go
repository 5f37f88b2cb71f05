package types

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================
//
// Three client-side error kinds plus one generic server-side failure.
// Callers use errors.As to tell them apart; IsClientError groups the first
// three for transports that map them to a 4xx response.
//
// =============================================================================

// UnsupportedFormatError means neither the extension nor the content type
// identified a known format. No extraction was attempted.
type UnsupportedFormatError struct {
	Extension   string
	ContentType string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "(none)"
	}
	if e.ContentType == "" {
		return fmt.Sprintf("unsupported file format: extension %s", ext)
	}
	return fmt.Sprintf("unsupported file format: extension %s, content type %q", ext, e.ContentType)
}

// ExtractionError means the format was recognised but the payload could not
// be turned into a table.
type ExtractionError struct {
	Format Format
	Cause  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s: %v", e.Format, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// NewExtractionError builds an ExtractionError from a formatted message.
func NewExtractionError(format Format, msg string, args ...any) *ExtractionError {
	return &ExtractionError{Format: format, Cause: fmt.Errorf(msg, args...)}
}

// SchemaError means a required canonical field could not be found among the
// source columns.
type SchemaError struct {
	Missing   []string
	Available []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s (available columns: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}

// ProcessingError wraps anything outside the taxonomy above.
type ProcessingError struct {
	Cause error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("error processing file: %v", e.Cause)
}

func (e *ProcessingError) Unwrap() error { return e.Cause }

// IsClientError reports whether err is one of the three taxonomy errors that
// describe a problem with the upload itself.
func IsClientError(err error) bool {
	var (
		unsupported *UnsupportedFormatError
		extraction  *ExtractionError
		schema      *SchemaError
	)
	return errors.As(err, &unsupported) || errors.As(err, &extraction) || errors.As(err, &schema)
}
