package artifact

import "fmt"

// FormatError reports malformed weights or metadata content.
type FormatError struct {
	// Field names the offending part: "header", "row", "name", "value",
	// "version", "mse" or "json".
	Field string
	// Line is the 1-based CSV line, zero for metadata.
	Line int
	Err  error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("artifact format: line %d %s: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("artifact format: %s: %v", e.Field, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
