package schema

import "fmt"

// InvalidSchemaError reports a schema value outside the accepted
// vocabulary: a bad format or container name, a malformed parameter, an
// unknown column type, or a gap in the column index coverage. Field and
// Value identify the offending entry so the caller can correct the schema
// and retry.
type InvalidSchemaError struct {
	Field  string // e.g. "format.name", "columns[3].type"
	Value  string // the rejected value; empty when the entry is missing
	Reason string // the full user-facing message
}

func (e *InvalidSchemaError) Error() string {
	return e.Reason
}

// UnrecognizedFormatError reports that auto-detection could not classify
// the byte stream. The caller is expected to supply explicit format or
// container values in the schema and retry.
type UnrecognizedFormatError struct {
	Cause error
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("The file format could not be recognized: %v", e.Cause)
}

func (e *UnrecognizedFormatError) Unwrap() error {
	return e.Cause
}
