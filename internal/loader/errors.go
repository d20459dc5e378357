package loader

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/ckanloader/internal/schema"
)

// RowShapeError reports a data row whose cell count does not match the
// resolved column count. Row is 1-based, counting data rows after the
// header.
type RowShapeError struct {
	Row  int
	Got  int
	Want int
}

func (e *RowShapeError) Error() string {
	return fmt.Sprintf("Row %d does not have %d columns.", e.Row, e.Want)
}

// InvalidCellValueError reports a cell that does not convert to its
// column's datastore type. Row and Column are 1-based.
type InvalidCellValueError struct {
	Row        int
	Column     int
	ColumnName string
	Value      string
	Type       schema.ColumnType
}

func (e *InvalidCellValueError) Error() string {
	return fmt.Sprintf("The value %q in row %d column %d (%s) is invalid for a %s column.",
		e.Value, e.Row, e.Column, e.ColumnName, e.Type)
}

// IsUserError reports whether err is one of the user-correctable kinds: an
// invalid or incomplete schema, an unrecognizable stream, a row shape
// mismatch, or an unconvertible cell. A catalog-wide run logs these and
// moves on; anything else aborts it.
func IsUserError(err error) bool {
	var (
		invalidSchema *schema.InvalidSchemaError
		unrecognized  *schema.UnrecognizedFormatError
		rowShape      *RowShapeError
		invalidCell   *InvalidCellValueError
	)
	return errors.As(err, &invalidSchema) ||
		errors.As(err, &unrecognized) ||
		errors.As(err, &rowShape) ||
		errors.As(err, &invalidCell)
}
