package schema

// ColumnType is the datastore column type vocabulary. The set is closed:
// every member has a converter in the upload pipeline, and the resolver
// rejects anything else before a single remote call is made.
type ColumnType string

const (
	TypeText      ColumnType = "text"
	TypeInt       ColumnType = "int"
	TypeFloat     ColumnType = "float"
	TypeBool      ColumnType = "bool"
	TypeNumeric   ColumnType = "numeric"
	TypeDate      ColumnType = "date"
	TypeTime      ColumnType = "time"
	TypeTimestamp ColumnType = "timestamp"
	TypeJSON      ColumnType = "json"
)

// ColumnTypes lists every allowed column type.
var ColumnTypes = []ColumnType{
	TypeText,
	TypeInt,
	TypeFloat,
	TypeBool,
	TypeNumeric,
	TypeDate,
	TypeTime,
	TypeTimestamp,
	TypeJSON,
}

// Valid reports whether t is one of the allowed datastore types.
func (t ColumnType) Valid() bool {
	for _, allowed := range ColumnTypes {
		if t == allowed {
			return true
		}
	}
	return false
}
