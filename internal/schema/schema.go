// Package schema defines the loading schema for a tabular resource and the
// resolver that completes it: container and format detection, header
// discovery, column-name normalization, and column-type inference, with
// caller-supplied values always winning over detection.
//
// A Schema is both input and output. Callers may supply any subset of its
// fields as overrides; Resolve records every detected value back into the
// same Schema so it can be printed, corrected, and retried. Optional fields
// are pointers (or empty strings) so "not supplied" stays distinguishable
// from every real value.
package schema

import "sort"

// Schema describes how one tabular resource is parsed and typed.
type Schema struct {
	Format    *Format         `json:"format,omitempty"`
	Container *Container      `json:"container,omitempty"`
	Header    *Header         `json:"header,omitempty"`
	Columns   map[int]*Column `json:"columns,omitempty"`
}

// Format holds the delimited-text parameters. Name is "csv" or "tsv".
// Delimiter and Quotechar are single characters, kept as strings so the
// schema round-trips through JSON unchanged. Encoding is an IANA charset
// name such as "utf-8" or "windows-1252". Empty means not specified.
type Format struct {
	Name      string `json:"name,omitempty"`
	Delimiter string `json:"delimiter,omitempty"`
	Quotechar string `json:"quotechar,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
}

// Container names an outer wrapper around the table data. "zip" is the
// only supported value.
type Container struct {
	Name string `json:"name,omitempty"`
}

// Header records whether the table has a header row and the row index it
// sits at. Both fields are optional on input and always set after Resolve.
type Header struct {
	Present *bool `json:"present,omitempty"`
	Offset  *int  `json:"offset,omitempty"`
}

// Column carries the resolved name and datastore type for one column
// index. On input either field may be set alone as an override.
type Column struct {
	Name string     `json:"name,omitempty"`
	Type ColumnType `json:"type,omitempty"`
}

// FormatName returns the format name or "" when no format block is set.
func (s *Schema) FormatName() string {
	if s.Format == nil {
		return ""
	}
	return s.Format.Name
}

// ContainerName returns the container name or "" when no container block
// is set.
func (s *Schema) ContainerName() string {
	if s.Container == nil {
		return ""
	}
	return s.Container.Name
}

// EnsureFormat returns s.Format, allocating it first if needed.
func (s *Schema) EnsureFormat() *Format {
	if s.Format == nil {
		s.Format = &Format{}
	}
	return s.Format
}

// EnsureContainer returns s.Container, allocating it first if needed.
func (s *Schema) EnsureContainer() *Container {
	if s.Container == nil {
		s.Container = &Container{}
	}
	return s.Container
}

// EnsureHeader returns s.Header, allocating it first if needed.
func (s *Schema) EnsureHeader() *Header {
	if s.Header == nil {
		s.Header = &Header{}
	}
	return s.Header
}

// EnsureColumn returns the column entry for index i, allocating the map
// and the entry as needed.
func (s *Schema) EnsureColumn(i int) *Column {
	if s.Columns == nil {
		s.Columns = make(map[int]*Column)
	}
	col, ok := s.Columns[i]
	if !ok {
		col = &Column{}
		s.Columns[i] = col
	}
	return col
}

// ColumnIndexes returns the defined column indexes in ascending order.
func (s *Schema) ColumnIndexes() []int {
	idxs := make([]int, 0, len(s.Columns))
	for i := range s.Columns {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	return idxs
}

// MaxColumnIndex returns the highest defined column index, or -1 when the
// schema has no columns.
func (s *Schema) MaxColumnIndex() int {
	max := -1
	for i := range s.Columns {
		if i > max {
			max = i
		}
	}
	return max
}
