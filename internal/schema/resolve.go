package schema

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/JonMunkholm/ckanloader/internal/tabular"
)

// Resolver completes schemas against byte streams. Construct it with
// NewResolver; the zero value has no logger or sample window.
type Resolver struct {
	log        *slog.Logger
	sampleRows int
}

// NewResolver returns a resolver that samples up to sampleRows leading
// rows for header and type guessing. A nil logger falls back to the
// default; sampleRows <= 0 falls back to tabular.DefaultSampleRows.
func NewResolver(log *slog.Logger, sampleRows int) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	if sampleRows <= 0 {
		sampleRows = tabular.DefaultSampleRows
	}
	return &Resolver{log: log, sampleRows: sampleRows}
}

// guessTypeMapping converts sample-level guesses to datastore types.
// Integer maps to numeric rather than int: a clean sample does not prove
// the full column fits in 64 bits.
var guessTypeMapping = map[tabular.CellType]ColumnType{
	tabular.CellText:    TypeText,
	tabular.CellInteger: TypeNumeric,
	tabular.CellDecimal: TypeNumeric,
	tabular.CellFloat:   TypeFloat,
	tabular.CellDate:    TypeTimestamp,
}

// Resolve determines the effective loading schema for the stream and
// returns its table positioned past the header row, ready for the upload
// pipeline. sch is enriched in place with every detected value, even when
// an error is returned, so the caller can print it, correct it, and retry.
// User-supplied fields always win over detection.
//
// Failures the user can act on come back as *InvalidSchemaError or
// *UnrecognizedFormatError; read failures from the stream come back as
// themselves.
func (r *Resolver) Resolve(sch *Schema, stream io.Reader, hints tabular.Hints) (*tabular.Table, error) {
	hints.SampleRows = r.sampleRows

	// Explicit format, if any, fixes the parsing parameters up front.
	switch name := sch.FormatName(); name {
	case "":
	case "csv", "tsv":
		hints.Format = name
		hints.Delimiter = ','
		if name == "tsv" {
			hints.Delimiter = '\t'
		}
		hints.Quote = '"'
		hints.Encoding = sch.Format.Encoding
		if d := sch.Format.Delimiter; d != "" {
			if utf8.RuneCountInString(d) != 1 {
				return nil, &InvalidSchemaError{
					Field:  "format.delimiter",
					Value:  d,
					Reason: fmt.Sprintf("The delimiter must be a single character, got %q.", d),
				}
			}
			hints.Delimiter, _ = utf8.DecodeRuneInString(d)
		}
		if q := sch.Format.Quotechar; q != "" {
			if utf8.RuneCountInString(q) != 1 {
				return nil, &InvalidSchemaError{
					Field:  "format.quotechar",
					Value:  q,
					Reason: fmt.Sprintf("The quote character must be a single character, got %q.", q),
				}
			}
			hints.Quote, _ = utf8.DecodeRuneInString(q)
		}
	default:
		return nil, &InvalidSchemaError{
			Field:  "format.name",
			Value:  name,
			Reason: "Invalid format name in schema. Allowed values are: csv, tsv.",
		}
	}

	switch name := sch.ContainerName(); name {
	case "", "zip":
		hints.Container = name
	default:
		return nil, &InvalidSchemaError{
			Field:  "container.name",
			Value:  name,
			Reason: "Invalid container name in schema. Allowed values are: zip.",
		}
	}

	// Open classifies the stream and lands on the first table inside any
	// container.
	table, err := tabular.Open(stream, hints)
	if err != nil {
		switch {
		case errors.Is(err, tabular.ErrUnknownEncoding):
			return nil, &InvalidSchemaError{
				Field:  "format.encoding",
				Value:  hints.Encoding,
				Reason: fmt.Sprintf("Invalid encoding name in schema: %s.", hints.Encoding),
			}
		case errors.Is(err, tabular.ErrUnrecognized):
			return nil, &UnrecognizedFormatError{Cause: err}
		default:
			return nil, err
		}
	}

	// Record what detection settled on. The format block is back-filled
	// unconditionally: the name follows the effective delimiter, so an
	// explicit "csv" parsed with a tab records back as "tsv".
	if table.DetectedContainer() != "" {
		sch.EnsureContainer().Name = table.DetectedContainer()
	}
	f := table.Format()
	sf := sch.EnsureFormat()
	sf.Name = f.Name
	sf.Delimiter = string(f.Delimiter)
	sf.Quotechar = string(f.Quote)
	sf.Encoding = f.Encoding

	// Header row: guess first, user values override. Header names always
	// come from the guessed row; a per-column name override is the way to
	// rename.
	sample := table.Sample()
	offset, headers, ok := tabular.GuessHeader(sample)
	if !ok {
		return nil, &UnrecognizedFormatError{Cause: errors.New("the table has no rows")}
	}
	present := true
	if sch.Header != nil && sch.Header.Present != nil {
		present = *sch.Header.Present
	}
	if sch.Header != nil && sch.Header.Offset != nil {
		offset = *sch.Header.Offset
	}
	hdr := sch.EnsureHeader()
	hdr.Present = &present
	hdr.Offset = &offset

	// Column names: user overrides replace the header cells, then the
	// whole set is normalized and made unique.
	names := append([]string(nil), headers...)
	for _, idx := range sch.ColumnIndexes() {
		col := sch.Columns[idx]
		if col.Name == "" {
			continue
		}
		if idx >= len(names) {
			r.log.Warn("column name override is out of range",
				"column", idx, "table_columns", len(names))
			continue
		}
		names[idx] = col.Name
	}
	names = NormalizeNames(names)
	for i, name := range names {
		sch.EnsureColumn(i).Name = name
	}

	// Data rows start right after the header; the type sample must not
	// see the header cells.
	table.Skip(offset + 1)

	// Column types: strict guessing over the data sample, then user
	// overrides, recorded before validation so a failed resolve still
	// returns the full picture.
	guessed := tabular.GuessColumnTypes(table.Sample())
	types := make([]ColumnType, len(names))
	for i := range types {
		types[i] = TypeText
		if i < len(guessed) {
			types[i] = guessTypeMapping[guessed[i]]
		}
	}
	for _, idx := range sch.ColumnIndexes() {
		col := sch.Columns[idx]
		if col.Type == "" {
			continue
		}
		if idx >= len(types) {
			r.log.Warn("column type override is out of range",
				"column", idx, "table_columns", len(types))
			continue
		}
		types[idx] = col.Type
	}
	for i, t := range types {
		sch.EnsureColumn(i).Type = t
	}
	for i, t := range types {
		if !t.Valid() {
			return nil, &InvalidSchemaError{
				Field:  fmt.Sprintf("columns[%d].type", i),
				Value:  string(t),
				Reason: fmt.Sprintf("Invalid data type in schema: %s", t),
			}
		}
	}

	// Column coverage must be gapless from zero to the highest index.
	max := sch.MaxColumnIndex()
	for i := 0; i <= max; i++ {
		if _, ok := sch.Columns[i]; !ok {
			return nil, &InvalidSchemaError{
				Field:  fmt.Sprintf("columns[%d]", i),
				Reason: fmt.Sprintf("The schema is missing information for column %d.", i),
			}
		}
	}

	return table, nil
}
