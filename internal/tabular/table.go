// Package tabular opens byte streams as delimited tables: container
// unwrapping, charset decoding, format detection, and row iteration with a
// restartable sample window for header and type guessing. It knows nothing
// about schemas or the datastore; the resolver drives it.
package tabular

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
)

// ErrUnrecognized reports that neither container nor delimited-format
// detection could classify the stream. Callers check it with errors.Is;
// read failures from the underlying stream are returned as themselves and
// never wrapped in it.
var ErrUnrecognized = errors.New("unrecognized tabular format")

// DefaultSampleRows is the sample window when Hints.SampleRows is unset.
const DefaultSampleRows = 100

// sniffWindow is how many decoded bytes feed delimiter sniffing and the
// binary check.
const sniffWindow = 16 * 1024

// Hints carries everything the caller may know about a stream before it is
// parsed: explicit container and format parameters from a user schema, and
// the transport-level MIME type and URL extension used as detection clues.
// Zero values mean "not specified".
type Hints struct {
	Container  string // "zip" forces container unwrapping
	Format     string // "csv" or "tsv" skips format detection
	Delimiter  rune   // overrides detection when set
	Quote      rune   // overrides the '"' default when set
	Encoding   string // IANA charset name; empty means auto
	MimeType   string // e.g. the Content-Type response header
	Extension  string // file extension from the URL, with or without dot
	SampleRows int    // rows buffered for Sample; default DefaultSampleRows
}

// Format describes the effective delimited-text parameters of an opened
// table, after detection and defaulting.
type Format struct {
	Name      string // "csv" or "tsv", derived from the delimiter
	Delimiter rune
	Quote     rune
	Encoding  string
}

// Table is one delimited table positioned at row zero. The sample window
// is restartable; the full row sequence is consumed once through Next.
type Table struct {
	format    Format
	container string

	scanner   *rowScanner
	sample    [][]string
	sampleErr error // first error hit while buffering, io.EOF included

	skip   int
	cursor int // rows handed out so far, skipped ones included
}

// Open classifies and opens a stream as a table. Explicit hints bypass the
// matching detection step; the first table of a multi-table container is
// the one opened. Classification failures wrap ErrUnrecognized, an unknown
// Hints.Encoding wraps ErrUnknownEncoding, and read failures come back
// unwrapped.
func Open(r io.Reader, h Hints) (*Table, error) {
	if h.SampleRows <= 0 {
		h.SampleRows = DefaultSampleRows
	}

	switch h.Container {
	case "zip":
		return openZip(r, h)
	case "":
	default:
		return nil, fmt.Errorf("unsupported container %q", h.Container)
	}

	if h.Format != "" {
		return openDelimited(r, h)
	}

	// Full auto-detection. The head bytes settle the container question
	// before any charset decoding.
	head := make([]byte, len(zipMagic))
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	head = head[:n]
	rest := io.MultiReader(bytes.NewReader(head), r)

	if isZip(head, h) {
		t, err := openZip(rest, h)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	if mimeRulesOut(h.MimeType) {
		return nil, fmt.Errorf("%w: unsupported MIME type %q", ErrUnrecognized, mediaType(h.MimeType))
	}
	return openDelimitedAuto(rest, h)
}

// Format returns the effective delimited-text parameters.
func (t *Table) Format() Format {
	return t.format
}

// DetectedContainer returns "zip" when the payload was unwrapped from an
// archive, "" otherwise.
func (t *Table) DetectedContainer() string {
	return t.container
}

// Skip sets how many leading rows Next and Sample pass over. It must be
// called before the first Next.
func (t *Table) Skip(n int) {
	if n < 0 {
		n = 0
	}
	t.skip = n
}

// Sample returns the buffered leading rows, minus any skipped ones. The
// returned slices are shared; callers must not modify them.
func (t *Table) Sample() [][]string {
	if t.skip >= len(t.sample) {
		return nil
	}
	return t.sample[t.skip:]
}

// Next returns the next row past the skip point, replaying the sample
// window first and then continuing on the live stream. It returns io.EOF
// when the table is exhausted.
func (t *Table) Next() ([]string, error) {
	for {
		row, err := t.advance()
		if err != nil {
			return nil, err
		}
		if t.cursor-1 < t.skip {
			continue
		}
		return row, nil
	}
}

func (t *Table) advance() ([]string, error) {
	if t.cursor < len(t.sample) {
		row := t.sample[t.cursor]
		t.cursor++
		return row, nil
	}
	if t.sampleErr != nil {
		return nil, t.sampleErr
	}
	row, err := t.scanner.Scan()
	if err != nil {
		return nil, err
	}
	t.cursor++
	return row, nil
}

// openZip buffers the archive (zip needs random access), then opens its
// first file entry with the remaining hints.
func openZip(r io.Reader, h Hints) (*Table, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognized, err)
	}

	var entry *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entry = f
		break
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: zip archive contains no files", ErrUnrecognized)
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognized, err)
	}
	defer rc.Close()

	inner := h
	inner.Container = ""
	inner.MimeType = ""
	inner.Extension = path.Ext(entry.Name)

	var t *Table
	if inner.Format != "" {
		t, err = openDelimited(rc, inner)
	} else {
		t, err = openDelimitedAuto(rc, inner)
	}
	if err != nil {
		return nil, err
	}
	t.container = "zip"
	return t, nil
}

// openDelimited parses with explicit format parameters. The caller has
// already defaulted Delimiter and Quote.
func openDelimited(r io.Reader, h Hints) (*Table, error) {
	decoded, encName, err := newDecodingReader(r, h.Encoding)
	if err != nil {
		return nil, err
	}
	return newTable(decoded, h, h.Delimiter, h.Quote, encName)
}

// openDelimitedAuto decodes, rules out binary content, and sniffs the
// delimiter, preferring a MIME or extension prior over content statistics.
// A texty stream where no candidate delimiter appears still opens, as a
// single-column comma table.
func openDelimitedAuto(r io.Reader, h Hints) (*Table, error) {
	decoded, encName, err := newDecodingReader(r, h.Encoding)
	if err != nil {
		return nil, err
	}

	window := make([]byte, sniffWindow)
	n, err := io.ReadFull(decoded, window)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	window = window[:n]

	if looksBinary(window) {
		return nil, fmt.Errorf("%w: content is not delimited text", ErrUnrecognized)
	}

	quote := h.Quote
	if quote == 0 {
		quote = '"'
	}
	delim := delimiterPrior(h)
	if delim == 0 {
		sniffed, ok := sniffDelimiter(window, quote)
		if !ok {
			sniffed = ','
		}
		delim = sniffed
	}

	rest := io.MultiReader(bytes.NewReader(window), decoded)
	return newTable(rest, h, delim, quote, encName)
}

// newTable builds the table and buffers the sample window.
func newTable(r io.Reader, h Hints, delim, quote rune, encName string) (*Table, error) {
	name := "csv"
	if delim == '\t' {
		name = "tsv"
	}
	t := &Table{
		format: Format{
			Name:      name,
			Delimiter: delim,
			Quote:     quote,
			Encoding:  encName,
		},
		scanner: newRowScanner(r, delim, quote),
	}
	for len(t.sample) < h.SampleRows {
		row, err := t.scanner.Scan()
		if err != nil {
			t.sampleErr = err
			break
		}
		t.sample = append(t.sample, row)
	}
	return t, nil
}
