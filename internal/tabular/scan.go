package tabular

import (
	"bufio"
	"io"
	"strings"
)

// rowScanner reads delimited records with a configurable delimiter and
// quote character. encoding/csv cannot serve here: the quote character is
// part of the schema contract and the standard reader hardcodes '"'.
//
// The dialect is the usual one. A field starting with the quote character
// runs until the closing quote and may contain delimiters and newlines; a
// doubled quote inside a quoted field is a literal quote. Anywhere else
// the quote character is an ordinary rune. Records end at "\n", "\r\n", or
// a lone "\r"; blank lines are skipped.
type rowScanner struct {
	r     *bufio.Reader
	delim rune
	quote rune
}

func newRowScanner(r io.Reader, delim, quote rune) *rowScanner {
	return &rowScanner{r: bufio.NewReader(r), delim: delim, quote: quote}
}

// Scan reads the next record. It returns io.EOF only when no data remains;
// a final record without a trailing newline is returned first.
func (s *rowScanner) Scan() ([]string, error) {
	var (
		fields  []string
		field   strings.Builder
		started bool // read anything beyond leading blank lines
		quoted  bool // current field began with a quote
		inQuote bool // currently inside the quoted section
	)

	endField := func() {
		fields = append(fields, field.String())
		field.Reset()
		quoted = false
	}

	for {
		c, _, err := s.r.ReadRune()
		if err == io.EOF {
			if !started {
				return nil, io.EOF
			}
			endField()
			return fields, nil
		}
		if err != nil {
			return nil, err
		}

		if inQuote {
			if c == s.quote {
				next, _, err := s.r.ReadRune()
				if err == nil && next == s.quote {
					field.WriteRune(s.quote)
					continue
				}
				if err == nil {
					s.r.UnreadRune()
				}
				inQuote = false
				continue
			}
			field.WriteRune(c)
			continue
		}

		switch c {
		case '\r':
			if next, _, err := s.r.ReadRune(); err == nil && next != '\n' {
				s.r.UnreadRune()
			}
			fallthrough
		case '\n':
			if !started {
				continue // blank line
			}
			endField()
			return fields, nil
		case s.delim:
			started = true
			endField()
		case s.quote:
			started = true
			if field.Len() == 0 && !quoted {
				quoted = true
				inQuote = true
			} else {
				field.WriteRune(c)
			}
		default:
			started = true
			field.WriteRune(c)
		}
	}
}
