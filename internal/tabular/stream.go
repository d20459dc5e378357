package tabular

import (
	"bufio"
	"fmt"
	"io"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownEncoding reports an explicit encoding name that no charset in
// the registry matches. Callers check it with errors.Is.
var ErrUnknownEncoding = fmt.Errorf("unknown character encoding")

// newDecodingReader wraps the raw byte stream so the row scanner always
// sees clean UTF-8. With an explicit encoding name the stream is decoded
// through that charset. Without one, a byte order mark selects UTF-8 or
// UTF-16, and anything else is treated as UTF-8 with invalid sequences
// replaced. Returns the effective encoding name for schema back-filling.
func newDecodingReader(r io.Reader, encodingName string) (io.Reader, string, error) {
	if encodingName != "" {
		enc, err := htmlindex.Get(encodingName)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %q", ErrUnknownEncoding, encodingName)
		}
		name, err := htmlindex.Name(enc)
		if err != nil {
			name = encodingName
		}
		if name == "utf-8" {
			return newUTF8Reader(r), name, nil
		}
		return transform.NewReader(r, enc.NewDecoder()), name, nil
	}

	br := bufio.NewReader(r)
	head, _ := br.Peek(3)
	switch {
	case len(head) >= 2 && head[0] == 0xFF && head[1] == 0xFE:
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(br, dec), "utf-16le", nil
	case len(head) >= 2 && head[0] == 0xFE && head[1] == 0xFF:
		dec := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(br, dec), "utf-16be", nil
	default:
		return newUTF8Reader(br), "utf-8", nil
	}
}

// newUTF8Reader skips a UTF-8 byte order mark when present and replaces
// invalid sequences with U+FFFD so broken runes never reach the scanner.
func newUTF8Reader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(3); len(head) == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		br.Discard(3)
	}
	return transform.NewReader(br, unicode.UTF8.NewDecoder())
}
