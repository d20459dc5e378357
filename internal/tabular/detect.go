package tabular

import (
	"bytes"
	"mime"
	"strings"
)

// zipMagic is the local-file-header signature at the start of every zip
// archive.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// zipMimes and zipExtensions are the transport-level clues for a zip
// container when the magic is not available.
var zipMimes = map[string]bool{
	"application/zip":              true,
	"application/x-zip":            true,
	"application/x-zip-compressed": true,
}

// delimitedMimes maps MIME types for delimited text to a delimiter prior.
// Zero means sniff from content.
var delimitedMimes = map[string]rune{
	"text/csv":                    ',',
	"text/comma-separated-values": ',',
	"application/csv":             ',',
	"text/tab-separated-values":   '\t',
	"text/tsv":                    '\t',
}

// delimitedExtensions maps file extensions to a delimiter prior.
var delimitedExtensions = map[string]rune{
	"csv": ',',
	"tsv": '\t',
	"tab": '\t',
}

// delimiterCandidates are scored during sniffing, comma first so it wins
// ties outright.
var delimiterCandidates = []rune{',', '\t', ';', '|'}

// mediaType strips parameters such as "; charset=utf-8" from a
// Content-Type value and lowercases the rest.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// normalizeExtension lowercases a file extension and drops a leading dot.
func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// isZip reports whether the stream head plus the transport hints identify
// a zip container.
func isZip(head []byte, h Hints) bool {
	if bytes.HasPrefix(head, zipMagic) {
		return true
	}
	if zipMimes[mediaType(h.MimeType)] {
		return true
	}
	return normalizeExtension(h.Extension) == "zip"
}

// delimiterPrior returns a delimiter implied by the MIME type or file
// extension, or 0 when the hints say nothing.
func delimiterPrior(h Hints) rune {
	if d, ok := delimitedMimes[mediaType(h.MimeType)]; ok {
		return d
	}
	if d, ok := delimitedExtensions[normalizeExtension(h.Extension)]; ok {
		return d
	}
	return 0
}

// mimeRulesOut reports whether the MIME type positively identifies
// something other than delimited text. Generic and textual types fall
// through to content sniffing.
func mimeRulesOut(contentType string) bool {
	mt := mediaType(contentType)
	if mt == "" || mt == "application/octet-stream" {
		return false
	}
	if strings.HasPrefix(mt, "text/") {
		return false
	}
	if _, ok := delimitedMimes[mt]; ok {
		return false
	}
	return true
}

// looksBinary reports whether a decoded sample is implausible as delimited
// text: any NUL, or more than a tenth of the runes being replacement
// characters or non-whitespace controls.
func looksBinary(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	total, bad := 0, 0
	for _, r := range string(sample) {
		total++
		if r == '�' || (r < 0x20 && r != '\t' && r != '\n' && r != '\r') {
			bad++
		}
	}
	return bad*10 > total
}

// sniffDelimiter picks the candidate whose per-line count is most
// consistent across the sample's lines, ignoring delimiters inside quoted
// sections. ok is false when no candidate appears at all.
func sniffDelimiter(sample []byte, quote rune) (rune, bool) {
	lines := sniffLines(sample, 32)
	if len(lines) == 0 {
		return 0, false
	}

	var best rune
	bestScore := 0
	for _, cand := range delimiterCandidates {
		counts := make(map[int]int)
		for _, line := range lines {
			counts[countOutsideQuotes(line, cand, quote)]++
		}
		// The modal per-line count; a candidate that never appears has
		// mode zero and is skipped.
		mode, freq := 0, 0
		for n, f := range counts {
			if f > freq || (f == freq && n > mode) {
				mode, freq = n, f
			}
		}
		if mode == 0 {
			continue
		}
		if freq > bestScore {
			best, bestScore = cand, freq
		}
	}
	if bestScore == 0 {
		return 0, false
	}
	return best, true
}

// sniffLines splits a sample into at most n non-empty lines, dropping a
// trailing partial line so a cut-off row cannot skew the counts. A sample
// with no newline at all is kept whole; it may be a complete one-line file.
func sniffLines(sample []byte, n int) []string {
	complete := sample
	if i := bytes.LastIndexByte(sample, '\n'); i >= 0 {
		complete = sample[:i]
	}
	var lines []string
	for _, raw := range strings.Split(string(complete), "\n") {
		line := strings.TrimRight(raw, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return lines
}

// countOutsideQuotes counts occurrences of delim in line, skipping
// sections enclosed by the quote character.
func countOutsideQuotes(line string, delim, quote rune) int {
	count := 0
	inQuote := false
	for _, r := range line {
		switch {
		case r == quote:
			inQuote = !inQuote
		case r == delim && !inQuote:
			count++
		}
	}
	return count
}
