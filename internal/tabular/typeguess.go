package tabular

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CellType is a column type guessed from sampling. The resolver maps these
// onto the datastore type vocabulary.
type CellType int

const (
	CellText CellType = iota
	CellInteger
	CellDecimal
	CellFloat
	CellDate
)

func (c CellType) String() string {
	switch c {
	case CellInteger:
		return "integer"
	case CellDecimal:
		return "decimal"
	case CellFloat:
		return "float"
	case CellDate:
		return "date"
	default:
		return "text"
	}
}

// decimalPattern is plain decimal syntax: no exponent, no hex, no inf.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// guessDateLayouts are the date shapes considered during sampling.
// Candidates with ambiguous two-digit years are deliberately absent; those
// columns should surface as text and be overridden explicitly.
var guessDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"1/2/2006",
	"1-2-2006",
	"2.1.2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// GuessColumnTypes types every column of the sample strictly: a column
// leaves text only when all of its non-empty cells parse under a single
// candidate, tried in order integer, decimal, float, date. A date column
// additionally needs one layout that parses every cell. Empty cells do not
// vote, and a column with no votes stays text. The result has the width of
// the widest sampled row.
func GuessColumnTypes(sample [][]string) []CellType {
	width := 0
	for _, row := range sample {
		if len(row) > width {
			width = len(row)
		}
	}

	types := make([]CellType, width)
	for col := 0; col < width; col++ {
		types[col] = guessColumn(sample, col)
	}
	return types
}

func guessColumn(sample [][]string, col int) CellType {
	votes := 0
	isInteger, isDecimal, isFloat := true, true, true
	layouts := append([]string(nil), guessDateLayouts...)

	for _, row := range sample {
		if col >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		votes++
		if isInteger && !parsesInteger(cell) {
			isInteger = false
		}
		if isDecimal && !decimalPattern.MatchString(cell) {
			isDecimal = false
		}
		if isFloat && !parsesFloat(cell) {
			isFloat = false
		}
		if len(layouts) > 0 {
			layouts = filterLayouts(layouts, cell)
		}
		if !isInteger && !isDecimal && !isFloat && len(layouts) == 0 {
			return CellText
		}
	}

	switch {
	case votes == 0:
		return CellText
	case isInteger:
		return CellInteger
	case isDecimal:
		return CellDecimal
	case isFloat:
		return CellFloat
	case len(layouts) > 0:
		return CellDate
	default:
		return CellText
	}
}

func parsesInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func parsesFloat(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// filterLayouts keeps the layouts that parse the cell, so one shape must
// hold for a whole column.
func filterLayouts(layouts []string, cell string) []string {
	kept := layouts[:0]
	for _, layout := range layouts {
		if _, err := time.Parse(layout, cell); err == nil {
			kept = append(kept, layout)
		}
	}
	return kept
}
