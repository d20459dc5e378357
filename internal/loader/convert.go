package loader

// Cell converters turn raw strings into JSON-safe values for the insert
// payload. Numeric parsing goes through the pgtype value model: scan into
// the pgtype value, keep it only when Valid, then extract a plain Go value
// the JSON encoder can carry. Every converter is strict; cleanup of
// currency signs, thousands separators, and the like belongs upstream,
// not in a loader that must report exactly what it rejected.

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/ckanloader/internal/schema"
)

// numericRegex gates the numeric converter: integers, decimals, and
// scientific notation. pgtype would also accept NaN, which JSON cannot
// carry.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Layouts for the chrono types, four-digit years only. Two-digit years are
// ambiguous enough that they should fail and be fixed upstream or loaded
// as text.
var (
	dateLayouts = []string{
		"2006-01-02",
		"2006/01/02",
		"2006.01.02",
		"1/2/2006",
		"1-2-2006",
		"2.1.2006",
		"Jan 2, 2006",
		"2 Jan 2006",
		"20060102",
	}

	timeLayouts = []string{
		"15:04:05",
		"15:04:05.999999999",
		"15:04",
		"3:04:05 PM",
		"3:04 PM",
	}

	// Timestamps also accept every date layout; midnight is implied.
	timestampLayouts = append([]string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
	}, dateLayouts...)
)

// Output layouts: the one ISO shape per chrono type that the datastore
// accepts without guessing.
const (
	dateOutLayout      = "2006-01-02"
	timeOutLayout      = "15:04:05"
	timestampOutLayout = "2006-01-02T15:04:05"
)

// convertCell converts one raw cell for its column type. The returned
// value marshals directly into the insert payload. ok is false when the
// cell does not parse; the caller owns error reporting. The type switch is
// exhaustive over the schema vocabulary.
func convertCell(raw string, typ schema.ColumnType) (any, bool) {
	switch typ {
	case schema.TypeText:
		return raw, true
	case schema.TypeInt:
		return convertInt(raw)
	case schema.TypeFloat:
		return convertFloat(raw)
	case schema.TypeBool:
		return convertBool(raw)
	case schema.TypeNumeric:
		return convertNumeric(raw)
	case schema.TypeDate:
		return convertChrono(raw, dateLayouts, dateOutLayout)
	case schema.TypeTime:
		return convertChrono(raw, timeLayouts, timeOutLayout)
	case schema.TypeTimestamp:
		return convertChrono(raw, timestampLayouts, timestampOutLayout)
	case schema.TypeJSON:
		return convertJSON(raw)
	default:
		return nil, false
	}
}

func convertInt(raw string) (any, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, false
	}
	return n, true
}

func convertFloat(raw string) (any, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

func convertBool(raw string) (any, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return nil, false
	}
}

// convertNumeric validates through pgtype.Numeric so values are accepted
// exactly as Postgres would take them, then extracts a float64 because the
// JSON envelope has no decimal type. pgtype's text parser takes plain
// decimal forms only; scientific notation goes through the float converter
// behind the same gate.
func convertNumeric(raw string) (any, bool) {
	s := strings.TrimSpace(raw)
	if !numericRegex.MatchString(s) {
		return nil, false
	}
	if strings.ContainsAny(s, "eE") {
		return convertFloat(s)
	}
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil || !n.Valid {
		return nil, false
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return nil, false
	}
	return f.Float64, true
}

func convertChrono(raw string, layouts []string, outLayout string) (any, bool) {
	s := strings.TrimSpace(raw)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(outLayout), true
		}
	}
	return nil, false
}

func convertJSON(raw string) (any, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || !json.Valid([]byte(s)) {
		return nil, false
	}
	return json.RawMessage(s), true
}
