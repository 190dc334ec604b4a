package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Record is the structured data about a subject, keyed by field name.
// Values are strings, numbers (float64, int, json.Number) or nil. The
// rules package never mutates a Record.
type Record map[string]any

// absentValues are placeholder strings research output uses for "not found".
var absentValues = map[string]bool{
	"":           true,
	"unknown":    true,
	"n/a":        true,
	"na":         true,
	"null":       true,
	"none found": true,
	"not found":  true,
}

// fold applies Unicode case folding so keyword matching works beyond ASCII.
// A Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Has reports whether the record carries a non-nil value for key,
// regardless of whether that value is a placeholder like "Unknown".
func (r Record) Has(key string) bool {
	if r == nil {
		return false
	}
	v, ok := r[key]
	return ok && v != nil
}

// Raw returns the display form of a field for prompt rendering.
func (r Record) Raw(key string) (string, bool) {
	if !r.Has(key) {
		return "", false
	}
	switch v := r[key].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

// Text returns the trimmed string form of key. ok is false when the field
// is absent, nil, or a placeholder such as "Unknown".
func (r Record) Text(key string) (string, bool) {
	s, ok := r.Raw(key)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if absentValues[fold(s)] {
		return "", false
	}
	return s, true
}

// Folded is Text with Unicode case folding applied, for keyword matching.
func (r Record) Folded(key string) (string, bool) {
	s, ok := r.Text(key)
	if !ok {
		return "", false
	}
	return fold(s), true
}

// Number returns key as a float64. Numeric strings may carry a trailing
// percent sign and thousands separators. ok is false when the field is
// absent or not numeric.
func (r Record) Number(key string) (float64, bool) {
	if !r.Has(key) {
		return 0, false
	}
	switch v := r[key].(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		return parseNumber(v)
	default:
		return 0, false
	}
}

// Int returns key as an integer. Non-integral numbers are rejected.
func (r Record) Int(key string) (int, bool) {
	f, ok := r.Number(key)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
