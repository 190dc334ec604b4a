// Package rules implements the criterion registry, the per-criterion
// classifiers and the dispatcher that turns a structured research record
// into risk flags.
package rules

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Flag is the ordinal risk classification produced by every classifier.
// Values increase with severity.
type Flag int

// Flagged is the most severe level; its string form is "Flag".
const (
	OK Flag = iota
	Monitor
	Review
	Flagged
)

// ErrorFlag is the sentinel written into batch entries whose criterion
// could not be evaluated. It is not a Flag value.
const ErrorFlag = "Error"

var flagNames = [...]string{"OK", "Monitor", "Review", "Flag"}

func (f Flag) String() string {
	if f < OK || f > Flagged {
		return "Flag(" + strconv.Itoa(int(f)) + ")"
	}
	return flagNames[f]
}

// Valid reports whether f is one of the four defined levels.
func (f Flag) Valid() bool {
	return f >= OK && f <= Flagged
}

// Worse returns the more severe of f and other.
func (f Flag) Worse(other Flag) Flag {
	if other > f {
		return other
	}
	return f
}

// ParseFlag converts a flag name (case-insensitive) to a Flag.
func ParseFlag(s string) (Flag, error) {
	s = strings.TrimSpace(s)
	for i, name := range flagNames {
		if strings.EqualFold(s, name) {
			return Flag(i), nil
		}
	}
	return OK, eris.Errorf("rules: unknown flag %q", s)
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return nil, eris.Errorf("rules: invalid flag %d", int(f))
	}
	return json.Marshal(f.String())
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return eris.Wrap(err, "rules: decode flag")
	}
	v, err := ParseFlag(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}
