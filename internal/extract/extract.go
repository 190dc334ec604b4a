// Package extract pulls the structured JSON record out of free-form
// research text.
package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vetting-cli/internal/rules"
)

// ErrNoStructuredData is returned when text carries no decodable JSON object.
var ErrNoStructuredData = eris.New("extract: structured JSON could not be parsed")

var fencedJSON = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n(.*?)```")

// Record decodes the research record embedded in text. A fenced ```json
// block is preferred; otherwise the span from the first "{" to the last
// "}" is tried. Numbers decode as json.Number so integers survive intact.
func Record(text string) (rules.Record, error) {
	for _, candidate := range candidates(text) {
		if rec, ok := decode(candidate); ok {
			return rec, nil
		}
	}
	return nil, ErrNoStructuredData
}

func candidates(text string) []string {
	var out []string
	for _, m := range fencedJSON.FindAllStringSubmatch(text, -1) {
		out = append(out, cleanJSON(m[1]))
	}
	if s := cleanJSON(text); s != "" {
		out = append(out, s)
	}
	return out
}

func decode(s string) (rules.Record, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var rec rules.Record
	if err := dec.Decode(&rec); err != nil || rec == nil {
		return nil, false
	}
	return rec, true
}

// cleanJSON strips markdown fences and any prose around the outermost
// object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
