// Package research runs the vetting pipeline around the rule engine: web
// research, record extraction, profile evaluation and the narrative risk
// summary.
package research

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vetting-cli/internal/model"
)

// Subject is the entity a research run covers.
type Subject struct {
	Entity model.EntityType `json:"entity_type"`
	Name   string           `json:"name"`
}

func (s Subject) String() string {
	return string(s.Entity) + ": " + s.Name
}

var subjectPrefix = regexp.MustCompile(`^(?i)(manufacturer|dealer|asset):\s*(.+)$`)

// ParseSubject joins topic words and splits off an optional entity prefix,
// as in "dealer: Acme Trucks". Without a prefix the subject is a
// manufacturer. Names are lowercased.
func ParseSubject(topics ...string) (Subject, error) {
	combined := strings.ToLower(strings.TrimSpace(strings.Join(topics, " ")))
	if combined == "" {
		return Subject{}, eris.New("research: no subject provided")
	}

	if m := subjectPrefix.FindStringSubmatch(combined); m != nil {
		entity, _ := model.ParseEntityType(m[1])
		return Subject{Entity: entity, Name: strings.TrimSpace(m[2])}, nil
	}
	return Subject{Entity: model.EntityManufacturer, Name: combined}, nil
}
