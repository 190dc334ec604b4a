package rules

import (
	_ "embed"
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Escalation is the script followed when a criterion's flag is unfavourable.
type Escalation struct {
	Finding string   `yaml:"finding" json:"finding"`
	Options []string `yaml:"options" json:"options"`
	Default string   `yaml:"default" json:"default"`
}

// Criterion is one named risk dimension.
type Criterion struct {
	ID             Kind       `yaml:"id" json:"id"`
	Name           string     `yaml:"name" json:"name"`
	RequiredFields []string   `yaml:"required_fields" json:"required_fields"`
	PromptTemplate string     `yaml:"prompt_template" json:"prompt_template"`
	ExampleOK      string     `yaml:"example_ok" json:"example_ok"`
	OnFlag         Escalation `yaml:"on_flag" json:"on_flag"`
}

// Profile is a named, ordered subset of criteria for one entity type.
type Profile struct {
	Name     string `yaml:"name" json:"name"`
	Criteria []Kind `yaml:"criteria" json:"criteria"`
}

type catalogFile struct {
	Criteria []Criterion `yaml:"criteria"`
	Profiles []Profile   `yaml:"profiles"`
}

// Registry is the immutable criterion catalog. It is safe for concurrent
// reads; nothing mutates it after construction.
type Registry struct {
	order    []Kind
	byID     map[Kind]Criterion
	profiles []Profile
}

// DefaultRegistry parses the embedded catalog.
func DefaultRegistry() (*Registry, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog YAML file from disk.
func LoadCatalog(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read catalog %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (*Registry, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, &Error{Kind: KindInvalidCatalog, Msg: err.Error()}
	}
	return NewRegistry(cf.Criteria, cf.Profiles)
}

// NewRegistry validates criteria and profiles and returns a Registry that
// owns copies of them.
func NewRegistry(criteria []Criterion, profiles []Profile) (*Registry, error) {
	reg := &Registry{byID: make(map[Kind]Criterion, len(criteria))}

	for _, c := range criteria {
		if _, ok := ParseKind(string(c.ID)); !ok {
			return nil, catalogError(string(c.ID), "unknown criterion kind")
		}
		if _, dup := reg.byID[c.ID]; dup {
			return nil, catalogError(string(c.ID), "duplicate criterion")
		}
		if len(c.RequiredFields) == 0 {
			return nil, catalogError(string(c.ID), "no required fields")
		}
		if err := checkPlaceholders(c); err != nil {
			return nil, err
		}
		c.RequiredFields = slices.Clone(c.RequiredFields)
		c.OnFlag.Options = slices.Clone(c.OnFlag.Options)
		reg.byID[c.ID] = c
		reg.order = append(reg.order, c.ID)
	}

	seenProfile := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		if p.Name == "" {
			return nil, catalogError("", "profile without a name")
		}
		if seenProfile[p.Name] {
			return nil, catalogError("", "duplicate profile %q", p.Name)
		}
		seenProfile[p.Name] = true

		members := make(map[Kind]bool, len(p.Criteria))
		for _, id := range p.Criteria {
			if _, ok := reg.byID[id]; !ok {
				return nil, catalogError(string(id), "profile %q references unregistered criterion", p.Name)
			}
			if members[id] {
				return nil, catalogError(string(id), "listed twice in profile %q", p.Name)
			}
			members[id] = true
		}
		reg.profiles = append(reg.profiles, Profile{Name: p.Name, Criteria: slices.Clone(p.Criteria)})
	}

	return reg, nil
}

// checkPlaceholders requires the template to reference exactly the
// required fields, no more and no fewer.
func checkPlaceholders(c Criterion) error {
	want := slices.Clone(c.RequiredFields)
	slices.Sort(want)
	want = slices.Compact(want)
	if len(want) != len(c.RequiredFields) {
		return catalogError(string(c.ID), "duplicate required field in %v", c.RequiredFields)
	}
	got := Placeholders(c.PromptTemplate)
	slices.Sort(got)
	if !slices.Equal(want, got) {
		return catalogError(string(c.ID), "template placeholders %v do not match required fields %v", got, c.RequiredFields)
	}
	return nil
}

// Get returns the criterion registered under id.
func (r *Registry) Get(id string) (Criterion, error) {
	c, ok := r.byID[Kind(id)]
	if !ok {
		return Criterion{}, &Error{Kind: KindUnknownCriterion, Criterion: id}
	}
	c.RequiredFields = slices.Clone(c.RequiredFields)
	c.OnFlag.Options = slices.Clone(c.OnFlag.Options)
	return c, nil
}

// IDs returns every registered criterion in catalog order.
func (r *Registry) IDs() []Kind {
	return slices.Clone(r.order)
}

// RequiredFields returns the ordered input fields for id.
func (r *Registry) RequiredFields(id string) ([]string, error) {
	c, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return c.RequiredFields, nil
}

// MissingFields lists the required fields of id that rec does not carry a
// usable value for. It is advisory; classifiers tolerate gaps on their own.
func (r *Registry) MissingFields(id string, rec Record) ([]string, error) {
	c, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, f := range c.RequiredFields {
		if _, ok := rec.Text(f); !ok {
			missing = append(missing, f)
		}
	}
	return missing, nil
}

// Profiles returns the profile names in catalog order.
func (r *Registry) Profiles() []string {
	names := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		names[i] = p.Name
	}
	return names
}

// CriteriaForProfile returns the ordered criteria of a profile.
func (r *Registry) CriteriaForProfile(name string) ([]Kind, error) {
	for _, p := range r.profiles {
		if p.Name == name {
			return slices.Clone(p.Criteria), nil
		}
	}
	return nil, &Error{Kind: KindUnknownProfile, Profile: name}
}
