package rules

import (
	"slices"
	"time"
)

// Result is the outcome of evaluating one criterion against a record.
type Result struct {
	CriterionID     Kind        `json:"criterion_id"`
	Name            string      `json:"name"`
	Flag            Flag        `json:"flag"`
	PromptTemplate  string      `json:"prompt_template"`
	Prompt          string      `json:"prompt,omitempty"`
	SuggestedAction *Escalation `json:"suggested_action,omitempty"`
	ExplanationHint string      `json:"explanation_hint,omitempty"`
}

// Unfavourable reports whether the escalation script applies.
func (r *Result) Unfavourable() bool {
	return r.Flag >= Review
}

// Dispatcher resolves criteria to classifiers and assembles results. It
// holds no mutable state and may be shared between goroutines.
type Dispatcher struct {
	registry    *Registry
	classifiers map[Kind]Classifier
	now         func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the clock used for date-relative criteria.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithCurrentYear pins the evaluation year.
func WithCurrentYear(year int) Option {
	return WithClock(func() time.Time {
		return time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC)
	})
}

// NewDispatcher pairs a registry with its classifiers. Every registered
// criterion must have exactly one classifier and every classifier a
// registered criterion.
func NewDispatcher(reg *Registry, classifiers map[Kind]Classifier, opts ...Option) (*Dispatcher, error) {
	if reg == nil {
		return nil, catalogError("", "nil registry")
	}
	table := make(map[Kind]Classifier, len(classifiers))
	for _, id := range reg.order {
		c, ok := classifiers[id]
		if !ok || c == nil {
			return nil, catalogError(string(id), "no classifier registered")
		}
		table[id] = c
	}
	for id := range classifiers {
		if _, ok := reg.byID[id]; !ok {
			return nil, catalogError(string(id), "classifier has no catalog entry")
		}
	}

	d := &Dispatcher{registry: reg, classifiers: table, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// NewDefaultDispatcher builds a dispatcher over the embedded catalog.
func NewDefaultDispatcher(opts ...Option) (*Dispatcher, error) {
	reg, err := DefaultRegistry()
	if err != nil {
		return nil, err
	}
	return NewDispatcher(reg, DefaultClassifiers(), opts...)
}

// Registry returns the catalog the dispatcher evaluates against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// CurrentYear is the year date-relative classifiers compare against.
func (d *Dispatcher) CurrentYear() int {
	return d.now().Year()
}

// Classify runs only the classifier for id.
func (d *Dispatcher) Classify(id string, r Record) (Flag, error) {
	c, ok := d.classifiers[Kind(id)]
	if !ok {
		return Review, &Error{Kind: KindUnknownCriterion, Criterion: id}
	}
	return c.Classify(r, d.CurrentYear()), nil
}

// Evaluate classifies r under criterion id and merges the flag with the
// criterion's metadata. An unknown id yields a nil result and a
// KindUnknownCriterion error. When the record cannot fill the prompt
// template, the classified result is still returned together with a
// KindTemplateFieldMissing error.
func (d *Dispatcher) Evaluate(id string, r Record) (*Result, error) {
	crit, err := d.registry.Get(id)
	if err != nil {
		return nil, err
	}
	flag, err := d.Classify(id, r)
	if err != nil {
		return nil, err
	}

	action := crit.OnFlag
	action.Options = slices.Clone(action.Options)
	res := &Result{
		CriterionID:     crit.ID,
		Name:            crit.Name,
		Flag:            flag,
		PromptTemplate:  crit.PromptTemplate,
		SuggestedAction: &action,
		ExplanationHint: crit.ExampleOK,
	}

	prompt, missing := Render(crit.PromptTemplate, r)
	if missing != "" {
		return res, &Error{Kind: KindTemplateFieldMissing, Criterion: id, Field: missing}
	}
	res.Prompt = prompt
	return res, nil
}
