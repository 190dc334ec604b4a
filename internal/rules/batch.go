package rules

import (
	"fmt"

	"go.uber.org/zap"
)

// Entry is one criterion's outcome within a batch. Flag holds a Flag name or
// ErrorFlag when the criterion could not be evaluated.
type Entry struct {
	CriterionID Kind    `json:"criterion_id"`
	Name        string  `json:"name"`
	Flag        string  `json:"flag"`
	Error       string  `json:"error,omitempty"`
	Result      *Result `json:"result,omitempty"`
}

// Failed reports whether the entry carries the error sentinel.
func (e Entry) Failed() bool {
	return e.Flag == ErrorFlag
}

// Explanation is the scaffold handed to narrative generation: a heading with
// the flag, then the rendered prompt or the error text.
func (e Entry) Explanation() string {
	if e.Failed() {
		return fmt.Sprintf("### %s (%s)\n%s\n", e.Name, ErrorFlag, e.Error)
	}
	return fmt.Sprintf("### %s (%s)\n%s", e.Name, e.Flag, e.Result.Prompt)
}

// Batch holds one Entry per requested criterion, in request order.
type Batch struct {
	Profile string  `json:"profile,omitempty"`
	Year    int     `json:"year"`
	Entries []Entry `json:"entries"`
}

// Flags maps criterion id to flag name (or ErrorFlag).
func (b *Batch) Flags() map[string]string {
	out := make(map[string]string, len(b.Entries))
	for _, e := range b.Entries {
		out[string(e.CriterionID)] = e.Flag
	}
	return out
}

// Explanations returns the per-criterion scaffolds in batch order.
func (b *Batch) Explanations() []string {
	out := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		out[i] = e.Explanation()
	}
	return out
}

// Worst returns the most severe flag among successful entries and whether
// any entry succeeded.
func (b *Batch) Worst() (Flag, bool) {
	worst, found := OK, false
	for _, e := range b.Entries {
		if e.Failed() || e.Result == nil {
			continue
		}
		worst, found = worst.Worse(e.Result.Flag), true
	}
	return worst, found
}

// Counts tallies entries by flag name.
func (b *Batch) Counts() map[string]int {
	out := make(map[string]int)
	for _, e := range b.Entries {
		out[e.Flag]++
	}
	return out
}

// EvaluateProfile evaluates every criterion of a profile. The only error is
// an unknown profile; per-criterion failures become ErrorFlag entries.
func (d *Dispatcher) EvaluateProfile(profile string, r Record) (*Batch, error) {
	ids, err := d.registry.CriteriaForProfile(profile)
	if err != nil {
		return nil, err
	}
	b := d.evaluateMany(ids, r)
	b.Profile = profile
	return b, nil
}

// EvaluateAll evaluates every registered criterion in catalog order.
func (d *Dispatcher) EvaluateAll(r Record) *Batch {
	return d.evaluateMany(d.registry.IDs(), r)
}

// EvaluateIDs evaluates an explicit list of criteria. Unknown ids become
// ErrorFlag entries like any other failure.
func (d *Dispatcher) EvaluateIDs(ids []string, r Record) *Batch {
	kinds := make([]Kind, len(ids))
	for i, id := range ids {
		kinds[i] = Kind(id)
	}
	return d.evaluateMany(kinds, r)
}

func (d *Dispatcher) evaluateMany(ids []Kind, r Record) *Batch {
	b := &Batch{Year: d.CurrentYear(), Entries: make([]Entry, 0, len(ids))}
	for _, id := range ids {
		b.Entries = append(b.Entries, d.evaluateEntry(id, r))
	}
	return b
}

// evaluateEntry isolates one criterion: errors and classifier panics are
// confined to its own entry.
func (d *Dispatcher) evaluateEntry(id Kind, r Record) (e Entry) {
	e = Entry{CriterionID: id, Name: string(id)}
	if c, err := d.registry.Get(string(id)); err == nil {
		e.Name = c.Name
	}

	defer func() {
		if p := recover(); p != nil {
			e.Flag = ErrorFlag
			e.Error = fmt.Sprintf("rules: %s: classifier panic: %v", id, p)
			e.Result = nil
			zap.L().Warn("rules: criterion evaluation panicked",
				zap.String("criterion", string(id)),
				zap.Any("panic", p),
			)
		}
	}()

	res, err := d.Evaluate(string(id), r)
	if err != nil {
		e.Flag = ErrorFlag
		e.Error = err.Error()
		e.Result = res
		zap.L().Warn("rules: criterion evaluation failed",
			zap.String("criterion", string(id)),
			zap.Error(err),
		)
		return e
	}
	if !res.Flag.Valid() {
		e.Flag = ErrorFlag
		e.Error = fmt.Sprintf("rules: %s: classifier returned invalid flag %d", id, int(res.Flag))
		e.Result = nil
		zap.L().Warn("rules: criterion returned invalid flag",
			zap.String("criterion", string(id)),
			zap.Int("flag", int(res.Flag)),
		)
		return e
	}
	e.Flag = res.Flag.String()
	e.Result = res
	return e
}
