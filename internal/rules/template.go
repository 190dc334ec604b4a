package rules

import (
	"regexp"
	"strings"
)

var placeholderRE = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Placeholders returns the distinct field names referenced by a prompt
// template, in first-use order.
func Placeholders(tpl string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRE.FindAllStringSubmatch(tpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Render substitutes record values into tpl. It returns the name of the
// first placeholder the record cannot fill.
func Render(tpl string, r Record) (string, string) {
	for _, name := range Placeholders(tpl) {
		if !r.Has(name) {
			return "", name
		}
	}
	out := placeholderRE.ReplaceAllStringFunc(tpl, func(m string) string {
		v, _ := r.Raw(strings.Trim(m, "{}"))
		return v
	})
	return out, ""
}
