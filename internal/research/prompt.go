package research

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/vetting-cli/internal/rules"
)

const researchSystemPrompt = `You are an analyst producing company risk research for equipment financing.

Search the web for the given subject: overview and history, recent financial performance, latest news, market position and competitors, key products, leadership, and outlook. Prefer the last 30 days but include historical context. If the first sources are thin, try the legal entity name, the parent company or subsidiaries, national company registries, investor relations pages and industry publications.

If no company exists under the given name, say "Company could not be found" and do not invent facts.

Structure the report as:
**[Company Name] - Comprehensive Risk Analysis**
*[one sentence on the current position and outlook]*
**Executive Summary**, **Company Overview**, **Recent Developments**, **Market Position**, **Leadership & Organization**, **Future Outlook**, **Key Metrics & Financials**.

Finish with a **Structured Data Summary**: one fenced json code block holding exactly the requested fields. Use numbers for years, counts and percentages. Write "Unknown" for any value you could not find.`

// researchPrompt asks for a report on subj whose structured summary carries
// fields, in order.
func researchPrompt(subj Subject, fields []string, today time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s. Research and analyze %s as a %s company. ",
		today.Format("January 2, 2006"), subj.Name, subj.Entity)
	fmt.Fprintf(&b, "Focus on developments since %s, but include historical context too.\n\n",
		today.AddDate(0, 0, -30).Format("January 2, 2006"))
	b.WriteString("IMPORTANT: end with a structured JSON block with these fields for vetting:\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("- info_sources\n\n")
	b.WriteString("```json\n{\n")
	for i, f := range fields {
		sep := ","
		if i == len(fields)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  %q: \"Unknown\"%s\n", f, sep)
	}
	b.WriteString("}\n```")
	return b.String()
}

// profileFields returns the union of the profile's required fields in
// criterion order.
func profileFields(reg *rules.Registry, profile string) ([]string, error) {
	ids, err := reg.CriteriaForProfile(profile)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var fields []string
	for _, id := range ids {
		req, err := reg.RequiredFields(string(id))
		if err != nil {
			return nil, err
		}
		for _, f := range req {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	return fields, nil
}

const summarySystemPrompt = `You are an editor who writes clear risk summaries in markdown for credit committees. Keep every finding from the input and do not add facts.`

// summaryPrompt turns a batch's explanation scaffolds into the narrative
// request.
func summaryPrompt(subj Subject, b *rules.Batch) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on the following evaluation flags for %s, write a markdown risk summary section explaining each risk in plain English. ", subj)
	sb.WriteString("Use 🚩 for 'Review' and 'Flag', ⚠️ for 'Monitor', ✅ for 'OK'. ")
	sb.WriteString("Where a criterion errored, say what data was missing. Format with headers and bullet points.\n\n")
	sb.WriteString(strings.Join(b.Explanations(), "\n\n"))
	return sb.String()
}
