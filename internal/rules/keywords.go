package rules

import "strings"

// Keyword maps a vocabulary term to the flag it implies.
type Keyword struct {
	Term string
	Flag Flag
}

// KeywordTable is an ordered keyword vocabulary. The first row whose term
// appears in the text wins, so rows are listed in evaluation order.
type KeywordTable []Keyword

// Match returns the flag of the first term contained in text. text is
// expected to be case-folded already (see Record.Folded).
func (t KeywordTable) Match(text string) (Flag, bool) {
	for _, k := range t {
		if strings.Contains(text, fold(k.Term)) {
			return k.Flag, true
		}
	}
	return OK, false
}

// terms is a keyword set without implied flags.
type terms []string

func (ts terms) any(text string) bool {
	for _, t := range ts {
		if strings.Contains(text, fold(t)) {
			return true
		}
	}
	return false
}

func (ts terms) exact(text string) bool {
	for _, t := range ts {
		if text == fold(t) {
			return true
		}
	}
	return false
}

var (
	traceabilityKeywords = KeywordTable{
		{"none", Flagged},
		{"limited", Monitor},
		{"partial", Review},
	}

	incidentKeywords = KeywordTable{
		{"major", Flagged},
		{"minor", Monitor},
	}

	cyberIncidentKeywords = KeywordTable{
		{"major", Flagged},
		{"breach", Flagged},
		{"minor", Monitor},
	}

	taxCheckKeywords = KeywordTable{
		{"tax evasion", Flagged},
		{"fine", Flagged},
		{"audit", Monitor},
		{"clear", OK},
		{"no issues", OK},
	}

	marketDemandKeywords = KeywordTable{
		{"declining", Flagged},
		{"recall", Flagged},
		{"weak", Monitor},
		{"high", OK},
		{"strong", OK},
	}

	// Exact (whole-value) rating matches, checked after upper-casing.
	ratingFlags = map[string]Flag{
		"CCC":     Flagged,
		"DEFAULT": Flagged,
		"UNRATED": Flagged,
		"BB-":     Monitor,
		"B+":      Monitor,
		"B":       Monitor,
		"B-":      Monitor,
		"BBB-":    OK,
		"BBB":     OK,
		"BBB+":    OK,
		"A-":      OK,
		"A":       OK,
		"A+":      OK,
	}

	dissolvedStatuses = terms{"liquidated", "dissolved"}
	dormantStatuses   = terms{"inactive", "dormant"}

	weakTerms      = terms{"weak"}
	decliningTerms = terms{"declining"}
	moderateTerms  = terms{"moderate"}
	globalTerms    = terms{"global"}
	stableTerms    = terms{"stable"}
	strongTerms    = terms{"strong"}

	declineTerms     = terms{"decline"}
	lowTerms         = terms{"low"}
	specializedTerms = terms{"specialized", "specialised"}
	positiveTerms    = terms{"positive"}

	noCertifications       = terms{"none"}
	securityOK             = terms{"ok"}
	securityCertifications = terms{"iso 27001", "iso/iec 27001", "soc 2"}

	euro6Standards = terms{"euro 6", "euro6", "euro vi", "eu compliant"}

	affirmative = terms{"yes", "true", "y"}
	negative    = terms{"no", "false", "n"}

	majorSeverity = terms{"major"}
)

// acceptableSecurity matches a bare "ok" verdict or a named certification.
func acceptableSecurity(text string) bool {
	return securityOK.exact(text) || securityCertifications.any(text)
}
