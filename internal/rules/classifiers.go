package rules

import "strings"

// Kind identifies a criterion. The set is closed: adding a criterion means
// adding a Kind, a catalog entry and a classifier.
type Kind string

const (
	BusinessAge                  Kind = "business_age"
	BusinessModelViability       Kind = "business_model_viability"
	DealerBusinessModelViability Kind = "dealer_business_model_viability"
	ProductDependency            Kind = "product_dependency"
	CustomerConcentration        Kind = "customer_concentration"
	SupplierConcentration        Kind = "supplier_concentration"
	AssetTraceability            Kind = "asset_traceability"
	ESGCompliance                Kind = "esg_compliance"
	Cybersecurity                Kind = "cybersecurity"
	CorporateRating              Kind = "corporate_rating"
	TaxCompliance                Kind = "tax_compliance"
	LegalDisputes                Kind = "legal_disputes"
	Reputation                   Kind = "reputation"
	BeneficialOwnerAML           Kind = "beneficial_owner_aml"
	SanctionsWatchlists          Kind = "sanctions_watchlists"
	MarketDemand                 Kind = "market_demand"
	EmissionCompliance           Kind = "emission_compliance"
	AssetModelYear               Kind = "asset_model_year"
)

// Kinds lists every known criterion kind.
var Kinds = []Kind{
	BusinessAge,
	BusinessModelViability,
	DealerBusinessModelViability,
	ProductDependency,
	CustomerConcentration,
	SupplierConcentration,
	AssetTraceability,
	ESGCompliance,
	Cybersecurity,
	CorporateRating,
	TaxCompliance,
	LegalDisputes,
	Reputation,
	BeneficialOwnerAML,
	SanctionsWatchlists,
	MarketDemand,
	EmissionCompliance,
	AssetModelYear,
}

// ParseKind validates s against the known kinds.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Classifier maps a record to a risk flag. Implementations must be pure:
// the only time input is currentYear, supplied by the caller.
type Classifier interface {
	Classify(r Record, currentYear int) Flag
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(r Record, currentYear int) Flag

func (f ClassifierFunc) Classify(r Record, currentYear int) Flag {
	return f(r, currentYear)
}

// DefaultClassifiers returns a fresh table with one classifier per Kind.
func DefaultClassifiers() map[Kind]Classifier {
	return map[Kind]Classifier{
		BusinessAge:                  ClassifierFunc(classifyBusinessAge),
		BusinessModelViability:       undated(classifyBusinessModelViability),
		DealerBusinessModelViability: undated(classifyDealerBusinessModelViability),
		ProductDependency:            undated(classifyProductDependency),
		CustomerConcentration:        undated(classifyCustomerConcentration),
		SupplierConcentration:        undated(classifySupplierConcentration),
		AssetTraceability:            undated(classifyAssetTraceability),
		ESGCompliance:                undated(classifyESGCompliance),
		Cybersecurity:                undated(classifyCybersecurity),
		CorporateRating:              undated(classifyCorporateRating),
		TaxCompliance:                undated(classifyTaxCompliance),
		LegalDisputes:                undated(classifyLegalDisputes),
		Reputation:                   undated(classifyReputation),
		BeneficialOwnerAML:           undated(classifyBeneficialOwnerAML),
		SanctionsWatchlists:          undated(classifySanctionsWatchlists),
		MarketDemand:                 undated(classifyMarketDemand),
		EmissionCompliance:           ClassifierFunc(classifyEmissionCompliance),
		AssetModelYear:               ClassifierFunc(classifyAssetModelYear),
	}
}

func undated(fn func(Record) Flag) ClassifierFunc {
	return func(r Record, _ int) Flag { return fn(r) }
}

func classifyBusinessAge(r Record, currentYear int) Flag {
	if status, ok := r.Folded("status"); ok {
		if dissolvedStatuses.any(status) {
			return Flagged
		}
		if dormantStatuses.any(status) {
			return Review
		}
	}
	regYear, ok := r.Int("registration_year")
	if !ok || regYear <= 0 {
		return Review
	}
	switch age := currentYear - regYear; {
	case age >= 3:
		return OK
	case age > 1:
		return Monitor
	default:
		return Review
	}
}

func classifyBusinessModelViability(r Record) Flag {
	presence, _ := r.Folded("market_presence")
	revenue, _ := r.Folded("revenue_trends")

	weak := weakTerms.any(presence)
	declining := decliningTerms.any(revenue)
	switch {
	case weak && declining:
		return Flagged
	case weak || declining:
		return Review
	case moderateTerms.any(presence) || moderateTerms.any(revenue):
		return Monitor
	case globalTerms.any(presence) && stableTerms.any(revenue):
		return OK
	case strongTerms.any(presence):
		return OK
	}
	return Review
}

func classifyDealerBusinessModelViability(r Record) Flag {
	trend, _ := r.Folded("revenue_trend")
	profit, _ := r.Folded("net_profitability")
	spec, _ := r.Folded("specialisation")

	switch {
	case declineTerms.any(trend) && lowTerms.any(profit):
		return Flagged
	case moderateTerms.any(profit) || declineTerms.any(trend):
		return Monitor
	case specializedTerms.any(spec) && positiveTerms.any(profit):
		return OK
	}
	return Review
}

func classifyProductDependency(r Record) Flag {
	share, ok := r.Number("top_product_revenue_share")
	if !ok {
		return Review
	}
	switch {
	case share <= 15:
		return OK
	case share <= 20:
		return Monitor
	case share <= 30:
		return Review
	default:
		return Flagged
	}
}

func classifyCustomerConcentration(r Record) Flag {
	top1, ok1 := r.Number("top_client_share")
	top3, ok3 := r.Number("top3_clients_share")
	if ok1 && top1 > 50 {
		return Flagged
	}
	if !ok3 {
		return Review
	}
	switch {
	case top3 > 50:
		return Review
	case top3 > 30:
		return Monitor
	case ok1 && top1 <= 20:
		return OK
	}
	return Review
}

func classifySupplierConcentration(r Record) Flag {
	top1, ok1 := r.Number("top_supplier_share")
	top3, ok3 := r.Number("top3_suppliers_share")
	switch {
	case ok1 && top1 > 50, ok3 && top3 > 75:
		return Flagged
	case !ok1 || !ok3:
		return Review
	case top1 > 30 || top3 > 50:
		return Review
	}
	return OK
}

func classifyAssetTraceability(r Record) Flag {
	desc, ok := r.Folded("traceability_system")
	if !ok {
		return Review
	}
	if f, hit := traceabilityKeywords.Match(desc); hit {
		return f
	}
	return OK
}

func classifyESGCompliance(r Record) Flag {
	incidents, knownIncidents := r.Folded("incidents")
	if f, hit := incidentKeywords.Match(incidents); hit {
		return f
	}
	certs, ok := r.Folded("certifications")
	if !ok || noCertifications.exact(certs) {
		return Review
	}
	if !knownIncidents {
		return Review
	}
	return OK
}

func classifyCybersecurity(r Record) Flag {
	incidents, knownIncidents := r.Folded("incidents")
	if f, hit := cyberIncidentKeywords.Match(incidents); hit {
		return f
	}
	certs, _ := r.Folded("certifications")
	measures, _ := r.Folded("measures")
	if !acceptableSecurity(certs) && !acceptableSecurity(measures) {
		return Review
	}
	if !knownIncidents {
		return Review
	}
	return OK
}

func classifyCorporateRating(r Record) Flag {
	rating, ok := r.Text("credit_rating")
	if !ok {
		return Review
	}
	rating = strings.ToUpper(rating)
	if f, hit := ratingFlags[rating]; hit {
		return f
	}
	// "BBB (stable)", "A- by Fitch"
	if fields := strings.Fields(rating); len(fields) > 1 {
		if f, hit := ratingFlags[fields[0]]; hit {
			return f
		}
	}
	return Review
}

func classifyTaxCompliance(r Record) Flag {
	check, _ := r.Folded("last_check")
	if f, hit := taxCheckKeywords.Match(check); hit {
		return f
	}
	return Review
}

func classifyLegalDisputes(r Record) Flag {
	severity, _ := r.Folded("severity")
	open, ok := r.Int("open_cases")
	switch {
	case majorSeverity.any(severity), ok && open > 10:
		return Flagged
	case !ok:
		return Review
	case open > 3:
		return Review
	}
	return OK
}

const defaultMediaScore = 5.0

func classifyReputation(r Record) Flag {
	hits, okHits := r.Int("negative_news_hits")
	score := defaultMediaScore
	if r.Has("media_score") {
		s, ok := r.Number("media_score")
		if ok {
			score = s
		} else if _, present := r.Text("media_score"); present {
			// Real text rather than "Unknown", but not a number.
			return Review
		}
	}
	switch {
	case okHits && hits > 10, score < 2:
		return Flagged
	case !okHits:
		return Review
	case hits > 5:
		return Monitor
	}
	return OK
}

func classifyBeneficialOwnerAML(r Record) Flag {
	pep, okPEP := r.Folded("pep")
	ubo, okUBO := r.Folded("ubo_verified")
	depth, okDepth := r.Int("ownership_chain_depth")
	switch {
	case okPEP && affirmative.exact(pep):
		return Flagged
	case okUBO && negative.exact(ubo), okDepth && depth > 3:
		return Review
	case !okPEP || !okUBO || !okDepth:
		return Review
	}
	return OK
}

func classifySanctionsWatchlists(r Record) Flag {
	listed, okListed := r.Folded("listed")
	hits, okHits := r.Int("watchlist_hits")
	switch {
	case okListed && affirmative.exact(listed), okHits && hits > 5:
		return Flagged
	// Hits without a listing status stay at Review.
	case !okListed || !okHits:
		return Review
	case hits > 0:
		return Monitor
	}
	return OK
}

func classifyMarketDemand(r Record) Flag {
	news, _ := r.Folded("market_demand_news")
	if f, hit := marketDemandKeywords.Match(news); hit {
		return f
	}
	return Review
}

func classifyEmissionCompliance(r Record, currentYear int) Flag {
	standard, _ := r.Folded("emission_standard")
	if !euro6Standards.any(standard) {
		return Flagged
	}
	support, ok := r.Int("tech_support_end_year")
	switch {
	case !ok:
		return Review
	case support >= currentYear+3:
		return OK
	case support >= currentYear:
		return Monitor
	}
	return Review
}

// classifyAssetModelYear treats an unset or unreadable year as Flag rather
// than Review: a model with no known year cannot be valued.
func classifyAssetModelYear(r Record, currentYear int) Flag {
	year, ok := r.Int("year_manufacturing_model")
	switch {
	case !ok || year <= 0:
		return Flagged
	case year >= currentYear-1:
		return OK
	case year >= currentYear-3:
		return Monitor
	}
	return Review
}
