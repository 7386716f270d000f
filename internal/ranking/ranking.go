// Package ranking scores and orders recommendation candidates.
//
// Ranking is a pure pass over in-memory slices: it fuses per-domain
// source metrics into a normalized opportunity score, applies a
// sub-linear effort penalty, and emits a deterministic priority
// ordering. It shares no state with the knowledge graph.
package ranking

// Effort levels for a recommendation candidate.
type Effort string

const (
	EffortLow    Effort = "Low"
	EffortMedium Effort = "Medium"
	EffortHigh   Effort = "High"
)

// Priority labels assigned to ranked candidates.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// StrategicRole classifies the competitive posture implied by a
// source's impact and share-of-answers metrics.
type StrategicRole string

const (
	RoleBattleground StrategicRole = "Battleground"
	RoleOpportunity  StrategicRole = "Opportunity"
	RoleStronghold   StrategicRole = "Stronghold"
	RoleStandard     StrategicRole = "Standard"
)

// Candidate is an unranked recommendation descriptor, as produced by
// the upstream recommendation-generation layer.
type Candidate struct {
	// Action describes the recommended improvement.
	Action string `json:"action"`

	// CitationSource is the domain the recommendation targets, or a
	// template sentinel ("owned-site", "directories") for items that
	// carry no source metrics.
	CitationSource string `json:"citationSource"`

	// Priority is the upstream severity hint. It is recomputed for
	// metric-backed candidates and kept verbatim for template ones.
	Priority Priority `json:"priority"`

	// Effort is the estimated implementation effort.
	Effort Effort `json:"effort"`
}

// SourceMetric holds the per-domain metrics used to score a candidate.
type SourceMetric struct {
	// Citations counts how often the domain is cited.
	Citations int `json:"citations"`

	// ImpactScore is the domain's estimated impact, in [0, 10].
	ImpactScore float64 `json:"impactScore"`

	// SOA is the domain's share of answers, in [0, 100].
	SOA float64 `json:"soa"`

	// Visibility, MentionRate, and Sentiment are carried through for
	// reporting; they do not enter the score.
	Visibility  float64 `json:"visibility"`
	MentionRate float64 `json:"mentionRate"`
	Sentiment   float64 `json:"sentiment"`
}

// RankedCandidate is a candidate annotated with its computed ordering.
type RankedCandidate struct {
	Candidate

	// StrategicRole is the role classification for the candidate's
	// source domain.
	StrategicRole StrategicRole `json:"strategicRole"`

	// CalculatedScore is the effort-adjusted final score.
	CalculatedScore float64 `json:"calculatedScore"`

	// Confidence expresses how well-evidenced the score is, 0-100.
	Confidence int `json:"confidence"`
}

// Config holds the ranking heuristics. The constants are preserved
// from the shipped behavior; they have no stated derivation beyond
// damping high-volume domains and penalizing saturated sources, so
// they live here as tunables rather than inline literals.
type Config struct {
	// CitationLogDivisor normalizes log10(1+citations); /3 saturates
	// around 1000 citations.
	CitationLogDivisor float64

	// CitationWeight and ImpactWeight blend the normalized inputs.
	CitationWeight float64
	ImpactWeight   float64

	// Role classification thresholds on (impactNorm, soaNorm).
	BattlegroundImpactMin float64
	BattlegroundSOAMax    float64
	StrongholdSOAMin      float64
	OpportunityImpactMin  float64
	OpportunitySOAMin     float64
	OpportunitySOAMax     float64

	// Role boosts applied to the opportunity score.
	BattlegroundBoost float64
	OpportunityBoost  float64
	StrongholdBoost   float64

	// NoMetricOpportunity is the weak-evidence floor for candidates
	// whose domain has no source metric.
	NoMetricOpportunity float64

	// EffortExponent makes the effort penalty sub-linear.
	EffortExponent float64

	// Priority cutoffs on the final score.
	HighCutoff   float64
	MediumCutoff float64

	// TemplateBaselines fixes the score of template-origin candidates
	// by their upstream priority.
	TemplateBaselines map[Priority]float64

	// Confidence settings.
	TemplateConfidence int
	NoMetricConfidence int
	ConfidenceSteps    []ConfidenceStep
}

// ConfidenceStep maps a minimum citation count to a confidence value.
type ConfidenceStep struct {
	MinCitations int
	Confidence   int
}

// DefaultConfig returns the shipped ranking heuristics.
func DefaultConfig() Config {
	return Config{
		CitationLogDivisor:    3,
		CitationWeight:        0.4,
		ImpactWeight:          0.6,
		BattlegroundImpactMin: 0.7,
		BattlegroundSOAMax:    0.2,
		StrongholdSOAMin:      0.5,
		OpportunityImpactMin:  0.6,
		OpportunitySOAMin:     0.2,
		OpportunitySOAMax:     0.5,
		BattlegroundBoost:     1.5,
		OpportunityBoost:      1.2,
		StrongholdBoost:       0.8,
		NoMetricOpportunity:   0.15,
		EffortExponent:        0.8,
		HighCutoff:            0.30,
		MediumCutoff:          0.15,
		TemplateBaselines: map[Priority]float64{
			PriorityHigh:   0.45,
			PriorityMedium: 0.28,
			PriorityLow:    0.16,
		},
		TemplateConfidence: 45,
		NoMetricConfidence: 55,
		ConfidenceSteps: []ConfidenceStep{
			{MinCitations: 100, Confidence: 85},
			{MinCitations: 50, Confidence: 78},
			{MinCitations: 20, Confidence: 70},
			{MinCitations: 0, Confidence: 62},
		},
	}
}

// templateSources are the citation-source sentinels that mark a
// candidate as template-origin (no backing domain metrics).
var templateSources = map[string]bool{
	"owned-site":  true,
	"directories": true,
}

// IsTemplateSource reports whether the citation source is a template
// sentinel rather than a real domain.
func IsTemplateSource(source string) bool {
	return templateSources[source]
}
