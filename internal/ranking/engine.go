package ranking

import (
	"math"
	"sort"
)

// Rank scores and orders candidates with the default heuristics.
func Rank(candidates []Candidate, metrics map[string]SourceMetric) []RankedCandidate {
	return RankWith(DefaultConfig(), candidates, metrics)
}

// RankWith scores each candidate against its domain's source metrics
// and returns the candidates ordered by descending final score.
//
// Template-origin candidates bypass metric lookup entirely and score
// by a fixed rule, keeping cold-start runs deterministic. Ties keep
// their input order (stable sort), so fixture runs reproduce exactly.
// The input slice is not modified.
func RankWith(cfg Config, candidates []Candidate, metrics map[string]SourceMetric) []RankedCandidate {
	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scoreCandidate(cfg, c, metrics))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CalculatedScore > ranked[j].CalculatedScore
	})

	return ranked
}

// scoreCandidate computes one candidate's role, score, confidence,
// and priority.
func scoreCandidate(cfg Config, c Candidate, metrics map[string]SourceMetric) RankedCandidate {
	if IsTemplateSource(c.CitationSource) {
		// Fixed rule: baseline by upstream priority, confidence 45,
		// no effort penalty, priority kept verbatim.
		baseline, ok := cfg.TemplateBaselines[c.Priority]
		if !ok {
			baseline = cfg.TemplateBaselines[PriorityLow]
		}
		return RankedCandidate{
			Candidate:       c,
			StrategicRole:   RoleStandard,
			CalculatedScore: baseline,
			Confidence:      cfg.TemplateConfidence,
		}
	}

	var opportunity float64
	var role StrategicRole
	var confidence int

	metric, ok := metrics[c.CitationSource]
	if !ok {
		opportunity = cfg.NoMetricOpportunity
		role = RoleStandard
		confidence = cfg.NoMetricConfidence
	} else {
		citationsNorm := clamp01(math.Log10(1+float64(metric.Citations)) / cfg.CitationLogDivisor)
		impactNorm := clamp01(metric.ImpactScore / 10)
		soaNorm := clamp01(metric.SOA / 100)

		role = classifyRole(cfg, impactNorm, soaNorm)

		raw := (citationsNorm*cfg.CitationWeight + impactNorm*cfg.ImpactWeight) *
			(1 - soaNorm) * roleBoost(cfg, role)
		opportunity = clamp01(raw)

		confidence = citationConfidence(cfg, metric.Citations)
	}

	finalScore := opportunity / math.Pow(effortLevel(c.Effort), cfg.EffortExponent)

	c.Priority = priorityFor(cfg, finalScore)
	return RankedCandidate{
		Candidate:       c,
		StrategicRole:   role,
		CalculatedScore: finalScore,
		Confidence:      confidence,
	}
}

// classifyRole applies the role thresholds to the normalized metrics.
func classifyRole(cfg Config, impactNorm, soaNorm float64) StrategicRole {
	switch {
	case impactNorm >= cfg.BattlegroundImpactMin && soaNorm <= cfg.BattlegroundSOAMax:
		return RoleBattleground
	case soaNorm >= cfg.StrongholdSOAMin:
		return RoleStronghold
	case impactNorm >= cfg.OpportunityImpactMin &&
		soaNorm > cfg.OpportunitySOAMin && soaNorm < cfg.OpportunitySOAMax:
		return RoleOpportunity
	default:
		return RoleStandard
	}
}

func roleBoost(cfg Config, role StrategicRole) float64 {
	switch role {
	case RoleBattleground:
		return cfg.BattlegroundBoost
	case RoleOpportunity:
		return cfg.OpportunityBoost
	case RoleStronghold:
		return cfg.StrongholdBoost
	default:
		return 1.0
	}
}

// effortLevel maps effort to its numeric penalty base. Unrecognized
// values fall back to Medium.
func effortLevel(effort Effort) float64 {
	switch effort {
	case EffortLow:
		return 1
	case EffortHigh:
		return 3
	default:
		return 2
	}
}

func priorityFor(cfg Config, finalScore float64) Priority {
	switch {
	case finalScore >= cfg.HighCutoff:
		return PriorityHigh
	case finalScore >= cfg.MediumCutoff:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func citationConfidence(cfg Config, citations int) int {
	for _, step := range cfg.ConfidenceSteps {
		if citations >= step.MinCitations {
			return step.Confidence
		}
	}
	return cfg.NoMetricConfidence
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
