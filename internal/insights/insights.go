// Package insights provides read-only strategic queries over the
// annotated knowledge graph.
//
// All queries share a two-hop shape: an actor's attribute edge into a
// topic, then the topic's sentiment edge, with the topic's centrality
// scaling the finding. Queries against an empty or disconnected graph
// return empty lists, never errors.
package insights

// Insight type identifiers.
const (
	TypeOpportunityGap = "opportunity_gap"
	TypeBattleground   = "battleground"
	TypeStronghold     = "stronghold"
)

// Insight is a single ranked strategic finding.
type Insight struct {
	// Type is one of the insight type identifiers.
	Type string `json:"type"`

	// Topic is the topic node the finding concerns.
	Topic string `json:"topic"`

	// Subject names the actor the finding is about (the competitor
	// for an opportunity gap, the actor for a stronghold). Empty for
	// battlegrounds, which concern all actors.
	Subject string `json:"subject,omitempty"`

	// Score orders findings; higher is more significant.
	Score float64 `json:"score"`

	// Evidence holds verbatim quotes substantiating the finding.
	Evidence []string `json:"evidence"`

	// Context is a short human-readable summary sentence.
	Context string `json:"context"`
}

// KeywordQuadrant is one topic's position in the brand-vs-competitor
// scatter consumed by the reporting layer.
type KeywordQuadrant struct {
	Topic            string  `json:"topic"`
	BrandWeight      int     `json:"brandWeight"`
	CompetitorWeight int     `json:"competitorWeight"`
	NetSentiment     int     `json:"netSentiment"`
	Centrality       float64 `json:"centrality"`
	CommunityID      int     `json:"communityId"`
}

// Snapshot is the derived insight summary persisted downstream. Its
// schema is the contract with the persistence and prompting layers.
type Snapshot struct {
	OpportunityGaps     []Insight         `json:"opportunityGaps"`
	Battlegrounds       []Insight         `json:"battlegrounds"`
	Strongholds         []Insight         `json:"strongholds"`
	KeywordQuadrantData []KeywordQuadrant `json:"keywordQuadrantData"`
}

// Config holds the tunable thresholds for insight extraction. The
// values are heuristic; the defaults match the shipped behavior.
type Config struct {
	// TopGaps caps the findings returned per opportunity-gap query.
	TopGaps int

	// TopBattlegrounds caps the battleground list.
	TopBattlegrounds int

	// TopStrongholds caps the findings per stronghold query.
	TopStrongholds int

	// MinAttributeWeight is the attribute-edge weight both sides need
	// before a topic counts as contested.
	MinAttributeWeight int

	// DominanceRatio is the sentiment-weight ratio above which one
	// polarity dominates a topic.
	DominanceRatio float64

	// StrongholdRatio is how far POSITIVE must exceed NEGATIVE for a
	// topic to count as a stronghold.
	StrongholdRatio float64
}

// DefaultConfig returns the shipped extraction thresholds.
func DefaultConfig() Config {
	return Config{
		TopGaps:            3,
		TopBattlegrounds:   5,
		TopStrongholds:     5,
		MinAttributeWeight: 2,
		DominanceRatio:     2.0,
		StrongholdRatio:    2.0,
	}
}
