package insights

import (
	"fmt"
	"sort"

	"github.com/brandlens/brandlens-go/internal/graph"
)

// Extractor runs strategic queries against an annotated graph.
// It never mutates the graph.
type Extractor struct {
	g   *graph.KnowledgeGraph
	cfg Config
}

// NewExtractor creates an extractor with the default thresholds.
func NewExtractor(g *graph.KnowledgeGraph) *Extractor {
	return NewExtractorWithConfig(g, DefaultConfig())
}

// NewExtractorWithConfig creates an extractor with custom thresholds.
func NewExtractorWithConfig(g *graph.KnowledgeGraph, cfg Config) *Extractor {
	return &Extractor{g: g, cfg: cfg}
}

// OpportunityGaps finds topics where the named competitor shows
// measurable negative sentiment: areas the brand can contest.
//
// For every topic under the competitor's attribute edges, the weight
// of the topic's NEGATIVE edge (if any) is scaled by the topic's
// centrality. Returns the top findings by descending score; a
// competitor with no matching edges yields an empty list.
func (e *Extractor) OpportunityGaps(competitor string) []Insight {
	findings := make([]Insight, 0)

	for _, attr := range e.g.GetOutgoing(competitor, graph.EdgeHasAttribute) {
		topic := attr.Target

		negWeight := e.g.EdgeWeight(topic, graph.SentimentNegative)
		if negWeight == 0 {
			continue
		}

		findings = append(findings, Insight{
			Type:     TypeOpportunityGap,
			Topic:    topic,
			Subject:  competitor,
			Score:    float64(negWeight) * e.centralityOrOne(topic),
			Evidence: e.evidence(topic, graph.SentimentNegative),
			Context:  fmt.Sprintf("%s is failing at %s", competitor, topic),
		})
	}

	return top(findings, e.cfg.TopGaps)
}

// Battlegrounds finds contested topics: both the brand side (brand or
// its products) and at least one competitor hold strong attribute
// edges into the topic, and neither sentiment polarity dominates it.
func (e *Extractor) Battlegrounds() []Insight {
	findings := make([]Insight, 0)

	for _, topic := range e.g.GetNodesByType(graph.NodeTopic) {
		brandWeight, compWeight := e.attributeWeights(topic.Label)
		if brandWeight < e.cfg.MinAttributeWeight || compWeight < e.cfg.MinAttributeWeight {
			continue
		}

		pos := e.g.EdgeWeight(topic.Label, graph.SentimentPositive)
		neg := e.g.EdgeWeight(topic.Label, graph.SentimentNegative)
		if e.dominates(pos, neg) || e.dominates(neg, pos) {
			continue
		}

		evidence := append(
			e.evidence(topic.Label, graph.SentimentNegative),
			e.evidence(topic.Label, graph.SentimentPositive)...,
		)
		if len(evidence) > graph.MaxEvidenceQuotes {
			evidence = evidence[:graph.MaxEvidenceQuotes]
		}

		findings = append(findings, Insight{
			Type:     TypeBattleground,
			Topic:    topic.Label,
			Score:    float64(brandWeight+compWeight) * e.centralityOrOne(topic.Label),
			Evidence: evidence,
			Context:  fmt.Sprintf("%s is contested with no clear sentiment winner", topic.Label),
		})
	}

	return top(findings, e.cfg.TopBattlegrounds)
}

// Strongholds finds topics where the named actor's positive sentiment
// strongly exceeds the negative: areas the actor reliably wins.
func (e *Extractor) Strongholds(actor string) []Insight {
	findings := make([]Insight, 0)

	for _, attr := range e.g.GetOutgoing(actor, graph.EdgeHasAttribute) {
		topic := attr.Target

		pos := e.g.EdgeWeight(topic, graph.SentimentPositive)
		neg := e.g.EdgeWeight(topic, graph.SentimentNegative)
		if pos == 0 || float64(pos) < e.cfg.StrongholdRatio*float64(maxInt(neg, 1)) {
			continue
		}

		findings = append(findings, Insight{
			Type:     TypeStronghold,
			Topic:    topic,
			Subject:  actor,
			Score:    float64(pos) * e.centralityOrOne(topic),
			Evidence: e.evidence(topic, graph.SentimentPositive),
			Context:  fmt.Sprintf("%s is strong at %s", actor, topic),
		})
	}

	return top(findings, e.cfg.TopStrongholds)
}

// Snapshot aggregates every insight query into the persisted summary:
// opportunity gaps across all competitors, battlegrounds, strongholds
// for the brand and each competitor, and the per-topic quadrant data.
func (e *Extractor) Snapshot() *Snapshot {
	snap := &Snapshot{
		OpportunityGaps:     make([]Insight, 0),
		Battlegrounds:       e.Battlegrounds(),
		Strongholds:         make([]Insight, 0),
		KeywordQuadrantData: make([]KeywordQuadrant, 0),
	}

	for _, actor := range e.actors(graph.NodeBrand) {
		snap.Strongholds = append(snap.Strongholds, e.Strongholds(actor)...)
	}
	for _, competitor := range e.actors(graph.NodeCompetitor) {
		snap.OpportunityGaps = append(snap.OpportunityGaps, e.OpportunityGaps(competitor)...)
		snap.Strongholds = append(snap.Strongholds, e.Strongholds(competitor)...)
	}
	sortInsights(snap.OpportunityGaps)
	sortInsights(snap.Strongholds)

	topics := e.g.GetNodesByType(graph.NodeTopic)
	sort.Slice(topics, func(i, j int) bool { return topics[i].Label < topics[j].Label })
	for _, topic := range topics {
		brandWeight, compWeight := e.attributeWeights(topic.Label)
		pos := e.g.EdgeWeight(topic.Label, graph.SentimentPositive)
		neg := e.g.EdgeWeight(topic.Label, graph.SentimentNegative)

		snap.KeywordQuadrantData = append(snap.KeywordQuadrantData, KeywordQuadrant{
			Topic:            topic.Label,
			BrandWeight:      brandWeight,
			CompetitorWeight: compWeight,
			NetSentiment:     pos - neg,
			Centrality:       topic.CentralityScore,
			CommunityID:      topic.CommunityID,
		})
	}

	return snap
}

// centralityOrOne returns the topic's centrality score, defaulting to
// 1 when unset so it never zeroes out an edge-weight signal.
func (e *Extractor) centralityOrOne(label string) float64 {
	node := e.g.GetNode(label)
	if node == nil || node.CentralityScore == 0 {
		return 1
	}
	return node.CentralityScore
}

// evidence returns the quotes on the topic's edge to the given
// sentiment, or an empty list when the edge is absent.
func (e *Extractor) evidence(topic, sentiment string) []string {
	edge := e.g.GetEdge(topic, sentiment)
	if edge == nil || len(edge.EvidenceQuotes) == 0 {
		return make([]string, 0)
	}
	return append([]string(nil), edge.EvidenceQuotes...)
}

// attributeWeights sums the attribute-edge weights into a topic from
// the brand side (brand and product nodes) and from competitors.
func (e *Extractor) attributeWeights(topic string) (brandWeight, compWeight int) {
	for _, edge := range e.g.GetIncoming(topic, graph.EdgeHasAttribute) {
		source := e.g.GetNode(edge.Source)
		if source == nil {
			continue
		}
		switch source.Type {
		case graph.NodeBrand, graph.NodeProduct:
			brandWeight += edge.Weight
		case graph.NodeCompetitor:
			compWeight += edge.Weight
		}
	}
	return brandWeight, compWeight
}

// dominates reports whether sentiment weight a dominates b.
func (e *Extractor) dominates(a, b int) bool {
	return a > 0 && float64(a) >= e.cfg.DominanceRatio*float64(maxInt(b, 1))
}

// actors returns the sorted labels of all nodes of the given type.
func (e *Extractor) actors(t graph.NodeType) []string {
	nodes := e.g.GetNodesByType(t)
	labels := make([]string, 0, len(nodes))
	for _, node := range nodes {
		labels = append(labels, node.Label)
	}
	sort.Strings(labels)
	return labels
}

// top sorts findings by descending score (ties broken by topic label
// for stable output) and truncates to n.
func top(findings []Insight, n int) []Insight {
	sortInsights(findings)
	if n > 0 && len(findings) > n {
		findings = findings[:n]
	}
	return findings
}

func sortInsights(findings []Insight) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Score != findings[j].Score {
			return findings[i].Score > findings[j].Score
		}
		if findings[i].Topic != findings[j].Topic {
			return findings[i].Topic < findings[j].Topic
		}
		return findings[i].Subject < findings[j].Subject
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
