package insights

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens-go/internal/graph"
)

// gapGraph builds Beta -> pricing -> NEGATIVE with known weights.
func gapGraph() *graph.KnowledgeGraph {
	g := graph.NewKnowledgeGraph()
	g.EnsureNode("Acme", graph.NodeBrand)
	g.EnsureNode("Beta", graph.NodeCompetitor)
	g.EnsureNode("pricing", graph.NodeTopic)
	g.EnsureNode(graph.SentimentNegative, graph.NodeSentiment)
	g.EnsureNode(graph.SentimentPositive, graph.NodeSentiment)

	g.EnsureEdge("Beta", "pricing", graph.EdgeHasAttribute, 1, nil)
	g.EnsureEdge("Beta", "pricing", graph.EdgeHasAttribute, 2, nil)

	g.EnsureEdge("pricing", graph.SentimentNegative, graph.EdgeLeadsTo, 1, []string{"pricing gripes"})
	g.EnsureEdge("pricing", graph.SentimentNegative, graph.EdgeLeadsTo, 2, nil)
	g.EnsureEdge("pricing", graph.SentimentNegative, graph.EdgeLeadsTo, 3, nil)
	return g
}

func TestOpportunityGaps(t *testing.T) {
	t.Parallel()

	t.Run("ScoresWeightTimesCentrality", func(t *testing.T) {
		g := gapGraph()
		g.SetCentrality("pricing", 1.0)

		findings := NewExtractor(g).OpportunityGaps("Beta")

		require.Len(t, findings, 1)
		assert.Equal(t, TypeOpportunityGap, findings[0].Type)
		assert.Equal(t, "pricing", findings[0].Topic)
		assert.Equal(t, "Beta", findings[0].Subject)
		assert.Equal(t, 3.0, findings[0].Score)
		assert.Equal(t, []string{"pricing gripes"}, findings[0].Evidence)
		assert.Equal(t, "Beta is failing at pricing", findings[0].Context)
	})

	t.Run("UnsetCentralityDefaultsToOne", func(t *testing.T) {
		g := gapGraph()

		findings := NewExtractor(g).OpportunityGaps("Beta")

		require.Len(t, findings, 1)
		assert.Equal(t, 3.0, findings[0].Score)
	})

	t.Run("CentralityScalesScore", func(t *testing.T) {
		g := gapGraph()
		g.SetCentrality("pricing", 0.5)

		findings := NewExtractor(g).OpportunityGaps("Beta")

		require.Len(t, findings, 1)
		assert.Equal(t, 1.5, findings[0].Score)
	})

	t.Run("NoNegativeEdgeNoFinding", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()
		g.EnsureNode("Beta", graph.NodeCompetitor)
		g.EnsureNode("uptime", graph.NodeTopic)
		g.EnsureEdge("Beta", "uptime", graph.EdgeHasAttribute, 1, nil)

		assert.Empty(t, NewExtractor(g).OpportunityGaps("Beta"))
	})

	t.Run("UnknownCompetitorEmpty", func(t *testing.T) {
		g := gapGraph()

		findings := NewExtractor(g).OpportunityGaps("Nobody")

		assert.NotNil(t, findings)
		assert.Empty(t, findings)
	})

	t.Run("TopThreeByScore", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()
		g.EnsureNode("Beta", graph.NodeCompetitor)
		g.EnsureNode(graph.SentimentNegative, graph.NodeSentiment)

		topics := []string{"alpha", "bravo", "charlie", "delta"}
		for i, topic := range topics {
			g.EnsureNode(topic, graph.NodeTopic)
			g.EnsureEdge("Beta", topic, graph.EdgeHasAttribute, 1, nil)
			for w := 0; w <= i; w++ {
				g.EnsureEdge(topic, graph.SentimentNegative, graph.EdgeLeadsTo, 1, nil)
			}
		}

		findings := NewExtractor(g).OpportunityGaps("Beta")

		require.Len(t, findings, 3)
		assert.Equal(t, "delta", findings[0].Topic)
		assert.Equal(t, "charlie", findings[1].Topic)
		assert.Equal(t, "bravo", findings[2].Topic)
	})
}

func TestBattlegrounds(t *testing.T) {
	t.Parallel()

	// contested builds a topic both sides claim with balanced sentiment.
	contested := func() *graph.KnowledgeGraph {
		g := graph.NewKnowledgeGraph()
		g.EnsureNode("Acme", graph.NodeBrand)
		g.EnsureNode("Beta", graph.NodeCompetitor)
		g.EnsureNode("support", graph.NodeTopic)
		g.EnsureNode(graph.SentimentPositive, graph.NodeSentiment)
		g.EnsureNode(graph.SentimentNegative, graph.NodeSentiment)

		for i := 0; i < 2; i++ {
			g.EnsureEdge("Acme", "support", graph.EdgeHasAttribute, 1, nil)
			g.EnsureEdge("Beta", "support", graph.EdgeHasAttribute, 1, nil)
		}
		g.EnsureEdge("support", graph.SentimentPositive, graph.EdgeLeadsTo, 1, []string{"support praise"})
		g.EnsureEdge("support", graph.SentimentNegative, graph.EdgeLeadsTo, 1, []string{"support gripe"})
		return g
	}

	t.Run("BalancedContestedTopic", func(t *testing.T) {
		g := contested()

		findings := NewExtractor(g).Battlegrounds()

		require.Len(t, findings, 1)
		assert.Equal(t, TypeBattleground, findings[0].Type)
		assert.Equal(t, "support", findings[0].Topic)
		assert.Empty(t, findings[0].Subject)
		assert.Equal(t, 4.0, findings[0].Score)
		assert.ElementsMatch(t, []string{"support praise", "support gripe"}, findings[0].Evidence)
	})

	t.Run("DominatedTopicExcluded", func(t *testing.T) {
		g := contested()
		// Tip the balance: POSITIVE now dominates 2:1.
		g.EnsureEdge("support", graph.SentimentPositive, graph.EdgeLeadsTo, 2, nil)

		assert.Empty(t, NewExtractor(g).Battlegrounds())
	})

	t.Run("WeakAttributeEdgesExcluded", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()
		g.EnsureNode("Acme", graph.NodeBrand)
		g.EnsureNode("Beta", graph.NodeCompetitor)
		g.EnsureNode("support", graph.NodeTopic)
		g.EnsureEdge("Acme", "support", graph.EdgeHasAttribute, 1, nil)
		g.EnsureEdge("Beta", "support", graph.EdgeHasAttribute, 1, nil)

		assert.Empty(t, NewExtractor(g).Battlegrounds())
	})

	t.Run("ProductWeightCountsAsBrandSide", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()
		g.EnsureNode("Acme", graph.NodeBrand)
		g.EnsureNode("Acme Cloud", graph.NodeProduct)
		g.EnsureNode("Beta", graph.NodeCompetitor)
		g.EnsureNode("support", graph.NodeTopic)
		g.EnsureNode(graph.SentimentPositive, graph.NodeSentiment)
		g.EnsureNode(graph.SentimentNegative, graph.NodeSentiment)

		for i := 0; i < 2; i++ {
			g.EnsureEdge("Acme Cloud", "support", graph.EdgeHasAttribute, 1, nil)
			g.EnsureEdge("Beta", "support", graph.EdgeHasAttribute, 1, nil)
		}
		g.EnsureEdge("support", graph.SentimentPositive, graph.EdgeLeadsTo, 1, nil)
		g.EnsureEdge("support", graph.SentimentNegative, graph.EdgeLeadsTo, 1, nil)

		findings := NewExtractor(g).Battlegrounds()

		require.Len(t, findings, 1)
	})
}

func TestStrongholds(t *testing.T) {
	t.Parallel()

	strongholdGraph := func(pos, neg int) *graph.KnowledgeGraph {
		g := graph.NewKnowledgeGraph()
		g.EnsureNode("Acme", graph.NodeBrand)
		g.EnsureNode("uptime", graph.NodeTopic)
		g.EnsureNode(graph.SentimentPositive, graph.NodeSentiment)
		g.EnsureNode(graph.SentimentNegative, graph.NodeSentiment)
		g.EnsureEdge("Acme", "uptime", graph.EdgeHasAttribute, 1, nil)
		for i := 0; i < pos; i++ {
			g.EnsureEdge("uptime", graph.SentimentPositive, graph.EdgeLeadsTo, 1, []string{"uptime praise"})
		}
		for i := 0; i < neg; i++ {
			g.EnsureEdge("uptime", graph.SentimentNegative, graph.EdgeLeadsTo, 1, nil)
		}
		return g
	}

	t.Run("StrongPositiveWins", func(t *testing.T) {
		g := strongholdGraph(4, 1)

		findings := NewExtractor(g).Strongholds("Acme")

		require.Len(t, findings, 1)
		assert.Equal(t, TypeStronghold, findings[0].Type)
		assert.Equal(t, "uptime", findings[0].Topic)
		assert.Equal(t, "Acme", findings[0].Subject)
		assert.Equal(t, 4.0, findings[0].Score)
		assert.Equal(t, "Acme is strong at uptime", findings[0].Context)
	})

	t.Run("RatioBoundary", func(t *testing.T) {
		// pos == 2*neg passes, pos just below fails.
		assert.Len(t, NewExtractor(strongholdGraph(4, 2)).Strongholds("Acme"), 1)
		assert.Empty(t, NewExtractor(strongholdGraph(3, 2)).Strongholds("Acme"))
	})

	t.Run("NoNegativeUsesFloorOfOne", func(t *testing.T) {
		// With no NEGATIVE edge the comparison floor is 1, so pos
		// needs to reach the ratio against 1.
		assert.Len(t, NewExtractor(strongholdGraph(2, 0)).Strongholds("Acme"), 1)
		assert.Empty(t, NewExtractor(strongholdGraph(1, 0)).Strongholds("Acme"))
	})
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("EmptyGraph", func(t *testing.T) {
		snap := NewExtractor(graph.NewKnowledgeGraph()).Snapshot()

		assert.NotNil(t, snap.OpportunityGaps)
		assert.NotNil(t, snap.Battlegrounds)
		assert.NotNil(t, snap.Strongholds)
		assert.NotNil(t, snap.KeywordQuadrantData)
		assert.Empty(t, snap.OpportunityGaps)
	})

	t.Run("AggregatesAllActors", func(t *testing.T) {
		g := gapGraph()
		g.EnsureNode("uptime", graph.NodeTopic)
		g.EnsureEdge("Acme", "uptime", graph.EdgeHasAttribute, 1, nil)
		g.EnsureEdge("uptime", graph.SentimentPositive, graph.EdgeLeadsTo, 1, nil)
		g.EnsureEdge("uptime", graph.SentimentPositive, graph.EdgeLeadsTo, 2, nil)

		snap := NewExtractor(g).Snapshot()

		require.Len(t, snap.OpportunityGaps, 1)
		assert.Equal(t, "Beta", snap.OpportunityGaps[0].Subject)

		require.Len(t, snap.Strongholds, 1)
		assert.Equal(t, "Acme", snap.Strongholds[0].Subject)
		assert.Equal(t, "uptime", snap.Strongholds[0].Topic)

		require.Len(t, snap.KeywordQuadrantData, 2)
		assert.Equal(t, "pricing", snap.KeywordQuadrantData[0].Topic)
		assert.Equal(t, "uptime", snap.KeywordQuadrantData[1].Topic)
		assert.Equal(t, -3, snap.KeywordQuadrantData[0].NetSentiment)
		assert.Equal(t, 2, snap.KeywordQuadrantData[1].NetSentiment)
		assert.Equal(t, 2, snap.KeywordQuadrantData[0].CompetitorWeight)
		assert.Equal(t, 1, snap.KeywordQuadrantData[1].BrandWeight)
	})

	t.Run("JSONFieldNames", func(t *testing.T) {
		snap := NewExtractor(graph.NewKnowledgeGraph()).Snapshot()

		data, err := json.Marshal(snap)
		require.NoError(t, err)

		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Contains(t, decoded, "opportunityGaps")
		assert.Contains(t, decoded, "battlegrounds")
		assert.Contains(t, decoded, "strongholds")
		assert.Contains(t, decoded, "keywordQuadrantData")
	})
}

func TestSortInsights(t *testing.T) {
	t.Parallel()

	findings := []Insight{
		{Topic: "b", Score: 1},
		{Topic: "a", Score: 2},
		{Topic: "a", Score: 1, Subject: "y"},
		{Topic: "a", Score: 1, Subject: "x"},
	}
	sortInsights(findings)

	assert.Equal(t, "a", findings[0].Topic)
	assert.Equal(t, 2.0, findings[0].Score)
	assert.Equal(t, "x", findings[1].Subject)
	assert.Equal(t, "y", findings[2].Subject)
	assert.Equal(t, "b", findings[3].Topic)
}
