package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKnowledgeGraph(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()

	assert.NotNil(t, g)
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestKnowledgeGraph_EnsureNode(t *testing.T) {
	t.Parallel()

	t.Run("CreatesNode", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()

		g.EnsureNode("Acme", NodeBrand)

		assert.Equal(t, 1, g.NodeCount())
		node := g.GetNode("Acme")
		assert.NotNil(t, node)
		assert.Equal(t, NodeBrand, node.Type)
	})

	t.Run("EmptyLabelIsNoOp", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()

		g.EnsureNode("", NodeTopic)

		assert.Equal(t, 0, g.NodeCount())
	})

	t.Run("DoesNotOverwriteExisting", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()

		g.EnsureNode("pricing", NodeTopic)
		g.SetCentrality("pricing", 0.42)
		g.EnsureNode("pricing", NodeCompetitor)

		node := g.GetNode("pricing")
		assert.Equal(t, NodeTopic, node.Type)
		assert.Equal(t, 0.42, node.CentralityScore)
		assert.Equal(t, 1, g.NodeCount())
	})

	t.Run("TypeIndex", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()

		g.EnsureNode("Acme", NodeBrand)
		g.EnsureNode("pricing", NodeTopic)
		g.EnsureNode("support", NodeTopic)

		assert.Equal(t, 2, g.CountNodesByType(NodeTopic))
		assert.Equal(t, 1, g.CountNodesByType(NodeBrand))
		assert.Len(t, g.GetNodesByType(NodeTopic), 2)
		assert.Empty(t, g.GetNodesByType(NodeSentiment))
	})
}

func TestKnowledgeGraph_EnsureEdge(t *testing.T) {
	t.Parallel()

	// seeded returns a graph with a brand, a topic, and the sentiment nodes.
	seeded := func() *KnowledgeGraph {
		g := NewKnowledgeGraph()
		g.EnsureNode("Acme", NodeBrand)
		g.EnsureNode("pricing", NodeTopic)
		for _, label := range SentimentLabels() {
			g.EnsureNode(label, NodeSentiment)
		}
		return g
	}

	t.Run("CreatesEdge", func(t *testing.T) {
		t.Parallel()
		g := seeded()

		g.EnsureEdge("Acme", "pricing", EdgeHasAttribute, 7, nil)

		edge := g.GetEdge("Acme", "pricing")
		assert.NotNil(t, edge)
		assert.Equal(t, EdgeHasAttribute, edge.Type)
		assert.Equal(t, 1, edge.Weight)
		assert.Empty(t, edge.EvidenceQuotes)
		assert.Equal(t, int64(7), edge.SourceID)
	})

	t.Run("MonotonicWeight", func(t *testing.T) {
		t.Parallel()
		g := seeded()

		for i := 0; i < 5; i++ {
			g.EnsureEdge("Acme", "pricing", EdgeHasAttribute, int64(i), nil)
		}

		assert.Equal(t, 5, g.EdgeWeight("Acme", "pricing"))
		assert.Equal(t, 1, g.EdgeCount())
	})

	t.Run("SourceIDNotUpdatedOnIncrement", func(t *testing.T) {
		t.Parallel()
		g := seeded()

		g.EnsureEdge("Acme", "pricing", EdgeHasAttribute, 1, nil)
		g.EnsureEdge("Acme", "pricing", EdgeHasAttribute, 2, nil)

		assert.Equal(t, int64(1), g.GetEdge("Acme", "pricing").SourceID)
	})

	t.Run("EvidenceCap", func(t *testing.T) {
		t.Parallel()
		g := seeded()

		for i := 0; i < 4; i++ {
			quotes := []string{
				fmt.Sprintf("quote-%d-a", i),
				fmt.Sprintf("quote-%d-b", i),
			}
			g.EnsureEdge("pricing", SentimentNegative, EdgeLeadsTo, 1, quotes)
		}

		edge := g.GetEdge("pricing", SentimentNegative)
		assert.Len(t, edge.EvidenceQuotes, MaxEvidenceQuotes)
		// The most recently appended quotes are retained.
		assert.Equal(t, []string{
			"quote-1-b", "quote-2-a", "quote-2-b", "quote-3-a", "quote-3-b",
		}, edge.EvidenceQuotes)
	})

	t.Run("EmptyQuotesLeaveEvidenceUnchanged", func(t *testing.T) {
		t.Parallel()
		g := seeded()

		g.EnsureEdge("pricing", SentimentNegative, EdgeLeadsTo, 1, []string{"too expensive"})
		g.EnsureEdge("pricing", SentimentNegative, EdgeLeadsTo, 2, nil)

		edge := g.GetEdge("pricing", SentimentNegative)
		assert.Equal(t, 2, edge.Weight)
		assert.Equal(t, []string{"too expensive"}, edge.EvidenceQuotes)
	})

	t.Run("MissingEndpointIsNoOp", func(t *testing.T) {
		t.Parallel()
		g := seeded()

		g.EnsureEdge("Acme", "nonexistent", EdgeHasAttribute, 1, nil)
		g.EnsureEdge("nonexistent", "pricing", EdgeHasAttribute, 1, nil)

		assert.Equal(t, 0, g.EdgeCount())
	})

	t.Run("SelfLoopIsNoOp", func(t *testing.T) {
		t.Parallel()
		g := seeded()

		g.EnsureEdge("pricing", "pricing", EdgeHasAttribute, 1, nil)

		assert.Equal(t, 0, g.EdgeCount())
	})

	t.Run("InvalidTypeCombinationIsNoOp", func(t *testing.T) {
		t.Parallel()
		g := seeded()

		// Sentiment nodes never source edges.
		g.EnsureEdge(SentimentNegative, "pricing", EdgeLeadsTo, 1, nil)
		// Topics do not mention products.
		g.EnsureEdge("pricing", "Acme", EdgeMentionedWith, 1, nil)

		assert.Equal(t, 0, g.EdgeCount())
	})
}

func TestKnowledgeGraph_Adjacency(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()
	g.EnsureNode("Acme", NodeBrand)
	g.EnsureNode("Beta", NodeCompetitor)
	g.EnsureNode("pricing", NodeTopic)
	g.EnsureNode("support", NodeTopic)
	for _, label := range SentimentLabels() {
		g.EnsureNode(label, NodeSentiment)
	}

	g.EnsureEdge("Acme", "pricing", EdgeHasAttribute, 1, nil)
	g.EnsureEdge("Acme", "support", EdgeHasAttribute, 1, nil)
	g.EnsureEdge("Beta", "pricing", EdgeHasAttribute, 1, nil)
	g.EnsureEdge("pricing", SentimentNegative, EdgeLeadsTo, 1, nil)

	assert.Len(t, g.GetOutgoing("Acme"), 2)
	assert.Len(t, g.GetOutgoing("Acme", EdgeHasAttribute), 2)
	assert.Empty(t, g.GetOutgoing("Acme", EdgeLeadsTo))
	assert.Len(t, g.GetIncoming("pricing"), 2)
	assert.Len(t, g.GetIncoming(SentimentNegative, EdgeLeadsTo), 1)
	assert.Nil(t, g.GetIncoming("unknown"))

	assert.Len(t, g.GetEdgesByType(EdgeHasAttribute), 3)
	assert.Len(t, g.GetEdgesByType(EdgeLeadsTo), 1)

	assert.Equal(t, 0, g.EdgeWeight("pricing", SentimentPositive))
}

func TestKnowledgeGraph_Annotations(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()
	g.EnsureNode("pricing", NodeTopic)

	g.SetCentrality("pricing", 0.25)
	g.SetCommunity("pricing", 3)
	// Unknown labels are ignored.
	g.SetCentrality("unknown", 1.0)
	g.SetCommunity("unknown", 1)

	node := g.GetNode("pricing")
	assert.Equal(t, 0.25, node.CentralityScore)
	assert.True(t, node.HasCommunity)
	assert.Equal(t, 3, node.CommunityID)
	assert.Nil(t, g.GetNode("unknown"))
}

func TestKnowledgeGraph_Iteration(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()
	g.EnsureNode("Acme", NodeBrand)
	g.EnsureNode("pricing", NodeTopic)
	g.EnsureEdge("Acme", "pricing", EdgeHasAttribute, 1, nil)

	nodes := 0
	for range g.IterNodes() {
		nodes++
	}
	edges := 0
	for range g.IterEdges() {
		edges++
	}

	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edges)
	assert.Equal(t, map[string]int{"nodes": 2, "edges": 1}, g.Stats())
}
