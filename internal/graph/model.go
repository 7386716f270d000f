// Package graph provides the competitive knowledge graph for Brandlens.
//
// It defines the core node and edge types that represent market-level
// entities (brands, products, competitors, topics, sentiment) and the
// weighted relations between them (has_attribute, leads_to, etc.).
package graph

// NodeType represents the type of a graph node.
type NodeType string

const (
	NodeBrand      NodeType = "brand"
	NodeProduct    NodeType = "product"
	NodeCompetitor NodeType = "competitor"
	NodeTopic      NodeType = "topic"
	NodeSentiment  NodeType = "sentiment"
)

// EdgeType represents the type of relation between graph nodes.
type EdgeType string

const (
	// EdgeHasAttribute links a brand, product, or competitor to a topic.
	EdgeHasAttribute EdgeType = "has_attribute"

	// EdgeCompetesWith is reserved for direct brand-competitor relations.
	EdgeCompetesWith EdgeType = "competes_with"

	// EdgeLeadsTo links a topic to a sentiment outcome.
	EdgeLeadsTo EdgeType = "leads_to"

	// EdgeMentionedWith links a brand to one of its products.
	EdgeMentionedWith EdgeType = "mentioned_with"
)

// Sentiment node labels. These three nodes are pre-seeded into every
// graph and exist even if no edge references them.
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentMixed    = "MIXED"
)

// SentimentLabels returns the fixed set of sentiment node labels.
func SentimentLabels() []string {
	return []string{SentimentPositive, SentimentNegative, SentimentMixed}
}

// IsSentimentLabel reports whether label is one of the three fixed
// sentiment labels.
func IsSentimentLabel(label string) bool {
	return label == SentimentPositive || label == SentimentNegative || label == SentimentMixed
}

// MaxEvidenceQuotes caps the evidence retained per edge. New quotes
// displace the oldest ones.
const MaxEvidenceQuotes = 5

// Node represents an entity in the knowledge graph.
type Node struct {
	// Label is the entity's unique key. It doubles as node identity:
	// no two nodes share a label.
	Label string

	// Type is the node type.
	Type NodeType

	// CentralityScore is the PageRank score, set by the annotation pass.
	CentralityScore float64

	// CommunityID is the community assignment, set by community detection.
	// Only meaningful when HasCommunity is true.
	CommunityID int

	// HasCommunity indicates whether community detection has run.
	HasCommunity bool
}

// Edge represents a directed, weighted relation between two distinct nodes.
type Edge struct {
	// Type is the relation type.
	Type EdgeType

	// Source is the label of the source node.
	Source string

	// Target is the label of the target node.
	Target string

	// Weight counts co-occurrences of the (source, target) pair.
	Weight int

	// EvidenceQuotes holds up to MaxEvidenceQuotes verbatim snippets
	// substantiating the relation, most recent last.
	EvidenceQuotes []string

	// SourceID identifies the analysis record that first created the
	// edge. It is not updated on later increments.
	SourceID int64
}

// allowedEdges maps each edge type to the node type pairs it may connect.
var allowedEdges = map[EdgeType]map[NodeType]map[NodeType]bool{
	EdgeHasAttribute: {
		NodeBrand:      {NodeTopic: true},
		NodeProduct:    {NodeTopic: true},
		NodeCompetitor: {NodeTopic: true},
	},
	EdgeCompetesWith: {
		NodeBrand:      {NodeCompetitor: true},
		NodeCompetitor: {NodeBrand: true, NodeCompetitor: true},
	},
	EdgeLeadsTo: {
		NodeTopic: {NodeSentiment: true},
	},
	EdgeMentionedWith: {
		NodeBrand: {NodeProduct: true},
	},
}

// edgeAllowed reports whether an edge of the given type may connect the
// given source and target node types.
func edgeAllowed(t EdgeType, source, target NodeType) bool {
	targets, ok := allowedEdges[t]
	if !ok {
		return false
	}
	return targets[source][target]
}
