// Package graph provides the in-memory knowledge graph for Brandlens.
//
// It provides a lightweight, map-backed graph that stores Node and Edge
// instances keyed by label. Secondary indexes on node type, edge type,
// and adjacency lists ensure that queries scale with the result set
// rather than the total graph size.
//
// A graph instance belongs to a single analysis run. It is created
// empty, populated from a record batch, annotated in place, queried,
// and discarded. Concurrent runs must each own their own instance.
package graph

import (
	"sync"
)

// edgeKey identifies an edge by its ordered (source, target) pair.
// The graph is simple: at most one edge exists per pair.
type edgeKey struct {
	source string
	target string
}

// KnowledgeGraph is an in-memory directed graph of market entities
// and their weighted relations.
//
// All mutation primitives are idempotent and fail silently: malformed
// input (empty labels, missing endpoints, self-loops, invalid type
// combinations) degrades to a no-op so one bad record never aborts a
// batch.
type KnowledgeGraph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	edges map[edgeKey]*Edge

	// Secondary indexes, kept in sync by the mutation primitives.
	byType     map[NodeType]map[string]*Node
	byEdgeType map[EdgeType]map[edgeKey]*Edge
	outgoing   map[string]map[edgeKey]*Edge
	incoming   map[string]map[edgeKey]*Edge
}

// NewKnowledgeGraph creates a new empty knowledge graph.
func NewKnowledgeGraph() *KnowledgeGraph {
	return &KnowledgeGraph{
		nodes:      make(map[string]*Node),
		edges:      make(map[edgeKey]*Edge),
		byType:     make(map[NodeType]map[string]*Node),
		byEdgeType: make(map[EdgeType]map[edgeKey]*Edge),
		outgoing:   make(map[string]map[edgeKey]*Edge),
		incoming:   make(map[string]map[edgeKey]*Edge),
	}
}

// EnsureNode creates the node if absent. It never overwrites an
// existing node's type or annotations, and an empty label is a no-op.
func (g *KnowledgeGraph) EnsureNode(label string, t NodeType) {
	if label == "" {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[label]; ok {
		return
	}

	node := &Node{Label: label, Type: t}
	g.nodes[label] = node

	if g.byType[t] == nil {
		g.byType[t] = make(map[string]*Node)
	}
	g.byType[t][label] = node
}

// EnsureEdge records a co-occurrence between source and target.
//
// If either endpoint is missing, source equals target, or the edge type
// does not fit the endpoint node types, the call is a silent no-op.
// If the edge already exists its weight is incremented and any quotes
// are appended to its evidence (truncated to the most recent
// MaxEvidenceQuotes). Otherwise the edge is created with weight 1 and
// sourceID recorded as its origin.
func (g *KnowledgeGraph) EnsureEdge(source, target string, t EdgeType, sourceID int64, quotes []string) {
	if source == "" || target == "" || source == target {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	src, ok := g.nodes[source]
	if !ok {
		return
	}
	dst, ok := g.nodes[target]
	if !ok {
		return
	}
	if !edgeAllowed(t, src.Type, dst.Type) {
		return
	}

	key := edgeKey{source: source, target: target}
	if edge, ok := g.edges[key]; ok {
		edge.Weight++
		if len(quotes) > 0 {
			edge.EvidenceQuotes = capEvidence(append(edge.EvidenceQuotes, quotes...))
		}
		return
	}

	edge := &Edge{
		Type:           t,
		Source:         source,
		Target:         target,
		Weight:         1,
		EvidenceQuotes: capEvidence(append([]string(nil), quotes...)),
		SourceID:       sourceID,
	}
	g.edges[key] = edge

	if g.byEdgeType[t] == nil {
		g.byEdgeType[t] = make(map[edgeKey]*Edge)
	}
	g.byEdgeType[t][key] = edge

	if g.outgoing[source] == nil {
		g.outgoing[source] = make(map[edgeKey]*Edge)
	}
	g.outgoing[source][key] = edge

	if g.incoming[target] == nil {
		g.incoming[target] = make(map[edgeKey]*Edge)
	}
	g.incoming[target][key] = edge
}

// capEvidence truncates quotes to the most recent MaxEvidenceQuotes.
func capEvidence(quotes []string) []string {
	if len(quotes) <= MaxEvidenceQuotes {
		return quotes
	}
	return quotes[len(quotes)-MaxEvidenceQuotes:]
}

// GetNode returns the node with the given label, or nil if absent.
func (g *KnowledgeGraph) GetNode(label string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[label]
}

// GetEdge returns the edge from source to target, or nil if absent.
func (g *KnowledgeGraph) GetEdge(source, target string) *Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[edgeKey{source: source, target: target}]
}

// EdgeWeight returns the weight of the edge from source to target,
// or 0 when no such edge exists.
func (g *KnowledgeGraph) EdgeWeight(source, target string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if edge, ok := g.edges[edgeKey{source: source, target: target}]; ok {
		return edge.Weight
	}
	return 0
}

// NodeCount returns the number of nodes without list materialization.
func (g *KnowledgeGraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges without list materialization.
func (g *KnowledgeGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// CountNodesByType returns the count of nodes with the given type.
func (g *KnowledgeGraph) CountNodesByType(t NodeType) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if nodes, ok := g.byType[t]; ok {
		return len(nodes)
	}
	return 0
}

// GetNodesByType returns all nodes with the given type.
func (g *KnowledgeGraph) GetNodesByType(t NodeType) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes, ok := g.byType[t]
	if !ok {
		return nil
	}

	result := make([]*Node, 0, len(nodes))
	for _, node := range nodes {
		result = append(result, node)
	}
	return result
}

// GetEdgesByType returns all edges with the given type.
func (g *KnowledgeGraph) GetEdgesByType(t EdgeType) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges, ok := g.byEdgeType[t]
	if !ok {
		return nil
	}

	result := make([]*Edge, 0, len(edges))
	for _, edge := range edges {
		result = append(result, edge)
	}
	return result
}

// GetOutgoing returns edges originating from the given node label.
// If edgeType is provided, only edges of that type are returned.
func (g *KnowledgeGraph) GetOutgoing(label string, edgeType ...EdgeType) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges, ok := g.outgoing[label]
	if !ok {
		return nil
	}

	if len(edgeType) > 0 && edgeType[0] != "" {
		result := make([]*Edge, 0)
		for _, edge := range edges {
			if edge.Type == edgeType[0] {
				result = append(result, edge)
			}
		}
		return result
	}

	result := make([]*Edge, 0, len(edges))
	for _, edge := range edges {
		result = append(result, edge)
	}
	return result
}

// GetIncoming returns edges targeting the given node label.
// If edgeType is provided, only edges of that type are returned.
func (g *KnowledgeGraph) GetIncoming(label string, edgeType ...EdgeType) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges, ok := g.incoming[label]
	if !ok {
		return nil
	}

	if len(edgeType) > 0 && edgeType[0] != "" {
		result := make([]*Edge, 0)
		for _, edge := range edges {
			if edge.Type == edgeType[0] {
				result = append(result, edge)
			}
		}
		return result
	}

	result := make([]*Edge, 0, len(edges))
	for _, edge := range edges {
		result = append(result, edge)
	}
	return result
}

// IterNodes returns a channel that yields all nodes.
func (g *KnowledgeGraph) IterNodes() <-chan *Node {
	g.mu.RLock()
	ch := make(chan *Node, len(g.nodes))
	for _, node := range g.nodes {
		ch <- node
	}
	close(ch)
	g.mu.RUnlock()
	return ch
}

// IterEdges returns a channel that yields all edges.
func (g *KnowledgeGraph) IterEdges() <-chan *Edge {
	g.mu.RLock()
	ch := make(chan *Edge, len(g.edges))
	for _, edge := range g.edges {
		ch <- edge
	}
	close(ch)
	g.mu.RUnlock()
	return ch
}

// SetCentrality writes a centrality score onto the named node.
// Unknown labels are ignored.
func (g *KnowledgeGraph) SetCentrality(label string, score float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if node, ok := g.nodes[label]; ok {
		node.CentralityScore = score
	}
}

// SetCommunity writes a community assignment onto the named node.
// Unknown labels are ignored.
func (g *KnowledgeGraph) SetCommunity(label string, communityID int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if node, ok := g.nodes[label]; ok {
		node.CommunityID = communityID
		node.HasCommunity = true
	}
}

// Stats returns a summary of graph size.
func (g *KnowledgeGraph) Stats() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return map[string]int{
		"nodes": len(g.nodes),
		"edges": len(g.edges),
	}
}
