package ingestion

import (
	"math/rand"
	"sort"

	"github.com/brandlens/brandlens-go/internal/graph"
)

// communitySeed fixes the node-visit shuffle so the same graph always
// produces the same clusters.
const communitySeed = 42

// maxCommunityIterations bounds the local-move optimization.
const maxCommunityIterations = 100

// DetectCommunities groups graph nodes into communities using a
// Louvain-style modularity optimization and writes the assignment
// into each node's CommunityID. The graph is treated as undirected
// and edge-weighted for this purpose.
//
// Returns the number of communities detected. Community IDs are
// renumbered to be consecutive starting at 0.
func DetectCommunities(g *graph.KnowledgeGraph) int {
	matrix, indexLabel := buildAdjacencyMatrix(g)
	if len(matrix) == 0 {
		return 0
	}

	communities := assignCommunities(matrix)

	count := 0
	for nodeIdx, commID := range communities {
		g.SetCommunity(indexLabel[nodeIdx], commID)
		if commID+1 > count {
			count = commID + 1
		}
	}

	return count
}

// buildAdjacencyMatrix builds an undirected weighted adjacency matrix
// over all nodes, with a stable label ordering for determinism.
func buildAdjacencyMatrix(g *graph.KnowledgeGraph) ([][]float64, []string) {
	n := g.NodeCount()
	if n == 0 {
		return nil, nil
	}

	indexLabel := make([]string, 0, n)
	for node := range g.IterNodes() {
		indexLabel = append(indexLabel, node.Label)
	}
	sort.Strings(indexLabel)

	labelIndex := make(map[string]int, n)
	for i, label := range indexLabel {
		labelIndex[label] = i
	}

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	for edge := range g.IterEdges() {
		srcIdx, srcOk := labelIndex[edge.Source]
		tgtIdx, tgtOk := labelIndex[edge.Target]
		if srcOk && tgtOk {
			w := float64(edge.Weight)
			matrix[srcIdx][tgtIdx] += w
			matrix[tgtIdx][srcIdx] += w
		}
	}

	return matrix, indexLabel
}

// assignCommunities assigns communities to nodes by greedy modularity
// maximization. Returns a slice where index i holds the community ID
// for node i, renumbered consecutively.
func assignCommunities(adjMatrix [][]float64) []int {
	n := len(adjMatrix)
	if n == 0 {
		return []int{}
	}
	if n == 1 {
		return []int{0}
	}

	// Initialize: each node in its own community.
	communities := make([]int, n)
	for i := range communities {
		communities[i] = i
	}

	var totalWeight float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			totalWeight += adjMatrix[i][j]
		}
	}
	if totalWeight == 0 {
		return communities
	}

	degrees := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			degrees[i] += adjMatrix[i][j]
		}
	}

	// Fixed seed: same graph, same clusters.
	rng := rand.New(rand.NewSource(communitySeed))

	improved := true
	iterations := 0

	for improved && iterations < maxCommunityIterations {
		improved = false
		iterations++

		nodeOrder := rng.Perm(n)

		for _, node := range nodeOrder {
			bestComm := communities[node]
			bestGain := 0.0

			seen := make(map[int]bool)
			var neighborComms []int
			for j := 0; j < n; j++ {
				if adjMatrix[node][j] > 0 && !seen[communities[j]] {
					seen[communities[j]] = true
					neighborComms = append(neighborComms, communities[j])
				}
			}
			// Stable candidate order so ties break the same way on
			// every run.
			sort.Ints(neighborComms)

			for _, comm := range neighborComms {
				if comm == bestComm {
					continue
				}

				communities[node] = comm
				gain := modularityGain(node, comm, communities, adjMatrix, degrees, totalWeight)

				if gain > bestGain {
					bestGain = gain
					bestComm = comm
					improved = true
				}
			}

			communities[node] = bestComm
		}
	}

	// Renumber communities to be consecutive.
	renumber := make(map[int]int)
	next := 0
	for i := range communities {
		if _, exists := renumber[communities[i]]; !exists {
			renumber[communities[i]] = next
			next++
		}
		communities[i] = renumber[communities[i]]
	}

	return communities
}

// modularityGain computes the modularity gain of keeping node in comm.
func modularityGain(node, comm int, communities []int, adjMatrix [][]float64, degrees []float64, totalWeight float64) float64 {
	n := len(communities)

	// Sum of weights from node into the community.
	var sigmaIn float64
	// Sum of degrees in the community.
	var sigmaTot float64

	for j := 0; j < n; j++ {
		if communities[j] == comm && j != node {
			sigmaIn += adjMatrix[node][j]
			sigmaTot += degrees[j]
		}
	}

	sigmaTot += degrees[node]

	ki := degrees[node]
	return (sigmaIn / totalWeight) - ((ki * sigmaTot) / (totalWeight * totalWeight))
}
