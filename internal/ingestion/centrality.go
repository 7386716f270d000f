package ingestion

import (
	"math"

	"github.com/brandlens/brandlens-go/internal/graph"
)

// PageRank configuration constants. Fixed values keep runs over the
// same graph reproducible.
const (
	// DefaultDampingFactor is the probability of following an edge
	// (vs a random jump). Standard value from the PageRank paper.
	DefaultDampingFactor = 0.85

	// DefaultMaxIterations bounds the power iteration so the pass
	// never hangs on a non-converging graph.
	DefaultMaxIterations = 100

	// DefaultConvergence is the residual tolerance: iteration stops
	// when the largest per-node score change drops below it.
	DefaultConvergence = 1e-6
)

// CentralityOptions configures the PageRank pass.
type CentralityOptions struct {
	// DampingFactor must be in [0, 1]. Default: 0.85.
	DampingFactor float64

	// MaxIterations must be > 0. Default: 100.
	MaxIterations int

	// Convergence must be > 0. Default: 1e-6.
	Convergence float64
}

// Validate applies defaults for out-of-range values.
func (o *CentralityOptions) Validate() {
	if o.DampingFactor < 0 || o.DampingFactor > 1 {
		o.DampingFactor = DefaultDampingFactor
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Convergence <= 0 {
		o.Convergence = DefaultConvergence
	}
}

// DefaultCentralityOptions returns the documented defaults.
func DefaultCentralityOptions() *CentralityOptions {
	return &CentralityOptions{
		DampingFactor: DefaultDampingFactor,
		MaxIterations: DefaultMaxIterations,
		Convergence:   DefaultConvergence,
	}
}

// CentralityResult contains the output of the PageRank pass.
type CentralityResult struct {
	// Scores maps node label to PageRank score. Scores sum to ~1.0.
	Scores map[string]float64

	// Iterations is the number of power iterations performed.
	Iterations int

	// Converged indicates convergence before MaxIterations.
	Converged bool

	// MaxDiff is the final largest per-node score change.
	MaxDiff float64
}

// ComputeCentrality runs weighted PageRank over the full directed
// graph using power iteration with uniform teleportation.
//
// Edge weights distribute a node's score proportionally across its
// outgoing edges. Sink nodes (no outgoing edges) redistribute their
// score evenly across all nodes so rank does not leak from the graph.
// An empty graph yields an empty, converged result.
func ComputeCentrality(g *graph.KnowledgeGraph, opts *CentralityOptions) *CentralityResult {
	if opts == nil {
		opts = DefaultCentralityOptions()
	} else {
		opts.Validate()
	}

	n := float64(g.NodeCount())
	if n == 0 {
		return &CentralityResult{
			Scores:    make(map[string]float64),
			Converged: true,
		}
	}

	// Snapshot the topology once: per-node incoming edges and total
	// outgoing weight.
	labels := make([]string, 0, int(n))
	for node := range g.IterNodes() {
		labels = append(labels, node.Label)
	}

	outWeight := make(map[string]float64, len(labels))
	incoming := make(map[string][]*graph.Edge, len(labels))
	var sinks []string
	for _, label := range labels {
		var total float64
		for _, edge := range g.GetOutgoing(label) {
			total += float64(edge.Weight)
		}
		outWeight[label] = total
		if total == 0 {
			sinks = append(sinks, label)
		}
		incoming[label] = g.GetIncoming(label)
	}

	d := opts.DampingFactor
	scores := make(map[string]float64, len(labels))
	newScores := make(map[string]float64, len(labels))
	initial := 1.0 / n
	for _, label := range labels {
		scores[label] = initial
	}

	var iterations int
	var converged bool
	var maxDiff float64

	for iter := 0; iter < opts.MaxIterations; iter++ {
		maxDiff = 0.0

		// Redistribute sink score evenly.
		sinkContribution := 0.0
		for _, sink := range sinks {
			sinkContribution += scores[sink]
		}
		sinkContribution = d * sinkContribution / n

		for _, label := range labels {
			newScore := (1-d)/n + sinkContribution

			for _, edge := range incoming[label] {
				if w := outWeight[edge.Source]; w > 0 {
					newScore += d * scores[edge.Source] * float64(edge.Weight) / w
				}
			}

			newScores[label] = newScore

			if diff := math.Abs(newScore - scores[label]); diff > maxDiff {
				maxDiff = diff
			}
		}

		// Swap maps instead of reallocating.
		scores, newScores = newScores, scores
		iterations = iter + 1

		if maxDiff < opts.Convergence {
			converged = true
			break
		}
	}

	return &CentralityResult{
		Scores:     scores,
		Iterations: iterations,
		Converged:  converged,
		MaxDiff:    maxDiff,
	}
}

// AnnotateCentrality computes PageRank and writes each node's score
// into its CentralityScore field.
func AnnotateCentrality(g *graph.KnowledgeGraph, opts *CentralityOptions) *CentralityResult {
	result := ComputeCentrality(g, opts)
	for label, score := range result.Scores {
		g.SetCentrality(label, score)
	}
	return result
}
