package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/brandlens/brandlens-go/internal/graph"
	"github.com/brandlens/brandlens-go/internal/insights"
	"github.com/brandlens/brandlens-go/internal/records"
	"github.com/brandlens/brandlens-go/internal/storage"
)

// PipelineResult summarizes a pipeline run.
type PipelineResult struct {
	Records         int
	Nodes           int
	Edges           int
	Communities     int
	OpportunityGaps int
	Battlegrounds   int
	Strongholds     int
	DurationSecs    float64
}

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// RunPipeline runs the full analysis pipeline for a brand: graph
// construction from records, centrality, community detection, insight
// extraction, and snapshot persistence. The graph itself is discarded
// after the run; only the snapshot survives.
func RunPipeline(
	ctx context.Context,
	brandName string,
	recs []records.AnalysisRecord,
	store storage.SnapshotStore,
	progress ProgressCallback,
) (*graph.KnowledgeGraph, *insights.Snapshot, *PipelineResult, error) {
	start := time.Now()
	result := &PipelineResult{Records: len(recs)}

	// Phase 1: Graph construction
	if progress != nil {
		progress("Building graph", 0.0)
	}
	g := BuildGraph(brandName, recs)
	result.Nodes = g.NodeCount()
	result.Edges = g.EdgeCount()
	if progress != nil {
		progress("Building graph", 1.0)
	}

	// Phase 2: Centrality
	if progress != nil {
		progress("Computing centrality", 0.0)
	}
	AnnotateCentrality(g, DefaultCentralityOptions())
	if progress != nil {
		progress("Computing centrality", 1.0)
	}

	// Phase 3: Community detection
	if progress != nil {
		progress("Detecting communities", 0.0)
	}
	result.Communities = DetectCommunities(g)
	if progress != nil {
		progress("Detecting communities", 1.0)
	}

	// Phase 4: Insight extraction
	if progress != nil {
		progress("Extracting insights", 0.0)
	}
	snap := insights.NewExtractor(g).Snapshot()
	result.OpportunityGaps = len(snap.OpportunityGaps)
	result.Battlegrounds = len(snap.Battlegrounds)
	result.Strongholds = len(snap.Strongholds)
	if progress != nil {
		progress("Extracting insights", 1.0)
	}

	// Phase 5: Persistence
	if store != nil {
		if progress != nil {
			progress("Saving snapshot", 0.0)
		}
		stored := &storage.StoredSnapshot{
			Brand:       brandName,
			CreatedAt:   time.Now().UTC(),
			RecordCount: len(recs),
			Snapshot:    *snap,
		}
		if err := store.SaveSnapshot(ctx, stored); err != nil {
			return nil, nil, nil, fmt.Errorf("saving snapshot: %w", err)
		}
		if progress != nil {
			progress("Saving snapshot", 1.0)
		}
	}

	result.DurationSecs = time.Since(start).Seconds()
	return g, snap, result, nil
}
