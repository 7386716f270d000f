// Package storage provides snapshot persistence for Brandlens.
//
// It defines the SnapshotStore protocol that all storage
// implementations must satisfy, along with common types used across
// backends. Only derived insight snapshots are persisted; the live
// graph is rebuilt from records on every run and never stored.
package storage

import (
	"context"
	"time"

	"github.com/brandlens/brandlens-go/internal/insights"
)

// StoredSnapshot wraps a brand's insight snapshot with run metadata.
type StoredSnapshot struct {
	// Brand is the analyzed brand name.
	Brand string `json:"brand"`

	// CreatedAt is when the analysis run completed.
	CreatedAt time.Time `json:"created_at"`

	// RecordCount is the number of records the run ingested.
	RecordCount int `json:"record_count"`

	// Snapshot is the derived insight summary.
	Snapshot insights.Snapshot `json:"snapshot"`
}

// EvidenceResult is one evidence-quote match from a search.
type EvidenceResult struct {
	// Brand is the brand whose snapshot holds the quote.
	Brand string

	// Topic is the topic the quote substantiates.
	Topic string

	// InsightType is the kind of finding the quote backs.
	InsightType string

	// Quote is the verbatim evidence text.
	Quote string

	// Score is the relevance score (higher is better).
	Score float64
}

// SnapshotStore defines the interface for snapshot storage
// implementations.
//
// Implementations must be thread-safe and support concurrent access.
type SnapshotStore interface {
	// Initialize opens or creates the store at the given path.
	// If readOnly is true, the store is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the store.
	Close() error

	// SaveSnapshot persists a brand's snapshot, replacing any earlier
	// snapshot for the same brand.
	SaveSnapshot(ctx context.Context, snap *StoredSnapshot) error

	// GetLatest returns the stored snapshot for a brand, or nil if
	// the brand has never been analyzed.
	GetLatest(ctx context.Context, brand string) (*StoredSnapshot, error)

	// ListBrands returns the brands with a stored snapshot, sorted.
	ListBrands(ctx context.Context) ([]string, error)

	// DeleteBrand removes a brand's snapshot and indexed evidence.
	// Returns the number of evidence quotes removed.
	DeleteBrand(ctx context.Context, brand string) (int, error)

	// SearchEvidence ranks stored evidence quotes against a query.
	SearchEvidence(ctx context.Context, query string, limit int) ([]EvidenceResult, error)

	// BrandCount returns the number of stored snapshots.
	BrandCount() int
}

// insightLists returns the three insight lists of a stored snapshot
// in their canonical order.
func insightLists(snap *StoredSnapshot) [][]insights.Insight {
	return [][]insights.Insight{
		snap.Snapshot.OpportunityGaps,
		snap.Snapshot.Battlegrounds,
		snap.Snapshot.Strongholds,
	}
}
