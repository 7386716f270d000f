package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend is an in-memory implementation of SnapshotStore for
// testing and for the MCP server's ephemeral mode.
type MemoryBackend struct {
	mu          sync.RWMutex
	snapshots   map[string]*StoredSnapshot
	initialized bool
}

// NewMemoryBackend creates a new in-memory snapshot store.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		snapshots: make(map[string]*StoredSnapshot),
	}
}

// Initialize implements SnapshotStore.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = true
	return nil
}

// Close implements SnapshotStore.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = nil
	m.initialized = false
	return nil
}

// SaveSnapshot implements SnapshotStore.
func (m *MemoryBackend) SaveSnapshot(ctx context.Context, snap *StoredSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if snap == nil || snap.Brand == "" {
		return nil
	}
	m.snapshots[snap.Brand] = snap
	return nil
}

// GetLatest implements SnapshotStore.
func (m *MemoryBackend) GetLatest(ctx context.Context, brand string) (*StoredSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshots[brand], nil
}

// ListBrands implements SnapshotStore.
func (m *MemoryBackend) ListBrands(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	brands := make([]string, 0, len(m.snapshots))
	for brand := range m.snapshots {
		brands = append(brands, brand)
	}
	sort.Strings(brands)
	return brands, nil
}

// DeleteBrand implements SnapshotStore.
func (m *MemoryBackend) DeleteBrand(ctx context.Context, brand string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.snapshots[brand]
	if !ok {
		return 0, nil
	}

	quotes := 0
	for _, list := range insightLists(snap) {
		for _, finding := range list {
			quotes += len(finding.Evidence)
		}
	}
	delete(m.snapshots, brand)
	return quotes, nil
}

// SearchEvidence implements SnapshotStore with a linear scan over all
// stored quotes.
func (m *MemoryBackend) SearchEvidence(ctx context.Context, query string, limit int) ([]EvidenceResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	var results []EvidenceResult
	for brand, snap := range m.snapshots {
		for _, list := range insightLists(snap) {
			for _, finding := range list {
				for _, quote := range finding.Evidence {
					score := matchScore(quote+" "+finding.Topic, tokens)
					if score == 0 {
						continue
					}
					results = append(results, EvidenceResult{
						Brand:       brand,
						Topic:       finding.Topic,
						InsightType: finding.Type,
						Quote:       quote,
						Score:       score,
					})
				}
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Brand != results[j].Brand {
			return results[i].Brand < results[j].Brand
		}
		return results[i].Quote < results[j].Quote
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// BrandCount implements SnapshotStore.
func (m *MemoryBackend) BrandCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}

// IsInitialized returns true if the backend has been initialized.
func (m *MemoryBackend) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// matchScore counts query token occurrences in the given text.
func matchScore(text string, tokens []string) float64 {
	freq := make(map[string]int)
	for _, word := range tokenize(strings.ToLower(text)) {
		freq[word]++
	}
	score := 0.0
	for _, token := range tokens {
		score += float64(freq[token])
	}
	return score
}
