package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for different data types.
const (
	prefixSnapshot = "s:"     // s:<brand> -> StoredSnapshot JSON
	prefixQuote    = "q:"     // q:<brand>:<seq> -> evidenceEntry JSON
	prefixFTSToken = "fts:t:" // fts:t:<token>:q:<brand>:<seq> -> frequency
)

// evidenceEntry is the metadata stored per indexed evidence quote.
type evidenceEntry struct {
	Brand       string `json:"brand"`
	Topic       string `json:"topic"`
	InsightType string `json:"insight_type"`
	Quote       string `json:"quote"`
}

// BadgerBackend is a BadgerDB-backed snapshot store with an inverted
// index over evidence quotes.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	mu          sync.RWMutex
}

// NewBadgerBackend creates a new BadgerDB snapshot store.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	return nil
}

// Close releases all resources held by the store.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// SaveSnapshot persists a brand's snapshot, replacing any earlier one
// along with its indexed evidence.
func (b *BadgerBackend) SaveSnapshot(ctx context.Context, snap *StoredSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if snap == nil || snap.Brand == "" {
		return fmt.Errorf("snapshot must carry a brand")
	}

	// Drop the brand's previous evidence index first.
	if _, err := b.deleteBrandLocked(snap.Brand); err != nil {
		return err
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := wb.Set([]byte(prefixSnapshot+snap.Brand), data); err != nil {
		return fmt.Errorf("setting snapshot: %w", err)
	}

	seq := 0
	for _, list := range insightLists(snap) {
		for _, finding := range list {
			for _, quote := range finding.Evidence {
				entry := evidenceEntry{
					Brand:       snap.Brand,
					Topic:       finding.Topic,
					InsightType: finding.Type,
					Quote:       quote,
				}
				if err := b.writeEvidence(wb, snap.Brand, seq, entry); err != nil {
					return err
				}
				seq++
			}
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing write batch: %w", err)
	}
	return nil
}

// writeEvidence stores one evidence entry and its token postings.
func (b *BadgerBackend) writeEvidence(wb *badger.WriteBatch, brand string, seq int, entry evidenceEntry) error {
	quoteKey := fmt.Sprintf("%s%s:%d", prefixQuote, brand, seq)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling evidence: %w", err)
	}
	if err := wb.Set([]byte(quoteKey), data); err != nil {
		return fmt.Errorf("setting evidence: %w", err)
	}

	tokenFreq := make(map[string]int)
	for _, token := range tokenize(entry.Quote + " " + entry.Topic) {
		tokenFreq[token]++
	}
	for token, freq := range tokenFreq {
		key := fmt.Sprintf("%s%s:%s", prefixFTSToken, token, quoteKey)
		if err := wb.Set([]byte(key), []byte(strconv.Itoa(freq))); err != nil {
			return fmt.Errorf("setting token index: %w", err)
		}
	}
	return nil
}

// GetLatest returns the stored snapshot for a brand, or nil.
func (b *BadgerBackend) GetLatest(ctx context.Context, brand string) (*StoredSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	var snap *StoredSnapshot
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixSnapshot + brand))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			snap = &StoredSnapshot{}
			return json.Unmarshal(val, snap)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return snap, nil
}

// ListBrands returns the brands with a stored snapshot, sorted.
func (b *BadgerBackend) ListBrands(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	var brands []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixSnapshot)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			brands = append(brands, strings.TrimPrefix(key, prefixSnapshot))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing brands: %w", err)
	}

	sort.Strings(brands)
	return brands, nil
}

// DeleteBrand removes a brand's snapshot and indexed evidence.
func (b *BadgerBackend) DeleteBrand(ctx context.Context, brand string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return 0, fmt.Errorf("store not initialized")
	}
	return b.deleteBrandLocked(brand)
}

// deleteBrandLocked deletes all keys belonging to a brand.
// Must be called with the write lock held.
func (b *BadgerBackend) deleteBrandLocked(brand string) (int, error) {
	var keysToDelete [][]byte
	quoteMarker := ":" + prefixQuote + brand + ":"
	quotes := 0

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		opts.Prefix = []byte(prefixSnapshot + brand)
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			if string(it.Item().Key()) == prefixSnapshot+brand {
				keysToDelete = append(keysToDelete, it.Item().KeyCopy(nil))
			}
		}
		it.Close()

		opts.Prefix = []byte(prefixQuote + brand + ":")
		it = txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			keysToDelete = append(keysToDelete, it.Item().KeyCopy(nil))
			quotes++
		}
		it.Close()

		opts.Prefix = []byte(prefixFTSToken)
		it = txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			if strings.Contains(string(it.Item().Key()), quoteMarker) {
				keysToDelete = append(keysToDelete, it.Item().KeyCopy(nil))
			}
		}
		it.Close()

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning brand keys: %w", err)
	}

	if len(keysToDelete) == 0 {
		return 0, nil
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keysToDelete {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("deleting key: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flushing deletes: %w", err)
	}

	return quotes, nil
}

// SearchEvidence ranks stored evidence quotes against a query using
// the inverted token index.
func (b *BadgerBackend) SearchEvidence(ctx context.Context, query string, limit int) ([]EvidenceResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	scores := make(map[string]float64)
	err := b.db.View(func(txn *badger.Txn) error {
		for _, token := range tokens {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(prefixFTSToken + token + ":")
			it := txn.NewIterator(opts)

			for it.Rewind(); it.Valid(); it.Next() {
				item := it.Item()
				quoteKey := strings.TrimPrefix(string(item.Key()), prefixFTSToken+token+":")
				if err := item.Value(func(val []byte) error {
					freq, _ := strconv.Atoi(string(val))
					scores[quoteKey] += float64(freq)
					return nil
				}); err != nil {
					it.Close()
					return err
				}
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning token index: %w", err)
	}

	type scored struct {
		key   string
		score float64
	}
	matches := make([]scored, 0, len(scores))
	for key, score := range scores {
		matches = append(matches, scored{key: key, score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].key < matches[j].key
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]EvidenceResult, 0, len(matches))
	err = b.db.View(func(txn *badger.Txn) error {
		for _, m := range matches {
			item, err := txn.Get([]byte(m.key))
			if err != nil {
				continue
			}
			var entry evidenceEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				continue
			}
			results = append(results, EvidenceResult{
				Brand:       entry.Brand,
				Topic:       entry.Topic,
				InsightType: entry.InsightType,
				Quote:       entry.Quote,
				Score:       m.score,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading evidence: %w", err)
	}

	return results, nil
}

// BrandCount returns the number of stored snapshots.
func (b *BadgerBackend) BrandCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return 0
	}

	count := 0
	_ = b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixSnapshot)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count
}

// wordRe splits quote text into searchable word tokens.
var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// tokenize lowercases text and splits it into word tokens.
func tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}
