package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a process-local DocumentStore used by tests and by the
// "memory" store driver. It honors the full contract, including vector
// queries, but persists nothing.
//
// MemoryStore is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]Record
}

// NewMemoryStore returns an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

// Add upserts records by id.
func (m *MemoryStore) Add(ctx context.Context, recs ...Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		m.recs[rec.ID] = cloneRecord(rec)
	}
	return nil
}

// Get returns records matching the predicate. Results are ordered by id to
// keep tests deterministic; callers must not rely on this order.
func (m *MemoryStore) Get(ctx context.Context, pred Predicate) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, rec := range m.recs {
		if matches(rec, pred) {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes the given ids; absent ids are ignored.
func (m *MemoryStore) Delete(ctx context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.recs, id)
	}
	return nil
}

// Count reports how many records match the predicate.
func (m *MemoryStore) Count(ctx context.Context, pred Predicate) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, rec := range m.recs {
		if matches(rec, pred) {
			n++
		}
	}
	return n, nil
}

// Query ranks matching records that carry an embedding by cosine similarity
// to vec and returns the best k.
func (m *MemoryStore) Query(ctx context.Context, vec []float32, k int, pred Predicate) ([]ScoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hits []ScoredRecord
	for _, rec := range m.recs {
		if len(rec.Embedding) == 0 || !matches(rec, pred) {
			continue
		}
		score, err := cosineSimilarity(vec, rec.Embedding)
		if err != nil {
			continue
		}
		hits = append(hits, ScoredRecord{Record: cloneRecord(rec), Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// matches reports whether every predicate entry equals the corresponding
// string attribute of the record.
func matches(rec Record, pred Predicate) bool {
	for key, want := range pred {
		got, ok := stringAttr(rec.Attributes, key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// cloneRecord copies a record so callers cannot mutate stored state through
// the shared attribute map.
func cloneRecord(rec Record) Record {
	attrs := make(map[string]any, len(rec.Attributes))
	for k, v := range rec.Attributes {
		attrs[k] = v
	}
	var emb []float32
	if len(rec.Embedding) > 0 {
		emb = append(emb, rec.Embedding...)
	}
	return Record{ID: rec.ID, Document: rec.Document, Attributes: attrs, Embedding: emb}
}
