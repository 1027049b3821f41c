// Document store contract.
//
// The backend engine behind the record collection is deliberately opaque: the
// rest of the application only sees the DocumentStore interface defined here.
// Two implementations ship with the repo: a SQLite-backed store for real
// deployments and an in-memory store for tests and throwaway environments.
package store

import (
	"context"
	"errors"
)

// ErrStoreUnavailable wraps backend failures (connectivity, I/O, corrupt
// engine state). Callers treat it as transient: managers propagate it so the
// surface can offer a retry, while the retrieval pipeline degrades to its
// fixed fallback response.
var ErrStoreUnavailable = errors.New("document store unavailable")

// ScoredRecord is a similarity-query hit together with its cosine score.
type ScoredRecord struct {
	Record Record
	Score  float64
}

// DocumentStore is the opaque collection the record layer is built on.
//
// Semantics:
//   - Add upserts by record id.
//   - Get returns records matching the predicate in store-native order; any
//     required ordering is the caller's job.
//   - Delete removes the given ids, ignoring ones that do not exist.
//   - Count reports how many records match the predicate.
//   - Query returns the k records most similar to the vector among those
//     matching the predicate, best first. Records without an embedding are
//     never returned by Query.
//
// All methods surface backend failures as errors wrapping
// ErrStoreUnavailable.
type DocumentStore interface {
	Add(ctx context.Context, recs ...Record) error
	Get(ctx context.Context, pred Predicate) ([]Record, error)
	Delete(ctx context.Context, ids ...string) error
	Count(ctx context.Context, pred Predicate) (int64, error)
	Query(ctx context.Context, vec []float32, k int, pred Predicate) ([]ScoredRecord, error)
}
