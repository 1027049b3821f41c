// Typed adapter over the document store.
//
// The adapter is the only way the managers touch the collection. It narrows
// the opaque DocumentStore to the access patterns the application actually
// uses: upsert one record, find one or all records by predicate, and delete
// everything a predicate matches. No other query shapes are supported; this
// is not a general-purpose database.
package store

import (
	"context"

	"github.com/rs/zerolog"
)

// Adapter exposes typed record operations over a DocumentStore.
type Adapter struct {
	docs DocumentStore
	log  zerolog.Logger
}

// NewAdapter wraps a DocumentStore. The logger is used for skip-and-continue
// diagnostics only.
func NewAdapter(docs DocumentStore, log zerolog.Logger) *Adapter {
	return &Adapter{docs: docs, log: log}
}

// Docs returns the underlying document store, for callers that need the
// similarity-query capability directly.
func (a *Adapter) Docs() DocumentStore { return a.docs }

// Put upserts a record by id. Callers that need an attribute-set change
// (e.g. a rename) delete and re-add explicitly; the two steps are not atomic
// and a crash between them leaves the entity absent until retried.
func (a *Adapter) Put(ctx context.Context, rec Record) error {
	return a.docs.Add(ctx, rec)
}

// FindOne returns the first record matching the predicate, and whether any
// matched at all.
func (a *Adapter) FindOne(ctx context.Context, pred Predicate) (Record, bool, error) {
	recs, err := a.docs.Get(ctx, pred)
	if err != nil {
		return Record{}, false, err
	}
	if len(recs) == 0 {
		return Record{}, false, nil
	}
	if len(recs) > 1 {
		a.log.Warn().
			Int("matches", len(recs)).
			Interface("predicate", pred).
			Msg("FindOne predicate matched multiple records")
	}
	return recs[0], true, nil
}

// FindAll returns every record matching the predicate in store-native order.
func (a *Adapter) FindAll(ctx context.Context, pred Predicate) ([]Record, error) {
	return a.docs.Get(ctx, pred)
}

// DeleteWhere deletes all records matching the predicate and returns how many
// were removed. Matching nothing is not an error.
func (a *Adapter) DeleteWhere(ctx context.Context, pred Predicate) (int, error) {
	recs, err := a.docs.Get(ctx, pred)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	if err := a.docs.Delete(ctx, ids...); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// SkipMalformed logs a record that failed to decode during a listing. The
// listing continues; a single damaged record must never take down a scan.
func (a *Adapter) SkipMalformed(recID string, err error) {
	a.log.Warn().Str("record_id", recID).Err(err).Msg("skipping malformed record")
}
