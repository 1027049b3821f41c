// Package seed loads the reference corpus that grounds the retrieval
// pipeline: mental health Q&A documents that are embedded once at startup
// and ranked by similarity against incoming user messages.
//
// The corpus file is a JSON object with parallel arrays, the export shape of
// the upstream document collection:
//
//	{
//	  "ids":       ["ref-1", ...],
//	  "documents": ["Q: ... A: ...", ...],
//	  "metadatas": [{"topic": "anxiety"}, ...]
//	}
//
// "metadatas" is optional and entries may be null. Seeding is idempotent: a
// store that already holds reference records is left alone unless Force is
// set.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/serenline/go-support-backend/internal/store"
)

// batchSize bounds one Add call; embedding happens per document anyway, the
// batching only caps transaction size.
const batchSize = 5

// Embedder turns a document into a vector. The llm package's client
// satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Corpus is the on-disk shape of the reference document set.
type Corpus struct {
	IDs       []string         `json:"ids"`
	Documents []string         `json:"documents"`
	Metadatas []map[string]any `json:"metadatas"`
}

// Options controls seeding behavior.
type Options struct {
	// Path is the corpus file; empty or missing paths skip seeding quietly.
	Path string
	// Force re-seeds even when reference records already exist.
	Force bool
}

// Run seeds the reference corpus into the document store. It returns the
// number of documents inserted; 0 with a nil error means seeding was skipped.
func Run(ctx context.Context, docs store.DocumentStore, emb Embedder, opt Options, log zerolog.Logger) (int, error) {
	if opt.Path == "" {
		return 0, nil
	}
	raw, err := os.ReadFile(opt.Path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", opt.Path).Msg("reference corpus file not found, skipping seed")
			return 0, nil
		}
		return 0, err
	}

	var corpus Corpus
	if err := json.Unmarshal(raw, &corpus); err != nil {
		return 0, fmt.Errorf("parse reference corpus: %w", err)
	}
	if len(corpus.IDs) != len(corpus.Documents) {
		return 0, fmt.Errorf("reference corpus: %d ids but %d documents", len(corpus.IDs), len(corpus.Documents))
	}

	if !opt.Force {
		existing, err := docs.Count(ctx, store.Predicate{store.AttrType: store.KindReference})
		if err != nil {
			return 0, err
		}
		if existing > 0 {
			log.Info().Int64("existing", existing).Msg("reference corpus already seeded")
			return 0, nil
		}
	}

	inserted := 0
	batch := make([]store.Record, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := docs.Add(ctx, batch...); err != nil {
			return err
		}
		inserted += len(batch)
		batch = batch[:0]
		return nil
	}

	for i, doc := range corpus.Documents {
		vec, err := emb.Embed(ctx, doc)
		if err != nil {
			return inserted, fmt.Errorf("embed reference %q: %w", corpus.IDs[i], err)
		}
		attrs := map[string]any{store.AttrType: store.KindReference}
		if i < len(corpus.Metadatas) {
			for k, v := range corpus.Metadatas[i] {
				if k == store.AttrType {
					continue
				}
				attrs[k] = v
			}
		}
		batch = append(batch, store.Record{
			ID:         corpus.IDs[i],
			Document:   doc,
			Attributes: attrs,
			Embedding:  vec,
		})
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return inserted, err
			}
		}
	}
	if err := flush(); err != nil {
		return inserted, err
	}

	log.Info().Int("documents", inserted).Msg("reference corpus seeded")
	return inserted, nil
}
