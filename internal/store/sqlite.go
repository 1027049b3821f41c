// SQLite-backed document store.
//
// The whole collection is one table of records: id, document text, a JSON
// attribute map, and an optional JSON-encoded embedding vector. Predicate
// filters compile to conjunctions of json_extract equality tests; similarity
// queries rank candidate rows by cosine similarity in process, which is
// adequate for the reference corpus sizes this application carries.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"

	gormlogger "gorm.io/gorm/logger"
)

// recordRow is the GORM mapping of a Record.
type recordRow struct {
	ID         string            `gorm:"type:varchar(128);primaryKey"`
	Document   string            `gorm:"type:text;not null"`
	Attributes datatypes.JSONMap `gorm:"not null"`
	Embedding  datatypes.JSON
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the database table name for records.
func (recordRow) TableName() string { return "records" }

// SQLiteStore implements DocumentStore over a GORM SQLite handle.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs and
// pool settings suitable for a single-process deployment.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if the parent directory does not exist instead of letting
	// sqlite surface an opaque "out of memory (14)".
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the records table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&recordRow{})
}

// EnableTracing attaches the GORM OpenTelemetry plugin so store round-trips
// show up as spans under the HTTP request trace.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// NewSQLiteStore wraps an opened GORM handle as a DocumentStore.
func NewSQLiteStore(db *gorm.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Add upserts records by id.
func (s *SQLiteStore) Add(ctx context.Context, recs ...Record) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([]recordRow, 0, len(recs))
	for _, rec := range recs {
		row, err := toRow(rec)
		if err != nil {
			return storeErr(err)
		}
		rows = append(rows, row)
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows).Error
	return storeErr(err)
}

// Get returns records matching the predicate in store-native order.
func (s *SQLiteStore) Get(ctx context.Context, pred Predicate) ([]Record, error) {
	var rows []recordRow
	if err := s.filtered(ctx, pred).Find(&rows).Error; err != nil {
		return nil, storeErr(err)
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Delete removes the given ids; absent ids are ignored.
func (s *SQLiteStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&recordRow{}).Error
	return storeErr(err)
}

// Count reports how many records match the predicate.
func (s *SQLiteStore) Count(ctx context.Context, pred Predicate) (int64, error) {
	var total int64
	if err := s.filtered(ctx, pred).Model(&recordRow{}).Count(&total).Error; err != nil {
		return 0, storeErr(err)
	}
	return total, nil
}

// Query ranks matching rows that carry an embedding by cosine similarity to
// vec and returns the best k.
func (s *SQLiteStore) Query(ctx context.Context, vec []float32, k int, pred Predicate) ([]ScoredRecord, error) {
	var rows []recordRow
	if err := s.filtered(ctx, pred).
		Where("embedding IS NOT NULL").
		Find(&rows).Error; err != nil {
		return nil, storeErr(err)
	}

	hits := make([]ScoredRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil || len(rec.Embedding) == 0 {
			continue
		}
		score, err := cosineSimilarity(vec, rec.Embedding)
		if err != nil {
			continue
		}
		hits = append(hits, ScoredRecord{Record: rec, Score: score})
	}
	// Insertion-sort by descending score; candidate sets are small.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// filtered applies a predicate as json_extract equality conditions. Predicate
// keys are attribute-name constants defined in this package, never caller
// input, so interpolating them into the JSON path is safe.
func (s *SQLiteStore) filtered(ctx context.Context, pred Predicate) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&recordRow{})
	for key, want := range pred {
		q = q.Where(fmt.Sprintf("json_extract(attributes, '$.%s') = ?", key), want)
	}
	return q
}

func toRow(rec Record) (recordRow, error) {
	row := recordRow{
		ID:         rec.ID,
		Document:   rec.Document,
		Attributes: datatypes.JSONMap(rec.Attributes),
	}
	if len(rec.Embedding) > 0 {
		raw, err := json.Marshal(rec.Embedding)
		if err != nil {
			return recordRow{}, err
		}
		row.Embedding = datatypes.JSON(raw)
	}
	return row, nil
}

func fromRow(row recordRow) (Record, error) {
	rec := Record{
		ID:         row.ID,
		Document:   row.Document,
		Attributes: map[string]any(row.Attributes),
	}
	if len(row.Embedding) > 0 {
		if err := json.Unmarshal(row.Embedding, &rec.Embedding); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

// storeErr maps backend failures onto the transient store error so callers
// can match with errors.Is.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
