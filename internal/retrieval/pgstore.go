package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/finsight-router/server/internal/agent/model"
	errx "github.com/finsight-router/server/internal/core/error"
	"github.com/finsight-router/server/internal/metrics"
)

// chunkNamespace seeds deterministic chunk ids so re-ingestion overwrites rows.
var chunkNamespace = uuid.MustParse("6f1c7a52-3e0b-4c55-9d5e-2b7f4c1d8a90")

// PGStore implements Store on Postgres with the pgvector extension.
type PGStore struct {
	db *sqlx.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{db: db}
}

// EnsureSchema creates the extension, table and indexes when missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB, dimensions int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			collection TEXT NOT NULL,
			source TEXT NOT NULL,
			chunk INT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS documents_collection_source_idx ON documents (collection, source)`,
		`CREATE INDEX IF NOT EXISTS documents_embedding_idx ON documents USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errx.WrapPostgres(fmt.Errorf("ensure schema: %w", err))
		}
	}
	return nil
}

type documentRow struct {
	ID         string  `db:"id"`
	Collection string  `db:"collection"`
	Source     string  `db:"source"`
	Content    string  `db:"content"`
	Metadata   []byte  `db:"metadata"`
	Similarity float64 `db:"similarity"`
}

const searchQuery = `
	SELECT id, collection, source, content, metadata, 1 - (embedding <=> $2) AS similarity
	FROM documents
	WHERE collection = $1
	  AND (cardinality($3::text[]) = 0 OR source = ANY($3::text[]))
	ORDER BY embedding <=> $2
	LIMIT $4`

// Search performs cosine similarity search within one collection.
func (s *PGStore) Search(ctx context.Context, collection string, vector []float32, k int, sources []string) ([]model.Document, error) {
	if sources == nil {
		sources = []string{}
	}
	var rows []documentRow
	start := time.Now()
	err := s.db.SelectContext(ctx, &rows, searchQuery,
		collection, pgvector.NewVector(vector), pq.Array(sources), k)
	metrics.RecordDBQuery("postgres", "search", time.Since(start), err)
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}

	docs := make([]model.Document, 0, len(rows))
	for _, r := range rows {
		meta := map[string]any{}
		if len(r.Metadata) > 0 {
			if err := json.Unmarshal(r.Metadata, &meta); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", r.ID, err)
			}
		}
		docs = append(docs, model.Document{
			ID:         r.ID,
			Collection: r.Collection,
			Source:     r.Source,
			Content:    r.Content,
			Metadata:   meta,
			Similarity: r.Similarity,
		})
	}
	return docs, nil
}

const upsertQuery = `
	INSERT INTO documents (id, collection, source, chunk, content, metadata, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		content = EXCLUDED.content,
		metadata = EXCLUDED.metadata,
		embedding = EXCLUDED.embedding`

// Upsert writes chunks in one transaction.
func (s *PGStore) Upsert(ctx context.Context, chunks []Chunk) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("postgres", "upsert", time.Since(start), err) }()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.WrapPostgres(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata of %s#%d: %w", c.Source, c.Index, err)
		}
		if _, err := tx.ExecContext(ctx, upsertQuery,
			ChunkID(c.Collection, c.Source, c.Index), c.Collection, c.Source, c.Index,
			c.Content, meta, pgvector.NewVector(c.Embedding)); err != nil {
			return errx.WrapPostgres(fmt.Errorf("upsert %s#%d: %w", c.Source, c.Index, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errx.WrapPostgres(err)
	}
	return nil
}

// ChunkID derives a stable id from the chunk's position.
func ChunkID(collection, source string, index int) uuid.UUID {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s|%s|%d", collection, source, index)))
}
