package retrieval

import (
	"context"

	"github.com/finsight-router/server/internal/agent/model"
)

// Embedder turns text into vectors. Implementations are long-lived and shared.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is a collection-partitioned similarity index.
type Store interface {
	// Search returns up to k documents of collection ordered by similarity.
	// A non-empty sources list restricts matches to those document sources.
	Search(ctx context.Context, collection string, vector []float32, k int, sources []string) ([]model.Document, error)
	Upsert(ctx context.Context, chunks []Chunk) error
}

// Chunk is an embedded slice of a source document ready for upsert.
type Chunk struct {
	Collection string
	Source     string
	Index      int
	Content    string
	Metadata   map[string]any
	Embedding  []float32
}
