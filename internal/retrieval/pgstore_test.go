package retrieval

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkIDIsStable(t *testing.T) {
	a := ChunkID("tcs", "documents/tcs/q1.txt", 3)
	assert.Equal(t, a, ChunkID("tcs", "documents/tcs/q1.txt", 3))
	assert.NotEqual(t, a, ChunkID("tcs", "documents/tcs/q1.txt", 4))
	assert.NotEqual(t, a, ChunkID("swiggy", "documents/tcs/q1.txt", 3))
}

// TestPGStoreSearch needs a Postgres with pgvector; set TEST_POSTGRES_DSN to run it.
func TestPGStoreSearch(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, EnsureSchema(ctx, db, 3))
	_, err = db.ExecContext(ctx, `DELETE FROM documents WHERE collection LIKE 'test-%'`)
	require.NoError(t, err)

	store := NewPGStore(db)
	require.NoError(t, store.Upsert(ctx, []Chunk{
		{Collection: "test-a", Source: "documents/test-a/one.txt", Index: 0, Content: "revenue grew", Metadata: map[string]any{"page": 1}, Embedding: []float32{1, 0, 0}},
		{Collection: "test-a", Source: "documents/test-a/two.txt", Index: 0, Content: "margins fell", Embedding: []float32{0, 1, 0}},
		{Collection: "test-b", Source: "documents/test-b/one.txt", Index: 0, Content: "other corpus", Embedding: []float32{1, 0, 0}},
	}))

	docs, err := store.Search(ctx, "test-a", []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "revenue grew", docs[0].Content)
	assert.EqualValues(t, 1, docs[0].Metadata["page"])

	docs, err = store.Search(ctx, "test-a", []float32{1, 0, 0}, 10, []string{"documents/test-a/two.txt"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "margins fell", docs[0].Content)

	docs, err = store.Search(ctx, "test-empty", []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
