package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/finsight-router/server/internal/catalog"
	"github.com/finsight-router/server/internal/retrieval"
	logx "github.com/finsight-router/server/pkg/logger"
)

type Config struct {
	ChunkSize int `envconfig:"INGEST_CHUNK_SIZE" default:"1500"`
	BatchSize int `envconfig:"INGEST_BATCH_SIZE" default:"32"`
}

// Stats summarises one ingestion pass.
type Stats struct {
	Collections int
	Files       int
	Chunks      int
}

// Ingester loads pre-extracted document text from a tree laid out as
// <collection>/<file>, embeds it and writes it to the store.
type Ingester struct {
	fsys     fs.FS
	embedder retrieval.Embedder
	store    retrieval.Store
	cfg      Config
}

func New(fsys fs.FS, embedder retrieval.Embedder, store retrieval.Store, cfg Config) *Ingester {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1500
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &Ingester{fsys: fsys, embedder: embedder, store: store, cfg: cfg}
}

// Collections lists the top-level directories of the tree.
func (in *Ingester) Collections() ([]string, error) {
	entries, err := fs.ReadDir(in.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// IngestAll ingests every collection, or only the named ones.
func (in *Ingester) IngestAll(ctx context.Context, only ...string) (Stats, error) {
	collections := only
	if len(collections) == 0 {
		var err error
		if collections, err = in.Collections(); err != nil {
			return Stats{}, err
		}
	}

	var total Stats
	for _, c := range collections {
		s, err := in.IngestCollection(ctx, c)
		if err != nil {
			return total, err
		}
		total.Collections++
		total.Files += s.Files
		total.Chunks += s.Chunks
	}
	return total, nil
}

// IngestCollection ingests the text files of one collection directory.
func (in *Ingester) IngestCollection(ctx context.Context, collection string) (Stats, error) {
	start := time.Now()
	entries, err := fs.ReadDir(in.fsys, collection)
	if err != nil {
		return Stats{}, fmt.Errorf("read collection %s: %w", collection, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isText(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	stats := Stats{Collections: 1}
	for _, name := range names {
		n, err := in.ingestFile(ctx, collection, name)
		if err != nil {
			return stats, err
		}
		stats.Files++
		stats.Chunks += n
	}

	logx.Info().
		Str("collection", collection).
		Int("files", stats.Files).
		Int("chunks", stats.Chunks).
		Dur("took", time.Since(start)).
		Msg("Collection ingested")
	return stats, nil
}

func (in *Ingester) ingestFile(ctx context.Context, collection, name string) (int, error) {
	data, err := fs.ReadFile(in.fsys, path.Join(collection, name))
	if err != nil {
		return 0, fmt.Errorf("read %s/%s: %w", collection, name, err)
	}

	source := SourceFor(collection, name)
	var chunks []retrieval.Chunk
	for i, p := range SplitPages(string(data), in.cfg.ChunkSize) {
		chunks = append(chunks, retrieval.Chunk{
			Collection: collection,
			Source:     source,
			Index:      i,
			Content:    p.Text,
			Metadata: map[string]any{
				"source":          source,
				"collection_name": collection,
				"page":            p.Page,
			},
		})
	}
	if len(chunks) == 0 {
		logx.Warn().Str("source", source).Msg("No text found, skipping")
		return 0, nil
	}

	for lo := 0; lo < len(chunks); lo += in.cfg.BatchSize {
		hi := min(lo+in.cfg.BatchSize, len(chunks))
		batch := chunks[lo:hi]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := in.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed %s: %w", source, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embed %s: got %d vectors for %d chunks", source, len(vectors), len(batch))
		}
		for i := range batch {
			batch[i].Embedding = vectors[i]
		}
		if err := in.store.Upsert(ctx, batch); err != nil {
			return 0, fmt.Errorf("store %s: %w", source, err)
		}
	}

	logx.Debug().Str("source", source).Int("chunks", len(chunks)).Msg("Document ingested")
	return len(chunks), nil
}

// SourceFor names a stored document the way the catalog does. Text extracted
// from another format keeps the original file name: "report.pdf.txt" is
// stored as "documents/<collection>/report.pdf".
func SourceFor(collection, name string) string {
	if base := strings.TrimSuffix(name, ".txt"); base != name && path.Ext(base) != "" {
		name = base
	}
	return path.Join(catalog.DocumentsRoot, collection, name)
}

func isText(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}
