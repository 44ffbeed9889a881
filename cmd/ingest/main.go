package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/finsight-router/server/internal/agent/graph/nodes"
	"github.com/finsight-router/server/internal/agent/model"
	"github.com/finsight-router/server/internal/core"
	"github.com/finsight-router/server/internal/ingest"
	"github.com/finsight-router/server/internal/retrieval"
	logx "github.com/finsight-router/server/pkg/logger"
	pkgpostgres "github.com/finsight-router/server/pkg/postgres"
)

type IngestConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	APIKey      string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL     string `envconfig:"GEMINI_BASE_URL"`

	Postgres  pkgpostgres.Config
	Retrieval model.RetrievalConfig
	Ingest    ingest.Config
}

func main() {
	dir := flag.String("dir", "documents", "root directory laid out as <collection>/<file>")
	only := flag.String("collections", "", "comma separated collections to ingest (default: all)")
	flag.Parse()

	ctx := context.Background()
	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	var cfg IngestConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	db, err := cfg.Postgres.New(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	defer db.Close()

	if err := retrieval.EnsureSchema(ctx, db, cfg.Retrieval.EmbeddingDimensions); err != nil {
		logx.Fatal().Err(err).Msg("Failed to prepare vector store schema")
	}

	client, err := nodes.NewGenAIClient(ctx, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	embedder, err := retrieval.NewGeminiEmbedder(client, cfg.Retrieval.EmbeddingModel, cfg.Retrieval.EmbeddingDimensions)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create embedder")
	}

	var collections []string
	for _, c := range strings.Split(*only, ",") {
		if c = strings.TrimSpace(c); c != "" {
			collections = append(collections, c)
		}
	}

	in := ingest.New(os.DirFS(*dir), embedder, retrieval.NewPGStore(db), cfg.Ingest)
	stats, err := in.IngestAll(ctx, collections...)
	if err != nil {
		logx.Fatal().Err(err).Msg("Ingestion failed")
	}

	logx.Info().
		Int("collections", stats.Collections).
		Int("files", stats.Files).
		Int("chunks", stats.Chunks).
		Msg("Ingestion completed")
}
