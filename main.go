package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/finsight-router/server/internal/agent/graph"
	"github.com/finsight-router/server/internal/agent/graph/nodes"
	"github.com/finsight-router/server/internal/agent/model"
	"github.com/finsight-router/server/internal/agent/repo"
	"github.com/finsight-router/server/internal/api"
	"github.com/finsight-router/server/internal/catalog"
	"github.com/finsight-router/server/internal/core"
	"github.com/finsight-router/server/internal/marketdata"
	"github.com/finsight-router/server/internal/metrics"
	"github.com/finsight-router/server/internal/retrieval"
	logx "github.com/finsight-router/server/pkg/logger"
	pkgpostgres "github.com/finsight-router/server/pkg/postgres"
	pkgredis "github.com/finsight-router/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the server,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	Port        string `envconfig:"PORT" default:"8000"`
	CatalogPath string `envconfig:"CATALOG_PATH"`
	// Comma separated list, e.g. "http://localhost:3000,https://app.example.com"
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`

	// Infrastructure
	Redis      pkgredis.Config
	Postgres   pkgpostgres.Config
	MarketData marketdata.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Financial model.FinancialModelConfig
	Document  model.DocumentModelConfig
	Retrieval model.RetrievalConfig
	Graph     model.GraphConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	env := core.ParseEnvironment(envCfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env, Level: envCfg.LogLevel})
	metrics.Init()

	cat, err := catalog.LoadFile(envCfg.CatalogPath)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to load catalog")
	}

	db, err := envCfg.Postgres.New(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	defer db.Close()

	if err := retrieval.EnsureSchema(ctx, db, envCfg.Retrieval.EmbeddingDimensions); err != nil {
		logx.Fatal().Err(err).Msg("Failed to prepare vector store schema")
	}

	client, err := nodes.NewGenAIClient(ctx, envCfg.APIKey, envCfg.BaseURL)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	embedder, err := retrieval.NewGeminiEmbedder(client, envCfg.Retrieval.EmbeddingModel, envCfg.Retrieval.EmbeddingDimensions)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create embedder")
	}

	market, err := marketdata.NewClient(envCfg.MarketData)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create market data client")
	}

	var transcripts model.TranscriptRepository
	if envCfg.Redis.Enabled() {
		rdb, err := envCfg.Redis.New(ctx)
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
		}
		defer rdb.Close()

		ttl, err := time.ParseDuration(envCfg.Graph.TranscriptTTL)
		if err != nil {
			logx.Fatal().Err(err).Str("value", envCfg.Graph.TranscriptTTL).Msg("Invalid TRANSCRIPT_TTL")
		}
		transcripts = repo.NewRedisTranscriptRepository(rdb, ttl)
		logx.Info().Msg("Transcript archive enabled")
	}

	runner, err := graph.BuildAgentGraph(ctx, graph.Config{
		GenAI:          client,
		Financial:      envCfg.Financial,
		Document:       envCfg.Document,
		Retrieval:      envCfg.Retrieval,
		Graph:          envCfg.Graph,
		MarketData:     market,
		Embedder:       embedder,
		Store:          retrieval.NewPGStore(db),
		TranscriptRepo: transcripts,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build graph")
	}

	server, err := api.NewServer(env.GinMode(), api.Deps{
		Runner:         runner,
		Catalog:        cat,
		Transcripts:    transcripts,
		AllowedOrigins: envCfg.AllowedOrigins,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create HTTP server")
	}

	if err := server.Start(envCfg.Port); err != nil {
		logx.Fatal().Err(err).Msg("Server stopped")
	}
}
