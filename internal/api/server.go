package api

import (
	"fmt"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/finsight-router/server/internal/agent/graph"
	"github.com/finsight-router/server/internal/agent/model"
	"github.com/finsight-router/server/internal/catalog"
	"github.com/finsight-router/server/internal/metrics"
	logx "github.com/finsight-router/server/pkg/logger"
)

type Deps struct {
	Runner      graph.Runner
	Catalog     *catalog.Catalog
	Transcripts model.TranscriptRepository // nil when no archive is configured
	// AllowedOrigins for CORS. Empty or "*" allows any origin.
	AllowedOrigins []string
}

type Server struct {
	Engine *gin.Engine
}

// NewServer wires the routes. mode is a gin mode (debug, release, test).
func NewServer(mode string, deps Deps) (*Server, error) {
	if deps.Runner == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("api: runner and catalog are required")
	}
	gin.SetMode(mode)

	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware(deps.AllowedOrigins), LoggingMiddleware())

	h := &handler{deps: deps}
	engine.GET("/", h.health)
	engine.GET("/catalog", h.catalog)
	engine.POST("/chat", h.chat)
	engine.GET("/sessions/:id/messages", h.sessionMessages)
	engine.DELETE("/sessions/:id", h.deleteSession)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	return &Server{Engine: engine}, nil
}

func (s *Server) Start(port string) error {
	if port == "" {
		port = "8000"
	}
	addr := fmt.Sprintf(":%s", port)
	logx.Info().Str("addr", addr).Msg("Server starting")
	return s.Engine.Run(addr)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
