package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/finsight-router/server/internal/agent/model"
	errx "github.com/finsight-router/server/internal/core/error"
	logx "github.com/finsight-router/server/pkg/logger"
)

type handler struct {
	deps Deps
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// catalog handles GET /catalog
func (h *handler) catalog(c *gin.Context) {
	resp := CatalogResponse{Symbols: []CatalogSymbol{}}
	for _, sym := range h.deps.Catalog.Symbols() {
		e, _ := h.deps.Catalog.Lookup(sym)
		resp.Symbols = append(resp.Symbols, CatalogSymbol{
			Symbol:     e.Symbol,
			Collection: e.Collection,
			Documents:  e.Labels(),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// chat handles POST /chat
func (h *handler) chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errx.BadRequest("invalid request: %v", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(c, errx.BadRequest("query is required"))
		return
	}

	collection, sources, err := h.deps.Catalog.Resolve(req.Symbol, req.Documents)
	if err != nil {
		writeError(c, err)
		return
	}
	entry, _ := h.deps.Catalog.Lookup(req.Symbol)

	res, err := h.deps.Runner.Run(c.Request.Context(), model.QueryInput{
		Query:           req.Query,
		Symbol:          entry.Symbol,
		Collection:      collection,
		DocumentSources: sources,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		Response:  res.Answer,
		SessionID: res.SessionID,
		Branch:    string(res.Branch),
	})
}

// sessionMessages handles GET /sessions/:id/messages
func (h *handler) sessionMessages(c *gin.Context) {
	if h.deps.Transcripts == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "transcript archive is not configured"})
		return
	}

	id := c.Param("id")
	hist, err := h.deps.Transcripts.LoadTranscript(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(hist.Messages) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	resp := TranscriptResponse{SessionID: hist.SessionID, Messages: make([]MessageView, 0, len(hist.Messages))}
	for _, m := range hist.Messages {
		if m != nil {
			resp.Messages = append(resp.Messages, toMessageView(m))
		}
	}
	c.JSON(http.StatusOK, resp)
}

// deleteSession handles DELETE /sessions/:id
func (h *handler) deleteSession(c *gin.Context) {
	if h.deps.Transcripts == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "transcript archive is not configured"})
		return
	}

	id := c.Param("id")
	n, err := h.deps.Transcripts.GetMessageCount(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err := h.deps.Transcripts.ClearTranscript(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	logx.Info().Str("session_id", id).Int("messages", n).Msg("Transcript deleted")
	c.JSON(http.StatusOK, gin.H{"session_id": id, "deleted_messages": n})
}

func writeError(c *gin.Context, err error) {
	status, msg := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": msg})
}
