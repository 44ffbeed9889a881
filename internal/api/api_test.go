package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-router/server/internal/agent/graph/nodes"
	"github.com/finsight-router/server/internal/agent/model"
	"github.com/finsight-router/server/internal/catalog"
)

type fakeRunner struct {
	got []model.QueryInput
	err error
}

func (f *fakeRunner) Invoke(ctx context.Context, in model.QueryInput) (string, error) {
	res, err := f.Run(ctx, in)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

func (f *fakeRunner) Run(_ context.Context, in model.QueryInput) (*model.Result, error) {
	f.got = append(f.got, in)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Result{
		SessionID: "sess-1",
		Branch:    nodes.Route(in.DocumentSources),
		Answer:    "answer for " + in.Symbol,
	}, nil
}

type fakeTranscripts struct {
	model.TranscriptRepository
	sessions map[string][]*schema.Message
}

func (f *fakeTranscripts) GetMessageCount(_ context.Context, id string) (int, error) {
	return len(f.sessions[id]), nil
}

func (f *fakeTranscripts) ClearTranscript(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeTranscripts) LoadTranscript(_ context.Context, id string) (*model.TranscriptHistory, error) {
	return &model.TranscriptHistory{SessionID: id, Messages: f.sessions[id]}, nil
}

func newTestServer(t *testing.T, runner *fakeRunner, transcripts model.TranscriptRepository) *Server {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	s, err := NewServer(gin.TestMode, Deps{Runner: runner, Catalog: c, Transcripts: transcripts})
	require.NoError(t, err)
	return s
}

func do(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, nil)
	w := do(s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, nil)
	w := do(s, http.MethodGet, "/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CatalogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Symbols, 3)
	assert.Equal(t, "ETERNAL.NS", resp.Symbols[0].Symbol)
	assert.Equal(t, "TCS", resp.Symbols[2].Collection)
	assert.Equal(t, []string{"document 1", "document 2", "document 3"}, resp.Symbols[2].Documents)
}

func TestChatFinancial(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(t, runner, nil)

	w := do(s, http.MethodPost, "/chat", ChatRequest{Query: "What is the revenue?", Symbol: "tcs.ns"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "answer for TCS.NS", resp.Response)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, string(model.BranchFinancial), resp.Branch)

	require.Len(t, runner.got, 1)
	assert.Equal(t, "TCS", runner.got[0].Collection)
	assert.Empty(t, runner.got[0].DocumentSources)
}

func TestChatDocuments(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(t, runner, nil)

	w := do(s, http.MethodPost, "/chat", ChatRequest{
		Query:     "Summarise the earnings call",
		Symbol:    "TCS.NS",
		Documents: []string{"document 3"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(model.BranchDocument), resp.Branch)
	require.Len(t, runner.got, 1)
	assert.Equal(t, []string{"documents/TCS/q4_fy25_earnings_call.pdf"}, runner.got[0].DocumentSources)
}

func TestChatRejectsBadInput(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(t, runner, nil)

	cases := map[string]any{
		"missing query":    map[string]any{"symbol": "TCS.NS"},
		"blank query":      ChatRequest{Query: "   ", Symbol: "TCS.NS"},
		"unknown symbol":   ChatRequest{Query: "hi", Symbol: "AAPL"},
		"unknown document": ChatRequest{Query: "hi", Symbol: "TCS.NS", Documents: []string{"document 7"}},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(s, http.MethodPost, "/chat", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
	assert.Empty(t, runner.got)
}

func TestChatRunnerFailure(t *testing.T) {
	s := newTestServer(t, &fakeRunner{err: errors.New("model unavailable")}, nil)

	w := do(s, http.MethodPost, "/chat", ChatRequest{Query: "hi", Symbol: "TCS.NS"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "model unavailable")
}

func TestSessionMessages(t *testing.T) {
	repo := &fakeTranscripts{sessions: map[string][]*schema.Message{
		"abc": {
			schema.UserMessage("revenue?"),
			schema.AssistantMessage("", []schema.ToolCall{{ID: "call_1", Function: schema.FunctionCall{Name: "yfinance_get_financials", Arguments: `{"symbol":"TCS.NS"}`}}}),
			schema.ToolMessage("Income statement for TCS.NS", "call_1"),
			schema.AssistantMessage("Revenue grew.", nil),
		},
	}}
	s := newTestServer(t, &fakeRunner{}, repo)

	w := do(s, http.MethodGet, "/sessions/abc/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp TranscriptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.SessionID)
	require.Len(t, resp.Messages, 4)
	assert.Equal(t, "user", resp.Messages[0].Role)
	require.Len(t, resp.Messages[1].ToolCalls, 1)
	assert.Equal(t, "yfinance_get_financials", resp.Messages[1].ToolCalls[0].Name)
	assert.Equal(t, "call_1", resp.Messages[2].ToolCallID)

	w = do(s, http.MethodGet, "/sessions/missing/messages", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionMessagesWithoutArchive(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, nil)
	w := do(s, http.MethodGet, "/sessions/abc/messages", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, nil)
	w := do(s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewServerRequiresDeps(t *testing.T) {
	_, err := NewServer(gin.TestMode, Deps{})
	assert.Error(t, err)
}

func TestCORSPreflight(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	s, err := NewServer(gin.TestMode, Deps{Runner: &fakeRunner{}, Catalog: c, AllowedOrigins: []string{"http://localhost:3000"}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestDeleteSession(t *testing.T) {
	repo := &fakeTranscripts{sessions: map[string][]*schema.Message{
		"abc": {schema.UserMessage("revenue?"), schema.AssistantMessage("Revenue grew.", nil)},
	}}
	s := newTestServer(t, &fakeRunner{}, repo)

	w := do(s, http.MethodDelete, "/sessions/abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session_id":"abc","deleted_messages":2}`, w.Body.String())
	assert.NotContains(t, repo.sessions, "abc")

	w = do(s, http.MethodDelete, "/sessions/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(newTestServer(t, &fakeRunner{}, nil), http.MethodDelete, "/sessions/abc", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
