package nodes

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-router/server/internal/agent/graph/prompts"
	"github.com/finsight-router/server/internal/agent/graph/tools"
	"github.com/finsight-router/server/internal/agent/model"
)

func TestRoute(t *testing.T) {
	assert.Equal(t, model.BranchFinancial, Route(nil))
	assert.Equal(t, model.BranchFinancial, Route([]string{}))
	assert.Equal(t, model.BranchDocument, Route([]string{"documents/TCS/annual.pdf"}))
	assert.Equal(t, model.BranchDocument, Route([]string{"a", "b", "c"}))

	for _, sources := range [][]string{nil, {"x"}} {
		assert.Equal(t, Route(sources), Route(sources), "routing is deterministic")
	}
}

func TestToolExecNode(t *testing.T) {
	assert.Equal(t, NodeFinancialToolExec, ToolExecNode(model.BranchFinancial))
	assert.Equal(t, NodeDocumentToolExec, ToolExecNode(model.BranchDocument))
}

func TestMaxRunSteps(t *testing.T) {
	assert.Equal(t, 30, MaxRunSteps(0))
	assert.Equal(t, 20, MaxRunSteps(1))
	assert.Equal(t, 50, MaxRunSteps(20))
}

func TestToolLimit(t *testing.T) {
	s := &model.SessionState{}
	assert.False(t, addToolCallsAndCheck(s, 2, 3))
	assert.False(t, checkAndMarkToolLimit(s, 3))
	assert.True(t, addToolCallsAndCheck(s, 2, 3))
	assert.True(t, checkAndMarkToolLimit(s, 3))
	assert.False(t, checkAndMarkToolLimit(s, 3), "marked only once")
	assert.True(t, s.ToolCallLimitReached)
}

func TestBindRetrievalScope(t *testing.T) {
	msg := schema.AssistantMessage("", []schema.ToolCall{
		{ID: "1", Function: schema.FunctionCall{Name: tools.ToolRetrieveDocuments,
			Arguments: `{"query":"margins","collection":"documents/WRONG","document_sources":["other.pdf"]}`}},
		{ID: "2", Function: schema.FunctionCall{Name: tools.ToolInfo, Arguments: `{"symbol":"TCS.NS"}`}},
	})

	require.NoError(t, bindRetrievalScope(msg, "TCS", []string{"documents/TCS/annual.pdf"}))

	var args tools.RetrieveDocumentsInput
	require.NoError(t, json.Unmarshal([]byte(msg.ToolCalls[0].Function.Arguments), &args))
	assert.Equal(t, "margins", args.Query)
	assert.Equal(t, "TCS", args.Collection)
	assert.Equal(t, []string{"documents/TCS/annual.pdf"}, args.DocumentSources)
	assert.Equal(t, `{"symbol":"TCS.NS"}`, msg.ToolCalls[1].Function.Arguments)
}

func TestRouterHandlers(t *testing.T) {
	ctx := context.Background()
	s := &model.SessionState{SessionID: "s1", ToolCallCount: 4}
	in := model.QueryInput{Query: "What is the price of TSLA?", Symbol: " TSLA "}

	in, err := NewRouterPreHandler()(ctx, in, s)
	require.NoError(t, err)
	assert.Equal(t, "TSLA", s.Symbol)
	assert.Zero(t, s.ToolCallCount)

	assert.NotNil(t, NewRouterNode())

	msgs, err := NewRouterPostHandler()(ctx, []*schema.Message{schema.UserMessage(in.Query)}, s)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Equal(t, 1, s.Transcript.Len())
	assert.Equal(t, schema.User, s.Transcript.Last().Role)
}

func TestAgentHandlers(t *testing.T) {
	ctx := context.Background()
	renders := 0
	cfg := AgentNodeConfig{
		Branch:       model.BranchDocument,
		ModelName:    "gemini-2.0-flash",
		MaxToolCalls: 1,
		Prompt: func(ctx context.Context, s *model.SessionState) (string, error) {
			renders++
			return "system for " + s.Collection, nil
		},
	}
	s := &model.SessionState{SessionID: "s1", Collection: "TCS", DocumentSources: []string{"documents/TCS/a.pdf"}}
	s.Transcript.Append(schema.UserMessage("What was the revenue?"))

	pre := NewAgentPreHandler(cfg)
	post := NewAgentPostHandler(cfg)

	in, err := pre(ctx, nil, s)
	require.NoError(t, err)
	require.Len(t, in, 2)
	assert.Equal(t, "system for TCS", in[0].Content)
	assert.Equal(t, schema.User, in[1].Role)

	reply := schema.AssistantMessage("", []schema.ToolCall{{
		Function: schema.FunctionCall{Name: tools.ToolRetrieveDocuments, Arguments: `{"query":"revenue"}`},
	}})
	reply.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 0}}
	out, err := post(ctx, reply, s)
	require.NoError(t, err)
	assert.Equal(t, "call_1", out.ToolCalls[0].ID)
	assert.Contains(t, out.ToolCalls[0].Function.Arguments, `"collection":"TCS"`)
	assert.InDelta(t, 0.10, s.TotalCostUSD, 1e-9)
	assert.Equal(t, 2, s.Transcript.Len())

	_, err = NewToolExecPreHandler(cfg.MaxToolCalls)(ctx, out, s)
	require.NoError(t, err)
	results, err := NewToolExecPostHandler()(ctx, []*schema.Message{schema.ToolMessage("passage", "")}, s)
	require.NoError(t, err)
	assert.Equal(t, "call_1", results[0].ToolCallID)
	assert.Empty(t, s.Transcript.PendingToolCalls())

	in, err = pre(ctx, results, s)
	require.NoError(t, err)
	assert.Equal(t, 1, renders, "system prompt is rendered once per session")
	assert.True(t, s.ToolCallLimitReached)
	assert.Equal(t, prompts.ToolLimitNotice, in[len(in)-1].Content)
	assert.Equal(t, 4, s.Transcript.Len())
}

func TestAgentConditionOutsideGraph(t *testing.T) {
	cond := NewAgentCondition(model.BranchFinancial)

	next, err := cond(context.Background(), schema.AssistantMessage("", []schema.ToolCall{{ID: "1"}}))
	require.NoError(t, err)
	assert.Equal(t, NodeFinancialToolExec, next)

	next, err = cond(context.Background(), schema.AssistantMessage("done", nil))
	require.NoError(t, err)
	assert.Equal(t, compose.END, next)
}
