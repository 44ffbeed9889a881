package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptAppendOnly(t *testing.T) {
	var tr Transcript
	require.Nil(t, tr.Last())

	user := schema.UserMessage("price of TSLA?")
	tr.Append(user, nil)
	require.Equal(t, 1, tr.Len())

	snapshot := tr.Messages()
	tr.Append(schema.AssistantMessage("done", nil))

	assert.Len(t, snapshot, 1, "copies are not affected by later appends")
	assert.Same(t, user, tr.Messages()[0])
	assert.Equal(t, "done", tr.Last().Content)
}

func TestTranscriptPendingToolCalls(t *testing.T) {
	var tr Transcript
	tr.Append(schema.UserMessage("q"))
	assert.False(t, tr.HasToolResult())
	assert.Empty(t, tr.PendingToolCalls())

	tr.Append(schema.AssistantMessage("", []schema.ToolCall{
		{ID: "call_1", Function: schema.FunctionCall{Name: "a", Arguments: "{}"}},
		{ID: "call_2", Function: schema.FunctionCall{Name: "b", Arguments: "{}"}},
	}))
	require.Len(t, tr.PendingToolCalls(), 2)

	tr.Append(schema.ToolMessage("result a", "call_1"))
	pending := tr.PendingToolCalls()
	require.Len(t, pending, 1)
	assert.Equal(t, "call_2", pending[0].ID)
	assert.True(t, tr.HasToolResult())

	tr.Append(schema.ToolMessage("result b", "call_2"))
	assert.Empty(t, tr.PendingToolCalls())
}
