package api

import (
	"github.com/cloudwego/eino/schema"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Query     string   `json:"query" binding:"required"`
	Symbol    string   `json:"symbol" binding:"required"`
	Documents []string `json:"documents"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Branch    string `json:"branch"`
}

type CatalogSymbol struct {
	Symbol     string   `json:"symbol"`
	Collection string   `json:"collection"`
	Documents  []string `json:"documents"`
}

type CatalogResponse struct {
	Symbols []CatalogSymbol `json:"symbols"`
}

type ToolCallView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type MessageView struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []ToolCallView `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type TranscriptResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []MessageView `json:"messages"`
}

func toMessageView(m *schema.Message) MessageView {
	v := MessageView{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		v.ToolCalls = append(v.ToolCalls, ToolCallView{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return v
}
