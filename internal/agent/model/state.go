package model

import "github.com/cloudwego/eino/schema"

// Branch is the router's decision for a session.
type Branch string

const (
	BranchFinancial Branch = "FinancialAgent"
	BranchDocument  Branch = "DocumentAgent"
)

// SessionState stores per-invocation state for the agent graph.
// Concurrency model:
//   - Registered as graph local state via compose.WithGenLocalState; one
//     instance per Invoke, never shared across requests.
//   - All reads/writes happen inside eino state handlers or compose.ProcessState,
//     which serialise access, so no mutex is needed.
//   - The runner reads Transcript only after the graph run has returned.
type SessionState struct {
	SessionID       string
	Query           string
	Symbol          string
	Collection      string
	DocumentSources []string
	Transcript      Transcript
	SystemPrompt    string // rendered once per session by the selected agent

	ToolCallCount        int  // incremented per tool execution round
	ToolCallLimitReached bool // set when the tool call limit is exceeded
	ToolCallIDSeq        int  // local sequence to synthesize tool_call_id when provider omits

	// Accumulated total LLM cost (USD) across model invocations for this query
	TotalCostUSD float64
}

// QueryInput is the entry point payload.
type QueryInput struct {
	Query           string   `json:"query"`
	Symbol          string   `json:"symbol"`
	DocumentSources []string `json:"document_sources"`
	Collection      string   `json:"collection"`
}

// Result is the outcome of one graph run.
type Result struct {
	SessionID  string
	Branch     Branch
	Answer     string
	Transcript []*schema.Message
	CostUSD    float64
}
