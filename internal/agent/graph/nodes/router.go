package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/finsight-router/server/internal/agent/model"
	logx "github.com/finsight-router/server/pkg/logger"
)

// Node names. Agent node names match the router's branch values.
const (
	NodeRouter            = "Router"
	NodeFinancialAgent    = string(model.BranchFinancial)
	NodeDocumentAgent     = string(model.BranchDocument)
	NodeFinancialToolExec = "FinancialToolExec"
	NodeDocumentToolExec  = "DocumentToolExec"
)

// Route picks the agent branch: any document source selects the document
// agent, otherwise the financial agent answers.
func Route(documentSources []string) model.Branch {
	if len(documentSources) > 0 {
		return model.BranchDocument
	}
	return model.BranchFinancial
}

// ToolExecNode returns the tool execution node that belongs to branch.
func ToolExecNode(b model.Branch) string {
	if b == model.BranchDocument {
		return NodeDocumentToolExec
	}
	return NodeFinancialToolExec
}

// NewRouterPreHandler seeds the session state from the request.
func NewRouterPreHandler() func(context.Context, model.QueryInput, *model.SessionState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.SessionState) (model.QueryInput, error) {
		s.Query = in.Query
		s.Symbol = strings.TrimSpace(in.Symbol)
		s.Collection = strings.TrimSpace(in.Collection)
		s.DocumentSources = append([]string(nil), in.DocumentSources...)

		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		s.SystemPrompt = ""
		return in, nil
	}
}

// NewRouterNode turns the request into the opening user message.
func NewRouterNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.QueryInput) ([]*schema.Message, error) {
		if strings.TrimSpace(in.Query) == "" {
			return nil, fmt.Errorf("query is empty")
		}
		return []*schema.Message{schema.UserMessage(in.Query)}, nil
	})
}

// NewRouterPostHandler records the user message in the transcript.
func NewRouterPostHandler() func(context.Context, []*schema.Message, *model.SessionState) ([]*schema.Message, error) {
	return func(ctx context.Context, out []*schema.Message, s *model.SessionState) ([]*schema.Message, error) {
		s.Transcript.Append(out...)
		return out, nil
	}
}

// NewRouterCondition selects the agent node for the session's sources.
func NewRouterCondition() func(context.Context, []*schema.Message) (string, error) {
	return func(ctx context.Context, _ []*schema.Message) (string, error) {
		var (
			sources   []string
			sessionID string
		)
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.SessionState) error {
			sources = s.DocumentSources
			sessionID = s.SessionID
			return nil
		}); err != nil {
			return "", fmt.Errorf("read session state: %w", err)
		}

		branch := Route(sources)
		logx.Debug().
			Str("session_id", sessionID).
			Str("branch", string(branch)).
			Int("document_sources", len(sources)).
			Msg("Routing query")
		return string(branch), nil
	}
}
