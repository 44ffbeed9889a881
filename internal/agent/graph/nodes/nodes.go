package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/finsight-router/server/internal/agent/graph/prompts"
	"github.com/finsight-router/server/internal/agent/graph/tools"
	"github.com/finsight-router/server/internal/agent/model"
	logx "github.com/finsight-router/server/pkg/logger"
)

// PromptFunc renders an agent's system prompt from the session.
type PromptFunc func(ctx context.Context, s *model.SessionState) (string, error)

func FinancialPrompt(ctx context.Context, s *model.SessionState) (string, error) {
	return prompts.RenderFinancialSystem(ctx, s.Symbol)
}

func DocumentPrompt(ctx context.Context, s *model.SessionState) (string, error) {
	return prompts.RenderDocumentSystem(ctx, s.Symbol, s.Collection, s.DocumentSources)
}

// AgentNodeConfig configures the state handlers around one agent node.
type AgentNodeConfig struct {
	Branch       model.Branch
	ModelName    string
	MaxToolCalls int
	Prompt       PromptFunc
}

// NewAgentPreHandler replaces the node input with system prompt + transcript.
// The transcript already holds the user message and every tool result.
func NewAgentPreHandler(cfg AgentNodeConfig) func(context.Context, []*schema.Message, *model.SessionState) ([]*schema.Message, error) {
	return func(ctx context.Context, _ []*schema.Message, s *model.SessionState) ([]*schema.Message, error) {
		if s.SystemPrompt == "" {
			p, err := cfg.Prompt(ctx, s)
			if err != nil {
				return nil, fmt.Errorf("render %s system prompt: %w", cfg.Branch, err)
			}
			s.SystemPrompt = p
		}

		if checkAndMarkToolLimit(s, cfg.MaxToolCalls) {
			logx.Warn().
				Str("session_id", s.SessionID).
				Str("node", string(cfg.Branch)).
				Int("tool_call_count", s.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(cfg.MaxToolCalls)).
				Msg("Tool call limit reached - asking agent to answer")
			s.Transcript.Append(schema.SystemMessage(prompts.ToolLimitNotice))
		}

		msgs := make([]*schema.Message, 0, s.Transcript.Len()+1)
		msgs = append(msgs, schema.SystemMessage(s.SystemPrompt))
		msgs = append(msgs, s.Transcript.Messages()...)

		logx.Debug().Str("session_id", s.SessionID).Str("node", string(cfg.Branch)).
			Int("messages", len(msgs)).Msg("AI thinking...")
		return msgs, nil
	}
}

// NewAgentPostHandler prices the turn, normalizes tool calls and appends the
// reply to the transcript.
func NewAgentPostHandler(cfg AgentNodeConfig) func(context.Context, *schema.Message, *model.SessionState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, s *model.SessionState) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("%s returned no message", cfg.Branch)
		}

		if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			usage := out.ResponseMeta.Usage
			cost := model.ComputeCost(usage, model.ResolvePricing(cfg.ModelName))
			s.TotalCostUSD += cost.Total
			if out.Extra == nil {
				out.Extra = map[string]any{}
			}
			out.Extra["usage_cost"] = map[string]any{
				"currency":    "USD",
				"model":       cfg.ModelName,
				"input_cost":  cost.Input,
				"output_cost": cost.Output,
				"total_cost":  cost.Total,
			}
			out.Extra["usage_cost_total_usd"] = s.TotalCostUSD
			logx.Debug().
				Str("session_id", s.SessionID).
				Str("node", string(cfg.Branch)).
				Str("model", cfg.ModelName).
				Int("prompt_tokens", usage.PromptTokens).
				Int("completion_tokens", usage.CompletionTokens).
				Float64("total_cost_usd", cost.Total).
				Msg("LLM usage")
		}

		if s.ToolCallLimitReached && len(out.ToolCalls) > 0 {
			logx.Warn().
				Str("session_id", s.SessionID).
				Str("node", string(cfg.Branch)).
				Int("dropped_tool_calls", len(out.ToolCalls)).
				Msg("Tool calls after the limit were dropped")
			out = closeOverBudget(out)
		}

		normalizeToolCallIDs(s, out)
		if cfg.Branch == model.BranchDocument {
			if err := bindRetrievalScope(out, s.Collection, s.DocumentSources); err != nil {
				return nil, err
			}
		}

		s.Transcript.Append(out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Str("session_id", s.SessionID).Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Str("session_id", s.SessionID).Msg("AI response ready")
		}
		return out, nil
	}
}

// NewAgentCondition sends a reply with tool calls to the branch's tool node and
// ends the run otherwise, or once the tool budget is spent.
func NewAgentCondition(branch model.Branch) func(context.Context, *schema.Message) (string, error) {
	toolNode := ToolExecNode(branch)
	return func(ctx context.Context, in *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState(ctx, func(_ context.Context, s *model.SessionState) error {
			limitReached = s.ToolCallLimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Str("node", string(branch)).Msg("Tool limit reached - routing to end")
			return compose.END, nil
		}
		if in != nil && len(in.ToolCalls) > 0 {
			logx.Debug().Str("node", string(branch)).Int("tool_count", len(in.ToolCalls)).Msg("Routing to " + toolNode)
			return toolNode, nil
		}
		return compose.END, nil
	}
}

// NewToolExecPreHandler counts the calls about to run against the budget.
func NewToolExecPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.SessionState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, s *model.SessionState) (*schema.Message, error) {
		exceeded := addToolCallsAndCheck(s, len(in.ToolCalls), maxToolCalls)
		logx.Debug().
			Str("session_id", s.SessionID).
			Int("tool_call_count", s.ToolCallCount).
			Msg("Tool execution attempt")
		if exceeded {
			logx.Warn().
				Str("session_id", s.SessionID).
				Int("tool_call_count", s.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Msg("Tool call limit exceeded - running this round, then closing")
		}
		return in, nil
	}
}

// NewToolExecPostHandler appends the tool results to the transcript.
func NewToolExecPostHandler() func(context.Context, []*schema.Message, *model.SessionState) ([]*schema.Message, error) {
	return func(ctx context.Context, out []*schema.Message, s *model.SessionState) ([]*schema.Message, error) {
		pending := s.Transcript.PendingToolCalls()
		for i, m := range out {
			if m != nil && strings.TrimSpace(m.ToolCallID) == "" && i < len(pending) {
				m.ToolCallID = pending[i].ID
			}
		}
		s.Transcript.Append(out...)
		return out, nil
	}
}

// NewToolsNode builds a sequential tools node over ts. Unknown tools and bad
// arguments come back to the model as text.
func NewToolsNode(ctx context.Context, ts []tool.BaseTool) (*compose.ToolsNode, error) {
	return compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               ts,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown tool call; returning fallback result")
			return tools.UnknownToolResult(name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return tools.SanitizeArguments(name, arguments), nil
		},
	})
}
