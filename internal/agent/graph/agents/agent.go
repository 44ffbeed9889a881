package agents

import (
	"context"
	"fmt"
	"strings"

	chatmodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/finsight-router/server/internal/agent/model"
	logx "github.com/finsight-router/server/pkg/logger"
)

// ToolChoicePolicy decides whether the model may answer without calling a tool.
type ToolChoicePolicy int

const (
	// PolicyAuto lets the model decide on every turn.
	PolicyAuto ToolChoicePolicy = iota
	// PolicyRequired forces a tool call on every turn.
	PolicyRequired
	// PolicyGrounded forces a tool call until the transcript holds a tool
	// result, then lets the model answer.
	PolicyGrounded
)

func (p ToolChoicePolicy) String() string {
	switch p {
	case PolicyAuto:
		return "auto"
	case PolicyRequired:
		return "required"
	case PolicyGrounded:
		return "grounded"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy maps a config value onto a policy. Empty means grounded.
func ParsePolicy(s string) (ToolChoicePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "grounded":
		return PolicyGrounded, nil
	case "auto":
		return PolicyAuto, nil
	case "required", "any":
		return PolicyRequired, nil
	}
	return PolicyAuto, fmt.Errorf("unknown tool choice policy %q", s)
}

// Config is the immutable description of one agent.
type Config struct {
	Branch    model.Branch
	ModelName string
	Tools     []*schema.ToolInfo
	Policy    ToolChoicePolicy
}

// Agent is a chat model bound to one tool set that applies its tool-choice
// policy on every call. It is used directly as a graph chat model node.
type Agent struct {
	cfg  Config
	chat chatmodel.ToolCallingChatModel
}

var _ chatmodel.BaseChatModel = (*Agent)(nil)

// New binds cfg.Tools to base. The base model is not modified.
func New(base chatmodel.ToolCallingChatModel, cfg Config) (*Agent, error) {
	if base == nil {
		return nil, fmt.Errorf("agent %s: chat model is nil", cfg.Branch)
	}
	if len(cfg.Tools) == 0 {
		return nil, fmt.Errorf("agent %s: no tools bound", cfg.Branch)
	}
	bound, err := base.WithTools(cfg.Tools)
	if err != nil {
		return nil, fmt.Errorf("agent %s: bind tools: %w", cfg.Branch, err)
	}
	return &Agent{cfg: cfg, chat: bound}, nil
}

func (a *Agent) Config() Config { return a.cfg }

func (a *Agent) Generate(ctx context.Context, input []*schema.Message, opts ...chatmodel.Option) (*schema.Message, error) {
	return a.chat.Generate(ctx, input, a.withToolChoice(ctx, input, opts)...)
}

func (a *Agent) Stream(ctx context.Context, input []*schema.Message, opts ...chatmodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return a.chat.Stream(ctx, input, a.withToolChoice(ctx, input, opts)...)
}

// IsCallbacksEnabled reports true so the graph leaves callback emission to the
// wrapped model instead of firing them twice.
func (a *Agent) IsCallbacksEnabled() bool { return true }

func (a *Agent) withToolChoice(ctx context.Context, input []*schema.Message, opts []chatmodel.Option) []chatmodel.Option {
	var (
		limitReached  bool
		hasToolResult bool
	)
	err := compose.ProcessState(ctx, func(_ context.Context, s *model.SessionState) error {
		limitReached = s.ToolCallLimitReached
		hasToolResult = s.Transcript.HasToolResult()
		return nil
	})
	if err != nil {
		// Called outside a graph run: judge from the input alone.
		var tr model.Transcript
		tr.Append(input...)
		hasToolResult = tr.HasToolResult()
	}

	choice := ToolChoice(a.cfg.Policy, hasToolResult, limitReached)
	logx.Debug().
		Str("branch", string(a.cfg.Branch)).
		Str("policy", a.cfg.Policy.String()).
		Str("tool_choice", string(choice)).
		Msg("Agent turn")

	out := make([]chatmodel.Option, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, chatmodel.WithToolChoice(choice))
}

// ToolChoice computes the tool choice for one turn.
func ToolChoice(p ToolChoicePolicy, hasToolResult, limitReached bool) schema.ToolChoice {
	if limitReached {
		return schema.ToolChoiceForbidden
	}
	switch p {
	case PolicyRequired:
		return schema.ToolChoiceForced
	case PolicyGrounded:
		if hasToolResult {
			return schema.ToolChoiceAllowed
		}
		return schema.ToolChoiceForced
	}
	return schema.ToolChoiceAllowed
}
