package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/finsight-router/server/internal/metrics"
	logx "github.com/finsight-router/server/pkg/logger"
)

const componentModel = "model"

// newModelHandler logs model turns and records latency and token usage.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ev := logx.Debug().Str("agent", runName(info))
			if input != nil {
				ev = ev.Int("messages", len(input.Messages)).Int("tools", len(input.Tools))
				if um := lastUserContent(input.Messages); um != "" {
					ev = ev.Str("user", um)
				}
			}
			ev.Msg("Model start")
			return withStart(ctx, info, componentModel)
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			var in, out int
			ev := logx.Debug().Str("agent", runName(info))
			if output != nil {
				if output.TokenUsage != nil {
					in, out = output.TokenUsage.PromptTokens, output.TokenUsage.CompletionTokens
				}
				if output.Message != nil {
					ev = ev.Int("tool_calls", len(output.Message.ToolCalls))
					if content := strings.TrimSpace(output.Message.Content); content != "" {
						ev = ev.Str("assistant", content)
					}
				}
			}
			ev.Int("prompt_tokens", in).Int("completion_tokens", out).Msg("Model end")
			metrics.RecordAgentCall(runName(info), sinceStart(ctx, info, componentModel), in, out, nil)
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("agent", runName(info)).Msg("Model error")
			metrics.RecordAgentCall(runName(info), sinceStart(ctx, info, componentModel), 0, 0, err)
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}
