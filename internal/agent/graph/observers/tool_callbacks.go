package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/finsight-router/server/internal/agent/graph/tools"
	"github.com/finsight-router/server/internal/metrics"
	logx "github.com/finsight-router/server/pkg/logger"
)

const componentTool = "tool"

// failurePrefixes mark tool output that reports a failure as text.
var failurePrefixes = []string{"Error ", "Error:", "Invalid arguments", "No "}

// newToolHandler logs tool lifecycle events and records tool metrics.
func newToolHandler() *callbackHelper.ToolCallbackHandler {
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			ev := logx.Debug().Str("tool_name", runName(info))
			if input != nil {
				ev = ev.Str("arguments", input.ArgumentsInJSON)
			}
			ev.Msg("Tool start")
			return withStart(ctx, info, componentTool)
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			resp := ""
			if output != nil {
				resp = output.Response
			}
			failed := IsFailureResult(resp)
			logx.Debug().
				Str("tool_name", runName(info)).
				Int("response_bytes", len(resp)).
				Bool("failed_result", failed).
				Msg("Tool end")
			metrics.RecordToolExecution(runName(info), sinceStart(ctx, info, componentTool), failed, nil)
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("tool_name", runName(info)).Msg("Tool execution failed")
			metrics.RecordToolExecution(runName(info), sinceStart(ctx, info, componentTool), false, err)
			return ctx
		},
	}
}

// IsFailureResult reports whether a tool response describes a failure.
func IsFailureResult(resp string) bool {
	if resp == tools.NoDocumentsFound {
		return true
	}
	for _, p := range failurePrefixes {
		if strings.HasPrefix(resp, p) {
			return true
		}
	}
	return false
}
