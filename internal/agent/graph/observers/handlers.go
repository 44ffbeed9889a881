package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates all observer handlers (prompt, model, tool) into one callbacks.Handler.
func NewAllCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Tool(newToolHandler()).
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}

type startKey struct{ component, name string }

func withStart(ctx context.Context, info *einocb.RunInfo, component string) context.Context {
	return context.WithValue(ctx, startKey{component, runName(info)}, time.Now())
}

func sinceStart(ctx context.Context, info *einocb.RunInfo, component string) time.Duration {
	if t, ok := ctx.Value(startKey{component, runName(info)}).(time.Time); ok {
		return time.Since(t)
	}
	return 0
}

func runName(info *einocb.RunInfo) string {
	if info == nil || info.Name == "" {
		return "unknown"
	}
	return info.Name
}
