package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/finsight-router/server/internal/agent/graph/tools"
)

//go:embed template/financial_prompt.txt
var financialSystemPrompt string

//go:embed template/document_prompt.txt
var documentSystemPrompt string

// ToolLimitNotice is injected once the per-request tool budget is spent.
const ToolLimitNotice = "The tool call limit for this request has been reached. Do not call any more tools. " +
	"Answer the user now using only the tool results already in this conversation, and say so if they are insufficient."

// ToolBudgetExhaustedAnswer replaces an empty final answer when the model
// keeps requesting tools after the budget is spent.
const ToolBudgetExhaustedAnswer = "I could not complete this request within the tool call budget. " +
	"Please narrow the question and try again."

// RenderFinancialSystem renders the financial agent's system prompt for a ticker.
func RenderFinancialSystem(ctx context.Context, symbol string) (string, error) {
	return render(ctx, "financial", financialSystemPrompt, map[string]any{
		"Symbol":         symbol,
		"Tools":          tools.FinancialToolNames,
		"InfoTool":       tools.ToolInfo,
		"FinancialsTool": tools.ToolFinancials,
	})
}

// RenderDocumentSystem renders the document agent's system prompt with the
// session's collection and selected sources.
func RenderDocumentSystem(ctx context.Context, symbol, collection string, sources []string) (string, error) {
	return render(ctx, "document", documentSystemPrompt, map[string]any{
		"Symbol":          symbol,
		"Collection":      collection,
		"DocumentSources": sources,
		"RetrievalTool":   tools.ToolRetrieveDocuments,
	})
}

// render formats through the eino prompt component so prompt callbacks fire.
func render(ctx context.Context, name, tpl string, vars map[string]any) (string, error) {
	msgs, err := prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(tpl)).Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs[0].Content, nil
}
