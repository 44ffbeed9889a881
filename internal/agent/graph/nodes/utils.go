package nodes

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/finsight-router/server/internal/agent/graph/prompts"
	"github.com/finsight-router/server/internal/agent/graph/tools"
	"github.com/finsight-router/server/internal/agent/model"
)

const DefaultMaxToolCalls = 10

// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// MaxRunSteps bounds a graph run: router, one agent turn per tool round and
// one tool round per call in the worst case, plus the closing turn.
func MaxRunSteps(maxToolCalls int) int {
	steps := 10 + normalizeMaxToolCalls(maxToolCalls)*2
	if steps < 20 {
		steps = 20
	}
	return steps
}

// checkAndMarkToolLimit marks the state once the budget is spent. Returns true
// only on the call that marks it.
func checkAndMarkToolLimit(state *model.SessionState, max int) bool {
	max = normalizeMaxToolCalls(max)
	if !state.ToolCallLimitReached && state.ToolCallCount >= max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// addToolCallsAndCheck counts n executed calls and reports whether the
// budget was exceeded by them.
func addToolCallsAndCheck(state *model.SessionState, n, max int) bool {
	max = normalizeMaxToolCalls(max)
	state.ToolCallCount += n
	return state.ToolCallCount > max
}

// closeOverBudget turns a reply that still asks for tools into a final answer.
// Calls that will never run are removed so the transcript has no unanswered calls.
func closeOverBudget(msg *schema.Message) *schema.Message {
	out := *msg
	out.ToolCalls = nil
	if strings.TrimSpace(out.Content) == "" {
		out.Content = prompts.ToolBudgetExhaustedAnswer
	}
	return &out
}

// normalizeToolCallIDs fills in IDs some providers omit so tool results can
// be matched to their calls.
func normalizeToolCallIDs(state *model.SessionState, msg *schema.Message) {
	for i := range msg.ToolCalls {
		if strings.TrimSpace(msg.ToolCalls[i].ID) == "" {
			state.ToolCallIDSeq++
			msg.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
		}
	}
}

// bindRetrievalScope overwrites the collection and sources of every retrieval
// call with the session's values, whatever the model supplied.
func bindRetrievalScope(msg *schema.Message, collection string, sources []string) error {
	for i := range msg.ToolCalls {
		tc := &msg.ToolCalls[i]
		if tc.Function.Name != tools.ToolRetrieveDocuments {
			continue
		}
		args := map[string]any{}
		if strings.TrimSpace(tc.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				// Leave malformed arguments for schema validation to report.
				continue
			}
		}
		args["collection"] = collection
		if sources == nil {
			sources = []string{}
		}
		args["document_sources"] = sources
		b, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("bind retrieval scope: %w", err)
		}
		tc.Function.Arguments = string(b)
	}
	return nil
}
