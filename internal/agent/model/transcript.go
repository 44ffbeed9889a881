package model

import "github.com/cloudwego/eino/schema"

// Transcript is the append-only message log of one session. Messages are
// never removed or replaced; callers get copies of the slice header only.
type Transcript struct {
	msgs []*schema.Message
}

// Append adds messages to the end of the log, skipping nils.
func (t *Transcript) Append(msgs ...*schema.Message) {
	for _, m := range msgs {
		if m != nil {
			t.msgs = append(t.msgs, m)
		}
	}
}

// Last returns the most recent message, or nil for an empty log.
func (t *Transcript) Last() *schema.Message {
	if len(t.msgs) == 0 {
		return nil
	}
	return t.msgs[len(t.msgs)-1]
}

func (t *Transcript) Len() int {
	return len(t.msgs)
}

// Messages returns a copy of the log.
func (t *Transcript) Messages() []*schema.Message {
	out := make([]*schema.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// HasToolResult reports whether any tool output has been recorded.
func (t *Transcript) HasToolResult() bool {
	for _, m := range t.msgs {
		if m.Role == schema.Tool {
			return true
		}
	}
	return false
}

// PendingToolCalls returns the tool calls of the latest assistant message
// that have no matching tool result after it.
func (t *Transcript) PendingToolCalls() []schema.ToolCall {
	idx := -1
	for i := len(t.msgs) - 1; i >= 0; i-- {
		if t.msgs[i].Role == schema.Assistant {
			idx = i
			break
		}
	}
	if idx < 0 || len(t.msgs[idx].ToolCalls) == 0 {
		return nil
	}
	answered := make(map[string]bool)
	for _, m := range t.msgs[idx+1:] {
		if m.Role == schema.Tool {
			answered[m.ToolCallID] = true
		}
	}
	var pending []schema.ToolCall
	for _, tc := range t.msgs[idx].ToolCalls {
		if !answered[tc.ID] {
			pending = append(pending, tc)
		}
	}
	return pending
}
