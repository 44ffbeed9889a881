package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// Registry is the closed set of tools known to the server. It is built once at
// startup and only read afterwards.
type Registry struct {
	tools map[string]tool.InvokableTool
	infos map[string]*schema.ToolInfo
	order []string
}

// NewRegistry validates the tool descriptors and rejects duplicate names.
func NewRegistry(ctx context.Context, ts ...tool.InvokableTool) (*Registry, error) {
	r := &Registry{
		tools: make(map[string]tool.InvokableTool, len(ts)),
		infos: make(map[string]*schema.ToolInfo, len(ts)),
	}
	for _, t := range ts {
		if t == nil {
			return nil, fmt.Errorf("nil tool in registry")
		}
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("read tool info: %w", err)
		}
		if info == nil || strings.TrimSpace(info.Name) == "" {
			return nil, fmt.Errorf("tool without a name")
		}
		if strings.TrimSpace(info.Desc) == "" {
			return nil, fmt.Errorf("tool %s has no description", info.Name)
		}
		if _, dup := r.tools[info.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", info.Name)
		}
		r.tools[info.Name] = t
		r.infos[info.Name] = info
		r.order = append(r.order, info.Name)
	}
	return r, nil
}

// Names returns every registered tool name in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Tools returns the named subset, for binding to a tools node.
func (r *Registry) Tools(names ...string) ([]tool.BaseTool, error) {
	out := make([]tool.BaseTool, 0, len(names))
	for _, n := range names {
		t, ok := r.tools[n]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", n)
		}
		out = append(out, t)
	}
	return out, nil
}

// Infos returns the descriptors of the named subset, for binding to a model.
func (r *Registry) Infos(names ...string) ([]*schema.ToolInfo, error) {
	out := make([]*schema.ToolInfo, 0, len(names))
	for _, n := range names {
		info, ok := r.infos[n]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", n)
		}
		out = append(out, info)
	}
	return out, nil
}

// UnknownToolResult is the tool output reported when the model names a tool
// that is not bound to the current agent.
func UnknownToolResult(name string) string {
	return fmt.Sprintf("Error: tool %q is not available. Use one of the provided tools.", name)
}

// SanitizeArguments trims string arguments and normalises ticker symbols
// before validation. Unparseable input is returned unchanged so that schema
// validation can report it.
func SanitizeArguments(name, arguments string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return arguments
	}
	for k, v := range args {
		switch val := v.(type) {
		case string:
			val = strings.TrimSpace(val)
			if k == "symbol" {
				val = strings.ToUpper(val)
			}
			args[k] = val
		case []any:
			for i, item := range val {
				if s, ok := item.(string); ok {
					val[i] = strings.TrimSpace(s)
				}
			}
		}
	}
	out, err := json.Marshal(args)
	if err != nil {
		return arguments
	}
	return string(out)
}
