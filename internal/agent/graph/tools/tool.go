package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/xeipuuv/gojsonschema"

	logx "github.com/finsight-router/server/pkg/logger"
)

// textTool is an InvokableTool that never fails the graph: invalid arguments,
// handler errors and panics all come back to the model as text.
type textTool struct {
	info      *schema.ToolInfo
	validator *gojsonschema.Schema
	run       func(ctx context.Context, args []byte) (string, error)
}

var _ tool.InvokableTool = (*textTool)(nil)

// newTextTool builds a tool with typed input T decoded from the call arguments.
func newTextTool[T any](
	name, desc string,
	params map[string]*schema.ParameterInfo,
	fn func(ctx context.Context, in *T) (string, error),
) (*textTool, error) {
	validator, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(paramsJSONSchema(params)))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", name, err)
	}
	return &textTool{
		info: &schema.ToolInfo{
			Name:        name,
			Desc:        desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		},
		validator: validator,
		run: func(ctx context.Context, args []byte) (string, error) {
			in := new(T)
			if err := json.Unmarshal(args, in); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			return fn(ctx, in)
		},
	}, nil
}

func (t *textTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.info, nil
}

func (t *textTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("tool_name", t.info.Name).Msgf("panic recovered: %v", r)
			out, err = fmt.Sprintf("Error running %s: internal failure", t.info.Name), nil
		}
	}()

	if strings.TrimSpace(argumentsInJSON) == "" {
		argumentsInJSON = "{}"
	}
	if problems := t.validate(argumentsInJSON); problems != "" {
		logx.Warn().Str("tool_name", t.info.Name).Str("arguments", argumentsInJSON).Str("problems", problems).
			Msg("Rejected tool call with invalid arguments")
		return fmt.Sprintf("Invalid arguments for %s: %s", t.info.Name, problems), nil
	}

	res, runErr := t.run(ctx, []byte(argumentsInJSON))
	if runErr != nil {
		return fmt.Sprintf("Error running %s: %v", t.info.Name, runErr), nil
	}
	return res, nil
}

// validate returns a human readable list of schema violations, or "".
func (t *textTool) validate(args string) string {
	result, err := t.validator.Validate(gojsonschema.NewStringLoader(args))
	if err != nil {
		return "arguments are not valid JSON"
	}
	if result.Valid() {
		return ""
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}

// paramsJSONSchema renders eino parameter descriptors as a JSON schema document.
func paramsJSONSchema(params map[string]*schema.ParameterInfo) map[string]any {
	props := make(map[string]any, len(params))
	var required []string
	for name, p := range params {
		props[name] = paramJSONSchema(p)
		if p.Required {
			required = append(required, name)
		}
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		sort.Strings(required)
		out["required"] = required
	}
	return out
}

func paramJSONSchema(p *schema.ParameterInfo) map[string]any {
	m := map[string]any{"type": string(p.Type)}
	if p.Type == schema.Array && p.ElemInfo != nil {
		m["items"] = paramJSONSchema(p.ElemInfo)
	}
	if p.Type == schema.Object && len(p.SubParams) > 0 {
		for k, v := range paramsJSONSchema(p.SubParams) {
			m[k] = v
		}
	}
	if len(p.Enum) > 0 {
		m["enum"] = p.Enum
	}
	return m
}
