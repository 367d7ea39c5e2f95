package tool

import (
	"github.com/hupe1980/agenthooks/core"
)

// NewEchoTool returns a tool that echoes its input back. Handy for exercising
// the tool calling path in examples and tests without external dependencies.
func NewEchoTool() Tool {
	return NewFunctionTool(
		"echo",
		"Echo the input text back to the caller.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string", "description": "Text to echo"},
			},
			"required": []string{"text"},
		},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			text, _ := args["text"].(string)
			return "Echo: " + text, nil
		},
	)
}
