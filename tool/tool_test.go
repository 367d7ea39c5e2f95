package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agenthooks/core"
	"github.com/hupe1980/agenthooks/internal/util"
	"github.com/hupe1980/agenthooks/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Schema & Validation Tests --------------------

type sampleSchema struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" description:"Omit empty field"`
}

func TestCreateSchema(t *testing.T) {
	schema := util.CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")

	required, ok := schema["required"].([]string)
	assert.True(t, ok)
	assert.Contains(t, required, "a")
	assert.NotContains(t, required, "b", "pointer fields are optional")
	assert.NotContains(t, required, "c", "omitempty fields are optional")
}

func newTestToolContext(t *testing.T) *core.ToolContext {
	t.Helper()

	sess := core.NewSession("s1")
	runCtx := core.NewRunContext(
		context.Background(),
		"s1", "run1", "test",
		core.NewTextContent("user", "hi"),
		10,
		nil, nil,
		sess, nil,
		logging.NoOpLogger{},
	)
	return core.NewToolContext(runCtx, "fc1")
}

// -------------------- FunctionTool Tests --------------------

func TestFunctionToolCall(t *testing.T) {
	sum := NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)

	result, err := sum.Call(newTestToolContext(t), map[string]any{"a": 1.5, "b": 2.5})
	require.NoError(t, err)
	assert.Equal(t, 4.0, result)
}

func TestFunctionToolValidationError(t *testing.T) {
	echo := NewEchoTool()

	_, err := echo.Call(newTestToolContext(t), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Equal(t, "echo", toolErr.Tool)
}

func TestFunctionToolExecutionError(t *testing.T) {
	failing := NewFunctionTool(
		"failing", "Always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			return nil, errors.New("boom")
		},
	)

	_, err := failing.Call(newTestToolContext(t), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
}

func TestFunctionToolPreservesToolError(t *testing.T) {
	custom := NewFunctionTool(
		"custom", "Returns custom ToolError",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			return nil, NewToolError("custom", "quota exceeded", "QUOTA")
		},
	)

	_, err := custom.Call(newTestToolContext(t), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "QUOTA", toolErr.Code)
}

func TestEchoTool(t *testing.T) {
	echo := NewEchoTool()
	assert.Equal(t, "echo", echo.Name())

	result, err := echo.Call(newTestToolContext(t), map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Echo: hello", result)
}

func TestToolContextStateDelta(t *testing.T) {
	recorder := NewFunctionTool(
		"recorder", "Writes state",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(tc *core.ToolContext, _ map[string]any) (any, error) {
			tc.SetState("last_tool", "recorder")
			return "ok", nil
		},
	)

	tc := newTestToolContext(t)
	_, err := recorder.Call(tc, map[string]any{})
	require.NoError(t, err)

	val, ok := tc.GetState("last_tool")
	require.True(t, ok)
	assert.Equal(t, "recorder", val)

	ev := core.NewEvent("run1", "tool")
	tc.ApplyTo(&ev)
	assert.Equal(t, "recorder", ev.StateDelta["last_tool"])
}
