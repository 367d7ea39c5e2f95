package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/agenthooks/logging"
)

// ToolContext provides a constrained, auditable surface for tool / function
// implementations invoked by the pipeline. It accumulates a state delta
// without directly mutating the underlying session until applied.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string
	stateDelta     map[string]any

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to a parent RunContext
// and unique functionCallID.
func NewToolContext(runCtx *RunContext, functionCallID string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		loggerAdapter:  newLoggerAdapter(runCtx.Logger()),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// SessionID returns the session ID associated with the tool invocation.
func (tc *ToolContext) SessionID() string { return tc.runCtx.SessionID }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// GetState retrieves the state associated with the given key.
func (tc *ToolContext) GetState(k string) (any, bool) {
	return tc.runCtx.GetState(k)
}

// SetState records a state mutation both on the underlying run context
// (for immediate visibility) and in the local delta for emission.
func (tc *ToolContext) SetState(k string, v any) {
	tc.runCtx.SetState(k, v)
	if tc.stateDelta == nil {
		tc.stateDelta = map[string]any{}
	}

	tc.stateDelta[k] = v
}

// GetSessionHistory returns conversation history (filtered) for context.
func (tc *ToolContext) GetSessionHistory() []Event {
	if tc.runCtx.Session == nil {
		return nil
	}

	return tc.runCtx.Session.GetConversationHistory()
}

// ApplyTo merges the accumulated state delta into the provided event.
// Used by the runner when finalizing tool invocation events.
func (tc *ToolContext) ApplyTo(ev *Event) {
	if len(tc.stateDelta) == 0 {
		return
	}
	if ev.StateDelta == nil {
		ev.StateDelta = map[string]any{}
	}
	for k, v := range tc.stateDelta {
		ev.StateDelta[k] = v
	}
}

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if tc.runCtx == nil || tc.runCtx.SessionID == "" || tc.functionCallID == "" {
		return fmt.Errorf("invalid ToolContext")
	}

	return nil
}
