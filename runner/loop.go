package runner

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/agenthooks/core"
	"github.com/hupe1980/agenthooks/internal/util"
	"github.com/hupe1980/agenthooks/logging"
	"github.com/hupe1980/agenthooks/middleware"
	"github.com/hupe1980/agenthooks/model"
)

// loop drives a single run through the hook pipeline:
//
//	before_agent -> (before_model -> model -> after_model -> tools?)* -> after_agent
//
// Jump directives returned by hooks redirect the flow: "end" stops the model
// loop (teardown hooks still run), "tools" skips the model call and executes
// the pending tool calls, "model" restarts the model stage.
type loop struct {
	pipeline *Pipeline
	store    core.SessionStore
	logger   logging.Logger
}

func (l *loop) run(rc *core.RunContext) error {
	chain := l.pipeline.chain()

	update, err := chain.BeforeAgent(rc.Context, l.hookContext(rc, nil, nil))
	if err != nil {
		l.emitError(rc, err)
		return err
	}
	if err := l.applyUpdate(rc, update); err != nil {
		return err
	}
	if update.Jump == core.JumpEnd {
		return l.finalize(rc)
	}

	for {
		select {
		case <-rc.Done():
			return rc.Err()
		default:
		}

		update, err := chain.BeforeModel(rc.Context, l.hookContext(rc, nil, nil))
		if err != nil {
			l.emitError(rc, err)
			return err
		}
		if err := l.applyUpdate(rc, update); err != nil {
			return err
		}

		var calls []core.FunctionCall

		switch update.Jump {
		case core.JumpEnd:
			return l.finalize(rc)
		case core.JumpModel:
			continue
		case core.JumpTools:
			calls = l.lastAssistantCalls(rc)
		default:
			resp, jump, err := l.modelTurn(rc, chain)
			if err != nil {
				l.emitError(rc, err)
				return err
			}
			switch jump {
			case core.JumpEnd:
				return l.finalize(rc)
			case core.JumpModel:
				continue
			}
			calls = resp.Content.FunctionCalls()
		}

		if len(calls) == 0 {
			break
		}
		if err := l.executeTools(rc, calls); err != nil {
			l.emitError(rc, err)
			return err
		}
	}

	return l.finalize(rc)
}

// modelTurn performs one model invocation including the surrounding
// before/after bookkeeping of events, persistence and the after_model hooks.
// The returned jump is the (already allow-listed) directive from after_model.
func (l *loop) modelTurn(rc *core.RunContext, chain *middleware.Chain) (*model.Response, core.Jump, error) {
	if err := rc.Limiter.Increment(); err != nil {
		return nil, core.JumpNone, err
	}

	req, err := l.buildRequest(rc)
	if err != nil {
		return nil, core.JumpNone, err
	}

	onPartial := func(p model.Response) {
		ev := core.NewEvent(rc.RunID, l.pipeline.Name)
		content := p.Content
		ev.Content = &content
		partial := true
		ev.Partial = &partial
		_ = rc.EmitEvent(ev)
	}

	handler := chain.WrapModel(model.NewHandler(l.pipeline.Model, onPartial))

	resp, err := handler(rc.Context, req)
	if err != nil {
		return nil, core.JumpNone, fmt.Errorf("model call failed: %w", err)
	}

	if err := l.store.AppendMessages(rc.SessionID, resp.Content); err != nil {
		return nil, core.JumpNone, err
	}

	ev := core.NewEvent(rc.RunID, l.pipeline.Name)
	content := resp.Content
	ev.Content = &content
	partial := false
	ev.Partial = &partial
	if len(resp.Content.FunctionCalls()) == 0 {
		complete := true
		ev.TurnComplete = &complete
	}
	if err := rc.EmitEvent(ev); err != nil {
		return nil, core.JumpNone, err
	}
	if err := rc.WaitForResume(); err != nil {
		return nil, core.JumpNone, err
	}
	if err := rc.RefreshSession(); err != nil {
		return nil, core.JumpNone, err
	}

	update, err := chain.AfterModel(rc.Context, l.hookContext(rc, req, resp))
	if err != nil {
		return nil, core.JumpNone, err
	}
	if err := l.applyUpdate(rc, update); err != nil {
		return nil, core.JumpNone, err
	}

	return resp, update.Jump, nil
}

// buildRequest assembles the model request from instructions, conversation
// history and tool declarations. Instructions are rendered as a template
// against the state snapshot.
func (l *loop) buildRequest(rc *core.RunContext) (*model.Request, error) {
	state := rc.StateSnapshot()

	instructions := l.pipeline.Instructions
	if instructions != "" {
		rendered, err := util.RenderTemplate(instructions, state)
		if err != nil {
			return nil, fmt.Errorf("render instructions: %w", err)
		}
		instructions = rendered
	}

	return &model.Request{
		Instructions: instructions,
		Contents:     state.Messages(),
		Tools:        l.pipeline.toolDefinitions(),
		Stream:       l.pipeline.Stream,
	}, nil
}

// executeTools runs the given function calls sequentially, emitting a
// function response event and appending a tool message for each.
func (l *loop) executeTools(rc *core.RunContext, calls []core.FunctionCall) error {
	for _, fc := range calls {
		toolCtx := core.NewToolContext(rc, fc.ID)

		var result any
		var callErr error

		t, ok := l.pipeline.findTool(fc.Name)
		if !ok {
			callErr = fmt.Errorf("unknown tool %q", fc.Name)
		} else {
			args := map[string]any{}
			if fc.Arguments != "" {
				if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
					callErr = fmt.Errorf("invalid tool arguments: %w", err)
				}
			}
			if callErr == nil {
				start := time.Now()
				result, callErr = t.Call(toolCtx, args)
				l.logger.Info("tool.executed",
					"tool", fc.Name,
					"duration_ms", time.Since(start).Milliseconds(),
					"error", callErr != nil,
				)
			}
		}

		ev := core.NewFunctionResponseEvent(rc.RunID, l.pipeline.Name, fc.ID, fc.Name, result, callErr)
		toolCtx.ApplyTo(&ev)
		if err := rc.EmitEvent(ev); err != nil {
			return err
		}
		if err := rc.WaitForResume(); err != nil {
			return err
		}

		fr := core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result}
		if callErr != nil {
			fr.Error = callErr.Error()
		}
		msg := core.Content{Role: "tool", Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: fr}}}
		if err := l.store.AppendMessages(rc.SessionID, msg); err != nil {
			return err
		}
	}

	return rc.RefreshSession()
}

// lastAssistantCalls returns the function calls of the most recent assistant
// message, used when a hook jumps straight to the tools stage.
func (l *loop) lastAssistantCalls(rc *core.RunContext) []core.FunctionCall {
	msgs := rc.StateSnapshot().Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "assistant" {
			return msgs[i].FunctionCalls()
		}
	}
	return nil
}

// finalize runs the after_agent hooks and applies their updates.
func (l *loop) finalize(rc *core.RunContext) error {
	chain := l.pipeline.chain()

	update, err := chain.AfterAgent(rc.Context, l.hookContext(rc, nil, nil))
	if err != nil {
		l.emitError(rc, err)
		return err
	}
	return l.applyUpdate(rc, update)
}

// hookContext snapshots the run state for a hook invocation.
func (l *loop) hookContext(rc *core.RunContext, req *model.Request, resp *model.Response) *middleware.HookContext {
	return &middleware.HookContext{
		State:     rc.StateSnapshot(),
		SessionID: rc.SessionID,
		RunID:     rc.RunID,
		Request:   req,
		Response:  resp,
		Logger:    l.logger,
	}
}

// applyUpdate persists a hook update (state delta + appended messages),
// emits message events for appended messages and refreshes the session
// snapshot.
func (l *loop) applyUpdate(rc *core.RunContext, update *core.Update) error {
	if update.IsZero() {
		return nil
	}

	if len(update.Delta) > 0 {
		if err := l.store.ApplyDelta(rc.SessionID, update.Delta); err != nil {
			return err
		}
	}

	if len(update.Messages) > 0 {
		if err := l.store.AppendMessages(rc.SessionID, update.Messages...); err != nil {
			return err
		}
		for i := range update.Messages {
			msg := update.Messages[i]
			ev := core.NewEvent(rc.RunID, "middleware")
			ev.Content = &msg
			partial := false
			ev.Partial = &partial
			if msg.Role == "assistant" {
				complete := true
				ev.TurnComplete = &complete
			}
			if err := rc.EmitEvent(ev); err != nil {
				return err
			}
		}
	}

	return rc.RefreshSession()
}

// emitError surfaces an internal error as a system event; delivery failures
// are ignored since the run is already failing.
func (l *loop) emitError(rc *core.RunContext, err error) {
	_ = rc.EmitEvent(core.NewErrorEvent(rc.RunID, err))
}
