package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/hupe1980/agenthooks/logging"
)

// RunContext carries execution state & helpers for a single pipeline run.
// It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (SessionID, RunID, PipelineName)
//   - Input user Content
//   - Emission / resumption coordination channels
//   - The backing SessionStore plus a working Session snapshot
//   - A pending StateDelta buffer and the per-run model CallLimiter
//
// State mutations performed via SetState accumulate in StateDelta until
// CommitStateDelta or EmitEvent applies them. StateSnapshot produces the
// isolated copy handed to middleware hooks: staged delta overlaid on the
// persisted session state.
type RunContext struct {
	Context          context.Context
	SessionID, RunID string
	PipelineName     string
	UserContent      Content
	Emit             chan<- Event
	Resume           <-chan struct{}
	SessionStore     SessionStore
	Session          *Session
	Limiter          *CallLimiter
	StateDelta       map[string]any

	*loggerAdapter
}

// NewRunContext constructs a RunContext with an empty state delta buffer.
func NewRunContext(
	ctx context.Context,
	sessionID, runID, pipelineName string,
	userContent Content,
	maxModelCalls int,
	emit chan<- Event,
	resume <-chan struct{},
	sess *Session,
	sessionStore SessionStore,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		SessionID:     sessionID,
		RunID:         runID,
		PipelineName:  pipelineName,
		UserContent:   userContent,
		Emit:          emit,
		Resume:        resume,
		Session:       sess,
		SessionStore:  sessionStore,
		Limiter:       NewCallLimiter(maxModelCalls),
		StateDelta:    map[string]any{},
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetState returns a staged (delta) value if present, else the persisted
// session value.
func (rc *RunContext) GetState(k string) (any, bool) {
	if v, ok := rc.StateDelta[k]; ok {
		return v, true
	}

	if rc.Session != nil {
		return rc.Session.GetState(k)
	}

	return nil, false
}

// SetState stages a state mutation in the in-memory delta buffer.
func (rc *RunContext) SetState(k string, v any) { rc.StateDelta[k] = v }

// ApplyStateDelta merges all pairs from d into the staged StateDelta.
func (rc *RunContext) ApplyStateDelta(d map[string]any) {
	maps.Copy(rc.StateDelta, d)
}

// StateSnapshot returns an isolated state copy for middleware hooks: the
// persisted session state overlaid with the staged delta. Mutating the
// returned map never affects the run.
func (rc *RunContext) StateSnapshot() State {
	var snap State
	if rc.Session != nil {
		snap = rc.Session.StateSnapshot()
	} else {
		snap = State{}
	}
	maps.Copy(snap, rc.StateDelta)
	return snap
}

// RefreshSession reloads the session snapshot from the SessionStore.
func (rc *RunContext) RefreshSession() error {
	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}

	s, err := rc.SessionStore.Get(rc.SessionID)
	if err != nil {
		return err
	}

	rc.Session = s

	return nil
}

// CommitStateDelta persists the accumulated StateDelta then clears the buffer.
func (rc *RunContext) CommitStateDelta() error {
	if len(rc.StateDelta) == 0 {
		return nil
	}

	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}

	if err := rc.SessionStore.ApplyDelta(rc.SessionID, rc.StateDelta); err != nil {
		return err
	}

	rc.StateDelta = map[string]any{}

	return nil
}

// GetSessionHistory returns all historical events for the session.
func (rc *RunContext) GetSessionHistory() []Event {
	if rc.Session == nil {
		return []Event{}
	}

	return rc.Session.GetEvents()
}

// EmitEvent merges the pending StateDelta into the event and emits it.
func (rc *RunContext) EmitEvent(ev Event) error {
	if len(rc.StateDelta) > 0 {
		if ev.StateDelta == nil {
			ev.StateDelta = map[string]any{}
		}
		maps.Copy(ev.StateDelta, rc.StateDelta)
	}

	select {
	case <-rc.Context.Done():
		return rc.Context.Err()
	case rc.Emit <- ev:
	}

	rc.StateDelta = map[string]any{}

	return nil
}

// WaitForResume blocks until Resume signals or context cancellation. The
// runner signals resume after persisting a non-partial event, guaranteeing
// later stages observe a committed session.
func (rc *RunContext) WaitForResume() error {
	if rc.Resume == nil {
		return nil
	}

	select {
	case <-rc.Resume:
		return nil
	case <-rc.Context.Done():
		return rc.Context.Err()
	}
}
