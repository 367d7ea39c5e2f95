package core

import "maps"

// StateKeyMessages is the conventional state key holding the conversation
// history as []Content. Hook snapshots expose it via State.Messages.
const StateKeyMessages = "messages"

// State is the key/value mapping handed to middleware hooks. Hooks always
// receive an isolated snapshot: mutating it in place has no effect on the run.
// Changes propagate exclusively through the Update a hook returns.
type State map[string]any

// Clone returns an isolated copy of the state. Nested []Content message
// slices are copied so a hook cannot reach back into the live session.
func (s State) Clone() State {
	c := make(State, len(s))
	for k, v := range s {
		if msgs, ok := v.([]Content); ok {
			cp := make([]Content, len(msgs))
			copy(cp, msgs)
			c[k] = cp
			continue
		}
		c[k] = v
	}
	return c
}

// Get returns the value and existence flag for a state key.
func (s State) Get(key string) (any, bool) {
	v, ok := s[key]
	return v, ok
}

// GetString returns the value for key if present and a string, else "".
func (s State) GetString(key string) string {
	if v, ok := s[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// Messages returns the conversation history stored under StateKeyMessages.
func (s State) Messages() []Content {
	if v, ok := s[StateKeyMessages]; ok {
		if msgs, ok := v.([]Content); ok {
			return msgs
		}
	}
	return nil
}

// LastUserText returns the text of the most recent user message, or "" when
// the history holds none. Convenience for screening hooks.
func (s State) LastUserText() string {
	msgs := s.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Text()
		}
	}
	return ""
}

// Jump names a pipeline stage a hook may redirect execution to. The set is
// closed; anything else is rejected by Valid.
type Jump string

const (
	// JumpNone is the zero value: no redirection requested.
	JumpNone Jump = ""
	// JumpEnd terminates the run after applying the update. Teardown hooks
	// still execute.
	JumpEnd Jump = "end"
	// JumpTools skips the model call and proceeds to tool execution.
	JumpTools Jump = "tools"
	// JumpModel restarts the model stage (a fresh model call round).
	JumpModel Jump = "model"
)

// Valid reports whether j is a member of the closed jump enumeration
// (JumpNone excluded).
func (j Jump) Valid() bool {
	switch j {
	case JumpEnd, JumpTools, JumpModel:
		return true
	}
	return false
}

// Update is the partial result a hook returns: a delta of changed state keys,
// messages to append to the conversation, and an optional jump directive.
// A nil *Update means "no change".
//
// A Jump is honored only when the emitting middleware pre-declares the target
// via its CanJumpTo allow-list; undeclared directives are dropped.
type Update struct {
	// Delta holds changed keys merged into session state. Keys absent from
	// Delta are left untouched.
	Delta State
	// Messages are appended to the conversation history, after the Delta merge.
	Messages []Content
	// Jump optionally redirects pipeline execution.
	Jump Jump
}

// IsZero reports whether the update carries no delta, messages or jump.
func (u *Update) IsZero() bool {
	return u == nil || (len(u.Delta) == 0 && len(u.Messages) == 0 && u.Jump == JumpNone)
}

// Merge folds o into u: deltas are overlaid, messages concatenated and a
// non-empty jump from o wins. Used by chains that accumulate hook results.
func (u *Update) Merge(o *Update) {
	if o == nil {
		return
	}
	if len(o.Delta) > 0 {
		if u.Delta == nil {
			u.Delta = State{}
		}
		maps.Copy(u.Delta, o.Delta)
	}
	u.Messages = append(u.Messages, o.Messages...)
	if o.Jump != JumpNone {
		u.Jump = o.Jump
	}
}
