package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStateAndEvents(t *testing.T) {
	s := NewSession("sess-1")

	s.SetState("k", "v")
	v, ok := s.GetState("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	s.MergeState(map[string]any{"a": 1, "b": 2})
	a, _ := s.GetState("a")
	assert.Equal(t, 1, a)

	s.AddEvent(NewUserMessageEvent("run-1", "hello"))
	assert.Len(t, s.GetEvents(), 1)
}

func TestSessionAppendMessages(t *testing.T) {
	s := NewSession("sess-1")
	s.AppendMessages(NewTextContent("user", "hi"))

	snap := s.StateSnapshot()
	require.Len(t, snap.Messages(), 1)

	// Appends must not mutate previously handed out snapshots.
	s.AppendMessages(NewTextContent("assistant", "hello"))
	assert.Len(t, snap.Messages(), 1)
	assert.Len(t, s.StateSnapshot().Messages(), 2)
}

func TestSessionConversationHistory(t *testing.T) {
	s := NewSession("sess-1")
	s.AddEvent(NewUserMessageEvent("run-1", "hi"))
	s.AddEvent(NewMessageEvent("run-1", "assistant", "hello"))

	partial := NewMessageEvent("run-1", "assistant", "chunk")
	b := true
	partial.Partial = &b
	s.AddEvent(partial)

	system := NewEvent("run-1", "system")
	s.AddEvent(system)

	history := s.GetConversationHistory()
	assert.Len(t, history, 2)
}

func TestSessionClone(t *testing.T) {
	s := NewSession("sess-1")
	s.SetState("k", "v")
	s.AddEvent(NewUserMessageEvent("run-1", "hi"))

	clone := s.Clone()
	clone.SetState("k", "other")
	clone.AddEvent(NewUserMessageEvent("run-1", "again"))

	v, _ := s.GetState("k")
	assert.Equal(t, "v", v)
	assert.Len(t, s.GetEvents(), 1)
	assert.Len(t, clone.GetEvents(), 2)
}
