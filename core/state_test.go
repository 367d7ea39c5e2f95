package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateClone(t *testing.T) {
	orig := State{
		"counter":        3,
		StateKeyMessages: []Content{NewTextContent("user", "hello")},
	}

	clone := orig.Clone()
	clone["counter"] = 99
	clone[StateKeyMessages] = append(clone[StateKeyMessages].([]Content), NewTextContent("assistant", "hi"))

	assert.Equal(t, 3, orig["counter"])
	assert.Len(t, orig.Messages(), 1)
	assert.Len(t, clone.Messages(), 2)
}

func TestStateMessages(t *testing.T) {
	s := State{}
	assert.Nil(t, s.Messages())

	s[StateKeyMessages] = []Content{
		NewTextContent("user", "first"),
		NewTextContent("assistant", "reply"),
		NewTextContent("user", "second"),
	}

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "second", s.LastUserText())
}

func TestStateGetString(t *testing.T) {
	s := State{"name": "echo", "count": 2}
	assert.Equal(t, "echo", s.GetString("name"))
	assert.Equal(t, "", s.GetString("count"))
	assert.Equal(t, "", s.GetString("missing"))
}

func TestJumpValid(t *testing.T) {
	assert.True(t, JumpEnd.Valid())
	assert.True(t, JumpTools.Valid())
	assert.True(t, JumpModel.Valid())
	assert.False(t, JumpNone.Valid())
	assert.False(t, Jump("exit").Valid())
}

func TestUpdateMerge(t *testing.T) {
	u := &Update{Delta: State{"a": 1}}
	u.Merge(&Update{Delta: State{"b": 2}, Jump: JumpEnd})
	u.Merge(nil)

	assert.Equal(t, 1, u.Delta["a"])
	assert.Equal(t, 2, u.Delta["b"])
	assert.Equal(t, JumpEnd, u.Jump)
}

func TestUpdateIsZero(t *testing.T) {
	var u *Update
	assert.True(t, u.IsZero())
	assert.True(t, (&Update{}).IsZero())
	assert.False(t, (&Update{Jump: JumpEnd}).IsZero())
	assert.False(t, (&Update{Delta: State{"k": "v"}}).IsZero())
}
