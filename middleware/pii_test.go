package middleware

import (
	"context"
	"regexp"
	"testing"

	"github.com/hupe1980/agenthooks/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateWithUserText(text string) core.State {
	return core.State{
		core.StateKeyMessages: []core.Content{core.NewTextContent("user", text)},
	}
}

func TestPIIBlockAllowsCleanInput(t *testing.T) {
	mw := NewPIIBlock()

	update, err := mw.BeforeModel(context.Background(), &HookContext{
		State: stateWithUserText("What is the capital of France?"),
	})
	require.NoError(t, err)
	assert.True(t, update.IsZero())
}

func TestPIIBlockDetectsEmail(t *testing.T) {
	mw := NewPIIBlock()

	update, err := mw.BeforeModel(context.Background(), &HookContext{
		State: stateWithUserText("Contact me at jane.doe@example.com please"),
	})
	require.NoError(t, err)
	require.NotNil(t, update)

	assert.Equal(t, core.JumpEnd, update.Jump)
	require.Len(t, update.Messages, 1)
	assert.Equal(t, "assistant", update.Messages[0].Role)
	assert.Equal(t, DefaultRefusalMessage, update.Messages[0].Text())
}

func TestPIIBlockDetectsSSN(t *testing.T) {
	mw := NewPIIBlock()

	update, err := mw.BeforeModel(context.Background(), &HookContext{
		State: stateWithUserText("My SSN is 123-45-6789"),
	})
	require.NoError(t, err)
	assert.Equal(t, core.JumpEnd, update.Jump)
}

func TestPIIBlockDetectsPhone(t *testing.T) {
	mw := NewPIIBlock()

	update, err := mw.BeforeModel(context.Background(), &HookContext{
		State: stateWithUserText("Call me on (555) 123-4567 tomorrow"),
	})
	require.NoError(t, err)
	assert.Equal(t, core.JumpEnd, update.Jump)
}

func TestPIIBlockIgnoresAssistantMessages(t *testing.T) {
	mw := NewPIIBlock()

	state := core.State{
		core.StateKeyMessages: []core.Content{
			core.NewTextContent("user", "hello"),
			core.NewTextContent("assistant", "reach support at help@example.com"),
		},
	}

	update, err := mw.BeforeModel(context.Background(), &HookContext{State: state})
	require.NoError(t, err)
	assert.True(t, update.IsZero(), "only the latest user message is screened")
}

func TestPIIBlockCustomOptions(t *testing.T) {
	mw := NewPIIBlock(func(o *PIIBlockOptions) {
		o.Patterns = map[string]*regexp.Regexp{
			"secret": regexp.MustCompile(`hunter2`),
		}
		o.RefusalMessage = "nope"
	})

	update, err := mw.BeforeModel(context.Background(), &HookContext{
		State: stateWithUserText("my password is hunter2"),
	})
	require.NoError(t, err)
	assert.Equal(t, "nope", update.Messages[0].Text())

	update, err = mw.BeforeModel(context.Background(), &HookContext{
		State: stateWithUserText("mail me at x@example.com"),
	})
	require.NoError(t, err)
	assert.True(t, update.IsZero(), "default detectors replaced by custom set")
}

func TestPIIBlockDeclaresEndJump(t *testing.T) {
	mw := NewPIIBlock()
	assert.Equal(t, []core.Jump{core.JumpEnd}, mw.CanJumpTo())
}

func TestPIIBlockInChainSkipsModelHooks(t *testing.T) {
	ctx := context.Background()
	tailRan := false
	tail := NewFunc("tail",
		WithBeforeModel(func(_ context.Context, _ *HookContext) (*core.Update, error) {
			tailRan = true
			return nil, nil
		}),
	)

	chain := NewChain([]Middleware{NewPIIBlock(), tail})

	update, err := chain.BeforeModel(ctx, &HookContext{
		State: stateWithUserText("ssn 987-65-4321"),
	})
	require.NoError(t, err)
	assert.Equal(t, core.JumpEnd, update.Jump)
	assert.False(t, tailRan)
}
