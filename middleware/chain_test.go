package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agenthooks/core"
	"github.com/hupe1980/agenthooks/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder builds a middleware that appends phase markers to a shared trace.
func recorder(name string, trace *[]string, extra ...func(f *Func)) *Func {
	opts := []func(f *Func){
		WithBeforeAgent(func(_ context.Context, _ *HookContext) (*core.Update, error) {
			*trace = append(*trace, name+":before_agent")
			return nil, nil
		}),
		WithBeforeModel(func(_ context.Context, _ *HookContext) (*core.Update, error) {
			*trace = append(*trace, name+":before_model")
			return nil, nil
		}),
		WithWrapModelCall(func(ctx context.Context, req *model.Request, next model.Handler) (*model.Response, error) {
			*trace = append(*trace, name+":wrap_in")
			resp, err := next(ctx, req)
			*trace = append(*trace, name+":wrap_out")
			return resp, err
		}),
		WithAfterModel(func(_ context.Context, _ *HookContext) (*core.Update, error) {
			*trace = append(*trace, name+":after_model")
			return nil, nil
		}),
		WithAfterAgent(func(_ context.Context, _ *HookContext) (*core.Update, error) {
			*trace = append(*trace, name+":after_agent")
			return nil, nil
		}),
	}
	return NewFunc(name, append(opts, extra...)...)
}

func TestChainHookOrdering(t *testing.T) {
	ctx := context.Background()
	var trace []string

	chain := NewChain([]Middleware{
		recorder("a", &trace),
		recorder("b", &trace),
		recorder("c", &trace),
	})
	hc := &HookContext{State: core.State{}}

	_, err := chain.BeforeAgent(ctx, hc)
	require.NoError(t, err)
	_, err = chain.BeforeModel(ctx, hc)
	require.NoError(t, err)
	_, err = chain.AfterModel(ctx, hc)
	require.NoError(t, err)
	_, err = chain.AfterAgent(ctx, hc)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a:before_agent", "b:before_agent", "c:before_agent",
		"a:before_model", "b:before_model", "c:before_model",
		"c:after_model", "b:after_model", "a:after_model",
		"c:after_agent", "b:after_agent", "a:after_agent",
	}, trace)
}

func TestChainWrapNesting(t *testing.T) {
	ctx := context.Background()
	var trace []string

	chain := NewChain([]Middleware{
		recorder("a", &trace),
		recorder("b", &trace),
	})

	handler := chain.WrapModel(func(_ context.Context, _ *model.Request) (*model.Response, error) {
		trace = append(trace, "model")
		return &model.Response{FinishReason: "stop"}, nil
	})

	resp, err := handler(ctx, &model.Request{})
	require.NoError(t, err)
	assert.Equal(t, "stop", resp.FinishReason)

	assert.Equal(t, []string{
		"a:wrap_in", "b:wrap_in", "model", "b:wrap_out", "a:wrap_out",
	}, trace, "first registered wrapper must be outermost")
}

func TestChainDeclaredJumpShortCircuits(t *testing.T) {
	ctx := context.Background()
	var trace []string

	jumper := NewFunc("jumper",
		WithBeforeModel(func(_ context.Context, _ *HookContext) (*core.Update, error) {
			return &core.Update{Jump: core.JumpEnd}, nil
		}),
		WithCanJumpTo(core.JumpEnd),
	)

	chain := NewChain([]Middleware{jumper, recorder("tail", &trace)})

	update, err := chain.BeforeModel(ctx, &HookContext{State: core.State{}})
	require.NoError(t, err)
	assert.Equal(t, core.JumpEnd, update.Jump)
	assert.Empty(t, trace, "hooks after a declared jump must not run")
}

func TestChainUndeclaredJumpDropped(t *testing.T) {
	ctx := context.Background()
	var trace []string

	jumper := NewFunc("jumper",
		WithBeforeModel(func(_ context.Context, _ *HookContext) (*core.Update, error) {
			return &core.Update{
				Delta: core.State{"screened": true},
				Jump:  core.JumpEnd,
			}, nil
		}),
		// No CanJumpTo declaration.
	)

	chain := NewChain([]Middleware{jumper, recorder("tail", &trace)})

	update, err := chain.BeforeModel(ctx, &HookContext{State: core.State{}})
	require.NoError(t, err)
	assert.Equal(t, core.JumpNone, update.Jump, "undeclared jump must be dropped")
	assert.Equal(t, true, update.Delta["screened"], "rest of the update survives")
	assert.Contains(t, trace, "tail:before_model", "execution continues past a dropped jump")
}

func TestChainJumpTargetNotInAllowList(t *testing.T) {
	ctx := context.Background()

	jumper := NewFunc("jumper",
		WithBeforeModel(func(_ context.Context, _ *HookContext) (*core.Update, error) {
			return &core.Update{Jump: core.JumpTools}, nil
		}),
		WithCanJumpTo(core.JumpEnd),
	)

	chain := NewChain([]Middleware{jumper})

	update, err := chain.BeforeModel(ctx, &HookContext{State: core.State{}})
	require.NoError(t, err)
	assert.Equal(t, core.JumpNone, update.Jump)
}

func TestChainSnapshotAccumulates(t *testing.T) {
	ctx := context.Background()

	first := NewFunc("first",
		WithBeforeModel(func(_ context.Context, _ *HookContext) (*core.Update, error) {
			return &core.Update{
				Delta:    core.State{"flag": "set"},
				Messages: []core.Content{core.NewTextContent("user", "hi")},
			}, nil
		}),
	)

	var seenFlag string
	var seenMessages int
	second := NewFunc("second",
		WithBeforeModel(func(_ context.Context, hc *HookContext) (*core.Update, error) {
			seenFlag = hc.State.GetString("flag")
			seenMessages = len(hc.State.Messages())
			return nil, nil
		}),
	)

	chain := NewChain([]Middleware{first, second})

	update, err := chain.BeforeModel(ctx, &HookContext{State: core.State{}})
	require.NoError(t, err)

	assert.Equal(t, "set", seenFlag, "later hooks observe earlier deltas")
	assert.Equal(t, 1, seenMessages, "later hooks observe appended messages")
	assert.Len(t, update.Messages, 1)
}

func TestChainAfterAgentStripsJump(t *testing.T) {
	ctx := context.Background()

	jumper := NewFunc("jumper",
		WithAfterAgent(func(_ context.Context, _ *HookContext) (*core.Update, error) {
			return &core.Update{Jump: core.JumpModel}, nil
		}),
		WithCanJumpTo(core.JumpModel),
	)

	chain := NewChain([]Middleware{jumper})

	update, err := chain.AfterAgent(ctx, &HookContext{State: core.State{}})
	require.NoError(t, err)
	assert.Equal(t, core.JumpNone, update.Jump)
}

func TestChainHookErrorIdentifiesMiddleware(t *testing.T) {
	ctx := context.Background()

	boom := errors.New("boom")
	failing := NewFunc("failing",
		WithBeforeModel(func(_ context.Context, _ *HookContext) (*core.Update, error) {
			return nil, boom
		}),
	)

	chain := NewChain([]Middleware{failing})

	_, err := chain.BeforeModel(ctx, &HookContext{State: core.State{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.Contains(t, err.Error(), "before_model")
}
