package middleware

import (
	"context"
	"fmt"
	"slices"

	"github.com/hupe1980/agenthooks/core"
	"github.com/hupe1980/agenthooks/logging"
	"github.com/hupe1980/agenthooks/model"
)

// ChainOptions configure chain behavior.
type ChainOptions struct {
	Logger logging.Logger
}

// Chain composes middlewares and enforces the execution-order contract:
//
//   - BeforeAgent: registration order, once per run
//   - BeforeModel: registration order, before every model call
//   - WrapModel:   first registered middleware becomes the outermost wrapper
//   - AfterModel:  reverse registration order, after every model call
//   - AfterAgent:  reverse registration order, once per run
//
// A hook returning an Update with a Jump short-circuits the remaining hooks
// of its phase, provided the middleware declared the target via CanJumpTo.
// Undeclared jumps are stripped from the update and execution continues.
type Chain struct {
	middlewares []Middleware
	opts        ChainOptions
}

// NewChain creates a chain over the given middlewares. Order matters; see the
// Chain doc for the ordering contract.
func NewChain(middlewares []Middleware, optFns ...func(o *ChainOptions)) *Chain {
	opts := ChainOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Chain{middlewares: middlewares, opts: opts}
}

// Middlewares returns the composed middlewares in registration order.
func (c *Chain) Middlewares() []Middleware {
	return c.middlewares
}

// Len returns the number of composed middlewares.
func (c *Chain) Len() int { return len(c.middlewares) }

// BeforeAgent runs all BeforeAgent hooks in registration order.
func (c *Chain) BeforeAgent(ctx context.Context, hc *HookContext) (*core.Update, error) {
	return c.runPhase(ctx, hc, "before_agent", false, func(mw Middleware) hookFn {
		if h, ok := mw.(BeforeAgentHook); ok {
			return h.BeforeAgent
		}
		return nil
	})
}

// BeforeModel runs all BeforeModel hooks in registration order.
func (c *Chain) BeforeModel(ctx context.Context, hc *HookContext) (*core.Update, error) {
	return c.runPhase(ctx, hc, "before_model", false, func(mw Middleware) hookFn {
		if h, ok := mw.(BeforeModelHook); ok {
			return h.BeforeModel
		}
		return nil
	})
}

// AfterModel runs all AfterModel hooks in reverse registration order.
func (c *Chain) AfterModel(ctx context.Context, hc *HookContext) (*core.Update, error) {
	return c.runPhase(ctx, hc, "after_model", true, func(mw Middleware) hookFn {
		if h, ok := mw.(AfterModelHook); ok {
			return h.AfterModel
		}
		return nil
	})
}

// AfterAgent runs all AfterAgent hooks in reverse registration order. Jumps
// are meaningless during teardown and are always stripped.
func (c *Chain) AfterAgent(ctx context.Context, hc *HookContext) (*core.Update, error) {
	merged, err := c.runPhase(ctx, hc, "after_agent", true, func(mw Middleware) hookFn {
		if h, ok := mw.(AfterAgentHook); ok {
			return h.AfterAgent
		}
		return nil
	})
	if merged != nil {
		merged.Jump = core.JumpNone
	}
	return merged, err
}

// WrapModel composes all ModelCallWrapper middlewares around handler. The
// first registered wrapper ends up outermost, so its code runs first on the
// way in and last on the way out.
func (c *Chain) WrapModel(handler model.Handler) model.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		w, ok := c.middlewares[i].(ModelCallWrapper)
		if !ok {
			continue
		}
		next := handler
		handler = func(ctx context.Context, req *model.Request) (*model.Response, error) {
			return w.WrapModelCall(ctx, req, next)
		}
	}
	return handler
}

type hookFn func(ctx context.Context, hc *HookContext) (*core.Update, error)

// runPhase executes one hook phase over the chain, merging updates and
// applying them to the snapshot so later hooks observe earlier changes.
func (c *Chain) runPhase(
	ctx context.Context,
	hc *HookContext,
	phase string,
	reverse bool,
	hookOf func(Middleware) hookFn,
) (*core.Update, error) {
	merged := &core.Update{}

	for idx := range c.middlewares {
		if reverse {
			idx = len(c.middlewares) - 1 - idx
		}
		mw := c.middlewares[idx]
		hook := hookOf(mw)
		if hook == nil {
			continue
		}

		update, err := hook(ctx, hc)
		if err != nil {
			return merged, fmt.Errorf("middleware %q %s: %w", mw.Name(), phase, err)
		}
		if update.IsZero() {
			continue
		}

		if update.Jump != core.JumpNone && !jumpAllowed(mw, update.Jump) {
			c.opts.Logger.Debug("dropping undeclared jump",
				"middleware", mw.Name(),
				"phase", phase,
				"target", string(update.Jump),
			)
			update.Jump = core.JumpNone
		}

		merged.Merge(update)
		applyToSnapshot(hc, update)

		if merged.Jump != core.JumpNone {
			c.opts.Logger.Debug("hook requested jump, skipping remaining hooks",
				"middleware", mw.Name(),
				"phase", phase,
				"target", string(merged.Jump),
			)
			return merged, nil
		}
	}

	return merged, nil
}

// jumpAllowed reports whether mw declared target in its CanJumpTo allow-list.
func jumpAllowed(mw Middleware, target core.Jump) bool {
	d, ok := mw.(JumpDeclarer)
	if !ok {
		return false
	}
	return slices.Contains(d.CanJumpTo(), target)
}

// applyToSnapshot overlays an update onto the hook context snapshot so
// subsequent hooks in the same phase see the accumulated changes.
func applyToSnapshot(hc *HookContext, update *core.Update) {
	if hc.State == nil {
		hc.State = core.State{}
	}
	for k, v := range update.Delta {
		hc.State[k] = v
	}
	if len(update.Messages) > 0 {
		msgs := hc.State.Messages()
		next := make([]core.Content, 0, len(msgs)+len(update.Messages))
		next = append(next, msgs...)
		next = append(next, update.Messages...)
		hc.State[core.StateKeyMessages] = next
	}
}
