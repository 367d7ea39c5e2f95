package middleware

import (
	"context"

	"github.com/hupe1980/agenthooks/core"
	"github.com/hupe1980/agenthooks/model"
)

// HookFunc is the signature shared by all lifecycle hooks.
type HookFunc func(ctx context.Context, hc *HookContext) (*core.Update, error)

// WrapFunc is the signature of a model call wrapper.
type WrapFunc func(ctx context.Context, req *model.Request, next model.Handler) (*model.Response, error)

// Func is a middleware assembled from closures, for cases where a full type
// is overkill. Unset hooks are no-ops.
type Func struct {
	name        string
	beforeAgent HookFunc
	beforeModel HookFunc
	afterModel  HookFunc
	afterAgent  HookFunc
	wrap        WrapFunc
	canJumpTo   []core.Jump
}

// NewFunc creates a closure-based middleware with the given name.
func NewFunc(name string, optFns ...func(f *Func)) *Func {
	f := &Func{name: name}
	for _, fn := range optFns {
		fn(f)
	}
	return f
}

// WithBeforeAgent sets the before-agent hook.
func WithBeforeAgent(hook HookFunc) func(f *Func) {
	return func(f *Func) { f.beforeAgent = hook }
}

// WithBeforeModel sets the before-model hook.
func WithBeforeModel(hook HookFunc) func(f *Func) {
	return func(f *Func) { f.beforeModel = hook }
}

// WithAfterModel sets the after-model hook.
func WithAfterModel(hook HookFunc) func(f *Func) {
	return func(f *Func) { f.afterModel = hook }
}

// WithAfterAgent sets the after-agent hook.
func WithAfterAgent(hook HookFunc) func(f *Func) {
	return func(f *Func) { f.afterAgent = hook }
}

// WithWrapModelCall sets the model call wrapper.
func WithWrapModelCall(wrap WrapFunc) func(f *Func) {
	return func(f *Func) { f.wrap = wrap }
}

// WithCanJumpTo declares the jump targets the hooks may return.
func WithCanJumpTo(targets ...core.Jump) func(f *Func) {
	return func(f *Func) { f.canJumpTo = targets }
}

// Name implements Middleware.
func (f *Func) Name() string { return f.name }

// BeforeAgent implements BeforeAgentHook.
func (f *Func) BeforeAgent(ctx context.Context, hc *HookContext) (*core.Update, error) {
	if f.beforeAgent == nil {
		return nil, nil
	}
	return f.beforeAgent(ctx, hc)
}

// BeforeModel implements BeforeModelHook.
func (f *Func) BeforeModel(ctx context.Context, hc *HookContext) (*core.Update, error) {
	if f.beforeModel == nil {
		return nil, nil
	}
	return f.beforeModel(ctx, hc)
}

// AfterModel implements AfterModelHook.
func (f *Func) AfterModel(ctx context.Context, hc *HookContext) (*core.Update, error) {
	if f.afterModel == nil {
		return nil, nil
	}
	return f.afterModel(ctx, hc)
}

// AfterAgent implements AfterAgentHook.
func (f *Func) AfterAgent(ctx context.Context, hc *HookContext) (*core.Update, error) {
	if f.afterAgent == nil {
		return nil, nil
	}
	return f.afterAgent(ctx, hc)
}

// WrapModelCall implements ModelCallWrapper.
func (f *Func) WrapModelCall(ctx context.Context, req *model.Request, next model.Handler) (*model.Response, error) {
	if f.wrap == nil {
		return next(ctx, req)
	}
	return f.wrap(ctx, req, next)
}

// CanJumpTo implements JumpDeclarer.
func (f *Func) CanJumpTo() []core.Jump { return f.canJumpTo }
