// Package middleware defines the hook contract for intercepting agent runs
// and provides a chain that composes hooks with deterministic ordering:
// before hooks run in registration order, after hooks in reverse order, and
// model call wrappers nest with the first registered middleware outermost.
//
// Hooks are optional capabilities. A middleware implements Middleware plus
// any subset of BeforeAgentHook, BeforeModelHook, ModelCallWrapper,
// AfterModelHook and AfterAgentHook. A hook that wants to redirect the run
// must also declare its reachable targets via JumpDeclarer; undeclared jumps
// are dropped by the chain.
package middleware

import (
	"context"

	"github.com/hupe1980/agenthooks/core"
	"github.com/hupe1980/agenthooks/logging"
	"github.com/hupe1980/agenthooks/model"
)

// Middleware is the base interface all middlewares implement. Hook behavior
// is added through the optional interfaces below.
type Middleware interface {
	// Name identifies the middleware in logs and metrics.
	Name() string
}

// HookContext carries run-scoped data into hooks. State is a snapshot; hooks
// request changes by returning an Update rather than mutating it.
type HookContext struct {
	// State is a copy-on-write snapshot of the session state at hook time.
	State core.State

	SessionID string
	RunID     string

	// Request is populated for model-phase hooks (BeforeModel, AfterModel).
	Request *model.Request
	// Response is populated for AfterModel.
	Response *model.Response

	Logger logging.Logger
}

// BeforeAgentHook runs once before the first model call of a run.
type BeforeAgentHook interface {
	BeforeAgent(ctx context.Context, hc *HookContext) (*core.Update, error)
}

// BeforeModelHook runs before every model call.
type BeforeModelHook interface {
	BeforeModel(ctx context.Context, hc *HookContext) (*core.Update, error)
}

// ModelCallWrapper intercepts the model call itself. The wrapper decides
// whether, how often and with what request the next handler is invoked.
type ModelCallWrapper interface {
	WrapModelCall(ctx context.Context, req *model.Request, next model.Handler) (*model.Response, error)
}

// AfterModelHook runs after every model call.
type AfterModelHook interface {
	AfterModel(ctx context.Context, hc *HookContext) (*core.Update, error)
}

// AfterAgentHook runs once after the run finishes, including when an earlier
// hook jumped to the end.
type AfterAgentHook interface {
	AfterAgent(ctx context.Context, hc *HookContext) (*core.Update, error)
}

// JumpDeclarer lists the jump targets a middleware's hooks may return. The
// chain silently drops jumps that were not declared here.
type JumpDeclarer interface {
	CanJumpTo() []core.Jump
}
