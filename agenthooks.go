// Package agenthooks provides a high-level façade for running model pipelines
// with composable middleware hooks. Most applications interact with this
// package by:
//  1. Creating an Agent via New() with a model and optional middlewares
//  2. Running prompts asynchronously (Run) or synchronously (RunSync)
//
// Middlewares intercept well-defined hook points around the run and each
// model call (before_agent, before_model, wrap_model_call, after_model,
// after_agent) and can adjust state, append messages or redirect the run.
// All defaults are safe for local development and testing; production
// deployments typically supply durable stores and a structured logger.
package agenthooks

import (
	"context"

	"github.com/hupe1980/agenthooks/core"
	"github.com/hupe1980/agenthooks/logging"
	"github.com/hupe1980/agenthooks/middleware"
	"github.com/hupe1980/agenthooks/model"
	"github.com/hupe1980/agenthooks/runner"
	"github.com/hupe1980/agenthooks/session"
	"github.com/hupe1980/agenthooks/tool"
)

// Options configures an Agent instance.
type Options struct {
	// Name identifies the agent in events and logs.
	Name string

	// Instructions is the system prompt, optionally templated against state.
	Instructions string

	// Middlewares are composed in order; see middleware.Chain for the
	// ordering contract.
	Middlewares []middleware.Middleware

	// Tools callable by the model via function calling.
	Tools []tool.Tool

	// Stream requests incremental model output.
	Stream bool

	// MaxConcurrentRuns bounds simultaneous runs.
	MaxConcurrentRuns int64

	// MaxModelCalls limits model calls per run.
	MaxModelCalls int

	// SessionStore defaults to an in-memory implementation.
	SessionStore core.SessionStore

	// Logger defaults to the NoOp logger.
	Logger logging.Logger
}

// Agent is the high-level façade aggregating a pipeline and its runner.
type Agent struct {
	opts   Options
	runner *runner.Runner
}

// New creates an Agent around the given model with optional overrides.
func New(m model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Name:              "assistant",
		MaxConcurrentRuns: 10,
		MaxModelCalls:     100,
		SessionStore:      session.NewInMemoryStore(),
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	pipeline := &runner.Pipeline{
		Name:         opts.Name,
		Model:        m,
		Instructions: opts.Instructions,
		Tools:        opts.Tools,
		Chain: middleware.NewChain(opts.Middlewares, func(o *middleware.ChainOptions) {
			o.Logger = opts.Logger
		}),
		Stream: opts.Stream,
	}

	r := runner.New(pipeline, func(o *runner.Options) {
		o.MaxConcurrentRuns = opts.MaxConcurrentRuns
		o.MaxModelCalls = opts.MaxModelCalls
		o.SessionStore = opts.SessionStore
		o.Logger = opts.Logger
	})

	return &Agent{opts: opts, runner: r}
}

// Run starts an asynchronous run returning the run id plus event & error channels.
func (a *Agent) Run(
	ctx context.Context,
	sessionID string,
	prompt string,
) (string, <-chan core.Event, <-chan error, error) {
	return a.runner.Run(ctx, sessionID, core.NewTextContent("user", prompt))
}

// RunContent starts an asynchronous run with arbitrary user content.
func (a *Agent) RunContent(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	return a.runner.Run(ctx, sessionID, userContent)
}

// RunSync runs a prompt to completion and returns the final assistant text.
func (a *Agent) RunSync(ctx context.Context, sessionID, prompt string) (string, error) {
	final, _, err := a.runner.RunSync(ctx, sessionID, core.NewTextContent("user", prompt))
	return final, err
}

// RunSyncWithEvents runs a prompt to completion returning the final assistant
// text and all emitted events.
func (a *Agent) RunSyncWithEvents(ctx context.Context, sessionID, prompt string) (string, []core.Event, error) {
	return a.runner.RunSync(ctx, sessionID, core.NewTextContent("user", prompt))
}

// Cancel cancels a running run by id.
func (a *Agent) Cancel(runID string) error { return a.runner.Cancel(runID) }

// SessionStore exposes the configured session store.
func (a *Agent) SessionStore() core.SessionStore { return a.runner.SessionStore() }
