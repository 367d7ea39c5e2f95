package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agenthooks/core"
	"github.com/hupe1980/agenthooks/logging"
	"github.com/hupe1980/agenthooks/session"
	"golang.org/x/sync/semaphore"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxConcurrentRuns bounds simultaneous runs; further Run calls block
	// until a slot frees up.
	MaxConcurrentRuns int64
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// MaxModelCalls limits the number of model calls per run.
	MaxModelCalls int
	// SessionStore persists sessions, events and conversation history.
	SessionStore core.SessionStore
	// Logger receives run lifecycle diagnostics.
	Logger logging.Logger
}

// Runner coordinates pipeline execution: it creates run contexts, drives the
// hook loop, streams events to the caller, applies state deltas, and persists
// history. Public methods are safe for concurrent use.
type Runner struct {
	pipeline *Pipeline

	eventBufferSize int
	maxModelCalls   int

	sem          *semaphore.Weighted
	sessionStore core.SessionStore
	logger       logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner for the given pipeline with optional overrides.
func New(pipeline *Pipeline, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentRuns: 10,
		EventBufferSize:   100,
		MaxModelCalls:     100,
		SessionStore:      session.NewInMemoryStore(),
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		pipeline:        pipeline,
		eventBufferSize: opts.EventBufferSize,
		maxModelCalls:   opts.MaxModelCalls,
		sem:             semaphore.NewWeighted(opts.MaxConcurrentRuns),
		sessionStore:    opts.SessionStore,
		logger:          opts.Logger,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// SessionStore exposes the configured store, letting callers inspect
// persisted history after runs complete.
func (r *Runner) SessionStore() core.SessionStore { return r.sessionStore }

// Run starts an asynchronous run. The user content is appended to the session
// history before the hook loop starts. Events stream on the returned channel
// until the run finishes; a terminal failure is delivered on the error channel.
func (r *Runner) Run(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return "", nil, nil, fmt.Errorf("acquire run slot: %w", err)
	}

	runID := core.NewID()

	userEvent := core.NewUserContentEvent(runID, &userContent)
	if err := r.sessionStore.AppendEvent(sessionID, userEvent); err != nil {
		r.sem.Release(1)
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}
	if err := r.sessionStore.AppendMessages(sessionID, userContent); err != nil {
		r.sem.Release(1)
		return "", nil, nil, fmt.Errorf("failed to append user message: %w", err)
	}

	sess, err := r.sessionStore.Get(sessionID)
	if err != nil {
		r.sem.Release(1)
		return "", nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	loopEmit := make(chan core.Event, r.eventBufferSize)
	resumeCh := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	runCtx := core.NewRunContext(
		ctx,
		sessionID,
		runID,
		r.pipeline.Name,
		userContent,
		r.maxModelCalls,
		loopEmit,
		resumeCh,
		sess,
		r.sessionStore,
		r.logger,
	)

	go func() {
		defer func() {
			close(loopEmit)
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
			r.sem.Release(1)
		}()

		l := &loop{pipeline: r.pipeline, store: r.sessionStore, logger: r.logger}
		if err := l.run(runCtx); err != nil {
			select {
			case <-runCtx.Done():
			case errorsCh <- fmt.Errorf("run failed: %w", err):
			}
		}
	}()

	go func() {
		// cancel releases the run context once all events are drained.
		defer func() { cancel(); close(eventsCh); close(errorsCh) }()

		r.processEvents(runCtx, sessionID, loopEmit, resumeCh, eventsCh, errorsCh)
	}()

	return runID, eventsCh, errorsCh, nil
}

// RunSync runs the pipeline to completion and returns the final assistant
// text along with all emitted events.
func (r *Runner) RunSync(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, []core.Event, error) {
	_, eventsCh, errorsCh, err := r.Run(ctx, sessionID, userContent)
	if err != nil {
		return "", nil, err
	}

	var events []core.Event
	var final string
	for ev := range eventsCh {
		events = append(events, ev)
		if ev.Content != nil && ev.Content.Role == "assistant" && !ev.IsPartial() {
			if text := ev.Content.Text(); text != "" {
				final = text
			}
		}
	}

	if runErr := <-errorsCh; runErr != nil {
		return final, events, runErr
	}
	return final, events, nil
}

// Cancel cancels a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// processEvents persists non-partial events, forwards them to the caller and
// signals resume so the loop can continue after persistence.
func (r *Runner) processEvents(
	runCtx *core.RunContext,
	sessionID string,
	loopEmit <-chan core.Event,
	resumeCh chan<- struct{},
	eventsCh chan<- core.Event,
	errorsCh chan<- error,
) {
	for {
		select {
		case <-runCtx.Done():
			return
		case ev, ok := <-loopEmit:
			if !ok {
				return
			}
			if len(ev.StateDelta) > 0 {
				if err := r.sessionStore.ApplyDelta(sessionID, ev.StateDelta); err != nil {
					select {
					case <-runCtx.Done():
					case errorsCh <- fmt.Errorf("failed to apply state delta: %w", err):
					}
					return
				}
			}
			if !ev.IsPartial() {
				if err := r.sessionStore.AppendEvent(sessionID, ev); err != nil {
					select {
					case <-runCtx.Done():
					case errorsCh <- fmt.Errorf("failed to append event to session: %w", err):
					}
					return
				}
			}
			select {
			case <-runCtx.Done():
				return
			case eventsCh <- ev:
				r.logger.Debug("runner.event.delivered", "event_id", ev.ID, "session_id", sessionID)
			}
			if !ev.IsPartial() {
				select {
				case <-runCtx.Done():
					return
				case resumeCh <- struct{}{}:
				default:
				}
			}
		}
	}
}
