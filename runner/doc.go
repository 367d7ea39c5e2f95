// Package runner executes pipelines: it owns run lifecycle (start, cancel,
// concurrency limits), streams events to callers, persists session history
// and drives the middleware hook loop around model and tool calls.
package runner
