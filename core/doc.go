// Package core contains the shared primitives of the AgentHooks framework:
// conversation content, hook state snapshots and updates, jump directives,
// events, sessions and the per-run execution context. Higher layers
// (middleware, runner, model adapters) depend on core; core depends only on
// the logging abstraction.
package core
