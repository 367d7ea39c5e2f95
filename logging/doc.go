// Package logging defines the Logger interface used across AgentHooks plus
// slog-backed adapters and a contextual StructuredLogger.
package logging
