package middleware

import (
	"context"
	"regexp"

	"github.com/hupe1980/agenthooks/core"
	"github.com/hupe1980/agenthooks/logging"
)

// Default detectors. SSN and phone patterns are US-centric; override via
// PIIBlockOptions.Patterns for other locales.
var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	phonePattern = regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
)

// DefaultRefusalMessage is appended as the assistant reply when input is blocked.
const DefaultRefusalMessage = "I can't process requests containing personal identifying information. Please remove emails, SSNs, or phone numbers and try again."

// PIIBlockOptions configure the PII screening middleware.
type PIIBlockOptions struct {
	// Patterns are the detectors applied to the latest user message, keyed by
	// a label used in logs.
	Patterns map[string]*regexp.Regexp
	// RefusalMessage is the assistant message returned when input is blocked.
	RefusalMessage string
	Logger         logging.Logger
}

// PIIBlock screens the latest user message before each model call. On a match
// it appends a refusal reply and ends the run without calling the model.
type PIIBlock struct {
	opts PIIBlockOptions
}

// NewPIIBlock creates the PII screening middleware with email, SSN and phone
// detectors by default.
func NewPIIBlock(optFns ...func(o *PIIBlockOptions)) *PIIBlock {
	opts := PIIBlockOptions{
		Patterns: map[string]*regexp.Regexp{
			"email": emailPattern,
			"ssn":   ssnPattern,
			"phone": phonePattern,
		},
		RefusalMessage: DefaultRefusalMessage,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &PIIBlock{opts: opts}
}

// Name implements Middleware.
func (p *PIIBlock) Name() string { return "pii_block" }

// CanJumpTo declares that this middleware may end the run.
func (p *PIIBlock) CanJumpTo() []core.Jump {
	return []core.Jump{core.JumpEnd}
}

// BeforeModel checks the latest user message against the configured detectors.
func (p *PIIBlock) BeforeModel(_ context.Context, hc *HookContext) (*core.Update, error) {
	text := hc.State.LastUserText()
	if text == "" {
		return nil, nil
	}

	for label, pattern := range p.opts.Patterns {
		if !pattern.MatchString(text) {
			continue
		}
		p.opts.Logger.Warn("blocked input containing PII",
			"detector", label,
			"session_id", hc.SessionID,
			"run_id", hc.RunID,
		)
		return &core.Update{
			Messages: []core.Content{core.NewTextContent("assistant", p.opts.RefusalMessage)},
			Jump:     core.JumpEnd,
		}, nil
	}

	return nil, nil
}
