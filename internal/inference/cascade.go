package inference

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aquasense/aquasense/internal/observability"
)

const DefaultCandidateTimeout = 60 * time.Second

var ErrEmptyResponse = errors.New("model returned empty response")

// Attempt records one failed candidate call within a cascade invocation.
type Attempt struct {
	Model string
	Err   error
}

// Outcome is the result of a successful cascade invocation: the response text,
// the model that produced it, and every failure that preceded it in order.
type Outcome struct {
	Text     string
	Model    string
	Attempts []Attempt
}

// NoModelAvailableError reports that every candidate in the cascade failed or
// returned empty text. Attempts holds one entry per candidate, in call order.
type NoModelAvailableError struct {
	Attempts []Attempt
}

func (e *NoModelAvailableError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Model, a.Err))
	}
	return "no model available: " + strings.Join(parts, "; ")
}

// Cascade tries an ordered list of model identifiers against one backend and
// returns the first non-empty response. Each candidate is attempted exactly
// once per invocation; retry policy, if any, belongs to the caller.
type Cascade struct {
	gen        TextGenerator
	candidates []string
	timeout    time.Duration
}

func NewCascade(gen TextGenerator, candidates []string, timeout time.Duration) (*Cascade, error) {
	if gen == nil {
		return nil, errors.New("text generator is required")
	}
	if len(candidates) == 0 {
		return nil, errors.New("candidate model list must be non-empty")
	}
	if timeout <= 0 {
		timeout = DefaultCandidateTimeout
	}
	return &Cascade{gen: gen, candidates: candidates, timeout: timeout}, nil
}

func (c *Cascade) Candidates() []string {
	out := make([]string, len(c.candidates))
	copy(out, c.candidates)
	return out
}

func (c *Cascade) Invoke(ctx context.Context, prompt string) (Outcome, error) {
	var attempts []Attempt
	for _, model := range c.candidates {
		started := time.Now()
		text, err := c.generateOne(ctx, model, prompt)
		if err != nil {
			log.Printf("inference cascade_attempt_failed model=%s elapsed_ms=%d err=%q", model, time.Since(started).Milliseconds(), err.Error())
			observability.IncModelAttempt(model, observability.ResultError)
			observability.IncCascadeFallback()
			attempts = append(attempts, Attempt{Model: model, Err: err})
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			log.Printf("inference cascade_attempt_empty model=%s elapsed_ms=%d", model, time.Since(started).Milliseconds())
			observability.IncModelAttempt(model, observability.ResultError)
			observability.IncCascadeFallback()
			attempts = append(attempts, Attempt{Model: model, Err: ErrEmptyResponse})
			continue
		}
		log.Printf("inference cascade_attempt_success model=%s elapsed_ms=%d response_chars=%d", model, time.Since(started).Milliseconds(), len(text))
		observability.IncModelAttempt(model, observability.ResultSuccess)
		return Outcome{Text: text, Model: model, Attempts: attempts}, nil
	}
	return Outcome{}, &NoModelAvailableError{Attempts: attempts}
}

// generateOne runs a single candidate under its own deadline so a hung backend
// counts as that candidate's failure instead of stalling the whole cascade.
func (c *Cascade) generateOne(ctx context.Context, model, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.gen.Generate(callCtx, model, prompt)
}
