// Package pipeline obtains a validated query plan for a user's
// natural-language question, tolerating occasional malformed model output.
package pipeline

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vidlake/vidlake/pkg/plan"
)

//go:embed prompts/PLAN.md
var rawPlanPrompt string

var planPrompt = strings.TrimSpace(rawPlanPrompt)

// LLMClient is the capability the pipeline needs from a language model:
// one prompt in, one response text out.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// planAttempts bounds how many model responses one question may consume.
// The retry is a pure repeat: model output is not deterministic, so a second
// ask is worth one malformed response, and no more.
const planAttempts = 2

// Pipeline turns a user question into a validated plan.
type Pipeline struct {
	llm LLMClient
	log *slog.Logger
}

// New creates a Pipeline around an injected model client.
func New(llm LLMClient, log *slog.Logger) *Pipeline {
	return &Pipeline{llm: llm, log: log}
}

// Acquire asks the model for a plan and parses/validates the response, with
// at most two strictly sequential attempts. A model transport failure or an
// empty response returns immediately without consuming the second attempt.
// All failures come back as an error; none escape as panics.
func (p *Pipeline) Acquire(ctx context.Context, question string) (*plan.Plan, error) {
	userPrompt := "User question: " + question

	var lastErr error
	for attempt := 1; attempt <= planAttempts; attempt++ {
		text, err := p.llm.Complete(ctx, planPrompt, userPrompt)
		if err != nil {
			return nil, fmt.Errorf("model unavailable: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("model returned an empty response")
		}

		pl, err := plan.Parse([]byte(StripCodeFences(text)))
		if err == nil {
			p.log.Debug("plan accepted", "attempt", attempt, "entity", pl.Entity, "operation", pl.Operation, "field", pl.Field)
			return pl, nil
		}
		p.log.Info("rejected model plan", "attempt", attempt, "error", err)
		lastErr = err
	}
	return nil, fmt.Errorf("no valid plan after %d attempts: %w", planAttempts, lastErr)
}

// StripCodeFences unwraps a markdown ```-fenced block if the model wrapped
// its JSON in one.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}
	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}
