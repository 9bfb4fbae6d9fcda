// Package llmclient implements the LLM Client with Cascade (spec.md
// §4.2): small/medium/large models tried in order until a sufficiency
// predicate is met, mapped onto three distinct provider SDKs so each
// model tier genuinely exercises its own stack (SPEC_FULL.md §4.2).
package llmclient

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// Tier is the cascade's fixed ordering (spec.md §4.2).
type Tier string

const (
	TierSmall  Tier = "SMALL"
	TierMedium Tier = "MEDIUM"
	TierLarge  Tier = "LARGE"
)

// ModelSpec names one tier's provider/model/token-budget (spec.md §6's
// "Model cascade" configuration surface).
type ModelSpec struct {
	Provider  string
	Model     string
	MaxTokens int
}

// Result is one successful query's content plus accounting (spec.md §4.2).
type Result struct {
	Content    string
	TokensIn   int
	TokensOut  int
	CostUSD    float64
	ModelUsed  string
	Tier       Tier
}

// Caller is the per-tier model boundary. Each tier's concrete
// implementation wraps a different provider SDK.
type Caller interface {
	Query(ctx context.Context, prompt string, maxTokens int) (Result, error)
}

// ExhaustedCascade is raised only when every tier in the cascade
// failed or was insufficient (spec.md §4.2).
type ExhaustedCascade struct {
	Attempts []error
}

func (e *ExhaustedCascade) Error() string {
	msgs := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("llm cascade exhausted after %d attempts: %s", len(e.Attempts), strings.Join(msgs, "; "))
}

// breakerCaller wraps a Caller in the same gobreaker policy the Search
// Client uses (spec.md §4.2), so a tier that starts failing gets taken
// out of rotation instead of eating every remaining call's timeout.
type breakerCaller struct {
	caller  Caller
	breaker *gobreaker.CircuitBreaker
}

// WithBreaker wraps caller in a per-tier circuit breaker named name.
func WithBreaker(name string, caller Caller) Caller {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &breakerCaller{caller: caller, breaker: breaker}
}

func (b *breakerCaller) Query(ctx context.Context, prompt string, maxTokens int) (Result, error) {
	raw, err := b.breaker.Execute(func() (interface{}, error) {
		return b.caller.Query(ctx, prompt, maxTokens)
	})
	if err != nil {
		return Result{}, err
	}
	return raw.(Result), nil
}

// Cascade tries Small, then Medium, then Large, stopping at the first
// tier whose result satisfies IsSufficient (spec.md §4.2).
type Cascade struct {
	Small  Caller
	Medium Caller
	Large  Caller

	// RequireSchema, when non-nil, is used by IsSufficient to confirm
	// the tier's content parses into the shape the caller expects.
	RequireSchema func(content string) bool
}

// Query runs the cascade once for prompt, with a per-tier max-tokens
// budget drawn from specs.
func (c *Cascade) Query(ctx context.Context, prompt string, specs map[Tier]ModelSpec) (Result, error) {
	var attempts []error

	for _, step := range []struct {
		tier   Tier
		caller Caller
	}{
		{TierSmall, c.Small},
		{TierMedium, c.Medium},
		{TierLarge, c.Large},
	} {
		if step.caller == nil {
			continue
		}
		spec := specs[step.tier]
		result, err := step.caller.Query(ctx, prompt, spec.MaxTokens)
		if err != nil {
			attempts = append(attempts, fmt.Errorf("%s: %w", step.tier, err))
			continue
		}
		result.Tier = step.tier
		if c.isSufficient(result) {
			return result, nil
		}
		attempts = append(attempts, fmt.Errorf("%s: insufficient response", step.tier))
	}

	return Result{}, &ExhaustedCascade{Attempts: attempts}
}

// QueryTier calls a single named tier directly, bypassing the
// small-to-large escalation. The consistency check (spec.md §4.8)
// uses this to go straight to the LARGE tier rather than re-running
// the whole cascade.
func (c *Cascade) QueryTier(ctx context.Context, tier Tier, prompt string, specs map[Tier]ModelSpec) (Result, error) {
	var caller Caller
	switch tier {
	case TierSmall:
		caller = c.Small
	case TierMedium:
		caller = c.Medium
	case TierLarge:
		caller = c.Large
	}
	if caller == nil {
		return Result{}, fmt.Errorf("llm cascade: no caller configured for tier %s", tier)
	}
	result, err := caller.Query(ctx, prompt, specs[tier].MaxTokens)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", tier, err)
	}
	result.Tier = tier
	return result, nil
}

var refusalPattern = regexp.MustCompile(`(?i)\b(i'?m sorry|i cannot|i can'?t|as an ai|unable to assist)\b`)

// isSufficient implements spec.md §4.2's predicate: non-empty content,
// parseable against the expected schema (if any), and free of
// apology/refusal patterns.
func (c *Cascade) isSufficient(r Result) bool {
	content := strings.TrimSpace(r.Content)
	if content == "" {
		return false
	}
	if refusalPattern.MatchString(content) {
		return false
	}
	if c.RequireSchema != nil && !c.RequireSchema(content) {
		return false
	}
	return true
}
