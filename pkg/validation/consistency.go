package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/llmclient"
	shmath "github.com/scoutline/ralph/pkg/shared/math"
)

// LLMConsistencyChecker implements ConsistencyChecker against the
// model Cascade for pass 3 (spec.md §4.8): it asks the cascade whether
// a candidate is consistent with, and not a near-duplicate of, an
// entity's recent validated signals.
type LLMConsistencyChecker struct {
	Cascade *llmclient.Cascade
	Prompts llmclient.PromptLibrary
	Specs   map[llmclient.Tier]llmclient.ModelSpec

	// Tier is the cascade tier queried directly for the consistency
	// check (spec.md §4.8: "uses the LARGE tier of the cascade by
	// default (configurable)"). Defaults to TierLarge when unset.
	Tier llmclient.Tier

	// MaxAdjustment clips how far the cascade may move confidence away
	// from the candidate's raw value (spec.md §4.8 pass 3: "may adjust
	// confidence by at most ±0.15").
	MaxAdjustment float64
}

var _ ConsistencyChecker = (*LLMConsistencyChecker)(nil)

// CheckConsistency runs the candidate-validation prompt through the
// cascade and clips its confidence delta to MaxAdjustment, flagging
// manual review when a clip occurs.
func (a *LLMConsistencyChecker) CheckConsistency(
	ctx context.Context, candidate domain.SignalCandidate, recentSignals []domain.ValidatedSignal,
) (ConsistencyResult, error) {
	entity := domain.Entity{ID: candidate.EntityID}
	prompt := a.Prompts.CandidateValidation(candidate, entity, recentSignals)

	tier := a.Tier
	if tier == "" {
		tier = llmclient.TierLarge
	}
	result, err := a.Cascade.QueryTier(ctx, tier, prompt, a.Specs)
	if err != nil {
		return ConsistencyResult{}, fmt.Errorf("candidate consistency check: %w", err)
	}

	payload, err := parseConsistency(result.Content)
	if err != nil {
		return ConsistencyResult{}, fmt.Errorf("candidate consistency check: %w", err)
	}

	delta := payload.ValidatedConfidence - candidate.RawConfidence
	clipped := payload.RequiresManualReview
	maxAdj := a.MaxAdjustment
	if maxAdj <= 0 {
		maxAdj = 0.15
	}
	if delta > maxAdj {
		payload.ValidatedConfidence = candidate.RawConfidence + maxAdj
		clipped = true
	} else if delta < -maxAdj {
		payload.ValidatedConfidence = candidate.RawConfidence - maxAdj
		clipped = true
	}

	return ConsistencyResult{
		ValidatedConfidence:  shmath.Clamp(payload.ValidatedConfidence, 0, 1),
		Rationale:            payload.Rationale,
		RequiresManualReview: clipped,
		IsDuplicate:          payload.IsDuplicate,
	}, nil
}

type consistencyPayload struct {
	ValidatedConfidence  float64 `json:"validated_confidence"`
	Rationale            string  `json:"rationale"`
	RequiresManualReview bool    `json:"requires_manual_review"`
	IsDuplicate          bool    `json:"is_duplicate"`
}

// jsonObject extracts the outermost {...} span from content, tolerating
// markdown fencing or commentary an LLM wrapped its JSON payload in.
func jsonObject(content string) string {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return content[start : end+1]
}

func parseConsistency(content string) (consistencyPayload, error) {
	object := jsonObject(content)
	if object == "" {
		return consistencyPayload{}, fmt.Errorf("no JSON object found in consistency response")
	}
	var payload consistencyPayload
	if err := json.Unmarshal([]byte(object), &payload); err != nil {
		return consistencyPayload{}, fmt.Errorf("malformed consistency response: %w", err)
	}
	return payload, nil
}
