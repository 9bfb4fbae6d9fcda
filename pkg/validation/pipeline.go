// Package validation implements the four-pass Validation Pipeline
// (spec.md §4.8): rule filter, evidence verification, LLM consistency
// check, and final confirmation. Failure at any pass discards the
// candidate with a structured reason rather than raising.
package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/fitscore"
	"github.com/scoutline/ralph/pkg/metrics"
	shmath "github.com/scoutline/ralph/pkg/shared/math"
	"github.com/scoutline/ralph/pkg/verifier"
)

// Reason names the pass (or duplicate check) that discarded a
// candidate, matching spec.md §9's "result type whose error variant
// carries the structured reason (rule, verification, llm, duplicate,
// temporal)".
type Reason string

const (
	ReasonRule         Reason = "rule"
	ReasonVerification Reason = "verification"
	ReasonLLM          Reason = "llm"
	ReasonDuplicate    Reason = "duplicate"
	ReasonTemporal     Reason = "temporal"
)

// Thresholds are the Validation Pipeline's configuration surface
// (spec.md §6).
type Thresholds struct {
	MinEvidence              int
	MinCandidateConfidence   float64
	MinMeanPreCredibility    float64
	MinMeanPostCredibility   float64
	MaxLLMAdjustment         float64
	DuplicateCosineThreshold float64
	DuplicateCosineEnabled   bool
}

// DefaultThresholds matches spec.md §6's documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinEvidence:              3,
		MinCandidateConfidence:   0.70,
		MinMeanPreCredibility:    0.60,
		MinMeanPostCredibility:   0.55,
		MaxLLMAdjustment:         0.15,
		DuplicateCosineThreshold: 0.85,
		DuplicateCosineEnabled:   false,
	}
}

// ConsistencyResult is the LLM consistency check's structured output
// (spec.md §4.8 pass 3).
type ConsistencyResult struct {
	ValidatedConfidence  float64
	Rationale            string
	RequiresManualReview bool
	IsDuplicate          bool
}

// ConsistencyChecker is the LLM Client boundary the pipeline calls
// through for pass 3. Implementations are expected to consult the
// PromptLibrary's candidate-validation prompt (SPEC_FULL.md §4.2).
type ConsistencyChecker interface {
	CheckConsistency(ctx context.Context, candidate domain.SignalCandidate, recentSignals []domain.ValidatedSignal) (ConsistencyResult, error)
}

// Store is the read path into the Signal Store Gateway the pipeline
// needs for pass 3's recency context and pass 4's duplicate check
// (spec.md §4.10: "Reads are allowed only for duplicate detection").
type Store interface {
	RecentSignals(ctx context.Context, entityID domain.EntityID, limit int) ([]domain.ValidatedSignal, error)
	AlreadyWritten(ctx context.Context, entityID domain.EntityID, category domain.Category, canonicalKey string) (bool, error)
}

// Result is the outcome of one pipeline run.
type Result struct {
	Signal   *domain.ValidatedSignal
	Rejected bool
	Reason   Reason
	Detail   string
}

// Pipeline wires the collaborators the four passes need.
type Pipeline struct {
	Verifier      *verifier.Verifier
	Checker       ConsistencyChecker
	Store         Store
	Thresholds    Thresholds
	ClaimKeywords []string

	// FitScorer maps a candidate to the five catalog-fit sub-scores
	// (service match, budget, timeline, size, geography). Supplied by
	// the caller because catalog matching is outside the pipeline's
	// own state; a nil FitScorer falls back to neutral 0.5 inputs.
	FitScorer func(candidate domain.SignalCandidate) fitscore.Inputs

	// Now is overridable in tests; defaults to time.Now. It stamps
	// ValidatedAt on pass 4 (spec.md §4.8: "validated_at=now").
	Now func() time.Time

	// Metrics is nil-safe; a nil Registry simply records nothing.
	Metrics *metrics.Registry
}

func (p *Pipeline) clock() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) recordVerifierCheck(result string) {
	if p.Metrics != nil {
		p.Metrics.RecordVerifierCheck(result)
	}
}

// Run executes all four passes against candidate in order, returning
// as soon as one pass fails (spec.md §4.8).
func (p *Pipeline) Run(ctx context.Context, candidate domain.SignalCandidate, entity domain.Entity) Result {
	if r, ok := p.ruleFilter(candidate); !ok {
		return r
	}

	verified, r, ok := p.verifyEvidence(ctx, candidate, entity)
	if !ok {
		return r
	}
	candidate.Evidence = verified

	consistency, r, ok := p.checkConsistency(ctx, candidate)
	if !ok {
		return r
	}

	return p.finalConfirmation(ctx, candidate, consistency)
}

// ruleFilter is pass 1 (spec.md §4.8).
func (p *Pipeline) ruleFilter(candidate domain.SignalCandidate) (Result, bool) {
	if len(candidate.Evidence) < p.Thresholds.MinEvidence {
		return reject(ReasonRule, fmt.Sprintf("evidence count %d below minimum %d", len(candidate.Evidence), p.Thresholds.MinEvidence)), false
	}
	if candidate.RawConfidence < p.Thresholds.MinCandidateConfidence {
		return reject(ReasonRule, fmt.Sprintf("raw confidence %.2f below minimum %.2f", candidate.RawConfidence, p.Thresholds.MinCandidateConfidence)), false
	}
	meanPre := shmath.Mean(preCredibilities(candidate.Evidence))
	if meanPre < p.Thresholds.MinMeanPreCredibility {
		return reject(ReasonRule, fmt.Sprintf("mean pre-verification credibility %.2f below minimum %.2f", meanPre, p.Thresholds.MinMeanPreCredibility)), false
	}
	return Result{}, true
}

// verifyEvidence is pass 2 (spec.md §4.8).
func (p *Pipeline) verifyEvidence(ctx context.Context, candidate domain.SignalCandidate, entity domain.Entity) ([]domain.EvidenceItem, Result, bool) {
	verified := make([]domain.EvidenceItem, len(candidate.Evidence))
	for i, e := range candidate.Evidence {
		verified[i] = p.Verifier.Verify(ctx, e, entity, p.ClaimKeywords)
		if verified[i].ContentMatches {
			p.recordVerifierCheck("match")
		} else {
			p.recordVerifierCheck("mismatch")
		}
	}

	meanPost := shmath.Mean(postCredibilities(verified))
	if meanPost < p.Thresholds.MinMeanPostCredibility {
		return nil, reject(ReasonVerification, fmt.Sprintf("mean post-verification credibility %.2f below minimum %.2f", meanPost, p.Thresholds.MinMeanPostCredibility)), false
	}

	anyCorroborated := false
	for _, e := range verified {
		if e.Accessible && e.ContentMatches {
			anyCorroborated = true
			break
		}
	}
	if !anyCorroborated {
		return nil, reject(ReasonVerification, "no evidence item is both accessible and content-matching"), false
	}
	return verified, Result{}, true
}

// checkConsistency is pass 3 (spec.md §4.8). The LLM may adjust
// confidence by at most Thresholds.MaxLLMAdjustment; larger deltas are
// clipped and requires_manual_review is forced true.
func (p *Pipeline) checkConsistency(ctx context.Context, candidate domain.SignalCandidate) (ConsistencyResult, Result, bool) {
	recent, err := p.Store.RecentSignals(ctx, candidate.EntityID, 10)
	if err != nil {
		return ConsistencyResult{}, reject(ReasonLLM, fmt.Sprintf("failed to load recent signals: %v", err)), false
	}

	consistency, err := p.Checker.CheckConsistency(ctx, candidate, recent)
	if err != nil {
		return ConsistencyResult{}, reject(ReasonLLM, fmt.Sprintf("consistency check failed: %v", err)), false
	}
	if consistency.IsDuplicate {
		return ConsistencyResult{}, reject(ReasonDuplicate, "cosine-equivalent claim to an existing validated signal"), false
	}

	delta := consistency.ValidatedConfidence - candidate.RawConfidence
	if delta > p.Thresholds.MaxLLMAdjustment {
		consistency.ValidatedConfidence = candidate.RawConfidence + p.Thresholds.MaxLLMAdjustment
		consistency.RequiresManualReview = true
	} else if delta < -p.Thresholds.MaxLLMAdjustment {
		consistency.ValidatedConfidence = candidate.RawConfidence - p.Thresholds.MaxLLMAdjustment
		consistency.RequiresManualReview = true
	}
	return consistency, Result{}, true
}

// finalConfirmation is pass 4 (spec.md §4.8).
func (p *Pipeline) finalConfirmation(ctx context.Context, candidate domain.SignalCandidate, consistency ConsistencyResult) Result {
	key := CanonicalClaimKey(candidate.Category, candidate.Evidence)

	written, err := p.Store.AlreadyWritten(ctx, candidate.EntityID, candidate.Category, key)
	if err != nil {
		return reject(ReasonDuplicate, fmt.Sprintf("failed to check duplicate: %v", err))
	}
	if written {
		return reject(ReasonDuplicate, "canonical (category, claim-keywords) key already written for this entity")
	}

	finalConfidence := shmath.Clamp(consistency.ValidatedConfidence*candidate.TemporalMultiplier, 0, 1)

	fitInputs := fitscore.Inputs{ServiceMatch: 0.5, BudgetFit: 0.5, TimelineFit: 0.5, EntitySizeFit: 0.5, GeographyFit: 0.5}
	if p.FitScorer != nil {
		fitInputs = p.FitScorer(candidate)
	}

	signal := &domain.ValidatedSignal{
		SignalID:             domain.SignalID(key),
		EntityID:             candidate.EntityID,
		Category:             candidate.Category,
		ConfidenceBefore:     candidate.RawConfidence,
		ConfidenceAfter:      finalConfidence,
		Evidence:             candidate.Evidence,
		ValidationPass:       3,
		TemporalMultiplier:   candidate.TemporalMultiplier,
		FitScore:             fitscore.Score(fitInputs),
		PrimaryReason:        candidate.PrimaryReason,
		RequiresManualReview: consistency.RequiresManualReview,
		ValidatedAt:          p.clock(),
	}
	signal.PriorityTier = domain.PriorityTierFor(signal.FitScore)

	if err := signal.Validate(); err != nil {
		return reject(ReasonVerification, err.Error())
	}
	return Result{Signal: signal}
}

func reject(reason Reason, detail string) Result {
	return Result{Rejected: true, Reason: reason, Detail: detail}
}

func preCredibilities(items []domain.EvidenceItem) []float64 {
	out := make([]float64, len(items))
	for i, e := range items {
		out[i] = e.PreVerifyCredibility
	}
	return out
}

func postCredibilities(items []domain.EvidenceItem) []float64 {
	out := make([]float64, len(items))
	for i, e := range items {
		out[i] = e.PostVerifyCredibility
	}
	return out
}

// CanonicalClaimKey builds the (category, claim-keywords) duplicate
// detection key from spec.md §4.8/§4.10/§9. Pass 4's duplicate check
// compares this key only; the pipeline runs no cosine check.
func CanonicalClaimKey(category domain.Category, evidence []domain.EvidenceItem) string {
	seen := map[string]struct{}{}
	var words []string
	for _, e := range evidence {
		for _, w := range strings.Fields(strings.ToLower(e.ExtractedText)) {
			w = strings.Trim(w, ".,;:!?\"'()")
			if len(w) < 4 {
				continue
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			words = append(words, w)
		}
	}
	sortStrings(words)
	if len(words) > 12 {
		words = words[:12]
	}
	return string(category) + ":" + strings.Join(words, "-")
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// CosineTextSimilarity is a bag-of-words cosine similarity over two
// claim texts, for the optional secondary duplicate-detection check
// (spec.md §9). The pipeline does not call it, and it does not read
// Thresholds.DuplicateCosineEnabled.
func CosineTextSimilarity(a, b string) float64 {
	freqA := termFrequencies(a)
	freqB := termFrequencies(b)

	vocab := map[string]struct{}{}
	for w := range freqA {
		vocab[w] = struct{}{}
	}
	for w := range freqB {
		vocab[w] = struct{}{}
	}
	words := make([]string, 0, len(vocab))
	for w := range vocab {
		words = append(words, w)
	}
	sortStrings(words)

	va := make([]float64, len(words))
	vb := make([]float64, len(words))
	for i, w := range words {
		va[i] = float64(freqA[w])
		vb[i] = float64(freqB[w])
	}
	return shmath.CosineSimilarity(va, vb)
}

func termFrequencies(text string) map[string]int {
	freq := map[string]int{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if w == "" {
			continue
		}
		freq[w]++
	}
	return freq
}
