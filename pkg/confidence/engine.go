// Package confidence implements the deterministic, drift-free
// confidence calculus (spec.md §4.6): diminishing returns, ceiling
// damping, novelty/alignment multipliers, saturation scoring, and the
// actionable gate. Every function here is pure — no I/O, no clock, no
// randomness — so the Exploration Loop can apply it synchronously
// between suspension points (SPEC_FULL.md §5).
package confidence

import (
	"github.com/scoutline/ralph/pkg/domain"
	shmath "github.com/scoutline/ralph/pkg/shared/math"
)

// Novelty is the new-evidence/new-hypothesis multiplier from spec.md §4.6.
type Novelty float64

const (
	NoveltyNew        Novelty = 1.0
	NoveltyReinforces Novelty = 0.6
	NoveltyDuplicate  Novelty = 0.0
)

// Alignment is the predictive-keyword multiplier from spec.md §4.6.
type Alignment float64

const (
	AlignmentPredictive Alignment = 0.8
	AlignmentNeutral    Alignment = 0.5
	AlignmentNoise      Alignment = 0.3
)

// Params are the configurable constants behind the formula, resolved
// per SPEC_FULL.md §9 from spec.md's Open Questions.
type Params struct {
	WeakOnlyCeiling   float64
	WeakDecayConstant float64
}

// DefaultParams matches spec.md §4.6/§6's documented defaults.
func DefaultParams() Params {
	return Params{WeakOnlyCeiling: 0.70, WeakDecayConstant: 0.5}
}

func rawDelta(d domain.Decision) float64 {
	switch d {
	case domain.DecisionAccept:
		return 0.06
	case domain.DecisionWeakAccept:
		return 0.02
	default:
		return 0
	}
}

// categoryFactor implements the diminishing-returns term applied only
// to ACCEPT (spec.md §4.6).
func categoryFactor(acceptedInCategory int) float64 {
	return 1.0 / (1.0 + float64(acceptedInCategory))
}

// weakDecay implements the diminishing-returns term applied only to
// WEAK_ACCEPT (spec.md §4.6).
func weakDecay(weakAcceptsInCategory int, constant float64) float64 {
	return 1.0 / (1.0 + float64(weakAcceptsInCategory)*constant)
}

// ceilingDamping implements the smooth slowdown factor as current
// confidence approaches the ceiling (spec.md §4.6).
func ceilingDamping(currentConfidence, ceiling float64) float64 {
	if ceiling <= 0.20 {
		return 0
	}
	proximity := (currentConfidence - 0.20) / (ceiling - 0.20)
	return shmath.Clamp(1.0-proximity*proximity, 0.0, 1.0)
}

// Update is the result of applying one decision to a RalphState.
type Update struct {
	AppliedDelta   float64
	NewConfidence  float64
	CeilingChanged bool
}

// Apply implements spec.md §4.6's per-step update and actionable gate
// in one call: it advances s.Confidence, records the decision in the
// category stats, updates the accepted-count/actionable-gate
// bookkeeping, and recomputes the category's saturation score. It is
// pure with respect to anything outside s — calling it twice with an
// identical (decision, state) pair is deterministic (spec.md §8's
// purity law).
func Apply(s *domain.RalphState, category domain.Category, decision domain.Decision, novelty Novelty, alignment Alignment, params Params) Update {
	cs := s.CategoryStatsFor(category)

	delta := rawDelta(decision)
	ceiling := s.EffectiveCeiling()
	damping := ceilingDamping(s.Confidence, ceiling)

	applied := delta * float64(novelty) * float64(alignment) * damping
	switch decision {
	case domain.DecisionAccept:
		applied *= categoryFactor(cs.AcceptedSignalsCount)
	case domain.DecisionWeakAccept:
		applied *= weakDecay(cs.WeakAcceptSinceLastAccept, params.WeakDecayConstant)
	}

	cs.Record(decision)
	if decision == domain.DecisionAccept {
		s.RecordAccept(category)
	}

	newConfidence := shmath.Clamp(s.Confidence+applied, domain.MinConfidence, ceiling)

	ceilingChanged := false
	if s.AcceptedCountTotal == 0 && s.ConfidenceCeiling != params.WeakOnlyCeiling {
		s.ConfidenceCeiling = params.WeakOnlyCeiling
		ceilingChanged = true
		newConfidence = shmath.Clamp(newConfidence, domain.MinConfidence, s.EffectiveCeiling())
	}

	s.Confidence = newConfidence
	s.ConfidenceHistory = append(s.ConfidenceHistory, newConfidence)
	s.RecomputeActionable()
	RecomputeSaturation(cs)

	return Update{AppliedDelta: applied, NewConfidence: newConfidence, CeilingChanged: ceilingChanged}
}

// RecomputeSaturation implements spec.md §4.6's saturation-score
// formula for one category's stats.
func RecomputeSaturation(cs *domain.CategoryStats) {
	total := cs.Total()
	if total == 0 {
		cs.SaturationScore = 0
		return
	}
	negativeRatio := float64(cs.Counts[domain.DecisionReject]+cs.Counts[domain.DecisionNoProgress]) / float64(total)

	consecutivePenalty := 0.0
	if cs.LastTwoBothWeakOrNoProgress() {
		consecutivePenalty = 0.3
	}

	acceptRate := cs.AcceptRate()
	acceptPenalty := shmath.Max([]float64{0, 1 - 2*acceptRate})

	cs.SaturationScore = shmath.Clamp(0.5*negativeRatio+consecutivePenalty+0.2*acceptPenalty, 0, 1)
}

// GlobalSaturated reports whether at least half of the active
// categories are saturated (spec.md §4.6).
func GlobalSaturated(s *domain.RalphState) bool {
	if len(s.Categories) == 0 {
		return false
	}
	saturated := 0
	for _, cs := range s.Categories {
		if cs.Saturated() {
			saturated++
		}
	}
	return float64(saturated) >= float64(len(s.Categories))/2.0
}
