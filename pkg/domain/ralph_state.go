package domain

import "fmt"

const (
	MinConfidence          = 0.05
	DefaultAbsoluteCeiling = 0.95
	DefaultWeakOnlyCeiling = 0.70
)

// RalphStateFlags are the boolean flags tracked alongside RalphState
// (spec.md §3).
type RalphStateFlags struct {
	CategorySaturated   bool
	ConfidenceSaturated bool
	GlobalSaturated     bool
	IsActionable        bool
}

// RalphState is the per-entity working state exclusively owned by the
// Exploration Loop for the duration of one run (spec.md §3).
type RalphState struct {
	EntityID            EntityID
	Confidence          float64
	IterationsCompleted  int
	MaxIterations        int
	ConfidenceHistory     []float64
	Categories            map[Category]*CategoryStats
	ActiveHypotheses      []HypothesisID
	Blacklist             *ChannelBlacklist
	SeenEvidences         map[string]struct{} // fingerprint set
	ConfidenceCeiling     float64
	Flags                 RalphStateFlags
	AcceptedCountTotal    int
	CategoriesWithAccepts map[Category]struct{}
	CostUSD               float64
}

// NewRalphState returns a freshly-initialized RalphState for entity,
// with the spec's starting confidence and absolute ceiling defaults.
func NewRalphState(entityID EntityID, startingConfidence float64, maxIterations int) *RalphState {
	return &RalphState{
		EntityID:              entityID,
		Confidence:            startingConfidence,
		MaxIterations:         maxIterations,
		ConfidenceHistory:      []float64{startingConfidence},
		Categories:             make(map[Category]*CategoryStats),
		Blacklist:              NewChannelBlacklist(),
		SeenEvidences:          make(map[string]struct{}),
		ConfidenceCeiling:      DefaultAbsoluteCeiling,
		CategoriesWithAccepts:  make(map[Category]struct{}),
	}
}

// CategoryStatsFor returns (creating if absent) the CategoryStats for c.
func (s *RalphState) CategoryStatsFor(c Category) *CategoryStats {
	cs, ok := s.Categories[c]
	if !ok {
		cs = NewCategoryStats(c)
		s.Categories[c] = cs
	}
	return cs
}

// HasSeen reports whether fingerprint fp has already been recorded.
func (s *RalphState) HasSeen(fp string) bool {
	_, ok := s.SeenEvidences[fp]
	return ok
}

// MarkSeen records fingerprint fp as seen. It is idempotent: recording
// the same fingerprint twice never grows the set (spec.md §3's
// invariant that seen_evidences is a set).
func (s *RalphState) MarkSeen(fp string) {
	s.SeenEvidences[fp] = struct{}{}
}

// EffectiveCeiling returns min(0.95, ConfidenceCeiling) — the clamp
// upper bound named throughout spec.md §3/§4.6.
func (s *RalphState) EffectiveCeiling() float64 {
	if s.ConfidenceCeiling < DefaultAbsoluteCeiling {
		return s.ConfidenceCeiling
	}
	return DefaultAbsoluteCeiling
}

// Validate checks the RalphState invariants from spec.md §3.
func (s *RalphState) Validate() error {
	ceiling := s.EffectiveCeiling()
	if s.Confidence < MinConfidence || s.Confidence > ceiling {
		return fmt.Errorf("entity %s: confidence %f out of range [%f, %f]", s.EntityID, s.Confidence, MinConfidence, ceiling)
	}
	if s.IterationsCompleted > s.MaxIterations {
		return fmt.Errorf("entity %s: iterations_completed %d exceeds max_iterations %d", s.EntityID, s.IterationsCompleted, s.MaxIterations)
	}
	return nil
}

// RecordAccept updates the cross-category accept bookkeeping the
// actionable gate depends on (spec.md §4.6).
func (s *RalphState) RecordAccept(c Category) {
	s.AcceptedCountTotal++
	s.CategoriesWithAccepts[c] = struct{}{}
}

// RecomputeActionable recomputes the actionable gate: at least 2 accepts
// spread across at least 2 categories (spec.md §4.6).
func (s *RalphState) RecomputeActionable() {
	s.Flags.IsActionable = s.AcceptedCountTotal >= 2 && len(s.CategoriesWithAccepts) >= 2
}
