package domain

// CategoryStats are the per-(entity, category) counters the Confidence
// Engine and Decision Rubric read and update (spec.md §3).
type CategoryStats struct {
	Category              Category
	Counts                map[Decision]int
	SaturationScore        float64
	LastDecision           Decision
	PreviousDecision       Decision
	ConsecutiveSameClass   int
	AcceptedSignalsCount   int
	WeakAcceptSinceLastAccept int
}

// NewCategoryStats returns a zeroed CategoryStats for category.
func NewCategoryStats(category Category) *CategoryStats {
	return &CategoryStats{
		Category: category,
		Counts:   make(map[Decision]int),
	}
}

// Total returns the total number of decisions recorded for the category.
func (s *CategoryStats) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// Record appends decision d to the category's running counters and
// maintains ConsecutiveSameClass / LastDecision bookkeeping used by the
// saturation-score formula (spec.md §4.6).
func (s *CategoryStats) Record(d Decision) {
	s.Counts[d]++
	if d == s.LastDecision {
		s.ConsecutiveSameClass++
	} else {
		s.ConsecutiveSameClass = 1
	}
	s.PreviousDecision = s.LastDecision
	s.LastDecision = d
	if d == DecisionAccept {
		s.AcceptedSignalsCount++
		s.WeakAcceptSinceLastAccept = 0
	}
	if d == DecisionWeakAccept {
		s.WeakAcceptSinceLastAccept++
	}
}

// AcceptRate returns accepted/total, or 0 when total is 0.
func (s *CategoryStats) AcceptRate() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Counts[DecisionAccept]) / float64(total)
}

// Saturated reports whether the category has crossed the 0.7 saturation
// threshold (spec.md §4.6).
func (s *CategoryStats) Saturated() bool {
	return s.SaturationScore >= 0.7
}

// LastTwoBothWeakOrNoProgress reports whether the two most recent
// decisions recorded for the category are both in {WEAK_ACCEPT,
// NO_PROGRESS} (spec.md §4.6's consecutive_penalty term). It does not
// require them to be the same class, only both members of the set.
func (s *CategoryStats) LastTwoBothWeakOrNoProgress() bool {
	if s.Total() < 2 {
		return false
	}
	inSet := func(d Decision) bool {
		return d == DecisionWeakAccept || d == DecisionNoProgress
	}
	return inSet(s.LastDecision) && inSet(s.PreviousDecision)
}
