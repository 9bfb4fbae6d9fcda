// Package hypotheses implements the Hypothesis Store (spec.md §4.4):
// the per-entity set of hypotheses with add/reinforce/retire
// operations and the category-diversity rule.
package hypotheses

import (
	"fmt"
	"sync"

	"github.com/scoutline/ralph/pkg/domain"
)

// MaxActivePerCategory is the category-diversity rule's ceiling
// (spec.md §4.4): at most two active hypotheses per category.
const MaxActivePerCategory = 2

// ReinforcementStep is the nudge-toward-1 factor applied on reinforce
// (spec.md §4.4: `prior <- prior + (1 - prior) * 0.1`).
const ReinforcementStep = 0.1

// Store holds one entity's hypotheses in insertion order, so "oldest
// in category" is well-defined for the diversity rule's retirement.
type Store struct {
	mu      sync.Mutex
	order   []domain.HypothesisID
	byID    map[domain.HypothesisID]*domain.Hypothesis
	nextSeq int
}

// NewStore returns an empty hypothesis store.
func NewStore() *Store {
	return &Store{byID: make(map[domain.HypothesisID]*domain.Hypothesis)}
}

// Add inserts h as ACTIVE, enforcing the category-diversity rule: if
// the entity already holds two active hypotheses in h.Category, the
// oldest one is retired first (spec.md §4.4).
func (s *Store) Add(h domain.Hypothesis) error {
	if err := h.Validate(); err != nil {
		return fmt.Errorf("failed to add hypothesis: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[h.ID]; exists {
		return fmt.Errorf("failed to add hypothesis %s: already present", h.ID)
	}

	h.Status = domain.HypothesisActive
	stored := h
	s.byID[h.ID] = &stored
	s.order = append(s.order, h.ID)

	s.enforceDiversityLocked(h.EntityID, h.Category, h.ID)
	return nil
}

// enforceDiversityLocked retires the oldest active hypothesis in
// (entityID, category) other than keep, while more than
// MaxActivePerCategory remain active. Callers must hold s.mu.
func (s *Store) enforceDiversityLocked(entityID domain.EntityID, category domain.Category, keep domain.HypothesisID) {
	for {
		active := s.activeInCategoryLocked(entityID, category)
		if len(active) <= MaxActivePerCategory {
			return
		}
		oldest := active[0]
		for _, id := range active {
			if id == keep {
				continue
			}
			oldest = id
			break
		}
		s.retireLocked(oldest, "category diversity rule: retire-oldest-in-category")
	}
}

func (s *Store) activeInCategoryLocked(entityID domain.EntityID, category domain.Category) []domain.HypothesisID {
	var active []domain.HypothesisID
	for _, id := range s.order {
		h := s.byID[id]
		if h.EntityID == entityID && h.Category == category && h.Status == domain.HypothesisActive {
			active = append(active, id)
		}
	}
	return active
}

// Reinforce increments h's reinforcement count and nudges its prior
// confidence toward 1 (spec.md §4.4).
func (s *Store) Reinforce(id domain.HypothesisID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("failed to reinforce hypothesis %s: not found", id)
	}
	h.ReinforcementCount++
	h.PriorConfidence += (1 - h.PriorConfidence) * ReinforcementStep
	return nil
}

// Retire marks h RETIRED with reason (spec.md §4.4).
func (s *Store) Retire(id domain.HypothesisID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retireLocked(id, reason)
}

func (s *Store) retireLocked(id domain.HypothesisID, reason string) error {
	h, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("failed to retire hypothesis %s: not found", id)
	}
	_ = reason // surfaced via the run's event log by the caller, not stored on the hypothesis itself
	h.Status = domain.HypothesisRetired
	return nil
}

// ByEntity returns entityID's hypotheses in insertion order, optionally
// filtered to ACTIVE only (spec.md §4.4).
func (s *Store) ByEntity(entityID domain.EntityID, activeOnly bool) []domain.Hypothesis {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Hypothesis
	for _, id := range s.order {
		h := s.byID[id]
		if h.EntityID != entityID {
			continue
		}
		if activeOnly && h.Status != domain.HypothesisActive {
			continue
		}
		out = append(out, *h)
	}
	return out
}

// Get returns a copy of the hypothesis with id, if present.
func (s *Store) Get(id domain.HypothesisID) (domain.Hypothesis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.byID[id]
	if !ok {
		return domain.Hypothesis{}, false
	}
	return *h, true
}
