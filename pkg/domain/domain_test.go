package domain

import (
	"testing"
	"time"
)

func TestHypothesisValidate(t *testing.T) {
	tests := []struct {
		name    string
		h       Hypothesis
		wantErr bool
	}{
		{"valid", Hypothesis{ID: "h1", Category: CategoryCRM, Statement: "evaluating CRM", PriorConfidence: 0.2}, false},
		{"confidence too high", Hypothesis{ID: "h1", Category: CategoryCRM, Statement: "x", PriorConfidence: 1.5}, true},
		{"confidence negative", Hypothesis{ID: "h1", Category: CategoryCRM, Statement: "x", PriorConfidence: -0.1}, true},
		{"bad category", Hypothesis{ID: "h1", Category: "NOT_REAL", Statement: "x", PriorConfidence: 0.2}, true},
		{"empty statement", Hypothesis{ID: "h1", Category: CategoryCRM, Statement: "", PriorConfidence: 0.2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.h.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestEvidenceItemValidate(t *testing.T) {
	base := EvidenceItem{
		ID:                   "e1",
		SourceType:           SourceTechNews,
		URL:                  "https://example.com/article",
		ObservedAt:           time.Now(),
		PreVerifyCredibility: 0.5,
	}
	if err := base.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}

	bad := base
	bad.URL = "not a url"
	if err := bad.Validate(); err == nil {
		t.Error("Validate() expected error for malformed url")
	}

	badCred := base
	badCred.PreVerifyCredibility = 1.2
	if err := badCred.Validate(); err == nil {
		t.Error("Validate() expected error for out-of-range credibility")
	}
}

func TestFingerprintNormalizes(t *testing.T) {
	a := Fingerprint("Acme FC is Evaluating  CRM Platforms!")
	b := Fingerprint("acme fc is evaluating crm platforms")
	if a != b {
		t.Errorf("Fingerprint should normalize case/punctuation/whitespace: %q != %q", a, b)
	}
}

func TestCategoryStatsRecordAndSaturation(t *testing.T) {
	cs := NewCategoryStats(CategoryCRM)
	cs.Record(DecisionWeakAccept)
	cs.Record(DecisionNoProgress)
	if cs.Total() != 2 {
		t.Errorf("Total() = %d, want 2", cs.Total())
	}
	if cs.ConsecutiveSameClass != 1 {
		t.Errorf("ConsecutiveSameClass = %d, want 1 after a class change", cs.ConsecutiveSameClass)
	}
	cs.Record(DecisionNoProgress)
	if cs.ConsecutiveSameClass != 2 {
		t.Errorf("ConsecutiveSameClass = %d, want 2", cs.ConsecutiveSameClass)
	}
}

func TestChannelBlacklistTransitions(t *testing.T) {
	bl := NewChannelBlacklist()
	if bl.Status(SourceTechNews) != BlacklistActive {
		t.Fatalf("new channel should default to ACTIVE")
	}
	bl.RecordFailure(SourceTechNews)
	if bl.Status(SourceTechNews) != BlacklistActive {
		t.Errorf("1 failure should stay ACTIVE, got %s", bl.Status(SourceTechNews))
	}
	bl.RecordFailure(SourceTechNews)
	if bl.Status(SourceTechNews) != BlacklistCooling {
		t.Errorf("2 consecutive failures should be COOLING, got %s", bl.Status(SourceTechNews))
	}
	bl.RecordFailure(SourceTechNews)
	if bl.Status(SourceTechNews) != BlacklistBlacklisted {
		t.Errorf("3 consecutive failures should be BLACKLISTED, got %s", bl.Status(SourceTechNews))
	}
	bl.RecordSuccess(SourceTechNews)
	if bl.Status(SourceTechNews) != BlacklistActive {
		t.Errorf("success should reset to ACTIVE, got %s", bl.Status(SourceTechNews))
	}
	if got := bl.Penalty(SourceTechNews); got != 0.0 {
		t.Errorf("active penalty should be 0, got %v", got)
	}
}

func TestRalphStateActionableGate(t *testing.T) {
	s := NewRalphState("E1", 0.20, 30)
	s.RecordAccept(CategoryCRM)
	s.RecomputeActionable()
	if s.Flags.IsActionable {
		t.Error("single accept in one category should not be actionable")
	}
	s.RecordAccept(CategoryAnalytics)
	s.RecomputeActionable()
	if !s.Flags.IsActionable {
		t.Error("two accepts across two categories should be actionable")
	}
}

func TestRalphStateSeenEvidenceIsASet(t *testing.T) {
	s := NewRalphState("E1", 0.20, 30)
	s.MarkSeen("fp1")
	s.MarkSeen("fp1")
	if len(s.SeenEvidences) != 1 {
		t.Errorf("SeenEvidences should dedupe, got %d entries", len(s.SeenEvidences))
	}
}

func TestPriorityTierFor(t *testing.T) {
	tests := []struct {
		score float64
		want  PriorityTier
	}{
		{95, Tier1}, {90, Tier1}, {89, Tier2}, {70, Tier2}, {69, Tier3}, {50, Tier3}, {49, Tier4}, {0, Tier4},
	}
	for _, tt := range tests {
		if got := PriorityTierFor(tt.score); got != tt.want {
			t.Errorf("PriorityTierFor(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}
