package hopplanner_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scoutline/ralph/internal/config"
	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/hopplanner"
)

func TestHopPlanner(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Hop Planner Suite")
}

var hypothesis = domain.Hypothesis{
	ID:              "h1",
	EntityID:        "e1",
	Category:        domain.CategoryCRM,
	Statement:       "entity is evaluating CRM platforms",
	PriorConfidence: 0.20,
	Status:          domain.HypothesisActive,
}

var _ = Describe("Plan", func() {
	It("prefers the highest-multiplier unblacklisted source type", func() {
		table := config.DefaultSourceTypeTable()
		bl := domain.NewChannelBlacklist()
		hop := hopplanner.Plan(hypothesis, "Riverside United", table, bl)
		Expect(hop.SourceType).To(Equal(domain.SourcePartnershipAnnouncement))
		Expect(hop.Query).NotTo(BeEmpty())
	})

	It("penalizes a cooling channel enough to demote it below an active lower-tier channel", func() {
		table := config.DefaultSourceTypeTable()
		bl := domain.NewChannelBlacklist()
		bl.RecordFailure(domain.SourcePartnershipAnnouncement)
		bl.RecordFailure(domain.SourcePartnershipAnnouncement)
		Expect(bl.Status(domain.SourcePartnershipAnnouncement)).To(Equal(domain.BlacklistCooling))

		scorePartnership := hopplanner.Score(hypothesis, domain.SourcePartnershipAnnouncement, table, bl)
		scoreTechNews := hopplanner.Score(hypothesis, domain.SourceTechNews, table, bl)
		Expect(scoreTechNews).To(BeNumerically(">", scorePartnership))
	})

	It("excludes a fully blacklisted channel from consideration via a zero penalty multiplier", func() {
		table := config.DefaultSourceTypeTable()
		bl := domain.NewChannelBlacklist()
		bl.RecordFailure(domain.SourcePartnershipAnnouncement)
		bl.RecordFailure(domain.SourcePartnershipAnnouncement)
		bl.RecordFailure(domain.SourcePartnershipAnnouncement)
		Expect(bl.Status(domain.SourcePartnershipAnnouncement)).To(Equal(domain.BlacklistBlacklisted))
		Expect(hopplanner.Score(hypothesis, domain.SourcePartnershipAnnouncement, table, bl)).To(Equal(0.0))
	})
})

var _ = Describe("BuildQuery", func() {
	It("cycles through fallback templates by variant index", func() {
		q0 := hopplanner.BuildQuery(domain.SourcePartnershipAnnouncement, "Riverside United", domain.CategoryCRM, 0)
		q1 := hopplanner.BuildQuery(domain.SourcePartnershipAnnouncement, "Riverside United", domain.CategoryCRM, 1)
		Expect(q0).NotTo(Equal(q1))
	})

	It("wraps around when the variant index exceeds the template count", func() {
		q := hopplanner.BuildQuery(domain.SourcePartnershipAnnouncement, "Riverside United", domain.CategoryCRM, 0)
		wrapped := hopplanner.BuildQuery(domain.SourcePartnershipAnnouncement, "Riverside United", domain.CategoryCRM, 3)
		Expect(wrapped).To(Equal(q))
	})
})

var _ = Describe("BaseEIG", func() {
	It("decreases as prior confidence and reinforcement count rise", func() {
		fresh := hopplanner.BaseEIG(domain.Hypothesis{PriorConfidence: 0.1, ReinforcementCount: 0})
		mature := hopplanner.BaseEIG(domain.Hypothesis{PriorConfidence: 0.8, ReinforcementCount: 5})
		Expect(mature).To(BeNumerically("<", fresh))
	})
})
