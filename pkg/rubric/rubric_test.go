package rubric_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/rubric"
)

func TestRubric(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Decision Rubric Suite")
}

func evidence(text string, source domain.SourceType) domain.EvidenceItem {
	return domain.EvidenceItem{
		ID:            "ev-1",
		SourceType:    source,
		URL:           "https://example.com/article",
		ObservedAt:    time.Now(),
		ExtractedText: text,
	}
}

var entity = domain.Entity{ID: "e1", Name: "Riverside United FC", Type: "club", Priority: 80}

var _ = Describe("Classify", func() {
	It("returns ACCEPT for new, entity-specific, future-action, credible evidence", func() {
		e := evidence("Riverside United is seeking a new CRM vendor to support ticketing", domain.SourcePartnershipAnnouncement)
		d, reason, err := rubric.Classify(e, entity, false, map[string]struct{}{}, nil, false, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(domain.DecisionAccept))
		Expect(reason).To(ContainSubstring("credible source"))
	})

	It("returns WEAK_ACCEPT for new, entity-specific, credible evidence without a future-action keyword", func() {
		e := evidence("Riverside United announced record attendance this season", domain.SourcePartnershipAnnouncement)
		d, _, err := rubric.Classify(e, entity, false, map[string]struct{}{}, nil, false, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(domain.DecisionWeakAccept))
	})

	It("returns WEAK_ACCEPT for a new industry-wide signal lacking entity specificity", func() {
		e := evidence("Clubs across the league are evaluating new ticketing platforms", domain.SourceTechNews)
		d, reason, err := rubric.Classify(e, entity, false, map[string]struct{}{}, nil, false, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(domain.DecisionWeakAccept))
		Expect(reason).To(ContainSubstring("industry-wide"))
	})

	It("returns WEAK_ACCEPT once, then NO_PROGRESS, for evidence missing two or more criteria", func() {
		e := evidence("A quiet news day at the club.", domain.SourceCompanyBlog)
		first, _, err := rubric.Classify(e, entity, false, map[string]struct{}{}, nil, false, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(Equal(domain.DecisionWeakAccept))

		second, _, err := rubric.Classify(e, entity, false, map[string]struct{}{}, nil, true, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(domain.DecisionNoProgress))
	})

	It("returns NO_PROGRESS for a duplicate fingerprint that does not contradict", func() {
		e := evidence("Riverside United is seeking a new CRM vendor", domain.SourcePartnershipAnnouncement)
		seen := map[string]struct{}{domain.Fingerprint(e.ExtractedText): {}}
		d, _, err := rubric.Classify(e, entity, false, seen, nil, false, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(domain.DecisionNoProgress))
	})

	It("returns REJECT for a duplicate fingerprint that contradicts prior evidence", func() {
		e := evidence("Riverside United is seeking a new CRM vendor", domain.SourcePartnershipAnnouncement)
		seen := map[string]struct{}{domain.Fingerprint(e.ExtractedText): {}}
		d, _, err := rubric.Classify(e, entity, false, seen, nil, false, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(domain.DecisionReject))
	})

	It("returns SATURATED when the category is already flagged saturated, regardless of other criteria", func() {
		e := evidence("Riverside United is seeking a new CRM vendor", domain.SourcePartnershipAnnouncement)
		d, _, err := rubric.Classify(e, entity, true, map[string]struct{}{}, nil, false, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(domain.DecisionSaturated))
	})

	It("recognizes a corporate-suffix-stripped entity name variant", func() {
		e := evidence("Riverside United announced a tender for a new analytics platform", domain.SourceTenderPortal)
		d, _, err := rubric.Classify(e, entity, false, map[string]struct{}{}, nil, false, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(domain.DecisionAccept))
	})
})
