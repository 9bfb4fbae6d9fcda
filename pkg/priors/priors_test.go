package priors_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/priors"
)

func TestPriors(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Priors Adapter Suite")
}

const validDossier = `
metadata:
  entity_id: "e1"
  name: "Riverside United"
  priority_score: 80
  generated_at: "2026-01-15T00:00:00Z"
insights:
  - tag: PROCUREMENT
    text: "Evaluating CRM vendor options for next season"
    confidence: 70
  - tag: CAPABILITY
    text: "Needs a new ticketing platform"
    confidence: 60
  - tag: TIMING
    text: "Budget cycle closes in Q2"
    confidence: 50
    timeline: "Q2"
  - tag: CONTACT
    text: "VP of Operations, Jordan Lee"
    confidence: 90
`

var _ = Describe("ParseDossier", func() {
	It("parses a well-formed dossier", func() {
		d, err := priors.ParseDossier([]byte(validDossier))
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Metadata.EntityID).To(Equal(domain.EntityID("e1")))
		Expect(d.Insights).To(HaveLen(4))
	})

	It("rejects a dossier missing metadata.entity_id before the schema unmarshal runs", func() {
		_, err := priors.ParseDossier([]byte(`
metadata:
  name: "Riverside United"
insights: []
`))
		Expect(err).To(HaveOccurred())
	})

	It("rejects malformed input", func() {
		_, err := priors.ParseDossier([]byte("not: [valid"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Adapt", func() {
	var nextID func() domain.HypothesisID

	BeforeEach(func() {
		n := 0
		nextID = func() domain.HypothesisID {
			n++
			return domain.HypothesisID(string(rune('a' + n - 1)))
		}
	})

	It("seeds hypotheses from PROCUREMENT and CAPABILITY insights only", func() {
		d, err := priors.ParseDossier([]byte(validDossier))
		Expect(err).NotTo(HaveOccurred())

		adapted := priors.Adapt(context.Background(), d, nextID)
		Expect(adapted.Hypotheses).To(HaveLen(2))
	})

	It("caps starting confidence at 0.25 regardless of dossier strength", func() {
		d, err := priors.ParseDossier([]byte(validDossier))
		Expect(err).NotTo(HaveOccurred())

		adapted := priors.Adapt(context.Background(), d, nextID)
		Expect(adapted.StartingConfidence).To(Equal(priors.MaxStartingConfidence))
		for _, h := range adapted.Hypotheses {
			Expect(h.PriorConfidence).To(BeNumerically("<=", priors.MaxStartingConfidence))
		}
	})

	It("upweights tech news and downweights the official site when a known vendor is mentioned", func() {
		d, err := priors.ParseDossier([]byte(validDossier))
		Expect(err).NotTo(HaveOccurred())

		adapted := priors.Adapt(context.Background(), d, nextID)
		Expect(adapted.ChannelMultipliers[domain.SourceTechNews]).To(BeNumerically(">", 1.0))
		Expect(adapted.ChannelMultipliers[domain.SourceOfficialSite]).To(BeNumerically("<", 1.0))
	})

	It("infers the CRM category from procurement insight text", func() {
		d, err := priors.ParseDossier([]byte(validDossier))
		Expect(err).NotTo(HaveOccurred())

		adapted := priors.Adapt(context.Background(), d, nextID)
		found := false
		for _, h := range adapted.Hypotheses {
			if h.Category == domain.CategoryCRM {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})
})
