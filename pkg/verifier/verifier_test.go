package verifier_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scoutline/ralph/internal/config"
	"github.com/scoutline/ralph/pkg/domain"
	sharedhttp "github.com/scoutline/ralph/pkg/shared/http"
	"github.com/scoutline/ralph/pkg/verifier"
)

func TestVerifier(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Evidence Verifier Suite")
}

var entity = domain.Entity{ID: "e1", Name: "Riverside United", Type: "club"}

var _ = Describe("Verify", func() {
	var table map[string]config.SourceTypeEntry

	BeforeEach(func() {
		table = config.DefaultSourceTypeTable()
	})

	It("marks a reachable, recent, matching evidence item verified with a boosted credibility", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		v := verifier.New(sharedhttp.New(sharedhttp.DefaultConfig()), table)
		ev := domain.EvidenceItem{
			ID:            "ev1",
			SourceType:    domain.SourcePartnershipAnnouncement,
			URL:           server.URL,
			ObservedAt:    time.Now(),
			ExtractedText: "Riverside United is seeking a CRM vendor",
		}

		result := v.Verify(context.Background(), ev, entity, []string{"seeking"})
		Expect(result.Verified).To(BeTrue())
		Expect(result.Accessible).To(BeTrue())
		Expect(result.ContentMatches).To(BeTrue())
		Expect(result.PostVerifyCredibility).To(BeNumerically(">", table["partnership_announcement"].Credibility))
	})

	It("reduces credibility by 0.30 and marks inaccessible on an unreachable URL", func() {
		v := verifier.New(sharedhttp.New(sharedhttp.Config{Timeout: 200 * time.Millisecond, MaxRetries: 0}), table)
		ev := domain.EvidenceItem{
			ID:            "ev1",
			SourceType:    domain.SourcePartnershipAnnouncement,
			URL:           "http://127.0.0.1:1/unreachable",
			ObservedAt:    time.Now(),
			ExtractedText: "Riverside United is seeking a CRM vendor",
		}
		result := v.Verify(context.Background(), ev, entity, []string{"seeking"})
		Expect(result.Accessible).To(BeFalse())
		Expect(result.PostVerifyCredibility).To(BeNumerically("<=", table["partnership_announcement"].Credibility-0.30+0.05))
	})

	It("applies the recency penalty for evidence observed more than 30 days ago", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		v := verifier.New(sharedhttp.New(sharedhttp.DefaultConfig()), table)
		recent := domain.EvidenceItem{
			SourceType: domain.SourcePartnershipAnnouncement, URL: server.URL,
			ObservedAt: time.Now(), ExtractedText: "Riverside United is seeking a CRM vendor",
		}
		stale := recent
		stale.ObservedAt = time.Now().Add(-40 * 24 * time.Hour)

		got := v.Verify(context.Background(), recent, entity, []string{"seeking"})
		gotStale := v.Verify(context.Background(), stale, entity, []string{"seeking"})
		Expect(gotStale.PostVerifyCredibility).To(BeNumerically("<", got.PostVerifyCredibility))
	})

	It("penalizes content that does not mention the entity or any claim keyword", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		v := verifier.New(sharedhttp.New(sharedhttp.DefaultConfig()), table)
		ev := domain.EvidenceItem{
			SourceType: domain.SourcePartnershipAnnouncement, URL: server.URL,
			ObservedAt: time.Now(), ExtractedText: "A completely unrelated story about the weather",
		}
		result := v.Verify(context.Background(), ev, entity, []string{"seeking"})
		Expect(result.ContentMatches).To(BeFalse())
		Expect(result.PostVerifyCredibility).To(BeNumerically("<", table["partnership_announcement"].Credibility))
	})
})

var _ = Describe("CredibilityLess", func() {
	It("breaks equal-credibility ties in favor of the later observed-at date", func() {
		older := domain.EvidenceItem{PostVerifyCredibility: 0.7, ObservedAt: time.Now().Add(-48 * time.Hour)}
		newer := domain.EvidenceItem{PostVerifyCredibility: 0.7, ObservedAt: time.Now()}
		Expect(verifier.CredibilityLess(older, newer)).To(BeTrue())
		Expect(verifier.CredibilityLess(newer, older)).To(BeFalse())
	})
})
