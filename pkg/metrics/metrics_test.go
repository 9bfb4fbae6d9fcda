package metrics_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/scoutline/ralph/pkg/metrics"
)

func TestMetrics(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Metrics Suite")
}

var _ = Describe("Registry", func() {
	It("counts a search call under its status label", func() {
		r := metrics.New()
		r.RecordSearch("success")
		r.RecordSearch("success")
		r.RecordSearch("error")

		Expect(testutil.ToFloat64(r.SearchCalls.WithLabelValues("success"))).To(Equal(2.0))
		Expect(testutil.ToFloat64(r.SearchCalls.WithLabelValues("error"))).To(Equal(1.0))
	})

	It("counts fetch calls and LLM cascade calls independently", func() {
		r := metrics.New()
		r.RecordFetch("success")
		r.RecordLLMCall("claude-haiku")
		r.RecordLLMCall("exhausted")

		Expect(testutil.ToFloat64(r.FetchCalls.WithLabelValues("success"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(r.LLMCascadeCalls.WithLabelValues("claude-haiku"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(r.LLMCascadeCalls.WithLabelValues("exhausted"))).To(Equal(1.0))
	})

	It("records verifier checks and store writes", func() {
		r := metrics.New()
		r.RecordVerifierCheck("match")
		r.RecordStoreWrite("ok")
		r.RecordStoreWrite("failed")

		Expect(testutil.ToFloat64(r.VerifierChecks.WithLabelValues("match"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(r.StoreWrites.WithLabelValues("ok"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(r.StoreWrites.WithLabelValues("failed"))).To(Equal(1.0))
	})

	It("records a finished run's outcome, iteration count, and cost", func() {
		r := metrics.New()
		r.RecordRun("COMPLETED", 7, 0.42)

		Expect(testutil.ToFloat64(r.RunOutcomes.WithLabelValues("COMPLETED"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(r.IterationsTotal)).To(Equal(7.0))
		Expect(testutil.CollectAndCount(r.EntityCostUSD)).To(Equal(1))
	})

	It("gathers every metric family from the private registry", func() {
		r := metrics.New()
		r.RecordSearch("success")

		families, err := r.Registry.Gather()
		Expect(err).NotTo(HaveOccurred())
		Expect(len(families)).To(BeNumerically(">", 0))
	})
})
