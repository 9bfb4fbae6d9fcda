package errors_test

import (
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	rerr "github.com/scoutline/ralph/internal/errors"
)

func TestErrors(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Error Taxonomy Suite")
}

var _ = Describe("Error taxonomy", func() {
	Describe("Input", func() {
		It("reports KindInput and exit code 2", func() {
			err := rerr.Input("missing entity id", nil)
			Expect(err.Kind()).To(Equal(rerr.KindInput))
			Expect(rerr.ExitCode(err)).To(Equal(2))
		})
	})

	Describe("ProviderBudget", func() {
		It("reports KindProviderBudget and exit code 3", func() {
			err := rerr.ProviderBudget("cost cap exceeded", fmt.Errorf("budget exhausted"))
			Expect(err.Kind()).To(Equal(rerr.KindProviderBudget))
			Expect(rerr.ExitCode(err)).To(Equal(3))
			Expect(err.Error()).To(ContainSubstring("budget exhausted"))
		})
	})

	Describe("StoreWrite", func() {
		It("reports KindStoreWrite and exit code 5", func() {
			err := rerr.StoreWrite("retries exhausted", fmt.Errorf("connection refused"))
			Expect(rerr.ExitCode(err)).To(Equal(5))
		})
	})

	Describe("TransientExternal and VerificationFailure", func() {
		It("are never mapped to a fatal exit code", func() {
			Expect(rerr.ExitCode(rerr.TransientExternal("search timeout", nil))).To(Equal(1))
			Expect(rerr.ExitCode(rerr.VerificationFailure("url unreachable", nil))).To(Equal(1))
		})
	})

	Describe("ValidationReject", func() {
		It("carries no cause and is never surfaced fatally", func() {
			err := rerr.ValidationReject("mean post-verification credibility below threshold")
			Expect(err.Unwrap()).To(BeNil())
			Expect(err.Error()).To(Equal("mean post-verification credibility below threshold"))
		})
	})

	Describe("Cancellation", func() {
		It("reports KindCancellation", func() {
			Expect(rerr.Cancellation().Kind()).To(Equal(rerr.KindCancellation))
		})
	})

	Describe("ExitCode on a non-RalphError", func() {
		It("defaults to 1", func() {
			Expect(rerr.ExitCode(fmt.Errorf("plain error"))).To(Equal(1))
		})
	})
})
