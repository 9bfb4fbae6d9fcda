package llmclient_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/llmclient"
)

var _ = Describe("Extractor.Extract", func() {
	entity := domain.Entity{ID: "e1", Name: "Riverside United"}

	It("parses a relevant JSON extraction response", func() {
		e := &llmclient.Extractor{
			Cascade: &llmclient.Cascade{
				Small: stubCaller{result: llmclient.Result{
					Content:   `{"relevant": true, "excerpt": "Riverside United is seeking a new CRM vendor", "preliminary_credibility": 0.8}`,
					ModelUsed: "claude-haiku",
				}},
			},
			Prompts: llmclient.DefaultPromptLibrary(),
			Specs:   specs,
		}
		result, err := e.Extract(context.Background(), entity, "raw page content")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Relevant).To(BeTrue())
		Expect(result.ExtractedText).To(ContainSubstring("CRM vendor"))
		Expect(result.PreliminaryCredibility).To(BeNumerically("~", 0.8, 1e-9))
	})

	It("tolerates commentary wrapped around the JSON object", func() {
		e := &llmclient.Extractor{
			Cascade: &llmclient.Cascade{
				Small: stubCaller{result: llmclient.Result{
					Content: "Here is the result:\n```json\n{\"relevant\": false, \"excerpt\": \"\", \"preliminary_credibility\": 0}\n```",
				}},
			},
			Prompts: llmclient.DefaultPromptLibrary(),
			Specs:   specs,
		}
		result, err := e.Extract(context.Background(), entity, "raw page content")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Relevant).To(BeFalse())
	})

	It("errors when no cascade tier returns usable content", func() {
		e := &llmclient.Extractor{
			Cascade: &llmclient.Cascade{
				Small:  stubCaller{result: llmclient.Result{Content: ""}},
				Medium: stubCaller{result: llmclient.Result{Content: ""}},
				Large:  stubCaller{result: llmclient.Result{Content: ""}},
			},
			Prompts: llmclient.DefaultPromptLibrary(),
			Specs:   specs,
		}
		_, err := e.Extract(context.Background(), entity, "raw page content")
		Expect(err).To(HaveOccurred())
	})
})
