package llmclient_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/llmclient"
)

func TestLLMClient(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "LLM Client Cascade Suite")
}

type stubCaller struct {
	result llmclient.Result
	err    error
}

func (s stubCaller) Query(ctx context.Context, prompt string, maxTokens int) (llmclient.Result, error) {
	return s.result, s.err
}

var specs = map[llmclient.Tier]llmclient.ModelSpec{
	llmclient.TierSmall:  {Provider: "anthropic", Model: "claude-haiku", MaxTokens: 512},
	llmclient.TierMedium: {Provider: "bedrock", Model: "mid-tier", MaxTokens: 1024},
	llmclient.TierLarge:  {Provider: "langchain", Model: "large-frontier", MaxTokens: 4096},
}

var _ = Describe("Cascade.Query", func() {
	It("stops at SMALL when its response is sufficient", func() {
		c := &llmclient.Cascade{
			Small:  stubCaller{result: llmclient.Result{Content: "the entity is seeking a new CRM vendor"}},
			Medium: stubCaller{err: errors.New("should not be called")},
			Large:  stubCaller{err: errors.New("should not be called")},
		}
		result, err := c.Query(context.Background(), "prompt", specs)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Tier).To(Equal(llmclient.TierSmall))
	})

	It("falls through to MEDIUM when SMALL returns empty content", func() {
		c := &llmclient.Cascade{
			Small:  stubCaller{result: llmclient.Result{Content: ""}},
			Medium: stubCaller{result: llmclient.Result{Content: "a substantive answer"}},
			Large:  stubCaller{err: errors.New("should not be called")},
		}
		result, err := c.Query(context.Background(), "prompt", specs)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Tier).To(Equal(llmclient.TierMedium))
	})

	It("treats a refusal pattern as insufficient and falls through", func() {
		c := &llmclient.Cascade{
			Small:  stubCaller{result: llmclient.Result{Content: "I'm sorry, I cannot help with that."}},
			Medium: stubCaller{result: llmclient.Result{Content: "a substantive answer"}},
			Large:  stubCaller{err: errors.New("should not be called")},
		}
		result, err := c.Query(context.Background(), "prompt", specs)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Tier).To(Equal(llmclient.TierMedium))
	})

	It("rejects content that fails the required schema predicate", func() {
		c := &llmclient.Cascade{
			Small:         stubCaller{result: llmclient.Result{Content: "not json"}},
			Medium:        stubCaller{result: llmclient.Result{Content: `{"ok": true}`}},
			Large:         stubCaller{err: errors.New("should not be called")},
			RequireSchema: func(content string) bool { return len(content) > 0 && content[0] == '{' },
		}
		result, err := c.Query(context.Background(), "prompt", specs)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Tier).To(Equal(llmclient.TierMedium))
	})

	It("returns ExhaustedCascade when every tier fails", func() {
		c := &llmclient.Cascade{
			Small:  stubCaller{err: errors.New("timeout")},
			Medium: stubCaller{err: errors.New("timeout")},
			Large:  stubCaller{err: errors.New("timeout")},
		}
		_, err := c.Query(context.Background(), "prompt", specs)
		Expect(err).To(HaveOccurred())
		var exhausted *llmclient.ExhaustedCascade
		Expect(errors.As(err, &exhausted)).To(BeTrue())
		Expect(exhausted.Attempts).To(HaveLen(3))
	})
})

var _ = Describe("PromptLibrary", func() {
	lib := llmclient.DefaultPromptLibrary()
	entity := domain.Entity{ID: "e1", Name: "Riverside United"}

	It("builds a versioned candidate-validation prompt including the entity and evidence", func() {
		candidate := domain.SignalCandidate{
			Category: domain.CategoryCRM, RawConfidence: 0.75,
			Evidence: []domain.EvidenceItem{{SourceType: domain.SourceTechNews, ExtractedText: "seeking a CRM vendor"}},
		}
		prompt := lib.CandidateValidation(candidate, entity, nil)
		Expect(prompt).To(ContainSubstring("Riverside United"))
		Expect(prompt).To(ContainSubstring("seeking a CRM vendor"))
		Expect(prompt).To(ContainSubstring(lib.Version))
	})
})
