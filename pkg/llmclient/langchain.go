package llmclient

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// langchainCostPerMTokIn/Out are placeholder per-model-class rates for
// the LARGE cascade tier, routed through langchaingo so the frontier
// call can target whichever backend langchaingo supports without a
// dedicated SDK per provider (SPEC_FULL.md §4.2).
const (
	langchainCostPerMTokIn  = 5.00
	langchainCostPerMTokOut = 15.00
)

// LangchainCaller implements Caller against any langchaingo-compatible
// LLM backend for the LARGE cascade tier.
type LangchainCaller struct {
	model llms.Model
	name  string
}

// NewLangchainCaller returns a Caller wrapping model, identified as name
// in accounting output.
func NewLangchainCaller(model llms.Model, name string) *LangchainCaller {
	return &LangchainCaller{model: model, name: name}
}

func (l *LangchainCaller) Query(ctx context.Context, prompt string, maxTokens int) (Result, error) {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	content, err := llms.GenerateFromSinglePrompt(ctx, l.model, prompt, llms.WithMaxTokens(maxTokens), llms.WithTemperature(0.2))
	if err != nil {
		return Result{}, fmt.Errorf("langchain query failed: %w", err)
	}

	tokensIn := estimateTokens(prompt)
	tokensOut := estimateTokens(content)
	cost := float64(tokensIn)/1_000_000*langchainCostPerMTokIn + float64(tokensOut)/1_000_000*langchainCostPerMTokOut

	return Result{
		Content:   content,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		CostUSD:   cost,
		ModelUsed: l.name,
	}, nil
}

// estimateTokens is a rough whitespace-based fallback for backends
// that do not report token usage directly through the llms.Model
// interface.
func estimateTokens(s string) int {
	count := 0
	inWord := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
