package llmclient

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicCostPerMTokIn/Out are placeholder per-model-class rates
// used to compute cost_usd until real billing metadata is wired in;
// SMALL tier is routed through Anthropic in the default cascade
// mapping (SPEC_FULL.md §4.2).
const (
	anthropicCostPerMTokIn  = 0.25
	anthropicCostPerMTokOut = 1.25
)

// AnthropicCaller implements Caller against the Anthropic Messages API.
type AnthropicCaller struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCaller returns a Caller for model, using apiKey for auth.
func NewAnthropicCaller(apiKey, model string) *AnthropicCaller {
	return &AnthropicCaller{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (a *AnthropicCaller) Query(ctx context.Context, prompt string, maxTokens int) (Result, error) {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("anthropic query failed: %w", err)
	}

	var content string
	for _, block := range message.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	tokensIn := int(message.Usage.InputTokens)
	tokensOut := int(message.Usage.OutputTokens)
	cost := float64(tokensIn)/1_000_000*anthropicCostPerMTokIn + float64(tokensOut)/1_000_000*anthropicCostPerMTokOut

	return Result{
		Content:   content,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		CostUSD:   cost,
		ModelUsed: a.model,
	}, nil
}
