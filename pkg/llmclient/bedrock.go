package llmclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// bedrockCostPerMTokIn/Out are placeholder per-model-class rates for
// the MEDIUM cascade tier (SPEC_FULL.md §4.2).
const (
	bedrockCostPerMTokIn  = 1.00
	bedrockCostPerMTokOut = 3.00
)

type bedrockInvokeBody struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type bedrockInvokeResponse struct {
	Completion string `json:"completion"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// BedrockCaller implements Caller against a Bedrock-hosted mid-tier
// model via InvokeModel.
type BedrockCaller struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrockCaller returns a Caller for modelID using client.
func NewBedrockCaller(client *bedrockruntime.Client, modelID string) *BedrockCaller {
	return &BedrockCaller{client: client, modelID: modelID}
}

func (b *BedrockCaller) Query(ctx context.Context, prompt string, maxTokens int) (Result, error) {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	body, err := json.Marshal(bedrockInvokeBody{Prompt: prompt, MaxTokens: maxTokens, Temperature: 0.2})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal bedrock request body: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return Result{}, fmt.Errorf("bedrock invoke failed: %w", err)
	}

	var parsed bedrockInvokeResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return Result{}, fmt.Errorf("failed to parse bedrock response: %w", err)
	}

	cost := float64(parsed.Usage.InputTokens)/1_000_000*bedrockCostPerMTokIn +
		float64(parsed.Usage.OutputTokens)/1_000_000*bedrockCostPerMTokOut

	return Result{
		Content:   parsed.Completion,
		TokensIn:  parsed.Usage.InputTokens,
		TokensOut: parsed.Usage.OutputTokens,
		CostUSD:   cost,
		ModelUsed: b.modelID,
	}, nil
}
