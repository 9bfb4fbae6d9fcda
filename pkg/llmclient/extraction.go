package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scoutline/ralph/pkg/domain"
	shmath "github.com/scoutline/ralph/pkg/shared/math"
)

// ExtractionResult is the Exploration Loop's evidence-extraction
// output (spec.md §4.9 step 3: "LLM extracts an evidence excerpt and a
// prelim credibility").
type ExtractionResult struct {
	Relevant               bool
	ExtractedText          string
	PreliminaryCredibility float64
	CostUSD                float64
	ModelUsed              string
}

// Extractor wraps the model Cascade and PromptLibrary into the single
// call the Exploration Loop needs per fetched page.
type Extractor struct {
	Cascade *Cascade
	Prompts PromptLibrary
	Specs   map[Tier]ModelSpec
}

// Extract runs the evidence-extraction prompt through the cascade and
// parses its JSON response.
func (e *Extractor) Extract(ctx context.Context, entity domain.Entity, rawMarkdown string) (ExtractionResult, error) {
	prompt := e.Prompts.EvidenceExtraction(entity, rawMarkdown)
	result, err := e.Cascade.Query(ctx, prompt, e.Specs)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("evidence extraction: %w", err)
	}

	parsed, err := parseExtraction(result.Content)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("evidence extraction: %w", err)
	}
	parsed.CostUSD = result.CostUSD
	parsed.ModelUsed = result.ModelUsed
	return parsed, nil
}

type extractionPayload struct {
	Relevant               bool    `json:"relevant"`
	Excerpt                string  `json:"excerpt"`
	PreliminaryCredibility float64 `json:"preliminary_credibility"`
}

func parseExtraction(content string) (ExtractionResult, error) {
	object := jsonObject(content)
	if object == "" {
		return ExtractionResult{}, fmt.Errorf("no JSON object found in extraction response")
	}
	var payload extractionPayload
	if err := json.Unmarshal([]byte(object), &payload); err != nil {
		return ExtractionResult{}, fmt.Errorf("malformed extraction response: %w", err)
	}
	return ExtractionResult{
		Relevant:               payload.Relevant,
		ExtractedText:          payload.Excerpt,
		PreliminaryCredibility: shmath.Clamp(payload.PreliminaryCredibility, 0, 1),
	}, nil
}

// jsonObject trims any markdown fencing or commentary an LLM wrapped
// its JSON payload in, returning just the outermost {...} span.
func jsonObject(content string) string {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return content[start : end+1]
}
