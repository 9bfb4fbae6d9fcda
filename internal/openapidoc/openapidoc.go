// Package openapidoc holds the embedded OpenAPI 3 document that
// describes the outbound validated-signal record (spec.md §6), and the
// JSON-shaped DTO the CLI's `export` command and the Ops HTTP surface's
// `/status/{run}` handler both render through. `export --entity <id>`
// validates its own output against this document before printing it,
// so a malformed record fails loudly instead of reaching an operator.
package openapidoc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/scoutline/ralph/pkg/domain"
)

// signalDocument is the OpenAPI 3 document for the outbound validated
// signal record (spec.md §6's "Outbound: Validated signal record").
const signalDocument = `
openapi: "3.0.3"
info:
  title: ralph-validated-signal
  version: "1.0.0"
paths: {}
components:
  schemas:
    Evidence:
      type: object
      required: [url, source_type, observed_at, post_verify_credibility, accessible, content_matches]
      properties:
        url: { type: string }
        source_type: { type: string }
        observed_at: { type: string, format: date-time }
        post_verify_credibility: { type: number, minimum: 0, maximum: 1 }
        accessible: { type: boolean }
        content_matches: { type: boolean }
    ValidatedSignal:
      type: object
      required:
        - signal_id
        - entity_id
        - category
        - confidence_before
        - confidence_after
        - evidence
        - temporal_multiplier
        - fit_score
        - priority_tier
        - requires_manual_review
        - validated_at
      properties:
        signal_id: { type: string }
        entity_id: { type: string }
        category: { type: string }
        confidence_before: { type: number, minimum: 0, maximum: 1 }
        confidence_after: { type: number, minimum: 0, maximum: 1 }
        evidence:
          type: array
          minItems: 1
          items: { $ref: "#/components/schemas/Evidence" }
        temporal_multiplier: { type: number }
        fit_score: { type: number }
        priority_tier: { type: string }
        primary_reason: { type: string }
        urgency: { type: string }
        requires_manual_review: { type: boolean }
        validated_at: { type: string, format: date-time }
`

// EvidenceDTO is one evidence item inside the outbound record.
type EvidenceDTO struct {
	URL                   string    `json:"url"`
	SourceType            string    `json:"source_type"`
	ObservedAt            time.Time `json:"observed_at"`
	PostVerifyCredibility float64   `json:"post_verify_credibility"`
	Accessible            bool      `json:"accessible"`
	ContentMatches        bool      `json:"content_matches"`
}

// SignalDTO is the JSON shape of spec.md §6's outbound validated signal
// record.
type SignalDTO struct {
	SignalID             string        `json:"signal_id"`
	EntityID             string        `json:"entity_id"`
	Category             string        `json:"category"`
	ConfidenceBefore     float64       `json:"confidence_before"`
	ConfidenceAfter      float64       `json:"confidence_after"`
	Evidence             []EvidenceDTO `json:"evidence"`
	TemporalMultiplier   float64       `json:"temporal_multiplier"`
	FitScore             float64       `json:"fit_score"`
	PriorityTier         string        `json:"priority_tier"`
	PrimaryReason        string        `json:"primary_reason,omitempty"`
	Urgency              string        `json:"urgency,omitempty"`
	RequiresManualReview bool          `json:"requires_manual_review"`
	ValidatedAt          time.Time     `json:"validated_at"`
}

// FromDomain projects a domain.ValidatedSignal into its wire DTO,
// keeping the verified-evidence filter spec.md §3 requires ("verified
// evidence list").
func FromDomain(s domain.ValidatedSignal) SignalDTO {
	dto := SignalDTO{
		SignalID:             string(s.SignalID),
		EntityID:             string(s.EntityID),
		Category:             string(s.Category),
		ConfidenceBefore:     s.ConfidenceBefore,
		ConfidenceAfter:      s.ConfidenceAfter,
		TemporalMultiplier:   s.TemporalMultiplier,
		FitScore:             s.FitScore,
		PriorityTier:         string(s.PriorityTier),
		PrimaryReason:        s.PrimaryReason,
		Urgency:              s.Urgency,
		RequiresManualReview: s.RequiresManualReview,
		ValidatedAt:          s.ValidatedAt,
	}
	for _, e := range s.Evidence {
		if !e.Verified {
			continue
		}
		dto.Evidence = append(dto.Evidence, EvidenceDTO{
			URL:                   e.URL,
			SourceType:            string(e.SourceType),
			ObservedAt:            e.ObservedAt,
			PostVerifyCredibility: e.PostVerifyCredibility,
			Accessible:            e.Accessible,
			ContentMatches:        e.ContentMatches,
		})
	}
	return dto
}

// Document wraps the loaded OpenAPI document and its ValidatedSignal
// schema.
type Document struct {
	schema *openapi3.Schema
}

// Load parses the embedded document once. Callers hold onto the
// returned Document for the life of the process.
func Load() (*Document, error) {
	doc, err := openapi3.NewLoader().LoadFromData([]byte(signalDocument))
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("embedded openapi document is invalid: %w", err)
	}
	ref, ok := doc.Components.Schemas["ValidatedSignal"]
	if !ok || ref.Value == nil {
		return nil, fmt.Errorf("embedded openapi document is missing the ValidatedSignal schema")
	}
	return &Document{schema: ref.Value}, nil
}

// ValidateJSON checks data against the ValidatedSignal schema.
func (d *Document) ValidateJSON(data []byte) error {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("failed to parse validated signal JSON: %w", err)
	}
	if err := d.schema.VisitJSON(value); err != nil {
		return fmt.Errorf("validated signal does not match its schema: %w", err)
	}
	return nil
}
