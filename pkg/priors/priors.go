// Package priors implements the Priors Adapter (spec.md §4.11): it
// converts an externally-supplied dossier into seed hypotheses and
// per-channel weights. The dossier is parsed defensively — gojq checks
// the required shape is present before the strict schema unmarshal
// runs, so a malformed dossier is rejected early rather than producing
// a hypothesis built from zero values (spec.md §9's design note on
// dynamically-shaped records).
package priors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/itchyny/gojq"
	"sigs.k8s.io/yaml"

	"github.com/scoutline/ralph/pkg/domain"
)

// MaxStartingConfidence is the hard cap from spec.md §4.11: a dossier
// is a prior, never proof.
const MaxStartingConfidence = 0.25

// Tag is the closed set of dossier insight tags (spec.md §6).
type Tag string

const (
	TagProcurement Tag = "PROCUREMENT"
	TagCapability  Tag = "CAPABILITY"
	TagTiming      Tag = "TIMING"
	TagContact     Tag = "CONTACT"
)

// Insight is one tagged dossier entry (spec.md §6).
type Insight struct {
	Tag        Tag     `json:"tag"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Timeline   string  `json:"timeline,omitempty"`
}

// Metadata is the dossier's header (spec.md §6).
type Metadata struct {
	EntityID      domain.EntityID `json:"entity_id"`
	Name          string          `json:"name"`
	PriorityScore int             `json:"priority_score"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// Dossier is the externally-generated record the core consumes
// read-only (spec.md §6).
type Dossier struct {
	Metadata Metadata  `json:"metadata"`
	Insights []Insight `json:"insights"`
}

var requiredShapeQuery = compileQuery(".metadata.entity_id and .insights")

func compileQuery(src string) *gojq.Code {
	q, err := gojq.Parse(src)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded gojq query %q: %v", src, err))
	}
	code, err := gojq.Compile(q)
	if err != nil {
		panic(fmt.Sprintf("failed to compile embedded gojq query %q: %v", src, err))
	}
	return code
}

// ParseDossier validates raw's shape with gojq and, only if the
// required fields are present, unmarshals it into the Dossier type via
// sigs.k8s.io/yaml (which accepts both YAML and JSON); unknown fields
// are ignored.
func ParseDossier(raw []byte) (*Dossier, error) {
	var generic interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to parse dossier: %w", err)
	}

	iter := requiredShapeQuery.Run(generic)
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("failed to validate dossier shape: empty result")
	}
	if err, isErr := v.(error); isErr {
		return nil, fmt.Errorf("failed to validate dossier shape: %w", err)
	}
	if truthy, _ := v.(bool); !truthy {
		return nil, fmt.Errorf("failed to validate dossier shape: missing metadata.entity_id or insights")
	}

	var dossier Dossier
	if err := yaml.Unmarshal(raw, &dossier); err != nil {
		return nil, fmt.Errorf("failed to parse dossier into schema: %w", err)
	}
	if dossier.Metadata.EntityID == "" {
		return nil, fmt.Errorf("failed to validate dossier: metadata.entity_id is empty")
	}
	return &dossier, nil
}

// categoryKeywords maps keyword stems to the category they imply, used
// to resolve PROCUREMENT insights ("best matching the claim text") and
// CAPABILITY insights ("the named capability category").
var categoryKeywords = map[domain.Category][]string{
	domain.CategoryCRM:            {"crm", "customer relationship", "salesforce", "sales platform"},
	domain.CategoryTicketing:      {"ticket", "box office", "seating"},
	domain.CategoryAnalytics:      {"analytics", "data platform", "business intelligence", "bi tool"},
	domain.CategoryMobile:         {"mobile app", "ios", "android"},
	domain.CategoryCommerce:       {"commerce", "ecommerce", "merchandise", "payments"},
	domain.CategoryContent:        {"content management", "cms", "streaming"},
	domain.CategoryInfrastructure: {"infrastructure", "cloud migration", "network", "it modernization"},
	domain.CategoryLeadership:     {"chief", "director", "vp of", "head of"},
}

func inferCategory(text string) domain.Category {
	lower := strings.ToLower(text)
	for category, keywords := range categoryKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return category
			}
		}
	}
	return domain.CategoryOther
}

// Adapted is the Priors Adapter's output (spec.md §4.11).
type Adapted struct {
	Hypotheses         []domain.Hypothesis
	ChannelMultipliers map[domain.SourceType]float64
	StartingConfidence float64
}

// Adapt converts a parsed dossier into seed hypotheses, per-channel
// multipliers, and a starting confidence (spec.md §4.11).
func Adapt(ctx context.Context, d *Dossier, nextHypothesisID func() domain.HypothesisID) Adapted {
	out := Adapted{
		ChannelMultipliers: make(map[domain.SourceType]float64),
		StartingConfidence: MaxStartingConfidence,
	}

	knownVendor := false
	for _, insight := range d.Insights {
		switch insight.Tag {
		case TagProcurement:
			out.Hypotheses = append(out.Hypotheses, seedHypothesis(d.Metadata.EntityID, inferCategory(insight.Text), insight, nextHypothesisID))
			if strings.Contains(strings.ToLower(insight.Text), "vendor") {
				knownVendor = true
			}
		case TagCapability:
			out.Hypotheses = append(out.Hypotheses, seedHypothesis(d.Metadata.EntityID, inferCategory(insight.Text), insight, nextHypothesisID))
		case TagTiming:
			// Seeds no hypothesis. Adapted has no field for timing
			// insights, so they are not passed on.
		case TagContact:
			// Seeds no hypothesis. Adapted has no field for contact
			// insights, so they are not passed on.
		}
	}

	if knownVendor {
		out.ChannelMultipliers[domain.SourceOfficialSite] = 0.8
		out.ChannelMultipliers[domain.SourceTechNews] = 1.15
	}

	return out
}

func seedHypothesis(entityID domain.EntityID, category domain.Category, insight Insight, nextID func() domain.HypothesisID) domain.Hypothesis {
	prior := insight.Confidence / 100.0
	if prior > MaxStartingConfidence {
		prior = MaxStartingConfidence
	}
	return domain.Hypothesis{
		ID:              nextID(),
		EntityID:        entityID,
		Category:        category,
		Statement:       insight.Text,
		PriorConfidence: prior,
		Status:          domain.HypothesisActive,
	}
}
