// Package rubric implements the Decision Rubric (spec.md §4.5): a pure
// function from one evidence item plus category/run context to one of
// the five decision classes and a human-readable reason. The decision
// table itself is expressed as Rego policy (SPEC_FULL.md §4.5) so the
// precedence rules live as declarative data rather than a nested
// if/else chain, and can be audited or swapped without touching Go.
package rubric

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/open-policy-agent/opa/rego"

	"github.com/scoutline/ralph/pkg/domain"
)

const policyModule = `
package ralph.rubric

default_decision := "NO_PROGRESS"

decision := d {
	d := classify_decision
}

classify_decision := "SATURATED" {
	input.category_saturated
} else := "ACCEPT" {
	input.new
	input.entity_specific
	input.future_action
	input.credible_source
} else := "WEAK_ACCEPT" {
	input.new
	input.entity_specific
	input.credible_source
} else := "WEAK_ACCEPT" {
	input.new
	input.future_action
} else := "WEAK_ACCEPT" {
	input.new
	not input.already_weak_accepted_in_category
} else := "NO_PROGRESS" {
	input.new
} else := "REJECT" {
	input.contradicts
} else := default_decision

reason := r {
	r := classify_reason
}

classify_reason := "category already saturated" {
	input.category_saturated
} else := "new, entity-specific, future-action keyword, credible source" {
	input.new
	input.entity_specific
	input.future_action
	input.credible_source
} else := "new, entity-specific, credible source, no future-action keyword" {
	input.new
	input.entity_specific
	input.credible_source
} else := "new, future-action keyword, industry-wide signal" {
	input.new
	input.future_action
} else := "new evidence missing two or more criteria, first occurrence in category" {
	input.new
	not input.already_weak_accepted_in_category
} else := "new evidence missing two or more criteria, already weak-accepted in category" {
	input.new
} else := "contradicts prior evidence" {
	input.contradicts
} else := "no new information"
`

var (
	prepareOnce sync.Once
	prepared    rego.PreparedEvalQuery
	prepareErr  error
)

func preparedQuery() (rego.PreparedEvalQuery, error) {
	prepareOnce.Do(func() {
		prepared, prepareErr = rego.New(
			rego.Query("decision := data.ralph.rubric.decision; reason := data.ralph.rubric.reason"),
			rego.Module("rubric.rego", policyModule),
		).PrepareForEval(context.Background())
	})
	return prepared, prepareErr
}

// FutureActionKeywords is the closed keyword set from spec.md §4.5,
// overridable via the hot-reloadable keyword table (internal/config).
var FutureActionKeywords = []string{
	"seeking", "hiring", "recruiting", "looking for", "procurement",
	"rfp", "tender", "vendor", "partner", "implement", "deploy",
	"evaluating", "modernizing", "migrating", "issue rfp",
}

// Classify runs the Decision Rubric against one evidence item.
//
// priorFingerprints is the run's seen-evidence set (spec.md §3);
// alreadyWeakAcceptedInCategory and contradicts are supplied by the
// caller, since the rubric itself performs no I/O and holds no state of
// its own. The Exploration Loop derives the former from CategoryStats
// and always passes false for contradicts.
func Classify(
	evidence domain.EvidenceItem,
	entity domain.Entity,
	categorySaturated bool,
	priorFingerprints map[string]struct{},
	keywords []string,
	alreadyWeakAcceptedInCategory bool,
	contradicts bool,
) (domain.Decision, string, error) {
	q, err := preparedQuery()
	if err != nil {
		return "", "", fmt.Errorf("failed to prepare rubric policy: %w", err)
	}

	fp := domain.Fingerprint(evidence.ExtractedText)
	_, seen := priorFingerprints[fp]

	input := map[string]interface{}{
		"category_saturated":               categorySaturated,
		"new":                               !seen,
		"entity_specific":                   isEntitySpecific(evidence.ExtractedText, entity),
		"future_action":                     hasFutureAction(evidence.ExtractedText, keywords),
		"credible_source":                   evidence.SourceType.IsCredibleTier(),
		"already_weak_accepted_in_category": alreadyWeakAcceptedInCategory,
		"contradicts":                       contradicts,
	}

	results, err := q.Eval(context.Background(), rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate rubric policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Bindings) == 0 {
		return "", "", fmt.Errorf("rubric policy produced no bindings")
	}

	decision, _ := results[0].Bindings["decision"].(string)
	reason, _ := results[0].Bindings["reason"].(string)
	return domain.Decision(decision), reason, nil
}

// isEntitySpecific reports whether entity.Name, or a defined variant
// (corporate suffix dropped, first token), appears in text, compared
// case-insensitively (spec.md §4.5). No acronym or alias variant is
// tried.
func isEntitySpecific(text string, entity domain.Entity) bool {
	lower := strings.ToLower(text)
	for _, variant := range entityNameVariants(entity.Name) {
		if variant != "" && strings.Contains(lower, variant) {
			return true
		}
	}
	return false
}

var corporateSuffixes = []string{
	" fc", " f.c.", " club", " inc", " inc.", " llc", " ltd", " ltd.",
	" corp", " corp.", " company", " co", " co.", " association",
}

func entityNameVariants(name string) []string {
	lower := strings.ToLower(strings.TrimSpace(name))
	variants := []string{lower}

	stripped := lower
	for _, suffix := range corporateSuffixes {
		if strings.HasSuffix(stripped, suffix) {
			stripped = strings.TrimSpace(strings.TrimSuffix(stripped, suffix))
			variants = append(variants, stripped)
			break
		}
	}

	fields := strings.Fields(lower)
	if len(fields) > 0 {
		variants = append(variants, fields[0])
	}
	return variants
}

// hasFutureAction reports whether text contains at least one keyword
// from the closed future-action set (spec.md §4.5).
func hasFutureAction(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	if len(keywords) == 0 {
		keywords = FutureActionKeywords
	}
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
