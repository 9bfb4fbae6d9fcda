// Package verifier implements the Evidence Verifier (spec.md §4.3,
// "Pass 1.5 of validation"): URL reachability, source-type credibility,
// recency decay, and fuzzy content-claim matching.
package verifier

import (
	"context"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/scoutline/ralph/internal/config"
	"github.com/scoutline/ralph/pkg/domain"
	sharedhttp "github.com/scoutline/ralph/pkg/shared/http"
	shmath "github.com/scoutline/ralph/pkg/shared/math"
)

const (
	unreachablePenalty = 0.30
	recencyPenalty     = 0.10
	recencyWindow      = 30 * 24 * time.Hour
	contentMatchBonus  = 0.05
	contentMismatchPenalty = 0.15

	// fuzzyMatchRatio bounds the Levenshtein edit distance, as a
	// fraction of the claim keyword's length, still counted as a match.
	fuzzyMatchRatio = 0.25
)

// Verifier checks evidence reachability and credibility.
type Verifier struct {
	http  *sharedhttp.Client
	table map[string]config.SourceTypeEntry
}

// New returns a Verifier backed by http and the given source-type
// credibility table (spec.md §4.3's static trust table).
func New(http *sharedhttp.Client, table map[string]config.SourceTypeEntry) *Verifier {
	return &Verifier{http: http, table: table}
}

// Verify runs the four verification steps from spec.md §4.3 against
// evidence, in order, and returns the evidence with Accessible,
// ContentMatches, PostVerifyCredibility, and Verified populated. It is
// a suspension point (issues a HEAD request) but otherwise pure.
func (v *Verifier) Verify(ctx context.Context, evidence domain.EvidenceItem, entity domain.Entity, claimKeywords []string) domain.EvidenceItem {
	credibility := v.table[string(evidence.SourceType)].Credibility

	reachable := v.checkReachable(ctx, evidence.URL)
	evidence.Accessible = reachable
	if !reachable {
		credibility -= unreachablePenalty
	}

	if time.Since(evidence.ObservedAt) > recencyWindow {
		credibility -= recencyPenalty
	}

	matches := contentMatches(evidence.ExtractedText, entity.Name, claimKeywords)
	evidence.ContentMatches = matches
	if matches {
		credibility += contentMatchBonus
	} else {
		credibility -= contentMismatchPenalty
	}

	evidence.PostVerifyCredibility = shmath.Clamp(credibility, 0, 1)
	evidence.Verified = true
	return evidence
}

// Reachable is the cheap reachability probe the Exploration Loop uses
// at classification time (spec.md §4.9 step 3), ahead of the full
// four-pass Verify call the Validation Pipeline makes later.
func (v *Verifier) Reachable(ctx context.Context, url string) bool {
	return v.checkReachable(ctx, url)
}

func (v *Verifier) checkReachable(ctx context.Context, url string) bool {
	if v.http == nil {
		return false
	}
	result, err := v.http.Get(ctx, url, true)
	if err != nil {
		return false
	}
	return result.StatusCode >= 200 && result.StatusCode < 400
}

// contentMatches reports whether text fuzzily contains the entity name
// and at least one claim keyword (spec.md §4.3's content-claim match).
func contentMatches(text, entityName string, claimKeywords []string) bool {
	lower := strings.ToLower(text)
	if !fuzzyContains(lower, strings.ToLower(entityName)) {
		return false
	}
	if len(claimKeywords) == 0 {
		return true
	}
	for _, kw := range claimKeywords {
		if fuzzyContains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// fuzzyContains slides needle across haystack looking for a
// substring-length window within a Levenshtein distance proportional
// to needle's length, tolerating OCR/markdown-extraction noise.
func fuzzyContains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(haystack, needle) {
		return true
	}
	maxDistance := int(float64(len(needle)) * fuzzyMatchRatio)
	if maxDistance == 0 {
		return false
	}
	n := len(needle)
	for i := 0; i+n <= len(haystack); i++ {
		window := haystack[i : i+n]
		if levenshtein.ComputeDistance(window, needle) <= maxDistance {
			return true
		}
	}
	return false
}

// CredibilityLess orders evidence by ascending credibility, applying
// spec.md §4.3's tie-break: when credibility is equal, the earlier
// observed-at date sorts first (loses the tie).
func CredibilityLess(a, b domain.EvidenceItem) bool {
	if a.PostVerifyCredibility != b.PostVerifyCredibility {
		return a.PostVerifyCredibility < b.PostVerifyCredibility
	}
	return a.ObservedAt.Before(b.ObservedAt)
}
