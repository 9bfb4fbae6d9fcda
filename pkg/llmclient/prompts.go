package llmclient

import (
	"fmt"
	"strings"

	"github.com/scoutline/ralph/pkg/domain"
)

// PromptLibrary consolidates the ad-hoc prompt construction the
// original system scattered through its code into one entry point per
// LLM task (spec.md §9's design note), with versioned prompt strings so
// a prompt change is auditable.
type PromptLibrary struct {
	Version string
}

// DefaultPromptLibrary is the v1 prompt set.
func DefaultPromptLibrary() PromptLibrary {
	return PromptLibrary{Version: "v1"}
}

// EvidenceExtraction builds the prompt used to extract a short excerpt
// and a preliminary credibility estimate from a fetched page.
func (p PromptLibrary) EvidenceExtraction(entity domain.Entity, rawMarkdown string) string {
	return fmt.Sprintf(
		"[prompt:%s:evidence_extraction]\nEntity: %s\nTask: extract a short excerpt (at most 3 sentences) from the following page that is relevant to procurement, technology, or leadership activity involving the entity. Respond with a JSON object: {\"relevant\": bool, \"excerpt\": string, \"preliminary_credibility\": number 0-1}. Set relevant=false and excerpt=\"\" if nothing relevant is present.\n\nPage content:\n%s",
		p.Version, entity.Name, truncate(rawMarkdown, 8000),
	)
}

// CandidateValidation builds the prompt used by the Validation
// Pipeline's pass 3 LLM consistency check (spec.md §4.8).
func (p PromptLibrary) CandidateValidation(candidate domain.SignalCandidate, entity domain.Entity, recent []domain.ValidatedSignal) string {
	var recentLines []string
	for _, s := range recent {
		recentLines = append(recentLines, fmt.Sprintf("- [%s] confidence %.2f: %s", s.Category, s.ConfidenceAfter, s.PrimaryReason))
	}

	var evidenceLines []string
	for _, e := range candidate.Evidence {
		evidenceLines = append(evidenceLines, fmt.Sprintf("- (%s, credibility %.2f) %s", e.SourceType, e.PostVerifyCredibility, e.ExtractedText))
	}

	return fmt.Sprintf(
		"[prompt:%s:candidate_validation]\nEntity: %s\nCategory: %s\nRaw confidence: %.2f\n\nExisting validated signals for this entity (most recent %d):\n%s\n\nCandidate evidence:\n%s\n\nTask: assess whether the candidate evidence is consistent with, and not a near-duplicate of, the existing signals above. Respond with a JSON object: {\"validated_confidence\": number 0-1, \"rationale\": string, \"requires_manual_review\": bool, \"is_duplicate\": bool}.",
		p.Version, entity.Name, candidate.Category, candidate.RawConfidence, len(recent), strings.Join(recentLines, "\n"), strings.Join(evidenceLines, "\n"),
	)
}

// ContentMatching builds a prompt asking whether a page's content
// supports a claim. Nothing calls it: pkg/verifier's content match uses
// only its Levenshtein-based heuristic.
func (p PromptLibrary) ContentMatching(claimKeywords []string, entityName, extractedText string) string {
	return fmt.Sprintf(
		"[prompt:%s:content_matching]\nEntity: %s\nClaim keywords: %s\n\nExcerpt:\n%s\n\nTask: answer YES or NO only — does the excerpt support a claim about the entity matching at least one of the claim keywords?",
		p.Version, entityName, strings.Join(claimKeywords, ", "), extractedText,
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
