package domain

import (
	"fmt"
	"net/url"
	"time"
)

// EvidenceItem is a single observation supporting or refuting a
// hypothesis (spec.md §3).
type EvidenceItem struct {
	ID                   EvidenceID
	SourceType           SourceType
	URL                  string
	ObservedAt           time.Time
	ExtractedText        string
	PreVerifyCredibility float64
	PostVerifyCredibility float64
	Accessible           bool
	ContentMatches       bool
	Verified             bool
}

// Validate enforces the invariants from spec.md §3.
func (e EvidenceItem) Validate() error {
	if _, err := url.ParseRequestURI(e.URL); err != nil {
		return fmt.Errorf("evidence %s: url %q invalid: %w", e.ID, e.URL, err)
	}
	if e.PreVerifyCredibility < 0 || e.PreVerifyCredibility > 1 {
		return fmt.Errorf("evidence %s: pre-verify credibility out of range", e.ID)
	}
	if e.Verified && (e.PostVerifyCredibility < 0 || e.PostVerifyCredibility > 1) {
		return fmt.Errorf("evidence %s: post-verify credibility out of range", e.ID)
	}
	return nil
}

// Fingerprint returns the fingerprint key used for novelty/duplicate
// detection (spec.md §4.5's "New = fingerprint(...) not in
// prior_evidences"). It is a simple normalized-text key rather than a
// cryptographic hash, since the goal is set-membership, not security.
func Fingerprint(extractedText string) string {
	return normalizeForFingerprint(extractedText)
}

func normalizeForFingerprint(s string) string {
	out := make([]rune, 0, len(s))
	prevSpace := false
	for _, r := range s {
		lower := toLowerASCII(r)
		if lower == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		if isWordChar(lower) || lower == ' ' {
			out = append(out, lower)
		}
	}
	return string(out)
}

func toLowerASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	if r == '\t' || r == '\n' || r == '\r' {
		return ' '
	}
	return r
}

func isWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
