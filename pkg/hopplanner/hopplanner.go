// Package hopplanner implements the Hop Planner (spec.md §4.7): a pure
// scorer that picks the next (source type, query) pair to probe for a
// given hypothesis, weighted by expected information gain, a
// source-class multiplier, and the channel blacklist's penalty.
package hopplanner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scoutline/ralph/internal/config"
	"github.com/scoutline/ralph/pkg/domain"
	shmath "github.com/scoutline/ralph/pkg/shared/math"
)

// Hop is the next probe selected for a hypothesis.
type Hop struct {
	SourceType domain.SourceType
	Query      string
	Score      float64
}

// BaseEIG is the expected-information-gain heuristic: hypotheses with
// lower prior confidence and fewer reinforcements have more to learn.
func BaseEIG(h domain.Hypothesis) float64 {
	eig := (1.0 - h.PriorConfidence) / (1.0 + float64(h.ReinforcementCount)*0.1)
	return shmath.Clamp(eig, 0, 1)
}

func blacklistPenalty(bl *domain.ChannelBlacklist, st domain.SourceType) float64 {
	if bl == nil {
		return 0
	}
	return bl.Penalty(st)
}

func failureCount(bl *domain.ChannelBlacklist, st domain.SourceType) int {
	if bl == nil {
		return 0
	}
	return bl.FailureCount(st)
}

// Score computes the selection score for one candidate source type
// against one hypothesis (spec.md §4.7).
func Score(h domain.Hypothesis, st domain.SourceType, table map[string]config.SourceTypeEntry, bl *domain.ChannelBlacklist) float64 {
	entry, ok := table[string(st)]
	multiplier := entry.HopMultiplier
	if !ok {
		multiplier = 0
	}
	return BaseEIG(h) * multiplier * (1.0 - blacklistPenalty(bl, st))
}

// QueryTemplates holds 2-3 fallback query patterns per source type,
// tried in order when the primary query returns empty results
// (spec.md §4.7). "%s" placeholders are filled with the entity name,
// then the hypothesis category.
var QueryTemplates = map[domain.SourceType][]string{
	domain.SourcePartnershipAnnouncement: {
		"%s partnership announcement %s",
		"%s signs agreement %s vendor",
		"%s press release partner %s",
	},
	domain.SourceTechNews: {
		"%s technology news %s",
		"%s selects %s platform",
	},
	domain.SourcePressRelease: {
		"%s press release %s",
		"%s announces %s",
	},
	domain.SourceCareersPosting: {
		"%s careers %s manager",
		"%s job posting %s",
	},
	domain.SourceLeadershipJobPosting: {
		"%s director of %s hiring",
		"%s leadership %s role",
	},
	domain.SourceOfficialSite: {
		"site:%s %s",
		"%s official site %s",
	},
	domain.SourceCompanyBlog: {
		"%s blog %s",
		"%s news update %s",
	},
	domain.SourceSocialOperational: {
		"%s %s operations update",
		"%s %s staff update",
	},
	domain.SourceTenderPortal: {
		"%s tender %s",
		"%s rfp %s",
	},
	domain.SourceAnnualReport: {
		"%s annual report %s",
		"%s financial report %s",
	},
}

// BuildQuery renders the variant-th query template for source type st.
// variant indices beyond the available templates wrap around, so
// callers can keep retrying with fallbacks without bounds-checking.
func BuildQuery(st domain.SourceType, entityName string, category domain.Category, variant int) string {
	templates := QueryTemplates[st]
	if len(templates) == 0 {
		return fmt.Sprintf("%s %s", entityName, category)
	}
	tmpl := templates[variant%len(templates)]
	return fmt.Sprintf(tmpl, entityName, strings.ToLower(string(category)))
}

// Plan selects the best-scoring source type for hypothesis h and
// builds its primary query (spec.md §4.7). Tie-breaks: lower
// prior-failure count wins, then lexical order of source type.
func Plan(
	h domain.Hypothesis,
	entityName string,
	table map[string]config.SourceTypeEntry,
	bl *domain.ChannelBlacklist,
) Hop {
	candidates := make([]domain.SourceType, len(domain.ValidSourceTypes))
	copy(candidates, domain.ValidSourceTypes)

	sort.Slice(candidates, func(i, j int) bool {
		si := Score(h, candidates[i], table, bl)
		sj := Score(h, candidates[j], table, bl)
		if si != sj {
			return si > sj
		}
		fi, fj := failureCount(bl, candidates[i]), failureCount(bl, candidates[j])
		if fi != fj {
			return fi < fj
		}
		return candidates[i] < candidates[j]
	})

	best := candidates[0]
	return Hop{
		SourceType: best,
		Query:      BuildQuery(best, entityName, h.Category, 0),
		Score:      Score(h, best, table, bl),
	}
}
