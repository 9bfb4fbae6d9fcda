// Package exploration implements the Exploration Loop (spec.md §4.9):
// the per-entity driver that iterates hop → evidence → decision →
// confidence update → early-stop check → validation. It is the
// orchestrating component that wires together the Hop Planner, Search
// Client, LLM Client, Decision Rubric, Confidence Engine, and
// Validation Pipeline behind spec.md §4.9's state machine.
package exploration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/scoutline/ralph/internal/config"
	"github.com/scoutline/ralph/pkg/confidence"
	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/hopplanner"
	"github.com/scoutline/ralph/pkg/hypotheses"
	"github.com/scoutline/ralph/pkg/llmclient"
	"github.com/scoutline/ralph/pkg/metrics"
	"github.com/scoutline/ralph/pkg/priors"
	"github.com/scoutline/ralph/pkg/rubric"
	"github.com/scoutline/ralph/pkg/search"
	"github.com/scoutline/ralph/pkg/temporal"
	"github.com/scoutline/ralph/pkg/validation"
)

// searchResultsPerHop is K from spec.md §4.9 step 2 ("K=1 primary, more
// if score is close"); the loop always requests a small fixed fan-out
// and relies on the Decision Rubric/Confidence Engine to discard noise.
const searchResultsPerHop = 3

// Writer is the Signal Store Gateway's write boundary (spec.md §4.10).
// Kept separate from validation.Store (read-only) since the loop is the
// only caller allowed to write.
type Writer interface {
	UpsertSignalWithRetry(ctx context.Context, signal *domain.ValidatedSignal) error
}

// Loop wires every collaborator the Exploration Loop's algorithm needs.
type Loop struct {
	SourceTypeTable map[string]config.SourceTypeEntry
	Keywords        []string

	Search    *search.Client
	Extractor *llmclient.Extractor
	Pipeline  *validation.Pipeline
	Writer    Writer
	Store     validation.Store

	// Metrics is nil-safe; a nil Registry simply records nothing.
	Metrics *metrics.Registry

	// Tracer is nil-safe; a nil Tracer falls back to the no-op tracer so
	// Run still works against an entirely unconfigured Loop.
	Tracer trace.Tracer

	ConfidenceParams  confidence.Params
	ExplorationConfig config.ExplorationConfig
	TemporalConfig    config.TemporalConfig

	// now is overridable in tests; defaults to time.Now.
	now func() time.Time
}

func (l *Loop) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

func (l *Loop) recordSearch(status string) {
	if l.Metrics != nil {
		l.Metrics.RecordSearch(status)
	}
}

func (l *Loop) recordFetch(status string) {
	if l.Metrics != nil {
		l.Metrics.RecordFetch(status)
	}
}

func (l *Loop) recordLLMCall(tier string) {
	if l.Metrics != nil {
		l.Metrics.RecordLLMCall(tier)
	}
}

func (l *Loop) recordStoreWrite(result string) {
	if l.Metrics != nil {
		l.Metrics.RecordStoreWrite(result)
	}
}

func (l *Loop) recordRun(outcome domain.RunOutcome, iterations int, costUSD float64) {
	if l.Metrics != nil {
		l.Metrics.RecordRun(string(outcome), iterations, costUSD)
	}
}

func (l *Loop) tracer() trace.Tracer {
	if l.Tracer != nil {
		return l.Tracer
	}
	return trace.NewNoopTracerProvider().Tracer("exploration")
}

// Result is the Exploration Loop's per-entity run summary (spec.md §7:
// "structured per-entity run summary").
type Result struct {
	EntityID                domain.EntityID
	Outcome                 domain.RunOutcome
	Iterations              int
	ValidatedSignals        []domain.ValidatedSignal
	CostUSD                 float64
	ReasonIfTerminatedEarly string
}

// runScratch holds the per-entity bookkeeping that is not part of
// domain.RalphState's own invariants: accumulated evidence per
// category, used to assemble a SignalCandidate on threshold crossing
// (spec.md §4.9 step 6).
type runScratch struct {
	evidenceByCategory map[domain.Category][]domain.EvidenceItem
}

func newRunScratch() *runScratch {
	return &runScratch{evidenceByCategory: make(map[domain.Category][]domain.EvidenceItem)}
}

// Run drives one entity through the exploration state machine (spec.md
// §4.9): `INITIALIZING → EXPLORING → (VALIDATING ↔ EXPLORING)* →
// TERMINATED{...}`.
func (l *Loop) Run(ctx context.Context, entity domain.Entity, seed priors.Adapted, hypStore *hypotheses.Store) Result {
	ctx, span := l.tracer().Start(ctx, "exploration.Run", trace.WithAttributes(
		attribute.String("ralph.entity_id", string(entity.ID)),
	))
	defer span.End()

	startingConfidence := l.ExplorationConfig.StartingConfidence
	if seed.StartingConfidence > 0 && seed.StartingConfidence < startingConfidence {
		startingConfidence = seed.StartingConfidence
	}

	state := domain.NewRalphState(entity.ID, startingConfidence, l.ExplorationConfig.MaxIterations)
	state.ConfidenceCeiling = l.ExplorationConfig.AbsoluteCeiling
	scratch := newRunScratch()

	for _, h := range seed.Hypotheses {
		_ = hypStore.Add(h)
	}

	result := Result{EntityID: entity.ID, Outcome: domain.OutcomeCompleted}

	for state.IterationsCompleted < state.MaxIterations {
		if ctx.Err() != nil {
			result.Outcome = domain.OutcomeCancelled
			result.ReasonIfTerminatedEarly = "run cancelled"
			break
		}
		if state.CostUSD >= l.ExplorationConfig.MaxCostPerEntityUSD {
			result.Outcome = domain.OutcomeCostCap
			result.ReasonIfTerminatedEarly = fmt.Sprintf("cost cap $%.2f reached", l.ExplorationConfig.MaxCostPerEntityUSD)
			break
		}

		active := nonSaturatedHypotheses(hypStore.ByEntity(entity.ID, true), state)
		if len(active) == 0 {
			result.Outcome = domain.OutcomeSaturated
			result.ReasonIfTerminatedEarly = "no active hypothesis has a non-saturated category"
			break
		}

		stop, writeErr := l.runOneHopPerHypothesis(ctx, entity, active, hypStore, state, scratch, &result)
		if writeErr != nil {
			result.Outcome = domain.OutcomeFailed
			result.ReasonIfTerminatedEarly = writeErr.Error()
			break
		}
		if stop.reason != "" {
			result.Outcome = stop.outcome
			result.ReasonIfTerminatedEarly = stop.reason
			break
		}
		if state.IterationsCompleted >= state.MaxIterations {
			result.Outcome = domain.OutcomeIterationCap
			result.ReasonIfTerminatedEarly = "max_iterations reached"
		}
	}

	result.Iterations = state.IterationsCompleted
	result.CostUSD = state.CostUSD
	l.recordRun(result.Outcome, result.Iterations, result.CostUSD)
	span.SetAttributes(
		attribute.String("ralph.outcome", string(result.Outcome)),
		attribute.Int("ralph.iterations", result.Iterations),
		attribute.Float64("ralph.cost_usd", result.CostUSD),
	)
	return result
}

// runOneHopPerHypothesis runs one hop for each still-active hypothesis,
// returning a non-empty stop reason if an early-stopping condition from
// spec.md §4.9 step 5 fires, or an error if a signal store write
// exhausted its retries (spec.md §4.12's failure semantics).
func (l *Loop) runOneHopPerHypothesis(
	ctx context.Context,
	entity domain.Entity,
	active []domain.Hypothesis,
	hypStore *hypotheses.Store,
	state *domain.RalphState,
	scratch *runScratch,
	result *Result,
) (stopSignal, error) {
	for _, hyp := range active {
		if state.IterationsCompleted >= state.MaxIterations {
			return stopSignal{}, nil
		}

		if err := l.runIteration(ctx, entity, hyp, hypStore, state, scratch, result); err != nil {
			return stopSignal{}, err
		}
		state.IterationsCompleted++

		if stop := earlyStop(state); stop.reason != "" {
			return stop, nil
		}
	}
	return stopSignal{}, nil
}

// stopSignal names both the reason an early-stopping condition fired
// and the terminal outcome it maps to — global saturation terminates
// as SATURATED, the other two conditions as COMPLETED (spec.md §4.9
// step 5 / the state machine in this package's doc comment).
type stopSignal struct {
	outcome domain.RunOutcome
	reason  string
}

// earlyStop implements spec.md §4.9 step 5's four stopping conditions
// (the max_iterations bound is enforced by the caller's loop guard).
func earlyStop(state *domain.RalphState) stopSignal {
	if state.Confidence >= minFloat(0.85, state.EffectiveCeiling()) {
		return stopSignal{domain.OutcomeCompleted, "confidence reached the 0.85/ceiling stopping bound"}
	}
	if confidence.GlobalSaturated(state) {
		return stopSignal{domain.OutcomeSaturated, "global saturation reached"}
	}
	if noGainOverLastN(state.ConfidenceHistory, 10, 0.01) {
		return stopSignal{domain.OutcomeCompleted, "no confidence gain greater than 0.01 over the last 10 iterations"}
	}
	return stopSignal{}
}

func noGainOverLastN(history []float64, n int, minGain float64) bool {
	if len(history) <= n {
		return false
	}
	window := history[len(history)-n-1:]
	return window[len(window)-1]-window[0] <= minGain
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// nonSaturatedHypotheses filters to hypotheses whose category is not
// yet saturated (spec.md §4.9: "for each active hypothesis that still
// has non-saturated categories").
func nonSaturatedHypotheses(hyps []domain.Hypothesis, state *domain.RalphState) []domain.Hypothesis {
	var out []domain.Hypothesis
	for _, h := range hyps {
		if !state.CategoryStatsFor(h.Category).Saturated() {
			out = append(out, h)
		}
	}
	return out
}

// runIteration performs one full hop → evidence → decision →
// confidence-update → threshold-check cycle for hyp (spec.md §4.9 steps
// 1-4, 6).
func (l *Loop) runIteration(
	ctx context.Context,
	entity domain.Entity,
	hyp domain.Hypothesis,
	hypStore *hypotheses.Store,
	state *domain.RalphState,
	scratch *runScratch,
	result *Result,
) error {
	hop := hopplanner.Plan(hyp, entity.Name, l.SourceTypeTable, state.Blacklist)

	searchCtx, searchSpan := l.tracer().Start(ctx, "exploration.search", trace.WithAttributes(
		attribute.String("ralph.source_type", string(hop.SourceType)),
	))
	searchResp, err := l.Search.Search(searchCtx, hop.Query, "generic", searchResultsPerHop)
	// An empty result falls back to the source type's other query
	// templates, in order.
	for variant := 1; err == nil && searchResp.Status == search.StatusEmpty && variant < len(hopplanner.QueryTemplates[hop.SourceType]); variant++ {
		searchResp, err = l.Search.Search(searchCtx, hopplanner.BuildQuery(hop.SourceType, entity.Name, hyp.Category, variant), "generic", searchResultsPerHop)
	}
	searchSpan.SetAttributes(attribute.String("ralph.search_status", string(searchResp.Status)))
	searchSpan.End()
	if err != nil || searchResp.Status != search.StatusSuccess {
		// Search errors are treated as NO_PROGRESS for the channel and
		// recorded as one channel failure. The hop is not retried here;
		// the planner penalises the channel only once repeated failures
		// put it in cooling or blacklist it, so the next hop can pick
		// the same channel.
		l.recordSearch(string(searchResp.Status))
		state.Blacklist.RecordFailure(hop.SourceType)
		applyNoProgress(state, hyp.Category, l.ConfidenceParams)
		return nil
	}
	l.recordSearch(string(searchResp.Status))
	state.Blacklist.RecordSuccess(hop.SourceType)
	state.CostUSD += searchResp.CostUSD

	for _, item := range searchResp.Results {
		if ctx.Err() != nil {
			return nil
		}
		if err := l.processResult(ctx, entity, hyp, hop.SourceType, hypStore, state, scratch, item, result); err != nil {
			return err
		}
	}
	return nil
}

func applyNoProgress(state *domain.RalphState, category domain.Category, params confidence.Params) {
	confidence.Apply(state, category, domain.DecisionNoProgress, confidence.NoveltyDuplicate, confidence.AlignmentNoise, params)
}

// processResult fetches one search result, extracts evidence via the
// LLM cascade, classifies it with the Decision Rubric, applies the
// Confidence Engine update, and — on threshold crossing — runs the
// Validation Pipeline (spec.md §4.9 steps 2-4, 6).
func (l *Loop) processResult(
	ctx context.Context,
	entity domain.Entity,
	hyp domain.Hypothesis,
	sourceType domain.SourceType,
	hypStore *hypotheses.Store,
	state *domain.RalphState,
	scratch *runScratch,
	item search.ResultItem,
	result *Result,
) error {
	fetchCtx, fetchSpan := l.tracer().Start(ctx, "exploration.fetch")
	fetch := l.Search.FetchMarkdown(fetchCtx, item.URL)
	fetchSpan.SetAttributes(attribute.String("ralph.fetch_status", string(fetch.Status)))
	fetchSpan.End()
	l.recordFetch(string(fetch.Status))
	if fetch.Status != search.StatusSuccess {
		state.Blacklist.RecordFailure(sourceType)
		return nil
	}
	state.CostUSD += fetch.CostUSD

	extractCtx, extractSpan := l.tracer().Start(ctx, "exploration.extract")
	extraction, err := l.Extractor.Extract(extractCtx, entity, fetch.Content)
	extractSpan.End()
	if err != nil {
		// LLM cascade exhausted on a single call is skipped, not fatal
		// to the run (spec.md §4.12).
		l.recordLLMCall("exhausted")
		return nil
	}
	l.recordLLMCall(extraction.ModelUsed)
	state.CostUSD += extraction.CostUSD
	if !extraction.Relevant || extraction.ExtractedText == "" {
		return nil
	}

	evidence := domain.EvidenceItem{
		ID:                   domain.EvidenceID(uuid.NewString()),
		SourceType:           sourceType,
		URL:                  item.URL,
		ObservedAt:           l.clock(),
		ExtractedText:        extraction.ExtractedText,
		PreVerifyCredibility: extraction.PreliminaryCredibility,
	}
	if err := evidence.Validate(); err != nil {
		return nil
	}
	verifyCtx, verifySpan := l.tracer().Start(ctx, "exploration.verify")
	evidence.Accessible = l.Pipeline.Verifier.Reachable(verifyCtx, evidence.URL)
	verifySpan.End()

	fingerprint := domain.Fingerprint(evidence.ExtractedText)
	alreadySeen := state.HasSeen(fingerprint)

	cs := state.CategoryStatsFor(hyp.Category)
	decision, _, err := rubric.Classify(
		evidence, entity, cs.Saturated(), state.SeenEvidences, l.Keywords,
		cs.WeakAcceptSinceLastAccept > 0, false,
	)
	if err != nil {
		return nil
	}
	state.MarkSeen(fingerprint)

	novelty := confidence.NoveltyNew
	if alreadySeen {
		novelty = confidence.NoveltyDuplicate
	}
	alignment := confidence.AlignmentNeutral
	if hasAnyKeyword(evidence.ExtractedText, l.Keywords) {
		alignment = confidence.AlignmentPredictive
	}

	confidence.Apply(state, hyp.Category, decision, novelty, alignment, l.ConfidenceParams)

	switch decision {
	case domain.DecisionAccept, domain.DecisionWeakAccept:
		_ = hypStore.Reinforce(hyp.ID)
	}
	if decision != domain.DecisionReject {
		scratch.evidenceByCategory[hyp.Category] = append(scratch.evidenceByCategory[hyp.Category], evidence)
	}

	return l.maybeValidate(ctx, entity, hyp.Category, state, scratch, result)
}

// maybeValidate checks the confidence threshold crossing condition and,
// if crossed, assembles a SignalCandidate and runs it through the
// Validation Pipeline (spec.md §4.9 step 6).
func (l *Loop) maybeValidate(
	ctx context.Context,
	entity domain.Entity,
	category domain.Category,
	state *domain.RalphState,
	scratch *runScratch,
	result *Result,
) error {
	multiplier := l.temporalMultiplier(ctx, entity.ID, category)
	threshold := temporal.AdjustedThreshold(0.70, multiplier)
	if state.Confidence < threshold {
		return nil
	}

	evidence := scratch.evidenceByCategory[category]
	if len(evidence) == 0 {
		return nil
	}

	candidate := domain.SignalCandidate{
		ID:                 domain.SignalCandidateID(uuid.NewString()),
		EntityID:           entity.ID,
		Category:           category,
		Evidence:           evidence,
		RawConfidence:      state.Confidence,
		TemporalMultiplier: multiplier,
		PrimaryReason:      fmt.Sprintf("confidence %.2f crossed threshold %.2f for category %s", state.Confidence, threshold, category),
	}

	if l.Pipeline.Now == nil {
		l.Pipeline.Now = l.clock
	}
	validateCtx, validateSpan := l.tracer().Start(ctx, "exploration.validate")
	validationResult := l.Pipeline.Run(validateCtx, candidate, entity)
	validateSpan.SetAttributes(attribute.Bool("ralph.rejected", validationResult.Rejected))
	validateSpan.End()
	if validationResult.Rejected {
		// Failed validation leaves state untouched; the attempted
		// evidences remain in seen_evidences (spec.md §4.9 step 6).
		return nil
	}

	writeCtx, writeSpan := l.tracer().Start(ctx, "exploration.store_write")
	err := l.Writer.UpsertSignalWithRetry(writeCtx, validationResult.Signal)
	writeSpan.End()
	if err != nil {
		l.recordStoreWrite("failed")
		return fmt.Errorf("signal store write failed after retries: %w", err)
	}
	l.recordStoreWrite("ok")
	result.ValidatedSignals = append(result.ValidatedSignals, *validationResult.Signal)
	return nil
}

// temporalMultiplier builds a temporal.History from the Signal Store's
// recent signals for category and computes the multiplier (spec.md
// §4.8). Absent a Store, or absent history, it defaults to 1.0.
func (l *Loop) temporalMultiplier(ctx context.Context, entityID domain.EntityID, category domain.Category) float64 {
	if l.Store == nil {
		return temporal.DefaultMultiplier
	}
	signals, err := l.Store.RecentSignals(ctx, entityID, 50)
	if err != nil {
		return temporal.DefaultMultiplier
	}

	var timestamps []time.Time
	for _, s := range signals {
		if s.Category == category {
			timestamps = append(timestamps, s.ValidatedAt)
		}
	}
	if len(timestamps) == 0 {
		return temporal.DefaultMultiplier
	}

	history := temporal.History{SignalTimestamps: timestamps}
	return temporal.Multiplier(history, l.clock(), l.TemporalConfig)
}

func hasAnyKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
