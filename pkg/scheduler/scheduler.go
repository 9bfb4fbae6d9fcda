// Package scheduler implements the Scheduler/Orchestrator (spec.md
// §4.12): it fans the Exploration Loop out across many entities, bounded
// by a configurable concurrency cap, and is the only component that
// knows about more than one entity at a time. Redis backs both the
// per-entity checkpoint ("what happened last time") and the
// per-entity-per-day idempotency cache ("don't run this entity twice
// today"), so a restarted scheduler and a `--resume` batch agree on
// what's already done.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/exploration"
	"github.com/scoutline/ralph/pkg/hypotheses"
	"github.com/scoutline/ralph/pkg/priors"
)

// DossierFetcher resolves the latest dossier for an entity. The
// dossier generator itself is out of scope (spec.md §1); Scheduler only
// depends on this read boundary.
type DossierFetcher interface {
	Dossier(ctx context.Context, entity domain.Entity) (*priors.Dossier, error)
}

// RunSummaryNotifier is the notification surface boundary spec.md §1
// names as an external collaborator: one structured summary posted per
// finished entity run, fire-and-forget.
type RunSummaryNotifier interface {
	Notify(ctx context.Context, summary domain.RunSummary) error
}

const idempotencyTTL = 24 * time.Hour

func idempotencyKey(entityID domain.EntityID, day string) string {
	return fmt.Sprintf("ralph:idempotency:%s:%s", entityID, day)
}

func checkpointKey(entityID domain.EntityID) string {
	return fmt.Sprintf("ralph:checkpoint:%s", entityID)
}

// Scheduler drives one exploration run per entity.
type Scheduler struct {
	Loop           *exploration.Loop
	Dossiers       DossierFetcher
	Redis          *redis.Client
	Notifier       RunSummaryNotifier
	ConcurrencyCap int

	// now is overridable in tests; defaults to time.Now.
	now func() time.Time
}

func (s *Scheduler) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func nextHypothesisID() domain.HypothesisID {
	return domain.HypothesisID(uuid.NewString())
}

// RunBatch drives entities through one exploration run each, at most
// ConcurrencyCap at a time (spec.md §4.12/§5's concurrency cap).
// resume, when true, skips any entity already checkpointed today.
func (s *Scheduler) RunBatch(ctx context.Context, entities []domain.Entity, resume bool) ([]domain.RunSummary, error) {
	summaries := make([]domain.RunSummary, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	limit := s.ConcurrencyCap
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, entity := range entities {
		i, entity := i, entity
		g.Go(func() error {
			summaries[i] = s.RunOne(gctx, entity, resume)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summaries, err
	}
	return summaries, nil
}

// RunOne drives a single entity through one exploration run. It never
// returns an error: every failure mode is captured in the returned
// RunSummary so one entity's failure never aborts a batch (spec.md
// §4.12 — failures are per-entity, not process-fatal).
func (s *Scheduler) RunOne(ctx context.Context, entity domain.Entity, resume bool) domain.RunSummary {
	start := s.clock()
	day := start.Format("2006-01-02")

	if resume {
		if already, err := s.alreadyRanToday(ctx, entity.ID, day); err == nil && already {
			summary := domain.RunSummary{EntityID: entity.ID, EntityName: entity.Name, Skipped: true, RanAt: start}
			s.notify(ctx, summary)
			return summary
		}
	}

	summary := s.run(ctx, entity, start)
	s.checkpoint(ctx, entity.ID, day, summary)
	s.notify(ctx, summary)
	return summary
}

func (s *Scheduler) run(ctx context.Context, entity domain.Entity, start time.Time) domain.RunSummary {
	seed := priors.Adapted{}
	if s.Dossiers != nil {
		dossier, err := s.Dossiers.Dossier(ctx, entity)
		if err != nil {
			return domain.RunSummary{
				EntityID: entity.ID, EntityName: entity.Name, Outcome: domain.OutcomeFailed,
				Reason: "failed to fetch dossier", Err: err.Error(), RanAt: start, Duration: s.clock().Sub(start),
			}
		}
		if dossier != nil {
			seed = priors.Adapt(ctx, dossier, nextHypothesisID)
		}
	}

	hypStore := hypotheses.NewStore()
	result := s.Loop.Run(ctx, entity, seed, hypStore)

	return domain.RunSummary{
		EntityID:     entity.ID,
		EntityName:   entity.Name,
		Outcome:      result.Outcome,
		Iterations:   result.Iterations,
		SignalsFound: len(result.ValidatedSignals),
		CostUSD:      result.CostUSD,
		Reason:       result.ReasonIfTerminatedEarly,
		Duration:     s.clock().Sub(start),
		RanAt:        start,
	}
}

func (s *Scheduler) alreadyRanToday(ctx context.Context, entityID domain.EntityID, day string) (bool, error) {
	if s.Redis == nil {
		return false, nil
	}
	n, err := s.Redis.Exists(ctx, idempotencyKey(entityID, day)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency cache: %w", err)
	}
	return n > 0, nil
}

func (s *Scheduler) checkpoint(ctx context.Context, entityID domain.EntityID, day string, summary domain.RunSummary) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	_ = s.Redis.Set(ctx, checkpointKey(entityID), raw, 0).Err()
	_ = s.Redis.Set(ctx, idempotencyKey(entityID, day), raw, idempotencyTTL).Err()
}

func (s *Scheduler) notify(ctx context.Context, summary domain.RunSummary) {
	if s.Notifier == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		_ = s.Notifier.Notify(detached, summary)
	}()
}

// RunSummary returns the most recently checkpointed summary for
// entityID, backing the Ops HTTP surface's /status/{run} and the CLI's
// `status --entity` subcommand.
func (s *Scheduler) RunSummary(ctx context.Context, entityID domain.EntityID) (domain.RunSummary, bool, error) {
	if s.Redis == nil {
		return domain.RunSummary{}, false, nil
	}
	raw, err := s.Redis.Get(ctx, checkpointKey(entityID)).Bytes()
	if err == redis.Nil {
		return domain.RunSummary{}, false, nil
	}
	if err != nil {
		return domain.RunSummary{}, false, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var summary domain.RunSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return domain.RunSummary{}, false, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return summary, true, nil
}
