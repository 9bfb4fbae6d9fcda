// Package signalstore implements the Signal Store Gateway (spec.md
// §4.10): the only component with write access to validated_signals.
// Writes are idempotent on a content-derived signal_id so a retried
// write after a partial failure never double-inserts.
package signalstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"

	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/validation"
)

// Gateway is the Signal Store Gateway. It satisfies validation.Store.
type Gateway struct {
	db *sqlx.DB
}

// New wraps an already-connected database handle (internal/database.Open).
func New(db *sqlx.DB) *Gateway {
	return &Gateway{db: db}
}

var _ validation.Store = (*Gateway)(nil)

// HashSignalID derives the idempotency key from (entity, category,
// canonical claim) so rerunning the same exploration never produces a
// second row for the same underlying claim (spec.md §4.10).
func HashSignalID(entityID domain.EntityID, category domain.Category, canonicalClaimKey string) domain.SignalID {
	h := sha256.Sum256([]byte(string(entityID) + "|" + string(category) + "|" + canonicalClaimKey))
	return domain.SignalID(hex.EncodeToString(h[:]))
}

const upsertSignalSQL = `
INSERT INTO validated_signals (
	signal_id, entity_id, category, confidence_before, confidence_after,
	evidence, validation_pass, validated_at, temporal_multiplier,
	fit_score, priority_tier, primary_reason, urgency, requires_manual_review
) VALUES (
	:signal_id, :entity_id, :category, :confidence_before, :confidence_after,
	:evidence, :validation_pass, :validated_at, :temporal_multiplier,
	:fit_score, :priority_tier, :primary_reason, :urgency, :requires_manual_review
)
ON CONFLICT (signal_id) DO NOTHING`

type signalRow struct {
	SignalID             string    `db:"signal_id"`
	EntityID             string    `db:"entity_id"`
	Category             string    `db:"category"`
	ConfidenceBefore     float64   `db:"confidence_before"`
	ConfidenceAfter      float64   `db:"confidence_after"`
	Evidence             []byte    `db:"evidence"`
	ValidationPass       int       `db:"validation_pass"`
	ValidatedAt          time.Time `db:"validated_at"`
	TemporalMultiplier   float64   `db:"temporal_multiplier"`
	FitScore             float64   `db:"fit_score"`
	PriorityTier         string    `db:"priority_tier"`
	PrimaryReason        string    `db:"primary_reason"`
	Urgency              string    `db:"urgency"`
	RequiresManualReview bool      `db:"requires_manual_review"`
}

func toRow(s *domain.ValidatedSignal) (signalRow, error) {
	evidence, err := json.Marshal(s.Evidence)
	if err != nil {
		return signalRow{}, errors.Wrap(err, "marshal evidence")
	}
	return signalRow{
		SignalID:             string(s.SignalID),
		EntityID:             string(s.EntityID),
		Category:             string(s.Category),
		ConfidenceBefore:     s.ConfidenceBefore,
		ConfidenceAfter:      s.ConfidenceAfter,
		Evidence:             evidence,
		ValidationPass:       s.ValidationPass,
		ValidatedAt:          s.ValidatedAt,
		TemporalMultiplier:   s.TemporalMultiplier,
		FitScore:             s.FitScore,
		PriorityTier:         string(s.PriorityTier),
		PrimaryReason:        s.PrimaryReason,
		Urgency:              s.Urgency,
		RequiresManualReview: s.RequiresManualReview,
	}, nil
}

// UpsertSignal writes signal if its signal_id has not already been
// written; a retried write for the same claim is a no-op rather than a
// duplicate row.
func (g *Gateway) UpsertSignal(ctx context.Context, signal *domain.ValidatedSignal) error {
	row, err := toRow(signal)
	if err != nil {
		return err
	}
	if _, err := g.db.NamedExecContext(ctx, upsertSignalSQL, row); err != nil {
		return errors.Wrap(err, "upsert validated signal")
	}
	return nil
}

// MaxWriteRetries bounds the bounded retry on a signal store write
// failure (spec.md §7: "queued for bounded retry; after retries are
// exhausted the exploration run for that entity is marked FAILED").
const MaxWriteRetries = 3

// UpsertSignalWithRetry calls UpsertSignal up to MaxWriteRetries times in
// all (the first attempt included), returning the last error if every
// attempt fails.
func (g *Gateway) UpsertSignalWithRetry(ctx context.Context, signal *domain.ValidatedSignal) error {
	var lastErr error
	for attempt := 0; attempt < MaxWriteRetries; attempt++ {
		if lastErr = g.UpsertSignal(ctx, signal); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return errors.Wrapf(lastErr, "signal store write exhausted %d retries", MaxWriteRetries)
}

// AlreadyWritten reports whether the canonical claim key for
// (entityID, category) has already been written, satisfying
// validation.Store for the Validation Pipeline's pass-4 duplicate check.
func (g *Gateway) AlreadyWritten(ctx context.Context, entityID domain.EntityID, category domain.Category, canonicalKey string) (bool, error) {
	signalID := HashSignalID(entityID, category, canonicalKey)
	var exists bool
	err := g.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM validated_signals WHERE signal_id = $1)`, string(signalID))
	if err != nil {
		return false, errors.Wrap(err, "check already-written")
	}
	return exists, nil
}

// RecentSignals returns the most recent validated signals for an
// entity, satisfying validation.Store for pass-3 consistency context.
func (g *Gateway) RecentSignals(ctx context.Context, entityID domain.EntityID, limit int) ([]domain.ValidatedSignal, error) {
	var rows []signalRow
	err := g.db.SelectContext(ctx, &rows, `
		SELECT signal_id, entity_id, category, confidence_before, confidence_after,
		       evidence, validation_pass, validated_at, temporal_multiplier,
		       fit_score, priority_tier, primary_reason, urgency, requires_manual_review
		FROM validated_signals
		WHERE entity_id = $1
		ORDER BY validated_at DESC
		LIMIT $2`, string(entityID), limit)
	if err != nil {
		return nil, errors.Wrap(err, "select recent signals")
	}

	signals := make([]domain.ValidatedSignal, 0, len(rows))
	for _, r := range rows {
		var evidence []domain.EvidenceItem
		if err := json.Unmarshal(r.Evidence, &evidence); err != nil {
			return nil, errors.Wrap(err, "unmarshal evidence")
		}
		signals = append(signals, domain.ValidatedSignal{
			SignalID:             domain.SignalID(r.SignalID),
			EntityID:             domain.EntityID(r.EntityID),
			Category:             domain.Category(r.Category),
			ConfidenceBefore:     r.ConfidenceBefore,
			ConfidenceAfter:      r.ConfidenceAfter,
			Evidence:             evidence,
			ValidationPass:       r.ValidationPass,
			ValidatedAt:          r.ValidatedAt,
			TemporalMultiplier:   r.TemporalMultiplier,
			FitScore:             r.FitScore,
			PriorityTier:         domain.PriorityTier(r.PriorityTier),
			PrimaryReason:        r.PrimaryReason,
			Urgency:              r.Urgency,
			RequiresManualReview: r.RequiresManualReview,
		})
	}
	return signals, nil
}
