// Package temporal computes the Validation Pipeline's temporal
// multiplier (spec.md §4.8): a [0.75, 1.40] factor combining
// seasonality, recurrence z-score, and recent momentum, used to adjust
// both the confidence-threshold crossing and the final-confirmation
// pass. Every function here is pure, taking dated event history as
// plain inputs rather than reading the Signal Store itself.
package temporal

import (
	"time"

	"github.com/scoutline/ralph/internal/config"
	shmath "github.com/scoutline/ralph/pkg/shared/math"
)

// subFactorMin/Max bound each of the three sub-factors before they are
// multiplied together (SPEC_FULL.md §9: "fixed at [0.9, 1.15]").
const (
	subFactorMin = 0.9
	subFactorMax = 1.15

	multiplierMin = 0.75
	multiplierMax = 1.40

	// DefaultMultiplier applies when no historical data is available
	// (spec.md §4.8: "Absence of historical data defaults the
	// multiplier to 1.0").
	DefaultMultiplier = 1.0
)

// History is the dated event record the multiplier is computed from:
// timestamps of known historical signals for this entity/category,
// used for both seasonality and recurrence.
type History struct {
	SignalTimestamps []time.Time
	ExpectedInterval time.Duration
}

// seasonalityFactor is the fraction of historical signals within
// windowDays of now that fell in the same calendar quarter as now,
// rescaled into the sub-factor range.
func seasonalityFactor(history History, now time.Time, windowDays int) float64 {
	if len(history.SignalTimestamps) == 0 {
		return 1.0
	}
	window := time.Duration(windowDays) * 24 * time.Hour
	nowQuarter := quarterOf(now)

	total, inQuarter := 0, 0
	for _, ts := range history.SignalTimestamps {
		if now.Sub(ts) > window || ts.Sub(now) > window {
			continue
		}
		total++
		if quarterOf(ts) == nowQuarter {
			inQuarter++
		}
	}
	if total == 0 {
		return 1.0
	}
	fraction := float64(inQuarter) / float64(total)
	return rescale(fraction)
}

func quarterOf(t time.Time) int {
	return (int(t.Month()) - 1) / 3
}

// recurrenceFactor rescales the z-score of (expected_interval -
// days_since_last) against the historical interval's standard
// deviation.
func recurrenceFactor(history History, now time.Time) float64 {
	if len(history.SignalTimestamps) < 2 || history.ExpectedInterval <= 0 {
		return 1.0
	}
	intervals := intervalsInDays(history.SignalTimestamps)
	stdev := shmath.StandardDeviation(intervals)
	if stdev == 0 {
		return 1.0
	}

	last := history.SignalTimestamps[0]
	for _, ts := range history.SignalTimestamps[1:] {
		if ts.After(last) {
			last = ts
		}
	}
	daysSinceLast := now.Sub(last).Hours() / 24
	expectedDays := history.ExpectedInterval.Hours() / 24

	z := (expectedDays - daysSinceLast) / stdev
	// Compress the z-score into [0,1] via a bounded logistic-style
	// squash before rescaling, since z is theoretically unbounded.
	fraction := shmath.Clamp(0.5+z/4.0, 0, 1)
	return rescale(fraction)
}

func intervalsInDays(timestamps []time.Time) []float64 {
	sorted := make([]time.Time, len(timestamps))
	copy(sorted, timestamps)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].After(sorted[j]); j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, sorted[i].Sub(sorted[i-1]).Hours()/24)
	}
	return intervals
}

// momentumFactor counts recent activity events in the short (30d) and
// long (90d) windows and rescales their ratio.
func momentumFactor(history History, now time.Time, shortDays, longDays int) float64 {
	if len(history.SignalTimestamps) == 0 {
		return 1.0
	}
	short := countWithin(history.SignalTimestamps, now, time.Duration(shortDays)*24*time.Hour)
	long := countWithin(history.SignalTimestamps, now, time.Duration(longDays)*24*time.Hour)
	if long == 0 {
		return 1.0
	}
	// Expected short/long ratio under uniform activity is shortDays/longDays;
	// momentum is how far the observed ratio exceeds that baseline.
	expectedRatio := float64(shortDays) / float64(longDays)
	observedRatio := float64(short) / float64(long)
	fraction := shmath.Clamp(observedRatio/(expectedRatio*2), 0, 1)
	return rescale(fraction)
}

func countWithin(timestamps []time.Time, now time.Time, window time.Duration) int {
	n := 0
	for _, ts := range timestamps {
		if d := now.Sub(ts); d >= 0 && d <= window {
			n++
		}
	}
	return n
}

// rescale maps a [0,1] fraction onto the sub-factor range.
func rescale(fraction float64) float64 {
	return subFactorMin + shmath.Clamp(fraction, 0, 1)*(subFactorMax-subFactorMin)
}

// Multiplier computes the temporal multiplier for one category's
// history (spec.md §4.8). now is passed in rather than read from the
// clock so the computation stays pure and reproducible in tests.
func Multiplier(history History, now time.Time, cfg config.TemporalConfig) float64 {
	if len(history.SignalTimestamps) == 0 {
		return DefaultMultiplier
	}
	seasonality := seasonalityFactor(history, now, cfg.SeasonalityWindowDays)
	recurrence := recurrenceFactor(history, now)
	momentum := momentumFactor(history, now, cfg.MomentumShortDays, cfg.MomentumLongDays)

	product := seasonality * recurrence * momentum
	return shmath.Clamp(product, multiplierMin, multiplierMax)
}

// AdjustedThreshold returns the confidence threshold a category must
// cross before a SignalCandidate is assembled (spec.md §4.9: "confidence
// ≥ adjusted threshold = 0.70 / temporal_multiplier").
func AdjustedThreshold(baseThreshold, multiplier float64) float64 {
	if multiplier <= 0 {
		return baseThreshold
	}
	return baseThreshold / multiplier
}
