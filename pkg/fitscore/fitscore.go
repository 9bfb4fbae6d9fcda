// Package fitscore implements the Fit Scorer (GLOSSARY, SPEC_FULL.md
// §4.x): a 0-100 score mapping a validated signal to an internal
// service catalog entry.
package fitscore

import shmath "github.com/scoutline/ralph/pkg/shared/math"

// Weights are the GLOSSARY's fixed fit-score weights: service match
// 40, budget 25, timeline 15, entity size 10, geography 10.
const (
	ServiceMatchWeight = 40.0
	BudgetWeight       = 25.0
	TimelineWeight     = 15.0
	EntitySizeWeight   = 10.0
	GeographyWeight    = 10.0
)

// Inputs are the five sub-scores, each a fraction in [0,1] of how well
// the validated signal fits the catalog entry along that axis.
type Inputs struct {
	ServiceMatch float64
	BudgetFit    float64
	TimelineFit  float64
	EntitySizeFit float64
	GeographyFit float64
}

// Score computes the weighted 0-100 fit score.
func Score(in Inputs) float64 {
	raw := ServiceMatchWeight*shmath.Clamp(in.ServiceMatch, 0, 1) +
		BudgetWeight*shmath.Clamp(in.BudgetFit, 0, 1) +
		TimelineWeight*shmath.Clamp(in.TimelineFit, 0, 1) +
		EntitySizeWeight*shmath.Clamp(in.EntitySizeFit, 0, 1) +
		GeographyWeight*shmath.Clamp(in.GeographyFit, 0, 1)
	return shmath.Clamp(raw, 0, 100)
}
