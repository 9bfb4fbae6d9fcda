// Package domain holds ralph's core data model: the closed enums and
// tagged records shared by every component in pkg/. Nothing here
// performs I/O; Design Note 1 ("heterogeneous, dynamically-shaped
// records") is addressed by keeping every field a concrete, named Go
// type instead of interface{} or map[string]interface{}.
package domain

// EntityID identifies a target entity from the external catalog.
type EntityID string

// HypothesisID identifies a Hypothesis.
type HypothesisID string

// EvidenceID identifies an EvidenceItem.
type EvidenceID string

// SignalCandidateID identifies a SignalCandidate.
type SignalCandidateID string

// SignalID identifies a ValidatedSignal; stable across reruns (§4.10).
type SignalID string

// RunID identifies one Scheduler-driven exploration run.
type RunID string
