package domain

// ChannelBlacklistEntry is the per-(entity-run, source-type) failure
// tracker described in spec.md §3/§4.7.
type ChannelBlacklistEntry struct {
	FailureCount         int
	SuccessCount         int
	ConsecutiveFailures  int
	Status               BlacklistStatus
}

// ChannelBlacklist is process-local to one entity run; it is discarded
// at run end (spec.md §4.7, §5's shared-resource policy).
type ChannelBlacklist struct {
	entries map[SourceType]*ChannelBlacklistEntry
}

// NewChannelBlacklist returns an empty blacklist with every channel
// implicitly ACTIVE until first observed.
func NewChannelBlacklist() *ChannelBlacklist {
	return &ChannelBlacklist{entries: make(map[SourceType]*ChannelBlacklistEntry)}
}

func (b *ChannelBlacklist) entry(st SourceType) *ChannelBlacklistEntry {
	e, ok := b.entries[st]
	if !ok {
		e = &ChannelBlacklistEntry{Status: BlacklistActive}
		b.entries[st] = e
	}
	return e
}

// Status returns the current status of st, defaulting to ACTIVE.
func (b *ChannelBlacklist) Status(st SourceType) BlacklistStatus {
	return b.entry(st).Status
}

// Penalty returns the blacklist_penalty used by the Hop Planner's
// scoring formula (spec.md §4.7).
func (b *ChannelBlacklist) Penalty(st SourceType) float64 {
	switch b.Status(st) {
	case BlacklistCooling:
		return 0.5
	case BlacklistBlacklisted:
		return 1.0
	default:
		return 0.0
	}
}

// FailureCount returns the lifetime failure count for st, used as the
// Hop Planner's tie-break ("lower prior-failure count wins").
func (b *ChannelBlacklist) FailureCount(st SourceType) int {
	return b.entry(st).FailureCount
}

// RecordFailure increments failure counters and applies the 2/3
// consecutive-failure transition to COOLING/BLACKLISTED (spec.md §4.7).
func (b *ChannelBlacklist) RecordFailure(st SourceType) {
	e := b.entry(st)
	e.FailureCount++
	e.ConsecutiveFailures++
	switch {
	case e.ConsecutiveFailures >= 3:
		e.Status = BlacklistBlacklisted
	case e.ConsecutiveFailures >= 2:
		e.Status = BlacklistCooling
	}
}

// RecordSuccess resets st's counters to ACTIVE (spec.md §4.7).
func (b *ChannelBlacklist) RecordSuccess(st SourceType) {
	e := b.entry(st)
	e.SuccessCount++
	e.ConsecutiveFailures = 0
	e.Status = BlacklistActive
}
