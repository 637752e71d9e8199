package model

import "time"

// SessionMetrics holds cumulative totals for one session identifier,
// rebuilt from scratch (or from cache) on every invocation.
type SessionMetrics struct {
	Tokens    TokenCounts
	CostUSD   float64
	TodayUSD  float64
	Events    int
	FirstSeen time.Time
	LastSeen  time.Time
}

// WindowMetrics aggregates the rolling 5-hour billing window. The boundary
// is derived, never persisted: anchored to a provider-supplied reset time
// when one is known, otherwise to the oldest event inside the trailing
// five hours.
type WindowMetrics struct {
	Start            time.Time
	End              time.Time
	CostUSD          float64
	Tokens           TokenCounts
	TokensPerMinute  float64
	NonCachePerMin   float64
	CostPerHour      float64
	RemainingMinutes float64
	// Utilization is the provider-reported window percentage, only present
	// when the remote usage endpoint supplied it.
	Utilization *float64
}

// GlobalUsage is the daily aggregate: total cost across all concurrently
// running sessions for the current calendar day.
type GlobalUsage struct {
	SessionCost   float64
	GlobalToday   float64
	SessionsToday int
}

// Snapshot is the unit the process-local cache memoizes: everything one
// transcript scan produces that later stages consume.
type Snapshot struct {
	Events        []UsageEvent
	GlobalToday   float64
	SessionsToday int
	LatestReset   *time.Time
}
