// Package model defines domain types for claudeline usage tracking.
package model

import "time"

// TokenCounts groups the four billed token categories.
type TokenCounts struct {
	Input       int64
	Output      int64
	CacheCreate int64
	CacheRead   int64
}

// Total returns the sum of all four categories.
func (t TokenCounts) Total() int64 {
	return t.Input + t.Output + t.CacheCreate + t.CacheRead
}

// NonCache returns input + output tokens (the burn-rate basis).
func (t TokenCounts) NonCache() int64 {
	return t.Input + t.Output
}

// Add accumulates another count set into t.
func (t *TokenCounts) Add(o TokenCounts) {
	t.Input += o.Input
	t.Output += o.Output
	t.CacheCreate += o.CacheCreate
	t.CacheRead += o.CacheRead
}

// UsageEvent is one transcript line's worth of consumption. Immutable once
// parsed; discarded after folding into an aggregate.
type UsageEvent struct {
	Timestamp   time.Time
	Tokens      TokenCounts
	WebSearches int64
	// CostUSD is the final per-event cost: the transcript's explicit costUSD
	// when present, otherwise computed from the pricing table at parse time.
	CostUSD      float64
	ExplicitCost bool
	Model        string
	SessionID    string
	Project      string
	MessageID    string
	RequestID    string
}
