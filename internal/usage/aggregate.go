// Package usage folds usage events into session, window, and daily metrics.
// One pass, O(1) memory beyond the running totals: events are never
// retained past the fold.
package usage

import (
	"time"

	"github.com/theirongolddev/claudeline/internal/model"
)

// SessionMetrics sums every event belonging to one session identifier.
func SessionMetrics(events []model.UsageEvent, sessionID string, now time.Time) model.SessionMetrics {
	var m model.SessionMetrics
	today := now.Local().Format("2006-01-02")

	for i := range events {
		ev := &events[i]
		if ev.SessionID != sessionID {
			continue
		}
		m.Tokens.Add(ev.Tokens)
		m.CostUSD += ev.CostUSD
		m.Events++
		if ev.Timestamp.Local().Format("2006-01-02") == today {
			m.TodayUSD += ev.CostUSD
		}
		if m.FirstSeen.IsZero() || ev.Timestamp.Before(m.FirstSeen) {
			m.FirstSeen = ev.Timestamp
		}
		if ev.Timestamp.After(m.LastSeen) {
			m.LastSeen = ev.Timestamp
		}
	}
	return m
}

// TodayAcrossSessions computes the daily aggregate directly from scanned
// events. This is the full-rescan fallback used when the persistent store
// is disabled or unavailable: every session's transcript contributes, so
// the total still reflects concurrent sessions.
func TodayAcrossSessions(events []model.UsageEvent, now time.Time) model.GlobalUsage {
	today := now.Local().Format("2006-01-02")
	var g model.GlobalUsage
	sessions := make(map[string]struct{})

	for i := range events {
		ev := &events[i]
		if ev.Timestamp.Local().Format("2006-01-02") != today {
			continue
		}
		g.GlobalToday += ev.CostUSD
		if ev.SessionID != "" {
			sessions[ev.SessionID] = struct{}{}
		}
	}
	g.SessionsToday = len(sessions)
	return g
}
