package usage

import (
	"math"
	"time"

	"github.com/theirongolddev/claudeline/internal/model"
)

// WindowDuration is the host platform's rolling billing interval.
const WindowDuration = 5 * time.Hour

// minElapsed floors the burn-rate denominator so a session's first events
// cannot produce unbounded rates.
const minElapsed = time.Minute

// WindowBounds computes the active window [start, end).
//
// With a provider reset anchor, windows tile the timeline in 5-hour steps
// aligned to the anchor; the step containing now is returned. The anchor
// may lie in the past or the future (resets_at from the usage endpoint is
// a future boundary). Without an anchor the window trails now, and the
// caller anchors start to the oldest retained event.
func WindowBounds(now time.Time, anchor *time.Time) (time.Time, time.Time) {
	if anchor != nil {
		k := math.Floor(now.Sub(*anchor).Hours() / WindowDuration.Hours())
		start := anchor.Add(time.Duration(k) * WindowDuration)
		return start, start.Add(WindowDuration)
	}
	return now.Add(-WindowDuration), now
}

// WindowMetrics restricts events to the current window and derives cost
// and burn figures. anchor is the provider-supplied reset boundary; it
// takes precedence over transcript-derived starts. utilization is the
// provider-reported window percentage, carried through untouched.
func WindowMetrics(events []model.UsageEvent, now time.Time, anchor *time.Time, utilization *float64) model.WindowMetrics {
	start, end := WindowBounds(now, anchor)

	var m model.WindowMetrics
	var oldest time.Time

	for i := range events {
		ev := &events[i]
		if ev.Timestamp.Before(start) || !ev.Timestamp.Before(end) {
			continue
		}
		m.Tokens.Add(ev.Tokens)
		m.CostUSD += ev.CostUSD
		if oldest.IsZero() || ev.Timestamp.Before(oldest) {
			oldest = ev.Timestamp
		}
	}

	if anchor == nil {
		// No provider boundary: the window starts at the oldest retained
		// event. With no events at all it has no start and is treated as
		// beginning now.
		if oldest.IsZero() {
			start = now
		} else {
			start = oldest
		}
		end = start.Add(WindowDuration)
	}

	elapsed := now.Sub(start)
	if elapsed < minElapsed {
		elapsed = minElapsed
	}
	minutes := elapsed.Minutes()

	m.Start = start
	m.End = end
	m.TokensPerMinute = float64(m.Tokens.Total()) / minutes
	m.NonCachePerMin = float64(m.Tokens.NonCache()) / minutes
	m.CostPerHour = m.CostUSD / (minutes / 60)
	m.RemainingMinutes = math.Max(0, end.Sub(now).Minutes())
	m.Utilization = utilization
	return m
}
