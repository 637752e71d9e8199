// Package cli renders the collected metrics as a single statusline, either
// colored text or JSON.
package cli

import (
	"fmt"
	"math"
	"strconv"
)

// FormatTokens formats a token count with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M"
func FormatTokens(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatCost formats a USD value, widening precision as the amount shrinks
// so sub-cent session costs stay visible.
func FormatCost(cost float64) string {
	switch {
	case cost >= 100:
		return fmt.Sprintf("$%.0f", cost)
	case cost >= 10:
		return fmt.Sprintf("$%.1f", cost)
	case cost >= 0.01 || cost == 0:
		return fmt.Sprintf("$%.2f", cost)
	default:
		return fmt.Sprintf("$%.4f", cost)
	}
}

// FormatRate formats a tokens-per-minute burn rate.
func FormatRate(perMin float64) string {
	return FormatTokens(int64(math.Round(perMin))) + "/m"
}

// FormatRemaining formats minutes until the window resets.
// e.g., 134 -> "2h14m", 45 -> "45m"
func FormatRemaining(minutes float64) string {
	total := int64(math.Round(minutes))
	if total <= 0 {
		return "0m"
	}
	h := total / 60
	m := total % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatPercent formats a 0-100 percentage with no decimals.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.0f%%", pct)
}
