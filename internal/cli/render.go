package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/claudeline/internal/model"
)

// Theme colors (Flexoki Dark)
var (
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
	ColorYellow    = lipgloss.Color("#D0A215")
)

var (
	modelStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorText)
	costStyle  = lipgloss.NewStyle().Foreground(ColorGreen)
	tokenStyle = lipgloss.NewStyle().Foreground(ColorBlue)
	mutedStyle = lipgloss.NewStyle().Foreground(ColorTextMuted)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorOrange)
	alertStyle = lipgloss.NewStyle().Foreground(ColorRed)
)

// Status is everything one invocation collected for display.
type Status struct {
	ModelName      string
	Session        model.SessionMetrics
	Window         model.WindowMetrics
	Global         model.GlobalUsage
	ContextPercent *float64
	Now            time.Time
}

// Render produces the single statusline: model, session cost, today's
// cost across sessions, window burn, and context usage when known.
func Render(s Status) string {
	var parts []string

	parts = append(parts, modelStyle.Render(s.ModelName))

	parts = append(parts, costStyle.Render(FormatCost(s.Session.CostUSD))+mutedStyle.Render(" session"))

	today := costStyle.Render(FormatCost(s.Global.GlobalToday)) + mutedStyle.Render(" today")
	if s.Global.SessionsToday > 1 {
		today += mutedStyle.Render(fmt.Sprintf(" (%d sessions)", s.Global.SessionsToday))
	}
	parts = append(parts, today)

	parts = append(parts, renderWindow(s.Window))

	if s.ContextPercent != nil {
		parts = append(parts, renderContext(*s.ContextPercent))
	}

	return strings.Join(parts, mutedStyle.Render(" | "))
}

func renderWindow(w model.WindowMetrics) string {
	seg := mutedStyle.Render("5h ") +
		costStyle.Render(FormatCost(w.CostUSD)) +
		mutedStyle.Render(" · ") +
		tokenStyle.Render(FormatRate(w.NonCachePerMin)) +
		mutedStyle.Render(" · ") +
		mutedStyle.Render(FormatRemaining(w.RemainingMinutes)+" left")

	if w.Utilization != nil {
		style := costStyle
		switch {
		case *w.Utilization >= 90:
			style = alertStyle
		case *w.Utilization >= 70:
			style = warnStyle
		}
		seg += mutedStyle.Render(" · ") + style.Render(FormatPercent(*w.Utilization))
	}
	return seg
}

func renderContext(pct float64) string {
	style := mutedStyle
	switch {
	case pct >= 90:
		style = alertStyle
	case pct >= 70:
		style = warnStyle
	}
	return style.Render("ctx " + FormatPercent(pct))
}

// jsonStatus is the machine-readable shape for --json.
type jsonStatus struct {
	Model   string  `json:"model"`
	Session struct {
		CostUSD float64 `json:"cost_usd"`
		Tokens  int64   `json:"tokens"`
		Events  int     `json:"events"`
	} `json:"session"`
	Today struct {
		CostUSD  float64 `json:"cost_usd"`
		Sessions int     `json:"sessions"`
	} `json:"today"`
	Window struct {
		Start            time.Time `json:"start"`
		End              time.Time `json:"end"`
		CostUSD          float64   `json:"cost_usd"`
		TokensPerMinute  float64   `json:"tokens_per_minute"`
		NonCachePerMin   float64   `json:"non_cache_per_minute"`
		CostPerHour      float64   `json:"cost_per_hour"`
		RemainingMinutes float64   `json:"remaining_minutes"`
		Utilization      *float64  `json:"utilization,omitempty"`
	} `json:"window"`
	ContextPercent *float64 `json:"context_percent,omitempty"`
}

// RenderJSON produces the structured variant of the statusline.
func RenderJSON(s Status) (string, error) {
	var out jsonStatus
	out.Model = s.ModelName
	out.Session.CostUSD = s.Session.CostUSD
	out.Session.Tokens = s.Session.Tokens.Total()
	out.Session.Events = s.Session.Events
	out.Today.CostUSD = s.Global.GlobalToday
	out.Today.Sessions = s.Global.SessionsToday
	out.Window.Start = s.Window.Start
	out.Window.End = s.Window.End
	out.Window.CostUSD = s.Window.CostUSD
	out.Window.TokensPerMinute = s.Window.TokensPerMinute
	out.Window.NonCachePerMin = s.Window.NonCachePerMin
	out.Window.CostPerHour = s.Window.CostPerHour
	out.Window.RemainingMinutes = s.Window.RemainingMinutes
	out.Window.Utilization = s.Window.Utilization
	out.ContextPercent = s.ContextPercent

	raw, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
