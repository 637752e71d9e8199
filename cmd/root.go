package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/claudeline/internal/cache"
	"github.com/theirongolddev/claudeline/internal/cli"
	"github.com/theirongolddev/claudeline/internal/config"
	"github.com/theirongolddev/claudeline/internal/hook"
	"github.com/theirongolddev/claudeline/internal/model"
	"github.com/theirongolddev/claudeline/internal/pricing"
	"github.com/theirongolddev/claudeline/internal/source"
	"github.com/theirongolddev/claudeline/internal/store"
	"github.com/theirongolddev/claudeline/internal/usage"
	"github.com/theirongolddev/claudeline/internal/usageapi"
)

var flagJSON bool

var rootCmd = &cobra.Command{
	Use:   "claudeline",
	Short: "Cost/usage statusline for Claude Code",
	Long: "Reads the statusline hook payload on stdin and prints one line of\n" +
		"session, window, and daily cost metrics.",
	RunE:         runStatusline,
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "Emit the statusline as JSON")
}

func runStatusline(cmd *cobra.Command, _ []string) error {
	in, err := hook.Read(cmd.InOrStdin())
	if err != nil {
		// Fatal input error: nothing sane can be rendered.
		return err
	}

	now := time.Now()
	cfg, _ := config.Load()

	snap := collectSnapshot(in, cfg, now)

	sess := usage.SessionMetrics(snap.Events, in.SessionID, now)
	if in.Cost != nil && in.Cost.TotalCostUSD != nil {
		// The host's running total is authoritative when supplied.
		sess.CostUSD = *in.Cost.TotalCostUSD
	}

	anchor := snap.LatestReset
	var utilization *float64
	if remote := fetchRemote(cmd.Context(), cfg, now); remote != nil && remote.FiveHour != nil {
		u := remote.FiveHour.Utilization
		utilization = &u
		if remote.FiveHour.ResetsAt != nil {
			// Provider-supplied boundary beats the transcript-derived one.
			anchor = remote.FiveHour.ResetsAt
		}
	}

	window := usage.WindowMetrics(snap.Events, now, anchor, utilization)

	status := cli.Status{
		ModelName: in.Model.DisplayName,
		Session:   sess,
		Window:    window,
		Global: model.GlobalUsage{
			SessionCost:   sess.TodayUSD,
			GlobalToday:   snap.GlobalToday,
			SessionsToday: snap.SessionsToday,
		},
		Now: now,
	}
	if status.ModelName == "" {
		status.ModelName = in.Model.ID
	}
	if in.ContextWindow != nil {
		status.ContextPercent = in.ContextWindow.UsedPercent
	}

	output := cfg.General.Output
	if flagJSON {
		output = "json"
	}
	if output == "json" {
		line, err := cli.RenderJSON(status)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.Render(status))
	return nil
}

// collectSnapshot produces the scan-derived data for this invocation,
// consulting the process-local memo first and the persistent store for the
// cross-session daily aggregate.
func collectSnapshot(in *hook.Input, cfg config.Config, now time.Time) model.Snapshot {
	if snap, ok := cache.Get(in.SessionID, in.ProjectDir(), now); ok {
		return snap
	}

	prices := pricing.Resolve()
	roots := append(source.DefaultRoots(), cfg.General.ExtraRoots...)

	cutoff := source.LookbackCutoff(now)
	if cfg.General.LookbackHours != nil && os.Getenv("CLAUDE_SCAN_LOOKBACK_HOURS") == "" {
		cutoff = now.Add(-time.Duration(*cfg.General.LookbackHours) * time.Hour)
	}

	res := source.CollectEvents(source.Discover(roots, cutoff), prices)

	sess := usage.SessionMetrics(res.Events, in.SessionID, now)
	today := now.Local().Format("2006-01-02")
	g, err := store.GlobalUsage(in.SessionID, in.TranscriptPath, now,
		&sess.TodayUSD, source.TodayCostFunc(prices, today))
	if err != nil {
		// Disabled or unavailable store: full-rescan fallback, every
		// discovered transcript already contributed to res.Events.
		g = usage.TodayAcrossSessions(res.Events, now)
	}

	snap := model.Snapshot{
		Events:        res.Events,
		GlobalToday:   g.GlobalToday,
		SessionsToday: g.SessionsToday,
		LatestReset:   res.LatestReset,
	}
	cache.Put(in.SessionID, in.ProjectDir(), snap, now)
	return snap
}

// fetchRemote returns window utilization from the usage endpoint, or nil
// when the fetch is disabled or fails. The env toggle beats the config
// file; the config file beats the default (on).
func fetchRemote(ctx context.Context, cfg config.Config, now time.Time) *usageapi.Summary {
	enabled := usageapi.Enabled()
	if _, envSet := os.LookupEnv("CLAUDE_STATUSLINE_FETCH_USAGE"); !envSet && cfg.Remote.FetchUsage != nil {
		enabled = *cfg.Remote.FetchUsage
	}
	if !enabled {
		return nil
	}

	client := usageapi.NewClient(source.DefaultRoots())
	summary, _ := client.Fetch(ctx, now)
	return summary
}
