// Package source discovers and parses Claude Code JSONL transcripts into
// usage events. Parsing is line-independent: a malformed or truncated line
// (an in-progress writer may leave one at the tail) is skipped, never fatal.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/theirongolddev/claudeline/internal/model"
	"github.com/theirongolddev/claudeline/internal/pricing"
)

var patUsageLimit = []byte("usage limit reached")

// rawLine mirrors the transcript fields this tool consumes.
type rawLine struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	SessionID string      `json:"sessionId"`
	RequestID string      `json:"requestId"`
	CostUSD   *float64    `json:"costUSD"`
	Message   *rawMessage `json:"message"`
}

type rawMessage struct {
	ID    string    `json:"id"`
	Model string    `json:"model"`
	Usage *rawUsage `json:"usage"`
}

type rawUsage struct {
	InputTokens              int64             `json:"input_tokens"`
	OutputTokens             int64             `json:"output_tokens"`
	CacheCreationInputTokens int64             `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64             `json:"cache_read_input_tokens"`
	ServerToolUse            *rawServerToolUse `json:"server_tool_use"`
}

type rawServerToolUse struct {
	WebSearchRequests int64 `json:"web_search_requests"`
}

// ScanResult holds everything one pass over the transcript set produces.
type ScanResult struct {
	Events []model.UsageEvent
	// LatestReset is the newest provider reset anchor embedded in
	// usage-limit messages, when any transcript carried one.
	LatestReset *time.Time
}

// CollectEvents parses every discovered transcript into deduplicated usage
// events. Duplicate message/request ids keep the last occurrence (final
// billed usage). File read errors degrade to an empty contribution.
func CollectEvents(files []DiscoveredFile, prices *pricing.Table) ScanResult {
	var res ScanResult
	byID := make(map[string]int) // dedup key -> index into res.Events

	for _, df := range files {
		scanFile(df, prices, func(ev model.UsageEvent) {
			key := ev.MessageID + ":" + ev.RequestID
			if key != ":" {
				if idx, ok := byID[key]; ok {
					res.Events[idx] = ev
					return
				}
				byID[key] = len(res.Events)
			}
			res.Events = append(res.Events, ev)
		}, func(reset time.Time) {
			if res.LatestReset == nil || reset.After(*res.LatestReset) {
				r := reset
				res.LatestReset = &r
			}
		})
	}

	sort.Slice(res.Events, func(i, j int) bool {
		return res.Events[i].Timestamp.Before(res.Events[j].Timestamp)
	})
	return res
}

// scanFile streams one transcript, emitting usage events and reset anchors.
func scanFile(df DiscoveredFile, prices *pricing.Table, emit func(model.UsageEvent), onReset func(time.Time)) {
	f, err := os.Open(df.Path)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 2*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if bytes.Contains(line, patUsageLimit) {
			if reset, ok := extractResetEpoch(line); ok {
				onReset(reset)
			}
		}

		if ev, ok := parseLine(line, df, prices); ok {
			emit(ev)
		}
	}
	// scanner.Err is deliberately ignored: a torn tail line from a live
	// writer must not discard the events already emitted.
}

// parseLine converts one JSONL line into a usage event. Lines without
// token usage or an explicit cost produce no event.
func parseLine(line []byte, df DiscoveredFile, prices *pricing.Table) (model.UsageEvent, bool) {
	var raw rawLine
	if err := json.Unmarshal(line, &raw); err != nil {
		return model.UsageEvent{}, false
	}

	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return model.UsageEvent{}, false
	}

	ev := model.UsageEvent{
		Timestamp: ts,
		SessionID: raw.SessionID,
		Project:   df.Project,
		RequestID: raw.RequestID,
	}
	if ev.SessionID == "" {
		ev.SessionID = df.SessionID
	}

	if msg := raw.Message; msg != nil {
		ev.MessageID = msg.ID
		ev.Model = msg.Model
		if u := msg.Usage; u != nil {
			ev.Tokens = model.TokenCounts{
				Input:       u.InputTokens,
				Output:      u.OutputTokens,
				CacheCreate: u.CacheCreationInputTokens,
				CacheRead:   u.CacheReadInputTokens,
			}
			if u.ServerToolUse != nil {
				ev.WebSearches = u.ServerToolUse.WebSearchRequests
			}
		}
	}

	switch {
	case raw.CostUSD != nil:
		// An explicit cost bypasses the pricing table entirely.
		ev.CostUSD = *raw.CostUSD
		ev.ExplicitCost = true
	case ev.Tokens.Total() > 0:
		ev.CostUSD = prices.Cost(ev.Model, ev.Tokens.Input, ev.Tokens.Output,
			ev.Tokens.CacheCreate, ev.Tokens.CacheRead) +
			prices.WebSearchCost(ev.WebSearches)
	case ev.WebSearches > 0:
		// Web-search-only events are charged the flat per-request rate.
		ev.CostUSD = prices.WebSearchCost(ev.WebSearches)
	default:
		return model.UsageEvent{}, false
	}

	return ev, true
}

// extractResetEpoch pulls the epoch anchor from a usage-limit message of
// the form "...usage limit reached|1712345678".
func extractResetEpoch(line []byte) (time.Time, bool) {
	idx := bytes.LastIndexByte(line, '|')
	if idx < 0 {
		return time.Time{}, false
	}
	var epoch int64
	for _, c := range line[idx+1:] {
		if c < '0' || c > '9' {
			break
		}
		epoch = epoch*10 + int64(c-'0')
	}
	if epoch <= 0 {
		return time.Time{}, false
	}
	return time.Unix(epoch, 0).UTC(), true
}

// TodayCostFunc returns a rescan function the persistent store uses to
// recompute one transcript's contribution to the given local calendar day.
func TodayCostFunc(prices *pricing.Table, today string) func(path string) (float64, int, error) {
	return func(path string) (float64, int, error) {
		df := DiscoveredFile{Path: path}
		var cost float64
		var count int
		byID := make(map[string]model.UsageEvent)
		var anon []model.UsageEvent

		if _, err := os.Stat(path); err != nil {
			return 0, 0, err
		}

		scanFile(df, prices, func(ev model.UsageEvent) {
			key := ev.MessageID + ":" + ev.RequestID
			if key != ":" {
				byID[key] = ev
			} else {
				anon = append(anon, ev)
			}
		}, func(time.Time) {})

		tally := func(ev model.UsageEvent) {
			if ev.Timestamp.Local().Format("2006-01-02") == today {
				cost += ev.CostUSD
				count++
			}
		}
		for _, ev := range byID {
			tally(ev)
		}
		for _, ev := range anon {
			tally(ev)
		}
		return cost, count, nil
	}
}
