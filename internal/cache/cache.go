// Package cache memoizes transcript scan results within one process.
//
// The statusline is re-invoked on every render tick; inside a single
// process (e.g. the cache subcommand, or tests driving several renders)
// this absorbs repeated scans. Entries are keyed by session and project,
// expire after a short TTL, and are additionally scoped to the local
// calendar day so a midnight rollover cannot resurface yesterday's totals.
// Correctness never depends on this layer.
package cache

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/theirongolddev/claudeline/internal/model"
)

// DefaultTTL is the memoization lifetime; CLAUDE_CACHE_TTL (seconds)
// overrides it.
const DefaultTTL = 60 * time.Second

type entry struct {
	snap      model.Snapshot
	day       string
	expiresAt time.Time
}

var (
	mu      sync.Mutex
	entries = make(map[string]entry)
)

func key(sessionID, projectDir string) string {
	if projectDir == "" {
		return sessionID
	}
	return sessionID + ":" + projectDir
}

func ttl() time.Duration {
	if raw := os.Getenv("CLAUDE_CACHE_TTL"); raw != "" {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return DefaultTTL
}

// Get returns the memoized snapshot if it is unexpired and was taken today.
func Get(sessionID, projectDir string, now time.Time) (model.Snapshot, bool) {
	mu.Lock()
	defer mu.Unlock()

	e, ok := entries[key(sessionID, projectDir)]
	if !ok || now.After(e.expiresAt) || e.day != now.Local().Format("2006-01-02") {
		return model.Snapshot{}, false
	}
	return e.snap, true
}

// Put stores a snapshot and opportunistically drops dead entries.
func Put(sessionID, projectDir string, snap model.Snapshot, now time.Time) {
	today := now.Local().Format("2006-01-02")

	mu.Lock()
	defer mu.Unlock()

	for k, e := range entries {
		if now.After(e.expiresAt) || e.day != today {
			delete(entries, k)
		}
	}
	entries[key(sessionID, projectDir)] = entry{
		snap:      snap,
		day:       today,
		expiresAt: now.Add(ttl()),
	}
}

// Clear drops all memoized snapshots.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	entries = make(map[string]entry)
}
