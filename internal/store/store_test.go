package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("CLAUDE_STATUSLINE_DB_PATH", filepath.Join(t.TempDir(), "test.db"))

	s, err := Open()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// countingRescan returns a rescan func that reports fixed figures and
// counts its invocations.
func countingRescan(cost float64, entries int, calls *int) func(string) (float64, int, error) {
	return func(string) (float64, int, error) {
		*calls++
		return cost, entries, nil
	}
}

func TestGlobalUsage_CacheHitSkipsRescan(t *testing.T) {
	s := testStore(t)
	path := writeFile(t, "{}\n")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)

	calls := 0
	rescan := countingRescan(1.25, 3, &calls)

	g, err := s.GlobalUsage("s1", path, now, nil, rescan)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("rescan calls = %d, want 1 on first sight", calls)
	}
	if g.SessionCost != 1.25 || g.GlobalToday != 1.25 || g.SessionsToday != 1 {
		t.Errorf("GlobalUsage = %+v", g)
	}

	// Untouched transcript, same day: cached contribution, no rescan.
	g, err = s.GlobalUsage("s1", path, now.Add(time.Minute), nil, rescan)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("rescan calls = %d, want 1 (cache hit)", calls)
	}
	if g.SessionCost != 1.25 {
		t.Errorf("SessionCost = %v, want cached 1.25", g.SessionCost)
	}
}

func TestGlobalUsage_MtimeInvalidation(t *testing.T) {
	s := testStore(t)
	path := writeFile(t, "{}\n")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)

	calls := 0
	if _, err := s.GlobalUsage("s1", path, now, nil, countingRescan(1.0, 1, &calls)); err != nil {
		t.Fatal(err)
	}

	// Any mtime change invalidates, older as well as newer.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	g, err := s.GlobalUsage("s1", path, now.Add(time.Minute), nil, countingRescan(2.0, 1, &calls))
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("rescan calls = %d, want 2 (mtime changed)", calls)
	}
	if g.SessionCost != 2.0 {
		t.Errorf("SessionCost = %v, want recomputed 2.0", g.SessionCost)
	}
}

func TestGlobalUsage_DayRolloverInvalidation(t *testing.T) {
	s := testStore(t)
	path := writeFile(t, "{}\n")
	now := time.Date(2025, 6, 1, 23, 0, 0, 0, time.Local)

	calls := 0
	if _, err := s.GlobalUsage("s1", path, now, nil, countingRescan(5.0, 1, &calls)); err != nil {
		t.Fatal(err)
	}

	// Next day, transcript untouched: the entry is stale and yesterday's
	// cost must not leak into today.
	g, err := s.GlobalUsage("s1", path, now.Add(2*time.Hour), nil, countingRescan(0.0, 0, &calls))
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("rescan calls = %d, want 2 (date changed)", calls)
	}
	if g.GlobalToday != 0.0 {
		t.Errorf("GlobalToday = %v, want 0.0 after rollover", g.GlobalToday)
	}
}

func TestGlobalUsage_TwoWriters(t *testing.T) {
	t.Setenv("CLAUDE_STATUSLINE_DB_PATH", filepath.Join(t.TempDir(), "shared.db"))
	pathA := writeFile(t, "{}\n")
	pathB := writeFile(t, "{}\n")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)

	a, err := Open()
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := Open()
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	calls := 0
	if _, err := a.GlobalUsage("sA", pathA, now, nil, countingRescan(1.0, 1, &calls)); err != nil {
		t.Fatal(err)
	}
	// Second writer through its own handle; must observe the first
	// writer's committed contribution. Advance past the sum memo's TTL so
	// the SUM query actually runs.
	g, err := b.GlobalUsage("sB", pathB, now.Add(10*time.Second), nil, countingRescan(2.0, 1, &calls))
	if err != nil {
		t.Fatal(err)
	}
	if g.GlobalToday != 3.0 {
		t.Errorf("GlobalToday = %v, want 3.0 (both writers observable)", g.GlobalToday)
	}
	if g.SessionsToday != 2 {
		t.Errorf("SessionsToday = %d, want 2", g.SessionsToday)
	}
}

func TestGlobalUsage_Precomputed(t *testing.T) {
	s := testStore(t)
	path := writeFile(t, "{}\n")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)

	pre := 0.75
	g, err := s.GlobalUsage("s1", path, now, &pre, func(string) (float64, int, error) {
		t.Fatal("rescan must not run when a precomputed cost is supplied")
		return 0, 0, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if g.SessionCost != 0.75 {
		t.Errorf("SessionCost = %v, want precomputed 0.75", g.SessionCost)
	}
}

func TestGlobalUsage_MissingTranscript(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	_, err := s.GlobalUsage("s1", filepath.Join(t.TempDir(), "gone.jsonl"), now, nil,
		func(string) (float64, int, error) { return 0, 0, nil })
	if err == nil {
		t.Error("expected error for missing transcript")
	}
}

func TestAPICache_TTL(t *testing.T) {
	s := testStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)

	if err := s.SetAPICache("usage", `{"five_hour":{}}`, 60*time.Second, now); err != nil {
		t.Fatal(err)
	}

	if data, ok := s.GetAPICache("usage", now.Add(30*time.Second)); !ok || data != `{"five_hour":{}}` {
		t.Errorf("GetAPICache = %q, %v; want stored payload within TTL", data, ok)
	}
	if _, ok := s.GetAPICache("usage", now.Add(61*time.Second)); ok {
		t.Error("expected miss past TTL")
	}
}

func TestAPICache_Overwrite(t *testing.T) {
	s := testStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)

	if err := s.SetAPICache("usage", "old", 60*time.Second, now); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAPICache("usage", "new", 60*time.Second, now.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if data, _ := s.GetAPICache("usage", now.Add(2*time.Second)); data != "new" {
		t.Errorf("data = %q, want overwritten value", data)
	}
}

func TestOpen_Disabled(t *testing.T) {
	t.Setenv("CLAUDE_DB_CACHE_DISABLE", "1")

	if _, err := Open(); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
	if _, err := GlobalUsage("s1", "x", time.Now(), nil, nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("package-level err = %v, want ErrDisabled", err)
	}
}

func TestPath_EnvOverride(t *testing.T) {
	t.Setenv("CLAUDE_STATUSLINE_DB_PATH", "/tmp/custom.db")
	if Path() != "/tmp/custom.db" {
		t.Errorf("Path = %q", Path())
	}
}

func TestClearAndCounts(t *testing.T) {
	s := testStore(t)
	path := writeFile(t, "{}\n")
	now := time.Now()

	calls := 0
	if _, err := s.GlobalUsage("s1", path, now, nil, countingRescan(1.0, 1, &calls)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAPICache("usage", "x", time.Minute, now); err != nil {
		t.Fatal(err)
	}

	sessions, apiEntries, err := s.Counts()
	if err != nil {
		t.Fatal(err)
	}
	if sessions != 1 || apiEntries != 1 {
		t.Errorf("Counts = %d, %d; want 1, 1", sessions, apiEntries)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	sessions, apiEntries, err = s.Counts()
	if err != nil {
		t.Fatal(err)
	}
	if sessions != 0 || apiEntries != 0 {
		t.Errorf("Counts after clear = %d, %d; want 0, 0", sessions, apiEntries)
	}
}
