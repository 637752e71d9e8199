// Package store provides the SQLite-backed persistent cache shared by all
// concurrently running statusline processes.
//
// The database runs in WAL mode so writers append without blocking readers;
// each operation opens a short-lived handle and releases it promptly to keep
// contention windows small. Per-transcript daily contributions are validated
// against the transcript's modification time (exact equality — any change,
// older or newer, forces a rescan), remote API responses against a
// wall-clock TTL.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/claudeline/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrDisabled signals that the store is bypassed; callers fall back to a
// full per-invocation scan. This is a supported mode, not a failure.
var ErrDisabled = errors.New("store: disabled")

const (
	dateLayout = "2006-01-02"
	// globalSumTTL bounds how long the cross-session daily sum is memoized
	// before the SUM query runs again.
	globalSumTTL = 5 * time.Second
)

// Disabled reports whether the persistent cache is turned off.
func Disabled() bool {
	return os.Getenv("CLAUDE_DB_CACHE_DISABLE") == "1"
}

// Path returns the database location. CLAUDE_STATUSLINE_DB_PATH overrides
// the default under ~/.claude.
func Path() string {
	if custom := os.Getenv("CLAUDE_STATUSLINE_DB_PATH"); custom != "" {
		return custom
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "claudeline.db"
	}
	return filepath.Join(home, ".claude", "claudeline.db")
}

// Store is a short-lived handle on the shared database. Acquire narrowly,
// release promptly: callers must not hold one open across a transcript scan.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database with WAL journaling and a busy
// timeout. Schema creation retries briefly when another process holds the
// write lock.
func Open() (*Store, error) {
	if Disabled() {
		return nil, ErrDisabled
	}

	dbPath := Path()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("store: creating db dir: %w", err)
	}

	db, err := sql.Open("sqlite",
		dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: opening db: %w", err)
	}

	for attempt := 1; ; attempt++ {
		_, err = db.Exec(schemaSQL)
		if err == nil {
			break
		}
		if attempt >= 3 || !strings.Contains(err.Error(), "locked") {
			_ = db.Close()
			return nil, fmt.Errorf("store: creating schema: %w", err)
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GlobalUsage returns the daily aggregate across all sessions, refreshing
// this session's contribution first.
//
// The cached contribution is reused only when the transcript's mtime AND
// the recorded calendar day both match; otherwise the contribution is
// recomputed (from precomputed when the caller already has it, else via
// rescan) and upserted. Entries from previous days are swept, and the
// cross-session sum is answered from a short-lived memo when the database
// was not just modified.
func (s *Store) GlobalUsage(
	sessionKey, transcriptPath string,
	now time.Time,
	precomputed *float64,
	rescan func(path string) (float64, int, error),
) (model.GlobalUsage, error) {
	today := now.Local().Format(dateLayout)

	fi, err := os.Stat(transcriptPath)
	if err != nil {
		return model.GlobalUsage{}, fmt.Errorf("store: stat transcript: %w", err)
	}
	mtime := fi.ModTime().UnixNano()

	var (
		cachedMtime int64
		cachedCost  float64
		cachedDate  string
	)
	row := s.db.QueryRow(
		"SELECT transcript_mtime, today_cost, today_date FROM sessions WHERE session_key = ?",
		sessionKey)
	found := true
	if err := row.Scan(&cachedMtime, &cachedCost, &cachedDate); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return model.GlobalUsage{}, err
		}
		found = false
	}

	modified := false
	sessionCost := cachedCost
	if !found || cachedMtime != mtime || cachedDate != today {
		var count int
		if precomputed != nil {
			sessionCost = *precomputed
		} else {
			sessionCost, count, err = rescan(transcriptPath)
			if err != nil {
				return model.GlobalUsage{}, fmt.Errorf("store: rescan: %w", err)
			}
		}
		if err := s.upsertSession(sessionKey, transcriptPath, mtime, today, sessionCost, count, now); err != nil {
			return model.GlobalUsage{}, err
		}
		modified = true
	}

	// Sweep contributions from previous days.
	if _, err := s.db.Exec("DELETE FROM sessions WHERE today_date != ?", today); err != nil {
		return model.GlobalUsage{}, err
	}

	globalToday, sessions, ok := s.memoizedSum(today, now, modified)
	if !ok {
		if err := s.db.QueryRow(
			"SELECT COALESCE(SUM(today_cost), 0.0), COUNT(*) FROM sessions WHERE today_date = ?",
			today).Scan(&globalToday, &sessions); err != nil {
			return model.GlobalUsage{}, err
		}
		memo := strconv.FormatFloat(globalToday, 'f', -1, 64) + ":" + strconv.Itoa(sessions)
		_ = s.setMetadata("global_sum:"+today, memo, now)
	}

	return model.GlobalUsage{
		SessionCost:   sessionCost,
		GlobalToday:   globalToday,
		SessionsToday: sessions,
	}, nil
}

func (s *Store) upsertSession(sessionKey, transcriptPath string, mtime int64, today string, cost float64, count int, now time.Time) error {
	_, err := s.db.Exec(`INSERT INTO sessions
		(session_key, transcript_path, transcript_mtime, today_date, today_cost, entry_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_key) DO UPDATE SET
			transcript_path  = excluded.transcript_path,
			transcript_mtime = excluded.transcript_mtime,
			today_date       = excluded.today_date,
			today_cost       = excluded.today_cost,
			entry_count      = excluded.entry_count,
			updated_at       = excluded.updated_at`,
		sessionKey, transcriptPath, mtime, today, cost, count, now.Unix())
	return err
}

// memoizedSum returns the cached cross-session sum when it is fresh and the
// database was not modified by this invocation.
func (s *Store) memoizedSum(today string, now time.Time, modified bool) (float64, int, bool) {
	if modified {
		return 0, 0, false
	}
	value, updatedAt, ok := s.metadata("global_sum:" + today)
	if !ok || now.Unix()-updatedAt >= int64(globalSumTTL.Seconds()) {
		return 0, 0, false
	}
	sumStr, countStr, ok := strings.Cut(value, ":")
	if !ok {
		return 0, 0, false
	}
	sum, err1 := strconv.ParseFloat(sumStr, 64)
	count, err2 := strconv.Atoi(countStr)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return sum, count, true
}

func (s *Store) metadata(key string) (value string, updatedAt int64, ok bool) {
	var at sql.NullInt64
	err := s.db.QueryRow("SELECT value, updated_at FROM metadata WHERE key = ?", key).
		Scan(&value, &at)
	if err != nil {
		return "", 0, false
	}
	return value, at.Int64, true
}

func (s *Store) setMetadata(key, value string, now time.Time) error {
	_, err := s.db.Exec(`INSERT INTO metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now.Unix())
	return err
}

// GetAPICache returns an unexpired remote response for the key.
func (s *Store) GetAPICache(key string, now time.Time) (string, bool) {
	var data string
	err := s.db.QueryRow(
		"SELECT data FROM api_cache WHERE cache_key = ? AND expires_at > ?",
		key, now.Unix()).Scan(&data)
	if err != nil {
		return "", false
	}
	return data, true
}

// SetAPICache stores a remote response with an expiry and opportunistically
// sweeps expired entries.
func (s *Store) SetAPICache(key, data string, ttl time.Duration, now time.Time) error {
	_, err := s.db.Exec(`INSERT INTO api_cache (cache_key, data, fetched_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			data       = excluded.data,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`,
		key, data, now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return err
	}
	_, _ = s.db.Exec("DELETE FROM api_cache WHERE expires_at <= ?", now.Unix())
	return nil
}

// Counts reports stored rows for the cache subcommand.
func (s *Store) Counts() (sessions, apiEntries int, err error) {
	if err = s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&sessions); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRow("SELECT COUNT(*) FROM api_cache").Scan(&apiEntries); err != nil {
		return 0, 0, err
	}
	return sessions, apiEntries, nil
}

// Clear drops all cached rows but keeps the schema.
func (s *Store) Clear() error {
	for _, stmt := range []string{
		"DELETE FROM sessions",
		"DELETE FROM api_cache",
		"DELETE FROM metadata WHERE key != 'schema_version'",
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GlobalUsage opens a narrow-scoped handle, refreshes this session's daily
// contribution, and returns the cross-session aggregate.
func GlobalUsage(
	sessionKey, transcriptPath string,
	now time.Time,
	precomputed *float64,
	rescan func(path string) (float64, int, error),
) (model.GlobalUsage, error) {
	s, err := Open()
	if err != nil {
		return model.GlobalUsage{}, err
	}
	defer func() { _ = s.Close() }()
	return s.GlobalUsage(sessionKey, transcriptPath, now, precomputed, rescan)
}

// CachedResponse fetches an unexpired remote response by key.
func CachedResponse(key string, now time.Time) (string, bool) {
	s, err := Open()
	if err != nil {
		return "", false
	}
	defer func() { _ = s.Close() }()
	return s.GetAPICache(key, now)
}

// StoreResponse persists a remote response with a TTL. Errors are dropped:
// the cache write is an optimization, never a requirement.
func StoreResponse(key, data string, ttl time.Duration, now time.Time) {
	s, err := Open()
	if err != nil {
		return
	}
	defer func() { _ = s.Close() }()
	_ = s.SetAPICache(key, data, ttl, now)
}
