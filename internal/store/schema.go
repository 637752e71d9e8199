package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    session_key       TEXT PRIMARY KEY,
    transcript_path   TEXT NOT NULL,
    transcript_mtime  INTEGER NOT NULL,
    today_date        TEXT NOT NULL,
    today_cost        REAL NOT NULL,
    entry_count       INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_day ON sessions(today_date);
CREATE INDEX IF NOT EXISTS idx_sessions_path ON sessions(transcript_path);

CREATE TABLE IF NOT EXISTS api_cache (
    cache_key         TEXT PRIMARY KEY,
    data              TEXT NOT NULL,
    fetched_at        INTEGER NOT NULL,
    expires_at        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_api_expires ON api_cache(expires_at);

CREATE TABLE IF NOT EXISTS metadata (
    key               TEXT PRIMARY KEY,
    value             TEXT NOT NULL,
    updated_at        INTEGER
);

INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
