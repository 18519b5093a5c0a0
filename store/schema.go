package store

// schemaSQL is the DDL for the session tables. Payload columns hold JSON.
// created_at is unix milliseconds so expiry is a plain integer compare.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    method TEXT NOT NULL,
    program_info JSON NOT NULL,
    courses JSON NOT NULL,
    graph JSON NOT NULL,
    csv TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);
`
