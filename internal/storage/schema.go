package storage

const schema = `
-- The 'kv' table stores JSON documents under fixed keys.
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);
`
