package sqlite

const schema = `
-- Monitors table
CREATE TABLE IF NOT EXISTS monitors (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL,
    selector TEXT NOT NULL,
    kind TEXT NOT NULL DEFAULT 'text',
    interval TEXT NOT NULL DEFAULT '1h',
    last_check DATETIME,
    last_value TEXT NOT NULL DEFAULT '',
    last_screenshot TEXT NOT NULL DEFAULT '',
    consecutive_failures INTEGER NOT NULL DEFAULT 0 CHECK(consecutive_failures >= 0),
    notify_mode TEXT NOT NULL DEFAULT 'always',
    notify_threshold TEXT NOT NULL DEFAULT '',
    keywords TEXT NOT NULL DEFAULT '[]',
    scenario TEXT NOT NULL DEFAULT '[]',
    ai_prompt TEXT NOT NULL DEFAULT '',
    ai_only INTEGER NOT NULL DEFAULT 0,
    selector_hint TEXT NOT NULL DEFAULT '',
    active INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_monitors_active ON monitors(active);

-- Check history table (append-only)
CREATE TABLE IF NOT EXISTS checks (
    id TEXT PRIMARY KEY,
    monitor_id TEXT NOT NULL,
    status TEXT NOT NULL,
    value TEXT NOT NULL DEFAULT '',
    screenshot TEXT NOT NULL DEFAULT '',
    diff_image TEXT NOT NULL DEFAULT '',
    diff_text TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    http_status INTEGER,
    error TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (monitor_id) REFERENCES monitors(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_checks_monitor ON checks(monitor_id);
CREATE INDEX IF NOT EXISTS idx_checks_created_at ON checks(created_at);
`
