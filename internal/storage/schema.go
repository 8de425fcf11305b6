package storage

const schemaSQL = `
-- Frontier: every URL ever enqueued, at most once.
-- status lifecycle: queued -> processing -> completed
-- URLs abandoned mid-crawl stay in 'processing' until the next resumed run.
CREATE TABLE IF NOT EXISTS urls (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    status TEXT NOT NULL DEFAULT 'queued' CHECK (status IN ('queued', 'processing', 'completed')),
    added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    processing_started_at DATETIME,
    completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_urls_status ON urls(status, id);

-- Page statistics, rewritten on every checkpoint
CREATE TABLE IF NOT EXISTS unique_pages (
    url TEXT PRIMARY KEY NOT NULL
);

CREATE TABLE IF NOT EXISTS page_tokens (
    url TEXT PRIMARY KEY NOT NULL,
    tokens INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS word_counts (
    word TEXT PRIMARY KEY NOT NULL,
    count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS subdomains (
    host TEXT PRIMARY KEY NOT NULL,
    pages INTEGER NOT NULL
);

-- Crawl meta table stores metadata as key-value pairs
CREATE TABLE IF NOT EXISTS crawl_meta (
    key TEXT PRIMARY KEY NOT NULL,
    value TEXT NOT NULL
);
`
