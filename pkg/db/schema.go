package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;

-- Articles seen by detection or analysis
CREATE TABLE IF NOT EXISTS urls (
    url_id INTEGER PRIMARY KEY AUTOINCREMENT,
    original_url TEXT NOT NULL UNIQUE,
    canonical_url TEXT,
    scheme TEXT NOT NULL,
    domain TEXT NOT NULL,
    path TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_urls_domain ON urls(domain);

-- Sessions: one row per detection pass
CREATE TABLE IF NOT EXISTS sessions (
    session_id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_key TEXT NOT NULL UNIQUE,
    url_id INTEGER,
    title TEXT,
    language TEXT,
    quote_count INTEGER NOT NULL DEFAULT 0,
    placed_count INTEGER NOT NULL DEFAULT 0,
    unresolved_count INTEGER NOT NULL DEFAULT 0,
    keywords TEXT,                -- JSON array
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (url_id) REFERENCES urls(url_id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_url ON sessions(url_id);

-- Quotes found by a detection pass
CREATE TABLE IF NOT EXISTS quotes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL,
    quote_id TEXT NOT NULL,
    text TEXT NOT NULL,
    preview_text TEXT NOT NULL,
    source_position INTEGER NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE,
    UNIQUE(session_id, quote_id)
);

CREATE INDEX IF NOT EXISTS idx_quotes_session ON quotes(session_id);

-- Analyses: every completed backend call, success or failure
CREATE TABLE IF NOT EXISTS analyses (
    analysis_id INTEGER PRIMARY KEY AUTOINCREMENT,
    url_id INTEGER,
    quote_id TEXT NOT NULL,
    quote_content TEXT NOT NULL,
    success BOOLEAN NOT NULL,
    error_type TEXT,
    error_message TEXT,
    candidate_count INTEGER NOT NULL DEFAULT 0,
    best_similarity INTEGER,
    max_distortion REAL,
    verdict TEXT,
    results TEXT,                 -- JSON array of projected results
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (url_id) REFERENCES urls(url_id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_url ON analyses(url_id);
CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_success ON analyses(success);
`
