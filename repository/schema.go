package repository

const schemaSQL = `
CREATE TABLE IF NOT EXISTS watchlists (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	symbols TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_watchlists_created_at ON watchlists(created_at);

-- Latest resolved record per symbol, shared by every process
CREATE TABLE IF NOT EXISTS stock_snapshots (
	symbol TEXT PRIMARY KEY,
	data JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stock_snapshots_fetched_at ON stock_snapshots(fetched_at);
`
