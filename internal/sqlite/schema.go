package sqlite

// dbFile is the draft database inside the data directory.
const dbFile = "drafts.db"

const createDrafts = `CREATE TABLE IF NOT EXISTS drafts (
    draft_id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    name TEXT NOT NULL,
    record TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

const createDraftsUpdatedIndex = `CREATE INDEX IF NOT EXISTS idx_drafts_updated ON drafts(updated_at);`

// schemaStatements are executed in order on attach.
var schemaStatements = []string{
	createDrafts,
	createDraftsUpdatedIndex,
}
