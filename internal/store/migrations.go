package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL DEFAULT '',
	sender     TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	snippet    TEXT NOT NULL DEFAULT '',
	fetched_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	message_id TEXT NOT NULL,
	summary    TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT '',
	extracted  TEXT NOT NULL DEFAULT '',
	model      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (message_id) REFERENCES messages(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_fetched_at ON messages(fetched_at);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
CREATE UNIQUE INDEX IF NOT EXISTS idx_analyses_message_id ON analyses(message_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
