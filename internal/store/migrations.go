package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create outbox",
		SQL: `
			CREATE TABLE outbox (
				id          TEXT PRIMARY KEY,
				choice      TEXT NOT NULL DEFAULT '',
				kind        TEXT NOT NULL,
				image_url   TEXT NOT NULL DEFAULT '',
				longitude   REAL,
				latitude    REAL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_outbox_created ON outbox (created_at);
		`,
	},
	{
		Version: 2,
		Name:    "create uploads ledger",
		SQL: `
			CREATE TABLE uploads (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				name          TEXT NOT NULL,
				url           TEXT NOT NULL,
				backend       TEXT NOT NULL,
				content_type  TEXT NOT NULL DEFAULT '',
				size          INTEGER NOT NULL DEFAULT 0,
				source        TEXT NOT NULL DEFAULT '',
				created_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_uploads_name ON uploads (name);
		`,
	},
	{
		Version: 3,
		Name:    "create permission grants",
		SQL: `
			CREATE TABLE permission_grants (
				scope       TEXT PRIMARY KEY,
				status      TEXT NOT NULL,
				decided_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
}
