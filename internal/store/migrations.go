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
		Name:    "create spawn and forward audit tables",
		SQL: `
			CREATE TABLE spawns (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				proxy_id    TEXT NOT NULL,
				child_id    TEXT NOT NULL DEFAULT '',
				workflow    TEXT NOT NULL DEFAULT '',
				config_json TEXT NOT NULL,
				success     INTEGER NOT NULL,
				error       TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_spawns_proxy ON spawns (proxy_id);

			CREATE TABLE forwards (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				proxy_id    TEXT NOT NULL,
				message_id  TEXT NOT NULL,
				kind        TEXT NOT NULL,
				outcome     TEXT NOT NULL,
				error       TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_forwards_proxy ON forwards (proxy_id, id);
		`,
	},
}
