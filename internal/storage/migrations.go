package storage

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// LatestSchemaVersion is the version the newest migration produces.
const LatestSchemaVersion = 2

// migrations is the ordered list of schema migrations. The DDL sticks to the
// subset of SQL that sqlite and postgres share.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS care_plans (
	id         TEXT PRIMARY KEY,
	patient_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	active     INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS plan_items (
	id          TEXT PRIMARY KEY,
	plan_id     TEXT NOT NULL,
	external_id TEXT NOT NULL DEFAULT '',
	item_type   TEXT NOT NULL,
	name        TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	priority    INTEGER NOT NULL DEFAULT 3,
	active      INTEGER NOT NULL DEFAULT 1,
	frequency   TEXT NOT NULL DEFAULT 'daily',
	weekdays    TEXT NOT NULL DEFAULT '[]',
	skip_dates  TEXT NOT NULL DEFAULT '[]',
	windows     TEXT NOT NULL DEFAULT '[]',
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_instances (
	id            TEXT PRIMARY KEY,
	patient_id    TEXT NOT NULL,
	date          TEXT NOT NULL,
	item_id       TEXT NOT NULL,
	window_id     TEXT NOT NULL,
	scheduled_min INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	log_entry_id  TEXT NOT NULL DEFAULT '',
	snapshot      TEXT NOT NULL DEFAULT '{}',
	created_at    TIMESTAMP NOT NULL,
	UNIQUE (patient_id, date, item_id, window_id)
);

CREATE TABLE IF NOT EXISTS overrides (
	patient_id TEXT NOT NULL,
	date       TEXT NOT NULL,
	item_id    TEXT NOT NULL,
	window_id  TEXT NOT NULL,
	until_min  INTEGER NOT NULL,
	PRIMARY KEY (patient_id, date, item_id, window_id)
);

CREATE TABLE IF NOT EXISTS appointments (
	id         TEXT PRIMARY KEY,
	patient_id TEXT NOT NULL,
	date       TEXT NOT NULL,
	start_min  INTEGER NOT NULL,
	end_min    INTEGER NOT NULL,
	title      TEXT NOT NULL,
	location   TEXT NOT NULL DEFAULT '',
	completed  INTEGER NOT NULL DEFAULT 0,
	cancelled  INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS markers (
	name       TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plan_items_plan ON plan_items(plan_id);
CREATE INDEX IF NOT EXISTS idx_instances_patient_date ON daily_instances(patient_id, date);
CREATE INDEX IF NOT EXISTS idx_appointments_patient_date ON appointments(patient_id, date);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_instances_status ON daily_instances(status);
CREATE INDEX IF NOT EXISTS idx_plan_items_external ON plan_items(external_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
