package store

// migration is a single schema change applied exactly once.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "tenants_and_services",
		SQL: `
			CREATE TABLE tenants (
				id         TEXT PRIMARY KEY,
				name       TEXT NOT NULL,
				created_at TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE services (
				id               TEXT PRIMARY KEY,
				tenant_id        TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
				name             TEXT NOT NULL,
				price            REAL NOT NULL DEFAULT 0,
				duration_minutes INTEGER NOT NULL,
				created_at       TEXT NOT NULL DEFAULT (datetime('now'))
			);
			CREATE INDEX idx_services_tenant ON services(tenant_id);

			CREATE TABLE opening_hours (
				tenant_id  TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
				weekday    INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
				open_time  TEXT NOT NULL,
				close_time TEXT NOT NULL,
				PRIMARY KEY (tenant_id, weekday)
			);
		`,
	},
	{
		Version: 2,
		Name:    "customers",
		SQL: `
			CREATE TABLE customers (
				id         TEXT PRIMARY KEY,
				phone      TEXT NOT NULL UNIQUE,
				name       TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE tenant_customers (
				tenant_id   TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
				customer_id TEXT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				PRIMARY KEY (tenant_id, customer_id)
			);
		`,
	},
	{
		Version: 3,
		Name:    "appointments",
		SQL: `
			CREATE TABLE appointments (
				id          TEXT PRIMARY KEY,
				tenant_id   TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
				customer_id TEXT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
				service_id  TEXT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
				starts_at   TEXT NOT NULL,
				ends_at     TEXT NOT NULL,
				status      TEXT NOT NULL DEFAULT 'confirmed',
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);
			CREATE INDEX idx_appointments_tenant_day ON appointments(tenant_id, starts_at);
		`,
	},
	{
		Version: 4,
		Name:    "usage_records",
		SQL: `
			CREATE TABLE usage_records (
				id                TEXT PRIMARY KEY,
				tenant_id         TEXT NOT NULL,
				model             TEXT NOT NULL,
				prompt_tokens     INTEGER NOT NULL DEFAULT 0,
				completion_tokens INTEGER NOT NULL DEFAULT 0,
				total_tokens      INTEGER NOT NULL DEFAULT 0,
				billing_period    TEXT NOT NULL,
				recorded_at       TEXT NOT NULL DEFAULT (datetime('now'))
			);
			CREATE INDEX idx_usage_tenant_period ON usage_records(tenant_id, billing_period);
		`,
	},
}
