package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// dialect is what Open needs to know per driver.
type dialect struct {
	sqlName    string // database/sql driver name
	defaultDSN string
	schema     string
	maxConns   int // 0 leaves the pool unbounded
}

var dialects = map[Driver]dialect{
	// modernc allows one writer at a time
	DriverSQLite: {
		sqlName:    "sqlite",
		defaultDSN: "file:historie-q.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)",
		schema:     schemaSQLite,
		maxConns:   1,
	},
	DriverPostgres: {
		sqlName:    "pgx",
		defaultDSN: "postgres://localhost:5432/historieq?sslmode=disable",
		schema:     schemaPostgres,
	},
}

// Open connects to the kv/event_log database and creates both tables when
// missing. An empty dsn selects the driver's local default.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("db: unsupported driver %q", driver)
	}
	if dsn == "" {
		dsn = d.defaultDSN
	}
	h, err := sql.Open(d.sqlName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", driver, err)
	}
	if d.maxConns > 0 {
		h.SetMaxOpenConns(d.maxConns)
	}
	if err := h.PingContext(ctx); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("db: ping %s: %w", driver, err)
	}
	if _, err := h.ExecContext(ctx, d.schema); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("db: schema: %w", err)
	}
	return h, nil
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
