package mysql_test

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// sqliteSchema mirrors migrations/0001_core.up.sql for the tables the store
// tests touch. The store only emits the SQL subset both engines accept.
const sqliteSchema = `
CREATE TABLE currencies (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  code TEXT NOT NULL,
  symbol TEXT NULL,
  exchange_rate REAL NULL,
  status INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  deleted_at DATETIME NULL
);
CREATE TABLE currency_translations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  currency_id INTEGER NOT NULL REFERENCES currencies(id),
  language_code TEXT NOT NULL,
  name TEXT NULL,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  deleted_at DATETIME NULL
);
CREATE TABLE audit_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  actor_id INTEGER NOT NULL DEFAULT 0,
  actor_type TEXT NOT NULL,
  process TEXT NOT NULL,
  table_name TEXT NOT NULL,
  target_id INTEGER NOT NULL DEFAULT 0,
  content TEXT NULL,
  created_at DATETIME NOT NULL
);
`

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// one connection, otherwise every pooled conn gets its own :memory: db
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(sqliteSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}
