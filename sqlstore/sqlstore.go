// Package sqlstore provides SQL-backed storage implementations for bulgu
// services. It speaks to either a Postgres server (credentials read from a
// secrets file) or an embedded SQLite database used as the local fallback.
package sqlstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	"github.com/bulgusearch/bulgu"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Driver names accepted by NewDB.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// credentials is the shape of the external secrets file.
type credentials struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// DB represents a connection to the storage backend.
type DB struct {
	db     *sqlx.DB
	driver string
	dsn    string
}

// NewDB creates a DB for an explicit driver and DSN. Use ":memory:" with
// DriverSQLite for an in-memory database.
func NewDB(driver, dsn string) *DB {
	return &DB{driver: driver, dsn: dsn}
}

// OpenDefault resolves the backend from the storage configuration: it reads
// the credentials file and connects to the server it names; when the file is
// missing or the connection fails it falls back to the embedded SQLite
// database at the configured path.
func OpenDefault(cfg bulgu.StorageConfig) (*DB, error) {
	if raw, err := os.ReadFile(cfg.CredentialsPath); err == nil {
		var creds credentials
		if err := json.Unmarshal(raw, &creds); err == nil && creds.DSN != "" {
			driver := creds.Driver
			if driver == "" || driver == "postgres" {
				driver = DriverPostgres
			}
			db := NewDB(driver, creds.DSN)
			if err := db.Open(); err == nil {
				return db, nil
			}
		}
	}

	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db := NewDB(DriverSQLite, cfg.SQLitePath)
	if err := db.Open(); err != nil {
		return nil, err
	}
	return db, nil
}

// Open opens the connection and creates the schema if needed.
func (db *DB) Open() error {
	conn, err := sqlx.Open(db.driver, db.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if db.driver == DriverSQLite {
		// SQLite only supports one writer at a time, so limit to one
		// connection per stage session.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if db.driver == DriverSQLite {
		// Wait out lock contention instead of failing immediately; the
		// stages share the database file.
		if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set busy timeout: %w", err)
		}
		if db.dsn != ":memory:" {
			if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
				conn.Close()
				return fmt.Errorf("failed to enable WAL mode: %w", err)
			}
		}
		if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	db.db = conn

	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// Driver returns the active driver name.
func (db *DB) Driver() string { return db.driver }

// Rebind translates "?" placeholders to the active driver's bindvar style.
func (db *DB) Rebind(query string) string { return db.db.Rebind(query) }

// blobType returns the column type for binary payloads.
func (db *DB) blobType() string {
	if db.driver == DriverPostgres {
		return "BYTEA"
	}
	return "BLOB"
}

// createSchema creates the tables if they don't exist, including every
// physical partition of the inverted index. Partitions are created up front
// so stage transactions never issue DDL while holding a connection.
func (db *DB) createSchema() error {
	blob := db.blobType()
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS hosts (
			domain TEXT PRIMARY KEY,
			ip TEXT NOT NULL DEFAULT '',
			port INTEGER NOT NULL DEFAULT 0,
			status INTEGER NOT NULL DEFAULT 0,
			score DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_crawled TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_hosts_ip ON hosts(ip);
		CREATE INDEX IF NOT EXISTS idx_hosts_last_crawled ON hosts(last_crawled);

		CREATE TABLE IF NOT EXISTS pages (
			page_url TEXT PRIMARY KEY,
			status_code INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			body %[1]s,
			favicon %[1]s,
			robotstxt %[1]s,
			sitemap %[1]s,
			last_crawled TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_pages_last_crawled ON pages(last_crawled);

		CREATE TABLE IF NOT EXISTS url_frontier (
			url TEXT PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS backlinks (
			id TEXT PRIMARY KEY,
			source_url TEXT NOT NULL,
			target_url TEXT NOT NULL,
			anchor_text TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_backlinks_source ON backlinks(source_url);
		CREATE INDEX IF NOT EXISTS idx_backlinks_target ON backlinks(target_url);

		CREATE TABLE IF NOT EXISTS search_results (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL UNIQUE,
			results %[1]s NOT NULL
		);
	`, blob)

	if _, err := db.db.Exec(schema); err != nil {
		return err
	}

	for _, table := range allPartitions() {
		ddl := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				document_url TEXT NOT NULL,
				word TEXT NOT NULL,
				frequency INTEGER NOT NULL DEFAULT 0,
				location INTEGER NOT NULL DEFAULT 0,
				tag TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (document_url, word, location)
			);
			CREATE INDEX IF NOT EXISTS idx_%[1]s_word ON %[1]s(word);
		`, table)
		if _, err := db.db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

// indexPartitionKeys is the partition key space of the inverted index:
// one physical table per lowercase ASCII letter plus a default bucket for
// anything else (digits, non-Latin letters).
var indexPartitionKeys = func() []string {
	keys := make([]string, 0, 27)
	for c := 'a'; c <= 'z'; c++ {
		keys = append(keys, string(c))
	}
	return append(keys, "default")
}()

// partitionOf maps a word to its physical table name.
func partitionOf(word string) string {
	if word == "" {
		return "document_index_default"
	}
	c := word[0]
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	if c < 'a' || c > 'z' {
		return "document_index_default"
	}
	return "document_index_" + string(c)
}

// allPartitions returns every physical index table name.
func allPartitions() []string {
	tables := make([]string, 0, len(indexPartitionKeys))
	for _, key := range indexPartitionKeys {
		tables = append(tables, "document_index_"+key)
	}
	return tables
}
