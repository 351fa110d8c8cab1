// Package store implements wikitool's SQLite-backed storage layer:
// pages, the derived index tables index builds from parsed wikitext,
// full-text search, sync audit log, and versioned migrations.
// Grounded on the teacher's internal/db/database.go — connection
// string parsing, WAL pragmas, and the versioned migration runner are
// carried over near-verbatim and generalized to wikitool's schema.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	engine "github.com/remiliacorporation/wikitool/internal/errs"
	"github.com/remiliacorporation/wikitool/internal/hashutil"
)

func checksumOf(sql string) string {
	return hashutil.Migration(sql)
}

// Store wraps the SQLite connection and exposes wikitool's typed
// storage operations.
type Store struct {
	conn *sql.DB
}

// Open parses a sqlite:// URI (or a bare path) and opens the
// database, enabling WAL mode and foreign keys for file-backed
// databases. Mirrors the teacher's db.Open.
func Open(uri string) (*Store, error) {
	dbPath := uri
	switch {
	case strings.HasPrefix(uri, "sqlite:///"):
		dbPath = strings.TrimPrefix(uri, "sqlite:///")
	case strings.HasPrefix(uri, "sqlite://"):
		dbPath = strings.TrimPrefix(uri, "sqlite://")
	}
	if dbPath == ":memory:" || dbPath == "" {
		dbPath = ":memory:"
	}

	connStr := dbPath
	if dbPath != ":memory:" {
		connStr = dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=1"
	} else {
		connStr = dbPath + "?_foreign_keys=1"
	}

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, "", fmt.Errorf("opening database: %w", err))
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, engine.Newf(engine.KindFilesystemError, "", fmt.Errorf("pinging database: %w", err))
	}

	return &Store{conn: conn}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// DB returns the underlying *sql.DB for packages (index builder) that
// need to run their own statements inside a caller-managed transaction.
func (s *Store) DB() *sql.DB {
	return s.conn
}

// WithTx runs fn inside a transaction, committing on success and
// rolling back on error or panic. Every multi-row write in wikitool
// goes through this, per spec.md §4.4's "all multi-row writes run in
// a single transaction".
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return engine.Newf(engine.KindFilesystemError, "", fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return engine.Newf(engine.KindFilesystemError, "", fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// Migrate applies every unapplied migration in order, recording each
// in schema_migrations and mirroring the latest version into
// config.schema_version. A migration failure rolls back only that
// migration — prior successes remain applied.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, migrationsTableDDL); err != nil {
		return engine.Newf(engine.KindMigrationFailed, "", fmt.Errorf("creating schema_migrations: %w", err))
	}

	applied := make(map[string]bool)
	rows, err := s.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return engine.Newf(engine.KindMigrationFailed, "", fmt.Errorf("reading schema_migrations: %w", err))
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return engine.Newf(engine.KindMigrationFailed, "", err)
		}
		applied[v] = true
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return engine.Newf(engine.KindMigrationFailed, m.version, err)
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %s (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)`,
			m.version, m.name, checksumOf(m.sql), time.Now().UTC().Format(time.RFC3339)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO config (key, value) VALUES ('schema_version', ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, m.version)
		return err
	})
}

// SchemaStatus reports whether every table migrations are expected to
// have created actually exists, per spec.md's schema validity check.
type SchemaStatus struct {
	Valid           bool
	CurrentVersion  string
	ExpectedVersion string
	MissingTables   []string
}

var requiredTables = []string{
	"pages", "categories", "page_categories", "page_links", "redirects",
	"template_usage", "template_calls", "template_params", "infobox_kv",
	"page_sections", "page_sections_fts", "template_metadata", "module_deps",
	"cargo_tables", "cargo_stores", "cargo_queries", "docs_fts",
	"extension_doc_pages", "technical_docs", "config", "sync_log", "schema_migrations",
}

// ValidateSchema checks the required table set against sqlite_master.
func (s *Store) ValidateSchema(ctx context.Context) (SchemaStatus, error) {
	status := SchemaStatus{ExpectedVersion: migrations[len(migrations)-1].version}

	existing := make(map[string]bool)
	rows, err := s.conn.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type IN ('table','view')`)
	if err != nil {
		return status, engine.Newf(engine.KindSchemaMismatch, "", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return status, engine.Newf(engine.KindSchemaMismatch, "", err)
		}
		existing[name] = true
	}

	for _, t := range requiredTables {
		if !existing[t] {
			status.MissingTables = append(status.MissingTables, t)
		}
	}

	var current sql.NullString
	_ = s.conn.QueryRowContext(ctx, `SELECT value FROM config WHERE key = 'schema_version'`).Scan(&current)
	status.CurrentVersion = current.String

	status.Valid = len(status.MissingTables) == 0 && status.CurrentVersion == status.ExpectedVersion
	return status, nil
}
