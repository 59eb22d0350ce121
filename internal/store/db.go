package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"dshbd-cli/internal/backend"
	"dshbd-cli/internal/logging"
)

var (
	_ backend.Backend          = (*DB)(nil)
	_ backend.BatchTaskUpdater = (*DB)(nil)
)

// DB is the local collaborator: boards, tasks and notes in one SQLite file.
// It implements backend.Backend and backend.BatchTaskUpdater.
type DB struct {
	db   *sql.DB
	path string
	log  *logrus.Entry
	// now is swapped in tests for fixed timestamps.
	now func() time.Time
}

const tsLayout = "2006-01-02T15:04:05.000Z"

// Open opens (and migrates) <dir>/dshbd.sqlite.
func Open(ctx context.Context, dir string) (*DB, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		d, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "dshbd.sqlite")
	// modernc.org/sqlite driver name is "sqlite".
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps the per-connection pragmas in effect for every statement.
	sqldb.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := sqldb.ExecContext(ctx, p); err != nil {
			_ = sqldb.Close()
			return nil, err
		}
	}
	s := &DB{db: sqldb, path: path, log: logging.For("store"), now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return s, nil
}

func (s *DB) Path() string { return s.path }

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) stamp() string { return s.now().UTC().Format(tsLayout) }

func (s *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS boards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			archived INTEGER NOT NULL DEFAULT 0,
			to_do_limit INTEGER NOT NULL DEFAULT 0,
			progress_limit INTEGER NOT NULL DEFAULT 0,
			auto_pull INTEGER NOT NULL DEFAULT 0,
			created_date TEXT NOT NULL,
			last_modified_date TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			board_id INTEGER NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			priority INTEGER NOT NULL DEFAULT 0,
			due_date TEXT,
			assignee TEXT,
			position INTEGER NOT NULL DEFAULT 0,
			created_date TEXT NOT NULL,
			last_modified_date TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS tasks_board_status ON tasks(board_id, status, position);`,
		`CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			created_date TEXT NOT NULL,
			last_modified_date TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(k, v) VALUES('schema_version', '1');`,
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
