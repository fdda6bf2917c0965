package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JonMunkholm/AssetRecon/internal/config"
	"github.com/JonMunkholm/AssetRecon/internal/core"
)

// SQLite publishes each dataset category to a table in a local database
// file. Every column is TEXT apart from the line number.
type SQLite struct {
	db     *sql.DB
	path   string
	prefix string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path, prefix string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; concurrent category replaces queue on the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &SQLite{db: db, path: path, prefix: prefix}, nil
}

// Name implements core.Sink.
func (s *SQLite) Name() string { return config.SinkSQLite }

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

// Replace implements core.Sink.
func (s *SQLite) Replace(ctx context.Context, ds core.Dataset) error {
	t := newTable(s.prefix, ds, nil)
	name := quoteIdent(t.name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("dropping %s: %w", t.name, err)
	}
	if _, err := tx.ExecContext(ctx, sqliteCreateSQL(t)); err != nil {
		return fmt.Errorf("creating %s: %w", t.name, err)
	}

	cols := t.columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(quoted, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")))
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < t.len(); i++ {
		if _, err := stmt.ExecContext(ctx, t.row(i, nil)...); err != nil {
			return fmt.Errorf("inserting into %s: %w", t.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	slog.Debug("sqlite table replaced", "table", t.name, "rows", t.len())
	return nil
}

// Count returns the number of rows published for category.
func (s *SQLite) Count(ctx context.Context, category string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+quoteIdent(TableName(s.prefix, category))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", category, err)
	}
	return n, nil
}

// Column returns the values of one column for category, in insert order.
func (s *SQLite) Column(ctx context.Context, category, column string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid",
		quoteIdent(column), quoteIdent(TableName(s.prefix, category))))
	if err != nil {
		return nil, fmt.Errorf("querying %s.%s: %w", category, column, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v.String)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func sqliteCreateSQL(t table) string {
	cols := t.columns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		typ := "TEXT"
		if c == ColumnLine && i == len(cols)-1 {
			typ = "INTEGER"
		}
		defs[i] = quoteIdent(c) + " " + typ
	}
	return "CREATE TABLE " + quoteIdent(t.name) + " (" + strings.Join(defs, ", ") + ")"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
