package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/AssetRecon/internal/config"
	"github.com/JonMunkholm/AssetRecon/internal/core"
)

// Postgres publishes each dataset category to its own table. A table is
// dropped, recreated and filled with COPY inside one transaction, so
// readers see either the previous run or the new one.
type Postgres struct {
	pool        *pgxpool.Pool
	prefix      string
	columnTypes map[string]core.ColumnType
}

// NewPostgres creates a Postgres sink on an existing pool. columnTypes
// types the columns of the valid dataset; other fields are text.
func NewPostgres(pool *pgxpool.Pool, prefix string, columnTypes map[string]core.ColumnType) *Postgres {
	return &Postgres{pool: pool, prefix: prefix, columnTypes: columnTypes}
}

// ConnectPostgres opens and verifies a connection pool.
func ConnectPostgres(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Name implements core.Sink.
func (p *Postgres) Name() string { return config.SinkPostgres }

// Replace implements core.Sink.
func (p *Postgres) Replace(ctx context.Context, ds core.Dataset) error {
	t := newTable(p.prefix, ds, p.columnTypes)
	ident := pgx.Identifier{t.name}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
		return fmt.Errorf("drop %s: %w", t.name, err)
	}
	if _, err := tx.Exec(ctx, createTableSQL(t)); err != nil {
		return fmt.Errorf("create %s: %w", t.name, err)
	}

	copied, err := tx.CopyFrom(ctx, ident, t.columns(),
		pgx.CopyFromSlice(t.len(), func(i int) ([]any, error) {
			return t.row(i, pgValue), nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy into %s: %w", t.name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", t.name, err)
	}

	slog.Debug("postgres table replaced", "table", t.name, "rows", copied)
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// createTableSQL builds the CREATE TABLE statement for t.
func createTableSQL(t table) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(pgx.Identifier{t.name}.Sanitize())
	b.WriteString(" (")
	for i, f := range t.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{f}.Sanitize())
		b.WriteString(" ")
		b.WriteString(pgType(t.types[i]))
	}
	if t.reasons {
		b.WriteString(", ")
		b.WriteString(pgx.Identifier{core.ReasonsColumn}.Sanitize())
		b.WriteString(" text")
	}
	b.WriteString(", ")
	b.WriteString(pgx.Identifier{ColumnSource}.Sanitize())
	b.WriteString(" text, ")
	b.WriteString(pgx.Identifier{ColumnLine}.Sanitize())
	b.WriteString(" bigint)")
	return b.String()
}
