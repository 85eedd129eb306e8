package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps the backlog database shared by the keyword backlog and run history.
type DB struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// Open connects to the database and applies pending migrations. For sqlite,
// dsn is a file path or ":memory:".
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	return open(ctx, driver, dsn, false)
}

// OpenReadOnly connects without creating, migrating or writing anything. A
// sqlite file that does not exist yet is served by an empty in-memory
// database, so readers see an empty backlog and no history.
func OpenReadOnly(ctx context.Context, driver, dsn string) (*DB, error) {
	if (driver == "" || driver == DriverSQLite) && dsn != ":memory:" {
		if _, err := os.Stat(dsn); errors.Is(err, os.ErrNotExist) {
			return open(ctx, DriverSQLite, ":memory:", false)
		}
	}
	return open(ctx, driver, dsn, true)
}

func open(ctx context.Context, driver, dsn string, readOnly bool) (*DB, error) {
	sb := sq.StatementBuilder.PlaceholderFormat(sq.Question)

	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
		switch {
		case dsn == ":memory:":
		case readOnly:
			dsn = "file:" + dsn + "?mode=ro"
		default:
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
	case DriverPostgres:
		sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	default:
		return nil, fmt.Errorf("unsupported backlog driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if driver == DriverSQLite {
		// ":memory:" databases exist per connection.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}

	d := &DB{db: db, sb: sb}
	if readOnly {
		return d, nil
	}
	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return d, nil
}

// Close releases the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parse migration version from %q: %w", entry.Name(), err)
		}

		query, args, err := d.sb.Select("COUNT(*)").From("schema_version").Where(sq.Eq{"version": version}).ToSql()
		if err != nil {
			return err
		}
		var applied int
		if err := d.db.QueryRowContext(ctx, query, args...).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if err := d.apply(ctx, version, string(content)); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) apply(ctx context.Context, version int, content string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, content); err != nil {
		tx.Rollback()
		return fmt.Errorf("apply migration %d: %w", version, err)
	}
	query, args, err := d.sb.Insert("schema_version").Columns("version", "applied_at").Values(version, nowText()).ToSql()
	if err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return fmt.Errorf("record migration %d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", version, err)
	}
	return nil
}

// AppliedMigrations lists applied versions in ascending order.
func (d *DB) AppliedMigrations(ctx context.Context) ([]int, error) {
	query, args, err := d.sb.Select("version").From("schema_version").OrderBy("version ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
