// Package sqlkv provides the SQL storage operations shared by the sqlite and
// postgres drivers. It is database-agnostic and is embedded by the specific
// drivers, which own opening the connection.
//
// Every key lives in one flat table:
//
//	memories(memory_key TEXT PRIMARY KEY, memory_value TEXT NOT NULL)
//
// The schema is applied with goose migrations embedded in this package.
package sqlkv

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"unicode/utf8"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/pressly/goose/v3"

	"github.com/papercomputeco/mnemo/pkg/storage"
)

const (
	table    = "memories"
	colKey   = "memory_key"
	colValue = "memory_value"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Config configures the shared SQL driver.
type Config struct {
	// Dialect is the ent dialect name (dialect.SQLite or dialect.Postgres).
	Dialect string

	// GooseDialect is the matching goose dialect for migrations.
	GooseDialect goose.Dialect

	// Retry bounds per-operation timeouts and retries.
	Retry storage.RetryPolicy

	// IsTransient reports whether a database error is worth retrying.
	// Defaults to DefaultIsTransient.
	IsTransient func(error) bool
}

// Driver implements storage.Driver over a *sql.DB.
type Driver struct {
	DB *sql.DB

	dialect     string
	retry       storage.RetryPolicy
	isTransient func(error) bool
}

var _ storage.Driver = (*Driver)(nil)

// New migrates db to the latest schema and returns a driver over it.
// The caller keeps ownership of db until Close is called on the driver.
func New(ctx context.Context, db *sql.DB, c Config) (*Driver, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	if c.Dialect == "" {
		return nil, errors.New("dialect is required")
	}
	if c.IsTransient == nil {
		c.IsTransient = DefaultIsTransient
	}

	if err := Migrate(ctx, db, c.GooseDialect); err != nil {
		return nil, err
	}

	return &Driver{
		DB:          db,
		dialect:     c.Dialect,
		retry:       c.Retry,
		isTransient: c.IsTransient,
	}, nil
}

// Migrate applies every pending embedded migration.
func Migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect) error {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, migrations)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return nil
}

// Get retrieves the value for key.
func (d *Driver) Get(ctx context.Context, key string) (string, bool, error) {
	b := entsql.Dialect(d.dialect)
	query, args := b.Select(colValue).
		From(b.Table(table)).
		Where(entsql.EQ(colKey, key)).
		Query()

	var (
		value string
		found bool
	)
	err := storage.Retry(ctx, d.retry, "get", key, d.isTransient, func(ctx context.Context) error {
		err := d.DB.QueryRowContext(ctx, query, args...).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			value, found = "", false
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}

	return value, found, nil
}

// Set upserts value under key.
func (d *Driver) Set(ctx context.Context, key, value string) error {
	query, args := entsql.Dialect(d.dialect).
		Insert(table).
		Columns(colKey, colValue).
		Values(key, value).
		OnConflict(
			entsql.ConflictColumns(colKey),
			entsql.ResolveWithNewValues(),
		).
		Query()

	return storage.Retry(ctx, d.retry, "set", key, d.isTransient, func(ctx context.Context) error {
		_, err := d.DB.ExecContext(ctx, query, args...)
		return err
	})
}

// Delete removes key and reports whether a row was removed.
func (d *Driver) Delete(ctx context.Context, key string) (bool, error) {
	query, args := entsql.Dialect(d.dialect).
		Delete(table).
		Where(entsql.EQ(colKey, key)).
		Query()

	var affected int64
	err := storage.Retry(ctx, d.retry, "delete", key, d.isTransient, func(ctx context.Context) error {
		res, err := d.DB.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// ListKeys returns every key under prefix. The prefix is compared with
// substr rather than LIKE so wildcard characters and case folding never
// widen the match.
func (d *Driver) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	b := entsql.Dialect(d.dialect)
	query, args := b.Select(colKey).
		From(b.Table(table)).
		Where(hasPrefix(colKey, prefix)).
		Query()

	var keys []string
	err := storage.Retry(ctx, d.retry, "list", prefix, d.isTransient, func(ctx context.Context) error {
		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		keys = make([]string, 0)
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return err
			}
			keys = append(keys, key)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// Close closes the database handle.
func (d *Driver) Close() error {
	return d.DB.Close()
}

// hasPrefix builds `substr(col, 1, n) = prefix` where n counts characters.
func hasPrefix(col, prefix string) *entsql.Predicate {
	return entsql.P(func(b *entsql.Builder) {
		b.WriteString("substr(").
			Ident(col).
			WriteString(", 1, ").
			Arg(utf8.RuneCountInString(prefix)).
			WriteString(") = ").
			Arg(prefix)
	})
}

// DefaultIsTransient retries broken connections, network failures and
// per-attempt timeouts.
func DefaultIsTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
