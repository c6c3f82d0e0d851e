// Package sqlite provides a durable SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/papercomputeco/mnemo/pkg/storage"
	"github.com/papercomputeco/mnemo/pkg/storage/sqlkv"
)

// SQLiteDriver implements storage.Driver using SQLite via the shared sqlkv driver.
type SQLiteDriver struct {
	*sqlkv.Driver
}

// NewSQLiteDriver creates a new SQLite-backed driver.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDriver(ctx context.Context, dbPath string, retry storage.RetryPolicy) (*SQLiteDriver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:" databases
	// from splitting across pool connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	driver, err := sqlkv.New(ctx, db, sqlkv.Config{
		Dialect:      dialect.SQLite,
		GooseDialect: goose.DialectSQLite3,
		Retry:        retry,
		IsTransient:  isTransient,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteDriver{Driver: driver}, nil
}

// isTransient retries lock contention on top of the shared defaults.
func isTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return sqlkv.DefaultIsTransient(err)
}
