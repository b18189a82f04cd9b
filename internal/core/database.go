package core

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect identifies the SQL flavour behind a Database
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// queryTimeout bounds every statement issued through the wrapper
const queryTimeout = 30 * time.Second

// Database wraps sql.DB with additional functionality
type Database struct {
	*sql.DB
	dialect Dialect
	logger  *Logger
}

// NewDatabase creates a new database wrapper for a sqlite connection
func NewDatabase(db *sql.DB, logger *Logger) *Database {
	return NewDatabaseWithDialect(db, DialectSQLite, logger)
}

// NewDatabaseWithDialect creates a new database wrapper for the given dialect
func NewDatabaseWithDialect(db *sql.DB, dialect Dialect, logger *Logger) *Database {
	return &Database{
		DB:      db,
		dialect: dialect,
		logger:  logger,
	}
}

// Dialect returns the SQL dialect of the connection
func (db *Database) Dialect() Dialect {
	return db.dialect
}

// Rebind rewrites '?' placeholders into the connection's native form
func (db *Database) Rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Transaction executes a function within a database transaction
func (db *Database) Transaction(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return err
}

// PingWithTimeout pings the database with a timeout
func (db *Database) PingWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return db.PingContext(ctx)
}

// QueryRowWithTimeout executes a query row with a timeout.
// The returned cancel func must be called once the row has been scanned.
func (db *Database) QueryRowWithTimeout(ctx context.Context, query string, args ...any) (*sql.Row, context.CancelFunc) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	return db.QueryRowContext(queryCtx, db.Rebind(query), args...), cancel
}

// QueryWithTimeout executes a query with a timeout.
// The returned cancel func must be called once rows are closed.
func (db *Database) QueryWithTimeout(ctx context.Context, query string, args ...any) (*sql.Rows, context.CancelFunc, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	rows, err := db.QueryContext(queryCtx, db.Rebind(query), args...)
	if err != nil {
		cancel()
		return nil, func() {}, err
	}
	return rows, cancel, nil
}

// ExecWithTimeout executes a command with a timeout
func (db *Database) ExecWithTimeout(ctx context.Context, query string, args ...any) (sql.Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return db.ExecContext(queryCtx, db.Rebind(query), args...)
}

// Close closes the database connection
func (db *Database) Close() error {
	db.logger.Info("Closing database connection", "dialect", db.dialect)
	return db.DB.Close()
}

// LogStats logs database statistics
func (db *Database) LogStats() {
	stats := db.Stats()
	db.logger.Info("Database stats",
		"dialect", db.dialect,
		"open_connections", stats.OpenConnections,
		"in_use", stats.InUse,
		"idle", stats.Idle,
		"wait_count", stats.WaitCount,
		"wait_duration", stats.WaitDuration,
	)
}
