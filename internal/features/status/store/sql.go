package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/migrations"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const pingTimeout = 5 * time.Second

// SQLKV stores keys in the status_kv table of a sqlite or postgres database
type SQLKV struct {
	db  *core.Database
	now func() time.Time
}

var _ KV = (*SQLKV)(nil)

// NewSQLKV wraps an already migrated database
func NewSQLKV(db *core.Database) *SQLKV {
	return &SQLKV{db: db, now: time.Now}
}

// Get implements KV
func (s *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	row, cancel := s.db.QueryRowWithTimeout(ctx, `SELECT value, expires_at FROM status_kv WHERE key = ?`, key)
	defer cancel()

	var value string
	var expiresAt sql.NullInt64
	if err := row.Scan(&value, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}

	if expiresAt.Valid && s.now().UnixMilli() >= expiresAt.Int64 {
		return "", false, nil
	}
	return value, true, nil
}

// Put implements KV
func (s *SQLKV) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	now := s.now()
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: now.Add(ttl).UnixMilli(), Valid: true}
	}

	query := `
		INSERT INTO status_kv (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`

	if _, err := s.db.ExecWithTimeout(ctx, query, key, value, expiresAt, now.UnixMilli()); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes rows whose expiry has passed
func (s *SQLKV) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecWithTimeout(ctx, `DELETE FROM status_kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired keys: %w", err)
	}
	return res.RowsAffected()
}

// Close implements KV
func (s *SQLKV) Close() error {
	s.db.LogStats()
	return s.db.Close()
}

// OpenSQLite opens (creating if needed) a sqlite database at path
func OpenSQLite(path string, logger *core.Logger) (*core.Database, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite serialises writers; a single connection also keeps :memory: coherent
	db.SetMaxOpenConns(1)

	database := core.NewDatabase(db, logger)
	if err := database.PingWithTimeout(pingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return database, nil
}

// OpenPostgres connects to the postgres database at connStr
func OpenPostgres(connStr string, logger *core.Logger) (*core.Database, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := core.NewDatabaseWithDialect(db, core.DialectPostgres, logger)
	if err := database.PingWithTimeout(pingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return database, nil
}

// Open builds the KV backend selected by cfg and brings its schema up to date
func Open(ctx context.Context, cfg core.StoreConfig, logger *core.Logger) (KV, error) {
	var (
		db  *core.Database
		err error
	)

	switch cfg.Driver {
	case core.StoreDriverMemory:
		logger.Warn("Using in-memory store; state is lost on restart")
		return NewMemoryKV(), nil
	case core.StoreDriverPostgres:
		db, err = OpenPostgres(cfg.DatabaseURL, logger)
	case core.StoreDriverSQLite, "":
		db, err = OpenSQLite(cfg.Path, logger)
	default:
		return nil, core.NewConfigurationError(fmt.Sprintf("unknown store driver %q", cfg.Driver), nil)
	}
	if err != nil {
		return nil, core.NewStoreError("failed to open store", err)
	}

	if err := migrations.NewManager(db, logger).Migrate(ctx); err != nil {
		db.Close()
		return nil, core.NewStoreError("failed to migrate store", err)
	}

	logger.Info("Store ready", "driver", db.Dialect())
	return NewSQLKV(db), nil
}
