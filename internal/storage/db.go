package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver (registers "sqlite")

	"review_gateway/internal/models"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// DB wraps the database connection and provides health checks
type DB struct {
	conn   *sqlx.DB
	driver string

	// Cache for prompts, which are read on every review
	promptCache *LRUCache[*models.Prompt]
}

// DBConfig holds database configuration
type DBConfig struct {
	Driver string
	DSN    string

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Cache settings
	PromptCacheSize int
	PromptCacheTTL  time.Duration
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() DBConfig {
	return DBConfig{
		Driver: DriverSQLite,
		DSN:    "file:review_gateway.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",

		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,

		PromptCacheSize: 100,
		PromptCacheTTL:  5 * time.Minute,
	}
}

// NewDB opens the database, applies the schema and sets up caching
func NewDB(ctx context.Context, cfg DBConfig) (*DB, error) {
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer; one connection keeps transactions serial.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.PromptCacheSize <= 0 {
		cfg.PromptCacheSize = 100
	}
	if cfg.PromptCacheTTL <= 0 {
		cfg.PromptCacheTTL = 5 * time.Minute
	}

	db := &DB{
		conn:        conn,
		driver:      cfg.Driver,
		promptCache: NewLRUCache[*models.Prompt](cfg.PromptCacheSize, cfg.PromptCacheTTL),
	}

	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the database connection and clears caches
func (db *DB) Close() error {
	db.promptCache.Clear()
	return db.conn.Close()
}

// Ping checks if the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Health returns the health status of the database
func (db *DB) Health(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	if err := db.conn.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}

	return nil
}

// Driver returns the configured driver name
func (db *DB) Driver() string {
	return db.driver
}

// BeginTx starts a new transaction
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return db.conn.BeginTxx(ctx, opts)
}

// Conn returns the underlying sqlx connection
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// rebind converts "?" placeholders to the driver's bindvar style
func (db *DB) rebind(query string) string {
	return db.conn.Rebind(query)
}

// inTx runs fn inside a transaction, rolling back on error
func (db *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Repository factory methods

// NewProviderRepository creates a new provider repository
func (db *DB) NewProviderRepository() *ProviderRepository {
	return NewProviderRepository(db)
}

// NewPromptRepository creates a new prompt repository
func (db *DB) NewPromptRepository() *PromptRepository {
	return NewPromptRepository(db)
}

// NewAuditRepository creates a new review audit repository
func (db *DB) NewAuditRepository() *AuditRepository {
	return NewAuditRepository(db)
}
