package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/LerianStudio/lib-signals/signals/internal/nilcheck"
	libLog "github.com/LerianStudio/lib-signals/signals/log"
	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	driverName             = "pgx"
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

var (
	ErrPrimaryDSNRequired    = errors.New("primary dsn is required")
	ErrConnectionRequired    = errors.New("postgres connection is required")
	ErrInvalidMigrationsPath = errors.New("invalid migrations path")

	dbOpenFn = sql.Open

	createResolverFn = func(primaryDB, replicaDB *sql.DB) (_ dbresolver.DB, err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("create resolver: %v", recovered)
			}
		}()

		connectionDB := dbresolver.New(
			dbresolver.WithPrimaryDBs(primaryDB),
			dbresolver.WithReplicaDBs(replicaDB),
			dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB),
		)

		if connectionDB == nil {
			return nil, errors.New("resolver returned nil connection")
		}

		return connectionDB, nil
	}

	runMigrationsFn = runMigrations

	connectionStringCredentialsPattern = regexp.MustCompile(`://[^@\s]+@`)
	connectionStringPasswordPattern    = regexp.MustCompile(`(?i)(password=)([^\s&]+)`)
)

// Config describes the primary and replica databases.
type Config struct {
	PrimaryDSN string
	// ReplicaDSN defaults to PrimaryDSN.
	ReplicaDSN string
	// MigrationsPath is a directory of golang-migrate files applied on
	// Connect. Empty skips migrations.
	MigrationsPath     string
	MaxOpenConnections int
	MaxIdleConnections int
	Logger             libLog.Logger
}

func (cfg Config) withDefaults() Config {
	if nilcheck.Interface(cfg.Logger) {
		cfg.Logger = libLog.NewNop()
	}

	if strings.TrimSpace(cfg.ReplicaDSN) == "" {
		cfg.ReplicaDSN = cfg.PrimaryDSN
	}

	if cfg.MaxOpenConnections <= 0 {
		cfg.MaxOpenConnections = defaultMaxOpenConns
	}

	if cfg.MaxIdleConnections <= 0 {
		cfg.MaxIdleConnections = defaultMaxIdleConns
	}

	return cfg
}

// Client holds a read/write split connection pool.
type Client struct {
	resolver dbresolver.DB
	primary  *sql.DB
	logger   libLog.Logger
}

// Connect opens the primary and replica pools, applies migrations and pings.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg = cfg.withDefaults()

	if strings.TrimSpace(cfg.PrimaryDSN) == "" {
		return nil, ErrPrimaryDSNRequired
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled before database connection: %w", err)
	}

	logger := cfg.Logger

	primary, err := openDB(cfg.PrimaryDSN, cfg)
	if err != nil {
		logger.Log(ctx, libLog.LevelError, "failed to open primary database", libLog.String("error", err.Error()))

		return nil, fmt.Errorf("open primary database: %w", err)
	}

	var success bool

	defer func() {
		if !success {
			_ = primary.Close()
		}
	}()

	replica, err := openDB(cfg.ReplicaDSN, cfg)
	if err != nil {
		logger.Log(ctx, libLog.LevelError, "failed to open replica database", libLog.String("error", err.Error()))

		return nil, fmt.Errorf("open replica database: %w", err)
	}

	defer func() {
		if !success {
			_ = replica.Close()
		}
	}()

	resolver, err := createResolverFn(primary, replica)
	if err != nil {
		return nil, fmt.Errorf("create resolver: %w", err)
	}

	if cfg.MigrationsPath != "" {
		migrationsPath, err := sanitizePath(cfg.MigrationsPath)
		if err != nil {
			return nil, err
		}

		if err := runMigrationsFn(ctx, primary, migrationsPath, logger); err != nil {
			return nil, err
		}
	}

	if err := resolver.PingContext(ctx); err != nil {
		sanitized := sanitizeSensitiveString(err.Error())
		logger.Log(ctx, libLog.LevelError, "failed to ping database", libLog.String("error", sanitized))

		return nil, fmt.Errorf("ping database: %w", &sanitizedError{original: err, message: sanitized})
	}

	logger.Log(ctx, libLog.LevelInfo, "connected to postgres")

	success = true

	return &Client{resolver: resolver, primary: primary, logger: logger}, nil
}

func openDB(dsn string, cfg Config) (*sql.DB, error) {
	db, err := dbOpenFn(driverName, dsn)
	if err != nil {
		return nil, &sanitizedError{original: err, message: sanitizeSensitiveString(err.Error())}
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	return db, nil
}

// Resolver returns the read/write split pool.
//
//nolint:ireturn
func (c *Client) Resolver() dbresolver.DB {
	if c == nil {
		return nil
	}

	return c.resolver
}

// Primary returns the primary pool. Transactions always run here.
func (c *Client) Primary() *sql.DB {
	if c == nil {
		return nil
	}

	return c.primary
}

// Resource returns a txn.Resource on the primary pool.
func (c *Client) Resource(opts ...ResourceOption) (*Resource, error) {
	if c == nil {
		return nil, ErrConnectionRequired
	}

	return NewResource(c.primary, opts...)
}

// Close releases both pools.
func (c *Client) Close() error {
	if c == nil || c.resolver == nil {
		return nil
	}

	return c.resolver.Close()
}

// sanitizedError carries a redacted message while keeping the original error
// reachable for errors.Is and errors.As.
type sanitizedError struct {
	original error
	message  string
}

func (e *sanitizedError) Error() string { return e.message }

func (e *sanitizedError) Unwrap() error { return e.original }

func sanitizeSensitiveString(value string) string {
	sanitized := connectionStringCredentialsPattern.ReplaceAllString(value, "://***@")

	return connectionStringPasswordPattern.ReplaceAllString(sanitized, "${1}***")
}

func sanitizePath(path string) (string, error) {
	cleaned := filepath.Clean(path)

	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidMigrationsPath, path)
		}
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}

	return absPath, nil
}

func runMigrations(ctx context.Context, primary *sql.DB, migrationsPath string, logger libLog.Logger) error {
	sourceURL := url.URL{Scheme: "file", Path: filepath.ToSlash(migrationsPath)}

	driver, err := migratepg.WithInstance(primary, &migratepg.Config{SchemaName: "public"})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL.String(), "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			logger.Log(ctx, libLog.LevelInfo, "no new migrations found")

			return nil
		case errors.Is(err, os.ErrNotExist):
			logger.Log(ctx, libLog.LevelWarn, "no migration files found, skipping migration step")

			return nil
		}

		var dirtyErr migrate.ErrDirty
		if errors.As(err, &dirtyErr) {
			return fmt.Errorf("migration failed: dirty database version %d", dirtyErr.Version)
		}

		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Log(ctx, libLog.LevelInfo, "migrations applied", libLog.String("path", migrationsPath))

	return nil
}
