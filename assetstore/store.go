// Package assetstore is the dynamic schema, query and bulk mutation core of
// the asset inventory.
//
// An asset table's columns are derived from a user-edited template. The
// Store adds columns as templates grow but never drops them, builds
// parameterized filters from user-chosen clauses, and applies bulk changes
// to the records a filter selects in a single transaction.
package assetstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arthur-debert/assetstore/assetstore/fields"
	"github.com/arthur-debert/assetstore/types"
)

//go:embed sql/schema/base_schema.sql
var baseSchemaSQL string

// DefaultTable is the asset table used when Options.Table is empty.
const DefaultTable = "assets"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Options configures Open.
type Options struct {
	// Table names the asset table. Defaults to DefaultTable.
	Table string

	// Registry supplies field metadata. Defaults to an empty registry.
	Registry *fields.Registry

	// Logger receives schema changes, retries and generated SQL.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// Actor is recorded as created_by/modified_by.
	Actor string

	// BusyTimeout is how long SQLite itself waits on a locked database
	// before reporting busy. Defaults to 5s.
	BusyTimeout time.Duration

	// Retry bounds the store's own retries of busy errors.
	Retry RetryPolicy

	// LockFactory creates the cross-process writer lock. Defaults to
	// FlockFactory. Ignored for in-memory databases.
	LockFactory FileLockFactory

	// LockTimeout bounds the wait for the writer lock. Defaults to 30s.
	LockTimeout time.Duration

	// Clock overrides time.Now, mainly for tests.
	Clock func() time.Time
}

// Store is an open asset database bound to one asset table.
type Store struct {
	db          *sql.DB
	path        string
	table       string
	registry    *fields.Registry
	logger      *slog.Logger
	actor       string
	sqlBuilder  *sqlBuilder
	locks       *lockManager
	fileLock    FileLock
	lockTimeout time.Duration
	retry       RetryPolicy
	now         func() time.Time

	// template holds the field specs passed to the last Synchronize.
	template atomic.Pointer[[]types.FieldSpec]

	// beforeAddColumn is a test hook run before each column is added.
	beforeAddColumn func(name string) error
}

// Open opens or creates the database at path and ensures the asset table
// and auxiliary tables exist.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if err := validateTableName(opts.Table); err != nil {
		return nil, err
	}
	if opts.Registry == nil {
		opts.Registry = fields.NewRegistry(fields.Settings{})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 30 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	opts.Retry = opts.Retry.withDefaults()

	inMemory := path == MemoryPath
	db, err := sql.Open("sqlite", buildDSN(path, opts.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if inMemory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:          db,
		path:        path,
		table:       opts.Table,
		registry:    opts.Registry,
		logger:      opts.Logger.With("table", opts.Table),
		actor:       opts.Actor,
		sqlBuilder:  newSQLBuilder(),
		locks:       newLockManager(),
		lockTimeout: opts.LockTimeout,
		retry:       opts.Retry,
		now:         opts.Clock,
	}

	if !inMemory {
		factory := opts.LockFactory
		if factory == nil {
			factory = &FlockFactory{}
		}
		s.fileLock = factory.New(path + ".lock")
	}

	if err := s.migrateBase(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run base migrations: %w", err)
	}

	return s, nil
}

// buildDSN sets per-connection pragmas through the driver's DSN so every
// pooled connection gets them.
func buildDSN(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_txlock", "immediate")
	if path != MemoryPath {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + path + "?" + q.Encode()
}

// Close releases database resources
func (s *Store) Close() error {
	return s.db.Close()
}

// Table returns the asset table name.
func (s *Store) Table() string { return s.table }

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Registry returns the field registry the store consults.
func (s *Store) Registry() *fields.Registry { return s.registry }

// DB exposes the underlying handle for collaborators such as exporters.
func (s *Store) DB() *sql.DB { return s.db }

// WithActor returns a shallow copy of the store that records actor as the
// modifying user. The copy shares the connection pool and locks.
func (s *Store) WithActor(actor string) *Store {
	c := &Store{
		db:          s.db,
		path:        s.path,
		table:       s.table,
		registry:    s.registry,
		logger:      s.logger,
		actor:       actor,
		sqlBuilder:  s.sqlBuilder,
		locks:       s.locks,
		fileLock:    s.fileLock,
		lockTimeout: s.lockTimeout,
		retry:       s.retry,
		now:         s.now,

		beforeAddColumn: s.beforeAddColumn,
	}
	if t := s.template.Load(); t != nil {
		c.template.Store(t)
	}
	return c
}

// migrateBase creates the auxiliary tables and the asset table.
func (s *Store) migrateBase(ctx context.Context) error {
	return s.withRetry(ctx, "migrate", func() error {
		if _, err := s.db.ExecContext(ctx, baseSchemaSQL); err != nil {
			return fmt.Errorf("failed to create base schema: %w", err)
		}
		for _, ddl := range newSchemaBuilder(s.table).generateBaseTable() {
			if _, err := s.db.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("failed to create asset table: %w", err)
			}
		}
		return nil
	})
}

// timestamp formats t the way system timestamps are stored.
func (s *Store) timestamp() string {
	return s.now().UTC().Format(types.TimestampLayout)
}

func (s *Store) logQuery(operation, query string, args []interface{}) {
	s.logger.Debug("sql_query", "operation", operation, "sql", query, "args", args)
}

func validateTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("invalid table name %q: use letters, digits and underscores", name)
		}
	}
	switch strings.ToLower(name) {
	case "schema_versions", "saved_searches", "presets", "asset_audit_log":
		return fmt.Errorf("table name %q is reserved", name)
	}
	return nil
}
