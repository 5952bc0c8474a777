package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/healthsync/internal/client/migrations"
	"github.com/dmitrijs2005/healthsync/internal/client/repositories/cache"
	"github.com/dmitrijs2005/healthsync/internal/client/repositories/dependents"
	"github.com/dmitrijs2005/healthsync/internal/client/repositories/parents"
	"github.com/dmitrijs2005/healthsync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/healthsync/internal/dbx"
	"github.com/dmitrijs2005/healthsync/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// pragmas applied to every connection.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"synchronous(FULL)",
}

// Store is the local database and the repositories bound to it.
type Store struct {
	db *sql.DB

	Parents    parents.Repository
	Dependents dependents.Repository
	Queue      queue.Repository
	Cache      cache.Repository
}

// Tx exposes the record and queue repositories bound to one transaction.
type Tx struct {
	Parents    parents.Repository
	Dependents dependents.Repository
	Queue      queue.Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// DSN turns a database file path into a modernc.org/sqlite DSN carrying the
// store pragmas.
func DSN(path string) string {
	var b strings.Builder
	if !strings.HasPrefix(path, "file:") {
		b.WriteString("file:")
	}
	b.WriteString(path)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if !isMemory(path) {
		if err := filex.EnsureParentDir(strings.TrimPrefix(path, "file:")); err != nil {
			return nil, fmt.Errorf("failed to prepare database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: every read and write is serialized, and an in-memory
	// database survives for the life of the Store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return New(db), nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{
		db:         db,
		Parents:    parents.NewSQLiteRepository(db),
		Dependents: dependents.NewSQLiteRepository(db),
		Queue:      queue.NewSQLiteRepository(db),
		Cache:      cache.NewSQLiteRepository(db, nil),
	}
}

// Transaction runs fn atomically: either every write made through tx is
// committed or none is.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, q dbx.DBTX) error {
		return fn(ctx, &Tx{
			Parents:    parents.NewSQLiteRepository(q),
			Dependents: dependents.NewSQLiteRepository(q),
			Queue:      queue.NewSQLiteRepository(q),
		})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
