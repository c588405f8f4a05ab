// Package pgx implements the storage interfaces on PostgreSQL with
// pgvector. One process may serve many concurrent requests; write locks per
// entity and canonical article are process-local, so deployments with
// multiple writers should front mutating work with a lease lock.
package pgx

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/tradl-labs/newsgraph/internal/util"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements the aggregate storage interface on a pgx pool.
//
// A Store should be created using NewStore.
type Store struct {
	pool *pgxpool.Pool

	entityLocks    *util.KeyedMutex
	canonicalLocks *util.KeyedMutex
}

// NewStore wraps an existing connection pool. The pool must register
// pgvector types in its AfterConnect hook.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:           pool,
		entityLocks:    util.NewKeyedMutex(),
		canonicalLocks: util.NewKeyedMutex(),
	}
}

// LockEntity acquires the write lock for one entity id.
func (s *Store) LockEntity(id string) func() {
	return s.entityLocks.Lock(id)
}

// LockCanonical acquires the write lock for one canonical article id.
func (s *Store) LockCanonical(id string) func() {
	return s.canonicalLocks.Lock(id)
}

// Migrate applies the embedded schema migrations.
func Migrate(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
