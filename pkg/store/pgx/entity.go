package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

const getEntitySQL = `
SELECT id, name, type, symbol, aliases
FROM entities
WHERE id = $1
`

const lookupAliasSQL = `
SELECT entity_id
FROM entity_aliases
WHERE alias_key = $1
`

const listEntitiesSQL = `
SELECT id, name, type, symbol, aliases
FROM entities
ORDER BY id
`

const upsertEntitySQL = `
INSERT INTO entities (id, name, type, symbol, aliases)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    type = EXCLUDED.type,
    symbol = EXCLUDED.symbol,
    aliases = EXCLUDED.aliases
`

const insertAliasSQL = `
INSERT INTO entity_aliases (alias_key, entity_id)
VALUES ($1, $2)
ON CONFLICT (alias_key) DO NOTHING
`

const countEntitiesSQL = `SELECT COUNT(*) FROM entities`

// GetEntity returns the entity with the given id.
func (s *Store) GetEntity(ctx context.Context, id string) (common.Entity, bool, error) {
	var entity common.Entity
	var entityType string

	err := s.pool.QueryRow(ctx, getEntitySQL, id).Scan(
		&entity.ID, &entity.Name, &entityType, &entity.Symbol, &entity.Aliases,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.Entity{}, false, nil
	}
	if err != nil {
		return common.Entity{}, false, fmt.Errorf("getting entity %s: %w", id, err)
	}

	entity.Type = common.EntityType(entityType)
	return entity, true, nil
}

// LookupAlias returns the entity id registered for the normalized alias key.
func (s *Store) LookupAlias(ctx context.Context, key string) (string, bool, error) {
	var entityID string

	err := s.pool.QueryRow(ctx, lookupAliasSQL, key).Scan(&entityID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up alias: %w", err)
	}
	return entityID, true, nil
}

// ListEntities returns every stored entity.
func (s *Store) ListEntities(ctx context.Context) ([]common.Entity, error) {
	rows, err := s.pool.Query(ctx, listEntitiesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var out []common.Entity
	for rows.Next() {
		var entity common.Entity
		var entityType string
		if err := rows.Scan(&entity.ID, &entity.Name, &entityType, &entity.Symbol, &entity.Aliases); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		entity.Type = common.EntityType(entityType)
		out = append(out, entity)
	}
	return out, rows.Err()
}

// SaveEntity upserts the entity and registers its alias keys. Alias keys are
// only ever added; an existing key pointing elsewhere is left alone.
func (s *Store) SaveEntity(ctx context.Context, entity common.Entity, aliasKeys []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, upsertEntitySQL,
		entity.ID, entity.Name, string(entity.Type), entity.Symbol, entity.Aliases,
	)
	if err != nil {
		return fmt.Errorf("saving entity %s: %w", entity.ID, err)
	}

	for _, key := range aliasKeys {
		if _, err := tx.Exec(ctx, insertAliasSQL, key, entity.ID); err != nil {
			return fmt.Errorf("registering alias for %s: %w", entity.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// CountEntities returns the number of stored entities.
func (s *Store) CountEntities(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, countEntitiesSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting entities: %w", err)
	}
	return count, nil
}
