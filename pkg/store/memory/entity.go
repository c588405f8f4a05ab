package memory

import (
	"context"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

// GetEntity returns the entity with the given id.
func (s *Store) GetEntity(ctx context.Context, id string) (common.Entity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.entities[id]
	if !ok {
		return common.Entity{}, false, nil
	}
	entity.Aliases = cloneStrings(entity.Aliases)
	return entity, true, nil
}

// LookupAlias resolves a normalized alias key to an entity id.
func (s *Store) LookupAlias(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.aliases[key]
	return id, ok, nil
}

// ListEntities returns all known entities.
func (s *Store) ListEntities(ctx context.Context) ([]common.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.Entity, 0, len(s.entities))
	for _, entity := range s.entities {
		entity.Aliases = cloneStrings(entity.Aliases)
		out = append(out, entity)
	}
	return out, nil
}

// SaveEntity upserts an entity and registers its alias keys. Alias growth is
// monotonic: existing aliases of a stored entity are merged in, and alias
// keys already pointing at another entity are left untouched.
func (s *Store) SaveEntity(ctx context.Context, entity common.Entity, aliasKeys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entities[entity.ID]; ok {
		known := make(map[string]struct{}, len(entity.Aliases))
		for _, alias := range entity.Aliases {
			known[alias] = struct{}{}
		}
		for _, alias := range existing.Aliases {
			if _, ok := known[alias]; !ok {
				entity.Aliases = append(entity.Aliases, alias)
			}
		}
		if entity.Symbol == "" {
			entity.Symbol = existing.Symbol
		}
	}

	entity.Aliases = cloneStrings(entity.Aliases)
	s.entities[entity.ID] = entity

	for _, key := range aliasKeys {
		if _, taken := s.aliases[key]; !taken {
			s.aliases[key] = entity.ID
		}
	}
	return nil
}

// CountEntities returns the number of stored entities.
func (s *Store) CountEntities(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entities), nil
}
