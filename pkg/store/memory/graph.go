package memory

import (
	"context"
	"fmt"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

func relationKey(source string, target string, relType common.RelationType) string {
	return fmt.Sprintf("%s|%s|%s", source, target, relType)
}

// GetRelation returns the edge for one (source, target, type) triple.
func (s *Store) GetRelation(ctx context.Context, source string, target string, relType common.RelationType) (common.Relation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	relation, ok := s.relations[relationKey(source, target, relType)]
	if !ok {
		return common.Relation{}, false, nil
	}
	relation.SupportIDs = cloneStrings(relation.SupportIDs)
	return relation, true, nil
}

// SaveRelation upserts the edge for its (source, target, type) triple.
func (s *Store) SaveRelation(ctx context.Context, relation common.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	relation.SupportIDs = cloneStrings(relation.SupportIDs)
	s.relations[relationKey(relation.Source, relation.Target, relation.Type)] = relation
	return nil
}

// Outgoing returns all edges leaving entityID.
func (s *Store) Outgoing(ctx context.Context, entityID string) ([]common.Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []common.Relation
	for _, relation := range s.relations {
		if relation.Source != entityID {
			continue
		}
		relation.SupportIDs = cloneStrings(relation.SupportIDs)
		out = append(out, relation)
	}
	return out, nil
}

// CountRelations returns the number of stored edges.
func (s *Store) CountRelations(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.relations), nil
}
