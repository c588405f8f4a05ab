package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

const getRelationSQL = `
SELECT source_id, target_id, relation_type, confidence, corroboration, sentiment_sum, sentiment_min, sentiment_max, support_ids, last_updated
FROM relations
WHERE source_id = $1 AND target_id = $2 AND relation_type = $3
`

const upsertRelationSQL = `
INSERT INTO relations (source_id, target_id, relation_type, confidence, corroboration, sentiment_sum, sentiment_min, sentiment_max, support_ids, last_updated)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (source_id, target_id, relation_type) DO UPDATE
SET confidence = EXCLUDED.confidence,
    corroboration = EXCLUDED.corroboration,
    sentiment_sum = EXCLUDED.sentiment_sum,
    sentiment_min = EXCLUDED.sentiment_min,
    sentiment_max = EXCLUDED.sentiment_max,
    support_ids = EXCLUDED.support_ids,
    last_updated = EXCLUDED.last_updated
`

const outgoingSQL = `
SELECT source_id, target_id, relation_type, confidence, corroboration, sentiment_sum, sentiment_min, sentiment_max, support_ids, last_updated
FROM relations
WHERE source_id = $1
ORDER BY target_id, relation_type
`

const countRelationsSQL = `SELECT COUNT(*) FROM relations`

// GetRelation returns the edge for one (source, target, type) triple.
func (s *Store) GetRelation(ctx context.Context, source string, target string, relType common.RelationType) (common.Relation, bool, error) {
	relation, err := scanRelation(s.pool.QueryRow(ctx, getRelationSQL, source, target, string(relType)))
	if errors.Is(err, pgx.ErrNoRows) {
		return common.Relation{}, false, nil
	}
	if err != nil {
		return common.Relation{}, false, fmt.Errorf("getting relation %s->%s: %w", source, target, err)
	}
	return relation, true, nil
}

// SaveRelation upserts one edge keyed by its (source, target, type) triple.
func (s *Store) SaveRelation(ctx context.Context, relation common.Relation) error {
	_, err := s.pool.Exec(ctx, upsertRelationSQL,
		relation.Source,
		relation.Target,
		string(relation.Type),
		relation.Confidence,
		relation.Corroboration,
		relation.SentimentSum,
		relation.SentimentMin,
		relation.SentimentMax,
		relation.SupportIDs,
		relation.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("saving relation %s->%s: %w", relation.Source, relation.Target, err)
	}
	return nil
}

// Outgoing returns every edge whose source is entityID.
func (s *Store) Outgoing(ctx context.Context, entityID string) ([]common.Relation, error) {
	rows, err := s.pool.Query(ctx, outgoingSQL, entityID)
	if err != nil {
		return nil, fmt.Errorf("querying outgoing edges of %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []common.Relation
	for rows.Next() {
		relation, err := scanRelation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning relation: %w", err)
		}
		out = append(out, relation)
	}
	return out, rows.Err()
}

// CountRelations returns the number of graph edges.
func (s *Store) CountRelations(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, countRelationsSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting relations: %w", err)
	}
	return count, nil
}

func scanRelation(row pgx.Row) (common.Relation, error) {
	var relation common.Relation
	var relType string

	err := row.Scan(
		&relation.Source,
		&relation.Target,
		&relType,
		&relation.Confidence,
		&relation.Corroboration,
		&relation.SentimentSum,
		&relation.SentimentMin,
		&relation.SentimentMax,
		&relation.SupportIDs,
		&relation.LastUpdated,
	)
	if err != nil {
		return common.Relation{}, err
	}

	relation.Type = common.RelationType(relType)
	return relation, nil
}
