package pgx

import (
	"context"
	"fmt"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

const appendDecisionSQL = `
INSERT INTO dedup_decisions (id, article_id, duplicate, canonical_id, similarity, threshold, corroborated, decided_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING
`

const listDecisionsSQL = `
SELECT id, article_id, duplicate, canonical_id, similarity, threshold, corroborated, decided_at
FROM dedup_decisions
WHERE decided_at >= $1
ORDER BY decided_at
`

// AppendDecision records one dedup decision.
func (s *Store) AppendDecision(ctx context.Context, decision common.DedupDecision) error {
	_, err := s.pool.Exec(ctx, appendDecisionSQL,
		decision.ID,
		decision.ArticleID,
		decision.Duplicate,
		decision.CanonicalID,
		decision.Similarity,
		decision.Threshold,
		decision.Corroborated,
		decision.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("appending decision %s: %w", decision.ID, err)
	}
	return nil
}

// ListDecisions returns the decisions made at or after since.
func (s *Store) ListDecisions(ctx context.Context, since time.Time) ([]common.DedupDecision, error) {
	rows, err := s.pool.Query(ctx, listDecisionsSQL, since)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	defer rows.Close()

	var out []common.DedupDecision
	for rows.Next() {
		var decision common.DedupDecision
		err := rows.Scan(
			&decision.ID,
			&decision.ArticleID,
			&decision.Duplicate,
			&decision.CanonicalID,
			&decision.Similarity,
			&decision.Threshold,
			&decision.Corroborated,
			&decision.DecidedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		out = append(out, decision)
	}
	return out, rows.Err()
}
