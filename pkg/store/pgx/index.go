package pgx

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/store"
)

const upsertIndexEntrySQL = `
INSERT INTO index_entries (canonical_id, embedding, entity_ids, published_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (canonical_id) DO UPDATE
SET embedding = EXCLUDED.embedding,
    entity_ids = EXCLUDED.entity_ids,
    published_at = EXCLUDED.published_at
`

// The <=> operator is pgvector cosine distance; similarity is 1 - distance.
const searchSQL = `
SELECT canonical_id, embedding, entity_ids, published_at, 1 - (embedding <=> $1) AS similarity
FROM index_entries
WHERE cardinality($3::text[]) = 0 OR entity_ids && $3::text[]
ORDER BY embedding <=> $1, published_at DESC
LIMIT $2
`

const removeIndexEntrySQL = `
DELETE FROM index_entries
WHERE canonical_id = $1
`

// Upsert inserts or replaces the index entry for one canonical article.
func (s *Store) Upsert(ctx context.Context, entry common.IndexEntry) error {
	_, err := s.pool.Exec(ctx, upsertIndexEntrySQL,
		entry.CanonicalID,
		pgvector.NewVector(entry.Embedding),
		entry.EntityIDs,
		entry.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting index entry %s: %w", entry.CanonicalID, err)
	}
	return nil
}

// Search returns the k nearest entries by cosine similarity, restricted to
// entries tagged with at least one of entityFilter when it is non-empty.
func (s *Store) Search(ctx context.Context, embedding []float32, k int, entityFilter []string) ([]store.SearchHit, error) {
	if entityFilter == nil {
		entityFilter = []string{}
	}

	rows, err := s.pool.Query(ctx, searchSQL, pgvector.NewVector(embedding), k, entityFilter)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	defer rows.Close()

	var out []store.SearchHit
	for rows.Next() {
		var hit store.SearchHit
		var vec pgvector.Vector
		err := rows.Scan(&hit.Entry.CanonicalID, &vec, &hit.Entry.EntityIDs, &hit.Entry.PublishedAt, &hit.Similarity)
		if err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		hit.Entry.Embedding = vec.Slice()
		out = append(out, hit)
	}
	return out, rows.Err()
}

// Remove deletes the index entry for one canonical article.
func (s *Store) Remove(ctx context.Context, canonicalID string) error {
	_, err := s.pool.Exec(ctx, removeIndexEntrySQL, canonicalID)
	if err != nil {
		return fmt.Errorf("removing index entry %s: %w", canonicalID, err)
	}
	return nil
}
