package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/tradl-labs/newsgraph/internal/util"
	"github.com/tradl-labs/newsgraph/pkg/common"
)

const getCanonicalSQL = `
SELECT id, title, body, sources, published_at, language, member_ids, embedding, entity_ids, events, sentiment
FROM canonical_articles
WHERE id = $1
`

const upsertCanonicalSQL = `
INSERT INTO canonical_articles (id, title, body, sources, published_at, language, member_ids, embedding, entity_ids, events, sentiment)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE
SET title = EXCLUDED.title,
    body = EXCLUDED.body,
    sources = EXCLUDED.sources,
    published_at = EXCLUDED.published_at,
    language = EXCLUDED.language,
    member_ids = EXCLUDED.member_ids,
    embedding = EXCLUDED.embedding,
    entity_ids = EXCLUDED.entity_ids,
    events = EXCLUDED.events,
    sentiment = EXCLUDED.sentiment
`

const candidatesSQL = `
SELECT id, title, body, sources, published_at, language, member_ids, embedding, entity_ids, events, sentiment
FROM canonical_articles
WHERE published_at BETWEEN $1 AND $2
  AND (cardinality($3::text[]) = 0 OR entity_ids && $3::text[])
`

const countCanonicalsSQL = `SELECT COUNT(*) FROM canonical_articles`

// GetCanonical returns the canonical article with the given id.
func (s *Store) GetCanonical(ctx context.Context, id string) (common.CanonicalArticle, bool, error) {
	canonical, err := scanCanonical(s.pool.QueryRow(ctx, getCanonicalSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return common.CanonicalArticle{}, false, nil
	}
	if err != nil {
		return common.CanonicalArticle{}, false, fmt.Errorf("getting canonical %s: %w", id, err)
	}
	return canonical, true, nil
}

// SaveCanonical upserts a canonical article.
func (s *Store) SaveCanonical(ctx context.Context, canonical common.CanonicalArticle) error {
	_, err := s.pool.Exec(ctx, upsertCanonicalSQL,
		canonical.ID,
		util.SanitizePostgresText(canonical.Title),
		util.SanitizePostgresText(canonical.Body),
		canonical.Sources,
		canonical.PublishedAt,
		canonical.Language,
		canonical.MemberIDs,
		pgvector.NewVector(canonical.Embedding),
		canonical.EntityIDs,
		canonical.Events,
		canonical.Sentiment,
	)
	if err != nil {
		return fmt.Errorf("saving canonical %s: %w", canonical.ID, err)
	}
	return nil
}

// Candidates returns canonical articles published inside [from, to] sharing
// at least one entity with entityIDs. An empty entityIDs matches every
// canonical in the window.
func (s *Store) Candidates(ctx context.Context, entityIDs []string, from time.Time, to time.Time) ([]common.CanonicalArticle, error) {
	if entityIDs == nil {
		entityIDs = []string{}
	}

	rows, err := s.pool.Query(ctx, candidatesSQL, from, to, entityIDs)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var out []common.CanonicalArticle
	for rows.Next() {
		canonical, err := scanCanonical(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		out = append(out, canonical)
	}
	return out, rows.Err()
}

// CountCanonicals returns the number of canonical articles.
func (s *Store) CountCanonicals(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, countCanonicalsSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting canonicals: %w", err)
	}
	return count, nil
}

func scanCanonical(row pgx.Row) (common.CanonicalArticle, error) {
	var canonical common.CanonicalArticle
	var embedding pgvector.Vector

	err := row.Scan(
		&canonical.ID,
		&canonical.Title,
		&canonical.Body,
		&canonical.Sources,
		&canonical.PublishedAt,
		&canonical.Language,
		&canonical.MemberIDs,
		&embedding,
		&canonical.EntityIDs,
		&canonical.Events,
		&canonical.Sentiment,
	)
	if err != nil {
		return common.CanonicalArticle{}, err
	}

	canonical.Embedding = embedding.Slice()
	return canonical, nil
}
