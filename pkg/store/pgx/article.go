package pgx

import (
	"context"
	"fmt"

	"github.com/tradl-labs/newsgraph/internal/util"
	"github.com/tradl-labs/newsgraph/pkg/common"
)

const appendArticleSQL = `
INSERT INTO articles (id, title, body, source, published_at, language, duplicate_of, sentiment, events, entity_ids)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING
`

const markDuplicateSQL = `
UPDATE articles
SET duplicate_of = $2
WHERE id = $1
`

const countArticlesSQL = `SELECT COUNT(*) FROM articles`

// AppendArticle appends one canonicalized article to the log. Replays of an
// already-logged id are no-ops.
func (s *Store) AppendArticle(ctx context.Context, article common.Article) error {
	_, err := s.pool.Exec(ctx, appendArticleSQL,
		article.ID,
		util.SanitizePostgresText(article.Title),
		util.SanitizePostgresText(article.Body),
		article.Source,
		article.PublishedAt,
		article.Language,
		article.DuplicateOf,
		article.Sentiment,
		article.Events,
		article.EntityIDs,
	)
	if err != nil {
		return fmt.Errorf("appending article %s: %w", article.ID, err)
	}
	return nil
}

// MarkDuplicate records the canonical article an article was collapsed into.
func (s *Store) MarkDuplicate(ctx context.Context, articleID string, canonicalID string) error {
	_, err := s.pool.Exec(ctx, markDuplicateSQL, articleID, canonicalID)
	if err != nil {
		return fmt.Errorf("marking article %s duplicate: %w", articleID, err)
	}
	return nil
}

// CountArticles returns the number of logged articles.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, countArticlesSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return count, nil
}
