package memory

import (
	"context"
	"fmt"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

// AppendArticle adds an article to the append-only log. Re-appending the
// same id is a no-op so retried batches stay idempotent.
func (s *Store) AppendArticle(ctx context.Context, article common.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[article.ID]; ok {
		return nil
	}

	article.Embedding = cloneFloats(article.Embedding)
	article.EntityIDs = cloneStrings(article.EntityIDs)
	article.Events = cloneStrings(article.Events)
	s.articles[article.ID] = article
	return nil
}

// MarkDuplicate sets the duplicate back-reference on a logged article.
func (s *Store) MarkDuplicate(ctx context.Context, articleID string, canonicalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.articles[articleID]
	if !ok {
		return fmt.Errorf("article %s not found", articleID)
	}
	article.DuplicateOf = canonicalID
	s.articles[articleID] = article
	return nil
}

// CountArticles returns the number of logged articles.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.articles), nil
}
