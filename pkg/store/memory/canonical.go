package memory

import (
	"context"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

// GetCanonical returns the canonical article with the given id.
func (s *Store) GetCanonical(ctx context.Context, id string) (common.CanonicalArticle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	canonical, ok := s.canonicals[id]
	if !ok {
		return common.CanonicalArticle{}, false, nil
	}
	return cloneCanonical(canonical), true, nil
}

// SaveCanonical upserts a canonical article.
func (s *Store) SaveCanonical(ctx context.Context, canonical common.CanonicalArticle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.canonicals[canonical.ID] = cloneCanonical(canonical)
	return nil
}

// Candidates returns canonical articles published inside [from, to] sharing
// at least one entity with entityIDs. An empty entityIDs matches every
// canonical in the window.
func (s *Store) Candidates(ctx context.Context, entityIDs []string, from time.Time, to time.Time) ([]common.CanonicalArticle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(entityIDs))
	for _, id := range entityIDs {
		wanted[id] = struct{}{}
	}

	var out []common.CanonicalArticle
	for _, canonical := range s.canonicals {
		if canonical.PublishedAt.Before(from) || canonical.PublishedAt.After(to) {
			continue
		}
		if len(wanted) > 0 && !sharesEntity(canonical.EntityIDs, wanted) {
			continue
		}
		out = append(out, cloneCanonical(canonical))
	}
	return out, nil
}

// CountCanonicals returns the number of canonical articles.
func (s *Store) CountCanonicals(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.canonicals), nil
}

func sharesEntity(entityIDs []string, wanted map[string]struct{}) bool {
	for _, id := range entityIDs {
		if _, ok := wanted[id]; ok {
			return true
		}
	}
	return false
}

func cloneCanonical(c common.CanonicalArticle) common.CanonicalArticle {
	c.Sources = cloneStrings(c.Sources)
	c.MemberIDs = cloneStrings(c.MemberIDs)
	c.EntityIDs = cloneStrings(c.EntityIDs)
	c.Events = cloneStrings(c.Events)
	c.Embedding = cloneFloats(c.Embedding)
	return c
}
