package memory

import (
	"context"
	"sort"

	"github.com/tradl-labs/newsgraph/internal/util"
	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/store"
)

// Upsert replaces the index entry for entry.CanonicalID and rebuilds its
// entity-bucket memberships.
func (s *Store) Upsert(ctx context.Context, entry common.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[entry.CanonicalID]; ok {
		s.dropFromBuckets(old)
	}

	entry.Embedding = cloneFloats(entry.Embedding)
	entry.EntityIDs = cloneStrings(entry.EntityIDs)
	s.entries[entry.CanonicalID] = entry

	for _, entityID := range entry.EntityIDs {
		bucket, ok := s.buckets[entityID]
		if !ok {
			bucket = make(map[string]struct{})
			s.buckets[entityID] = bucket
		}
		bucket[entry.CanonicalID] = struct{}{}
	}
	return nil
}

// Remove deletes the index entry for canonicalID, if present.
func (s *Store) Remove(ctx context.Context, canonicalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[canonicalID]
	if !ok {
		return nil
	}
	s.dropFromBuckets(entry)
	delete(s.entries, canonicalID)
	return nil
}

// Search returns the k nearest entries by cosine similarity. With a
// non-empty entityFilter only entries in the union of the matching entity
// buckets are scored, so the scan cost is bounded by the filter's bucket
// sizes rather than the corpus. Ties are broken by recency.
func (s *Store) Search(ctx context.Context, embedding []float32, k int, entityFilter []string) ([]store.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.entries) == 0 {
		return []store.SearchHit{}, nil
	}

	var candidateIDs []string
	if len(entityFilter) > 0 {
		seen := make(map[string]struct{})
		for _, entityID := range entityFilter {
			for canonicalID := range s.buckets[entityID] {
				if _, ok := seen[canonicalID]; !ok {
					seen[canonicalID] = struct{}{}
					candidateIDs = append(candidateIDs, canonicalID)
				}
			}
		}
	} else {
		for canonicalID := range s.entries {
			candidateIDs = append(candidateIDs, canonicalID)
		}
	}

	hits := make([]store.SearchHit, 0, len(candidateIDs))
	for _, canonicalID := range candidateIDs {
		entry := s.entries[canonicalID]
		hits = append(hits, store.SearchHit{
			Entry: common.IndexEntry{
				CanonicalID: entry.CanonicalID,
				Embedding:   cloneFloats(entry.Embedding),
				EntityIDs:   cloneStrings(entry.EntityIDs),
				PublishedAt: entry.PublishedAt,
			},
			Similarity: util.Cosine(embedding, entry.Embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Entry.PublishedAt.After(hits[j].Entry.PublishedAt)
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *Store) dropFromBuckets(entry common.IndexEntry) {
	for _, entityID := range entry.EntityIDs {
		bucket, ok := s.buckets[entityID]
		if !ok {
			continue
		}
		delete(bucket, entry.CanonicalID)
		if len(bucket) == 0 {
			delete(s.buckets, entityID)
		}
	}
}
