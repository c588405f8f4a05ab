package store

import (
	"context"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

// SearchHit is one retrieval-index result with its cosine similarity to the
// query embedding.
type SearchHit struct {
	Entry      common.IndexEntry
	Similarity float64
}

// AliasIndex persists entity identities and the normalized alias keys
// pointing at them. Alias registration is monotonic: keys are only ever
// added.
type AliasIndex interface {
	GetEntity(ctx context.Context, id string) (common.Entity, bool, error)
	LookupAlias(ctx context.Context, key string) (string, bool, error)
	ListEntities(ctx context.Context) ([]common.Entity, error)
	SaveEntity(ctx context.Context, entity common.Entity, aliasKeys []string) error
	CountEntities(ctx context.Context) (int, error)
}

// ArticleLog is the append-only log of canonicalized articles.
type ArticleLog interface {
	AppendArticle(ctx context.Context, article common.Article) error
	MarkDuplicate(ctx context.Context, articleID string, canonicalID string) error
	CountArticles(ctx context.Context) (int, error)
}

// CanonicalStore owns canonical articles. Candidates returns the canonical
// articles sharing at least one entity with entityIDs and published inside
// [from, to]; an empty entityIDs matches every canonical in the window.
type CanonicalStore interface {
	GetCanonical(ctx context.Context, id string) (common.CanonicalArticle, bool, error)
	SaveCanonical(ctx context.Context, canonical common.CanonicalArticle) error
	Candidates(ctx context.Context, entityIDs []string, from time.Time, to time.Time) ([]common.CanonicalArticle, error)
	CountCanonicals(ctx context.Context) (int, error)
}

// GraphStore owns the impact graph edges.
type GraphStore interface {
	GetRelation(ctx context.Context, source string, target string, relType common.RelationType) (common.Relation, bool, error)
	SaveRelation(ctx context.Context, relation common.Relation) error
	Outgoing(ctx context.Context, entityID string) ([]common.Relation, error)
	CountRelations(ctx context.Context) (int, error)
}

// VectorIndex is the retrieval index over canonical articles. Upsert is
// idempotent per canonical id. Search returns the k nearest entries by
// cosine similarity, restricted to entries tagged with at least one of
// entityFilter when it is non-empty; an empty corpus yields an empty slice.
type VectorIndex interface {
	Upsert(ctx context.Context, entry common.IndexEntry) error
	Search(ctx context.Context, embedding []float32, k int, entityFilter []string) ([]SearchHit, error)
	Remove(ctx context.Context, canonicalID string) error
}

// DecisionLog records dedup decisions for observability and threshold
// tuning.
type DecisionLog interface {
	AppendDecision(ctx context.Context, decision common.DedupDecision) error
	ListDecisions(ctx context.Context, since time.Time) ([]common.DedupDecision, error)
}

// Storage aggregates every persistence concern of the pipeline plus the
// fine-grained write locks serializing updates per entity and per canonical
// article.
type Storage interface {
	AliasIndex
	ArticleLog
	CanonicalStore
	GraphStore
	VectorIndex
	DecisionLog

	// LockEntity and LockCanonical acquire the write lock for one id and
	// return the release function.
	LockEntity(id string) func()
	LockCanonical(id string) func()
}
