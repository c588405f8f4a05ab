package memory

import (
	"sync"

	"github.com/tradl-labs/newsgraph/internal/util"
	"github.com/tradl-labs/newsgraph/pkg/common"
)

// Store is the in-memory implementation of store.Storage. It backs tests and
// single-process deployments; the pgx store is the durable counterpart.
//
// A coarse RWMutex keeps the maps internally consistent; the keyed mutexes
// serialize multi-call read-modify-write cycles (centroid recomputation,
// confidence smoothing) per entity and per canonical article.
type Store struct {
	mu sync.RWMutex

	entities   map[string]common.Entity
	aliases    map[string]string
	articles   map[string]common.Article
	canonicals map[string]common.CanonicalArticle
	relations  map[string]common.Relation
	entries    map[string]common.IndexEntry
	buckets    map[string]map[string]struct{}
	decisions  []common.DedupDecision

	entityLocks    *util.KeyedMutex
	canonicalLocks *util.KeyedMutex
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		entities:   make(map[string]common.Entity),
		aliases:    make(map[string]string),
		articles:   make(map[string]common.Article),
		canonicals: make(map[string]common.CanonicalArticle),
		relations:  make(map[string]common.Relation),
		entries:    make(map[string]common.IndexEntry),
		buckets:    make(map[string]map[string]struct{}),

		entityLocks:    util.NewKeyedMutex(),
		canonicalLocks: util.NewKeyedMutex(),
	}
}

// LockEntity acquires the write lock for one entity id.
func (s *Store) LockEntity(id string) func() {
	return s.entityLocks.Lock(id)
}

// LockCanonical acquires the write lock for one canonical article id.
func (s *Store) LockCanonical(id string) func() {
	return s.canonicalLocks.Lock(id)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneFloats(in []float32) []float32 {
	if in == nil {
		return nil
	}
	out := make([]float32, len(in))
	copy(out, in)
	return out
}
