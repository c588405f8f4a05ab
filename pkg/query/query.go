package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tradl-labs/newsgraph/pkg/ai"
	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/entity"
	"github.com/tradl-labs/newsgraph/pkg/impact"
	"github.com/tradl-labs/newsgraph/pkg/logger"
	"github.com/tradl-labs/newsgraph/pkg/store"
)

const (
	// Default ranking weights combining semantic similarity with graph
	// proximity.
	defaultSimilarityWeight = 0.7
	defaultEntityWeight     = 0.3

	defaultResultCount = 10

	// retrieveFactor oversizes the index lookup so graph-weighted entries
	// can displace purely-semantic ones during re-ranking.
	retrieveFactor = 5
)

// Engine answers queries in four phases: parse entity mentions with the
// same resolver the ingestion path uses, expand them through the impact
// graph, retrieve candidates from the vector index, and re-rank by combined
// semantic and graph-proximity score. All phases read shared state only.
//
// An Engine should be created using NewEngine.
type Engine struct {
	resolver   *entity.Resolver
	expander   *impact.Expander
	canonicals store.CanonicalStore
	index      store.VectorIndex
	embedder   ai.EmbeddingProvider
	recognizer ai.EntityRecognizer

	simWeight    float64
	entityWeight float64
	resultCount  int
}

// NewEngineParams configures a query Engine. SimilarityWeight and
// EntityWeight default to 0.7/0.3; ResultCount defaults to 10.
type NewEngineParams struct {
	Resolver   *entity.Resolver
	Expander   *impact.Expander
	Canonicals store.CanonicalStore
	Index      store.VectorIndex
	Embedder   ai.EmbeddingProvider
	Recognizer ai.EntityRecognizer

	SimilarityWeight float64
	EntityWeight     float64
	ResultCount      int
}

// NewEngine creates a query Engine.
func NewEngine(params NewEngineParams) *Engine {
	if params.SimilarityWeight <= 0 {
		params.SimilarityWeight = defaultSimilarityWeight
	}
	if params.EntityWeight <= 0 {
		params.EntityWeight = defaultEntityWeight
	}
	if params.ResultCount <= 0 {
		params.ResultCount = defaultResultCount
	}
	return &Engine{
		resolver:     params.Resolver,
		expander:     params.Expander,
		canonicals:   params.Canonicals,
		index:        params.Index,
		embedder:     params.Embedder,
		recognizer:   params.Recognizer,
		simWeight:    params.SimilarityWeight,
		entityWeight: params.EntityWeight,
		resultCount:  params.ResultCount,
	}
}

// Query runs one query end to end. With explain set, each result carries
// the expansion paths that justified its inclusion; without it the results
// stay compact. An empty corpus or a query matching nothing returns an
// empty slice, never an error.
func (e *Engine) Query(ctx context.Context, text string, explain bool) ([]common.RankedResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []common.RankedResult{}, nil
	}

	expanded, err := e.expandedEntities(ctx, text)
	if err != nil {
		return nil, err
	}

	embedding, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	// No resolved entities means pure semantic search over the full
	// corpus.
	var filter []string
	for id := range expanded {
		filter = append(filter, id)
	}

	hits, err := e.index.Search(ctx, embedding, e.resultCount*retrieveFactor, filter)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	results := e.rank(ctx, hits, expanded, explain)
	if len(results) > e.resultCount {
		results = results[:e.resultCount]
	}
	return results, nil
}

// expandedEntities parses the query's entity mentions and walks the graph
// outward from them. Recognition failures degrade to an empty set rather
// than failing the query.
func (e *Engine) expandedEntities(ctx context.Context, text string) (map[string]common.ExpansionPath, error) {
	mentions, err := e.recognizer.Extract(ctx, text)
	if err != nil {
		logger.Warn("[Query] entity recognition failed, falling back to semantic search",
			"kind", common.ErrorKind(err), "error", err)
		return map[string]common.ExpansionPath{}, nil
	}

	var literals []string
	for _, mention := range mentions {
		resolution, ok, err := e.resolver.Lookup(ctx, mention)
		if err != nil {
			return nil, fmt.Errorf("resolving query mention %q: %w", mention.Text, err)
		}
		if ok {
			literals = append(literals, resolution.Entity.ID)
		}
	}
	if len(literals) == 0 {
		return map[string]common.ExpansionPath{}, nil
	}

	expanded, err := e.expander.Expand(ctx, literals, impact.DefaultDepth)
	if err != nil {
		return nil, fmt.Errorf("expanding query entities: %w", err)
	}
	return expanded, nil
}

// rank scores every hit by weighted similarity plus the strongest expansion
// weight among its matched entities, breaking ties by recency.
func (e *Engine) rank(ctx context.Context, hits []store.SearchHit, expanded map[string]common.ExpansionPath, explain bool) []common.RankedResult {
	results := make([]common.RankedResult, 0, len(hits))

	for _, hit := range hits {
		var matched []string
		var paths []common.ExpansionPath
		maxWeight := 0.0

		for _, id := range hit.Entry.EntityIDs {
			path, ok := expanded[id]
			if !ok {
				continue
			}
			matched = append(matched, id)
			if path.Weight > maxWeight {
				maxWeight = path.Weight
			}
			if explain {
				paths = append(paths, path)
			}
		}

		result := common.RankedResult{
			CanonicalID:     hit.Entry.CanonicalID,
			Score:           e.simWeight*hit.Similarity + e.entityWeight*maxWeight,
			Similarity:      hit.Similarity,
			EntityWeight:    maxWeight,
			PublishedAt:     hit.Entry.PublishedAt,
			MatchedEntities: matched,
		}
		if explain {
			result.Paths = paths
		}

		if canonical, ok, err := e.canonicals.GetCanonical(ctx, hit.Entry.CanonicalID); err == nil && ok {
			result.Title = titleSnippet(canonical.Title)
		}

		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PublishedAt.After(results[j].PublishedAt)
	})
	return results
}

const snippetLimit = 120

func titleSnippet(title string) string {
	if len(title) <= snippetLimit {
		return title
	}
	cut := strings.LastIndex(title[:snippetLimit], " ")
	if cut <= 0 {
		cut = snippetLimit
	}
	return title[:cut] + "…"
}
