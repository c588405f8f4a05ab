package query

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/entity"
	"github.com/tradl-labs/newsgraph/pkg/impact"
	"github.com/tradl-labs/newsgraph/pkg/store/memory"
)

// stubEmbedder returns canned vectors keyed by substring so similarity can
// be engineered per test.
type stubEmbedder struct {
	vectors     map[string][]float32
	fallbackVec []float32
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	for key, vec := range s.vectors {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	return s.fallbackVec, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) Name() string    { return "stub" }

// stubRecognizer returns canned mentions keyed by substring.
type stubRecognizer struct {
	mentions map[string][]common.Mention
}

func (s *stubRecognizer) Extract(ctx context.Context, text string) ([]common.Mention, error) {
	for key, mentions := range s.mentions {
		if strings.Contains(text, key) {
			return mentions, nil
		}
	}
	return nil, nil
}

func (s *stubRecognizer) Name() string { return "stub" }

func saveEntity(t *testing.T, s *memory.Store, name string, entityType common.EntityType) string {
	t.Helper()
	id := entity.DeterministicID(name, entityType)
	e := common.Entity{ID: id, Name: name, Type: entityType, Aliases: []string{name}}
	if err := s.SaveEntity(context.Background(), e, []string{entity.NormalizeAliasKey(name, entityType)}); err != nil {
		t.Fatalf("SaveEntity: %v", err)
	}
	return id
}

func indexEntry(t *testing.T, s *memory.Store, canonicalID, title string, embedding []float32, at time.Time, entityIDs ...string) {
	t.Helper()
	ctx := context.Background()
	if err := s.SaveCanonical(ctx, common.CanonicalArticle{
		ID:          canonicalID,
		Title:       title,
		PublishedAt: at,
		MemberIDs:   []string{canonicalID + "-m"},
		Embedding:   embedding,
		EntityIDs:   entityIDs,
	}); err != nil {
		t.Fatalf("SaveCanonical: %v", err)
	}
	if err := s.Upsert(ctx, common.IndexEntry{
		CanonicalID: canonicalID,
		Embedding:   embedding,
		EntityIDs:   entityIDs,
		PublishedAt: at,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func TestQuery_ExpansionReachability(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	now := time.Now().UTC()

	idA := saveEntity(t, s, "Alpha Metals", common.EntityCompany)
	idB := saveEntity(t, s, "Beta Autos", common.EntityCompany)
	idC := saveEntity(t, s, "Gamma Board", common.EntityRegulator)

	edges := []common.Relation{
		{Source: idA, Target: idB, Type: common.RelationSupplies, Confidence: 0.9, LastUpdated: now},
		{Source: idB, Target: idC, Type: common.RelationRegulates, Confidence: 0.7, LastUpdated: now},
	}
	for _, e := range edges {
		if err := s.SaveRelation(ctx, e); err != nil {
			t.Fatalf("SaveRelation: %v", err)
		}
	}

	// The only indexed article is tagged with C alone; it is reachable
	// only through the two-hop expansion.
	indexEntry(t, s, "can-c", "Gamma Board tightens rules", []float32{0.7, 0.7, 0}, now, idC)

	engine := NewEngine(NewEngineParams{
		Resolver:   entity.NewResolver(entity.NewResolverParams{Index: s}),
		Expander:   impact.NewExpander(s),
		Canonicals: s,
		Index:      s,
		Embedder:   &stubEmbedder{fallbackVec: []float32{1, 1, 0}},
		Recognizer: &stubRecognizer{mentions: map[string][]common.Mention{
			"Alpha": {{Text: "Alpha Metals", Type: common.EntityCompany}},
		}},
	})

	results, err := engine.Query(ctx, "Alpha Metals outlook", true)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the C-tagged article, got %d results", len(results))
	}

	got := results[0]
	if got.CanonicalID != "can-c" {
		t.Fatalf("canonical = %s, want can-c", got.CanonicalID)
	}
	if len(got.MatchedEntities) != 1 || got.MatchedEntities[0] != idC {
		t.Fatalf("matched entities = %v, want [%s]", got.MatchedEntities, idC)
	}
	if got.EntityWeight < 0.62 || got.EntityWeight > 0.64 {
		t.Fatalf("entity weight = %v, want ~0.63", got.EntityWeight)
	}
	if len(got.Paths) != 1 || len(got.Paths[0].Steps) != 2 {
		t.Fatalf("expansion path = %+v, want the two-step A→B→C route", got.Paths)
	}
	steps := got.Paths[0].Steps
	if steps[0].From != idA || steps[0].To != idB || steps[1].To != idC {
		t.Fatalf("steps = %+v", steps)
	}
}

func TestQuery_ExplainFalseOmitsPaths(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	now := time.Now().UTC()

	idA := saveEntity(t, s, "Alpha Metals", common.EntityCompany)
	indexEntry(t, s, "can-a", "Alpha Metals expands", []float32{1, 0, 0}, now, idA)

	engine := NewEngine(NewEngineParams{
		Resolver:   entity.NewResolver(entity.NewResolverParams{Index: s}),
		Expander:   impact.NewExpander(s),
		Canonicals: s,
		Index:      s,
		Embedder:   &stubEmbedder{fallbackVec: []float32{1, 0, 0}},
		Recognizer: &stubRecognizer{mentions: map[string][]common.Mention{
			"Alpha": {{Text: "Alpha Metals", Type: common.EntityCompany}},
		}},
	})

	results, err := engine.Query(ctx, "Alpha Metals news", false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Paths != nil {
		t.Fatalf("explain=false must omit paths, got %+v", results[0].Paths)
	}
	if len(results[0].MatchedEntities) != 1 {
		t.Fatalf("matched entities still expected, got %v", results[0].MatchedEntities)
	}
}

func TestQuery_FallsBackToSemanticSearch(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	now := time.Now().UTC()

	idA := saveEntity(t, s, "Alpha Metals", common.EntityCompany)
	indexEntry(t, s, "can-a", "Alpha Metals expands", []float32{1, 0, 0}, now, idA)
	indexEntry(t, s, "can-b", "Weather update", []float32{0, 1, 0}, now)

	engine := NewEngine(NewEngineParams{
		Resolver:   entity.NewResolver(entity.NewResolverParams{Index: s}),
		Expander:   impact.NewExpander(s),
		Canonicals: s,
		Index:      s,
		Embedder:   &stubEmbedder{fallbackVec: []float32{0, 1, 0}},
		Recognizer: &stubRecognizer{},
	})

	// No mention resolves, so the whole corpus is searched semantically.
	results, err := engine.Query(ctx, "how is the weather", false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected full-corpus search, got %d results", len(results))
	}
	if results[0].CanonicalID != "can-b" {
		t.Fatalf("top result = %s, want the semantically closest", results[0].CanonicalID)
	}
}

func TestQuery_RankingCombinesSimilarityAndGraphWeight(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	now := time.Now().UTC()

	idA := saveEntity(t, s, "Alpha Metals", common.EntityCompany)
	idB := saveEntity(t, s, "Beta Autos", common.EntityCompany)
	if err := s.SaveRelation(ctx, common.Relation{
		Source: idA, Target: idB, Type: common.RelationSupplies, Confidence: 0.9, LastUpdated: now,
	}); err != nil {
		t.Fatalf("SaveRelation: %v", err)
	}

	// Literal-entity article slightly less similar than the expanded one.
	indexEntry(t, s, "can-a", "Alpha Metals results", []float32{0.95, 0.3122499, 0}, now, idA)
	indexEntry(t, s, "can-b", "Beta Autos results", []float32{1, 0, 0}, now, idB)

	engine := NewEngine(NewEngineParams{
		Resolver:   entity.NewResolver(entity.NewResolverParams{Index: s}),
		Expander:   impact.NewExpander(s),
		Canonicals: s,
		Index:      s,
		Embedder:   &stubEmbedder{fallbackVec: []float32{1, 0, 0}},
		Recognizer: &stubRecognizer{mentions: map[string][]common.Mention{
			"Alpha": {{Text: "Alpha Metals", Type: common.EntityCompany}},
		}},
	})

	results, err := engine.Query(ctx, "Alpha Metals results", false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// can-a scores 0.7·0.95 + 0.3·1.0 = 0.965; can-b scores
	// 0.7·1.0 + 0.3·0.9 = 0.97 and wins despite the lower entity weight.
	if results[0].CanonicalID != "can-b" {
		t.Fatalf("top result = %s (score %v), want can-b", results[0].CanonicalID, results[0].Score)
	}
	if results[1].EntityWeight != 1.0 {
		t.Fatalf("literal entity weight = %v, want 1.0", results[1].EntityWeight)
	}
}

func TestQuery_EmptyCorpusAndEmptyQuery(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	engine := NewEngine(NewEngineParams{
		Resolver:   entity.NewResolver(entity.NewResolverParams{Index: s}),
		Expander:   impact.NewExpander(s),
		Canonicals: s,
		Index:      s,
		Embedder:   &stubEmbedder{fallbackVec: []float32{1, 0, 0}},
		Recognizer: &stubRecognizer{},
	})

	results, err := engine.Query(ctx, "anything at all", false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("empty corpus should yield no results, got %d", len(results))
	}

	results, err = engine.Query(ctx, "   ", true)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("blank query should yield no results, got %d", len(results))
	}
}
