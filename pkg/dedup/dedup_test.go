package dedup

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/store/memory"
)

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	s := memory.NewStore()
	return NewEngine(NewEngineParams{Store: s}), s
}

func article(id string, title string, embedding []float32, at time.Time) common.Article {
	return common.Article{
		ID:          id,
		Title:       title,
		Source:      "wire",
		PublishedAt: at,
		Embedding:   embedding,
		EntityIDs:   []string{"company:hdfc-bank"},
	}
}

func TestProcess_Idempotence(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)
	now := time.Now().UTC()

	first := article("a1", "HDFC Bank raises rates", []float32{1, 0, 0}, now)
	second := article("a2", "HDFC Bank raises rates", []float32{1, 0, 0}, now)

	out1, err := engine.Process(ctx, first)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out1.Duplicate {
		t.Fatal("first article cannot be a duplicate")
	}

	out2, err := engine.Process(ctx, second)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !out2.Duplicate {
		t.Fatal("identical article should merge")
	}
	if out2.Canonical.ID != out1.Canonical.ID {
		t.Fatalf("merged into %s, want %s", out2.Canonical.ID, out1.Canonical.ID)
	}
	if len(out2.Canonical.MemberIDs) != 2 {
		t.Fatalf("expected 2 members, got %v", out2.Canonical.MemberIDs)
	}

	count, _ := s.CountCanonicals(ctx)
	if count != 1 {
		t.Fatalf("expected 1 canonical article, got %d", count)
	}

	// Reprocessing an already-merged member stays a no-op merge.
	out3, err := engine.Process(ctx, second)
	if err != nil {
		t.Fatalf("Process (replay): %v", err)
	}
	if !out3.Duplicate || len(out3.Canonical.MemberIDs) != 2 {
		t.Fatalf("replay changed state: %+v", out3.Canonical.MemberIDs)
	}
}

func TestProcess_ThresholdBoundary(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	// Against the base vector (1,0,0) the similarity is the candidate's
	// first component over its norm. (4,3,0) has norm exactly 5, so its
	// similarity is exactly 4/5 = the default threshold.
	tests := []struct {
		name          string
		embedding     []float32
		wantDuplicate bool
	}{
		{name: "exactly at threshold", embedding: []float32{4, 3, 0}, wantDuplicate: true},
		{name: "just below threshold", embedding: []float32{0.79, float32(math.Sqrt(1 - 0.79*0.79)), 0}, wantDuplicate: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newTestEngine(t)

			base := article("a1", "HDFC Bank raises rates", []float32{1, 0, 0}, now)
			if _, err := engine.Process(ctx, base); err != nil {
				t.Fatalf("Process: %v", err)
			}

			next := article("a2", "HDFC Bank raises rates again", tt.embedding, now)

			out, err := engine.Process(ctx, next)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if out.Duplicate != tt.wantDuplicate {
				t.Fatalf("duplicate = %v (similarity %v), want %v", out.Duplicate, out.Decision.Similarity, tt.wantDuplicate)
			}
		})
	}
}

// unitVec builds a unit vector whose cosine against (1,0,0) is sim.
func unitVec(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim)), 0}
}

func seedCanonical(t *testing.T, s *memory.Store, id string, embedding []float32, at time.Time) {
	t.Helper()
	err := s.SaveCanonical(context.Background(), common.CanonicalArticle{
		ID:          id,
		Title:       "HDFC Bank raises rates",
		Sources:     []string{"wire"},
		PublishedAt: at,
		MemberIDs:   []string{id + "-m1"},
		Embedding:   embedding,
		EntityIDs:   []string{"company:hdfc-bank"},
	})
	if err != nil {
		t.Fatalf("SaveCanonical(%s): %v", id, err)
	}
}

func TestProcess_TieBreakStaysAboveThreshold(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)
	now := time.Now().UTC()

	// Older canonical above the threshold, newer one inside the tie band
	// but below it. The newer candidate must not displace the eligible
	// one: the article merges into the older canonical, and no write
	// conflict is reported.
	seedCanonical(t, s, "older", unitVec(0.805), now.Add(-2*time.Hour))
	seedCanonical(t, s, "newer", unitVec(0.797), now.Add(-time.Hour))

	out, err := engine.Process(ctx, article("a1", "HDFC Bank raises rates", []float32{1, 0, 0}, now))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !out.Duplicate {
		t.Fatalf("article at max similarity above threshold was not merged; created canonical %s (similarity %v)",
			out.Canonical.ID, out.Decision.Similarity)
	}
	if out.Canonical.ID != "older" {
		t.Fatalf("merged into %s, want older", out.Canonical.ID)
	}
	if math.Abs(out.Decision.Similarity-0.805) > 1e-3 {
		t.Fatalf("recorded similarity %v, want ~0.805", out.Decision.Similarity)
	}

	count, _ := s.CountCanonicals(ctx)
	if count != 2 {
		t.Fatalf("expected 2 canonical articles, got %d", count)
	}
}

func TestProcess_TieBreakPrefersRecentEligible(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)
	now := time.Now().UTC()

	// Both candidates clear the threshold and sit inside the tie band:
	// the more recent one wins, and the decision records its own score
	// rather than the displaced candidate's.
	seedCanonical(t, s, "older", unitVec(0.815), now.Add(-2*time.Hour))
	seedCanonical(t, s, "newer", unitVec(0.807), now.Add(-time.Hour))

	out, err := engine.Process(ctx, article("a1", "HDFC Bank raises rates", []float32{1, 0, 0}, now))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !out.Duplicate {
		t.Fatal("expected merge")
	}
	if out.Canonical.ID != "newer" {
		t.Fatalf("merged into %s, want newer", out.Canonical.ID)
	}
	if math.Abs(out.Decision.Similarity-0.807) > 1e-3 {
		t.Fatalf("recorded similarity %v, want the merged candidate's ~0.807", out.Decision.Similarity)
	}
}

func TestProcess_RequiresCorroboration(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	now := time.Now().UTC()

	base := article("a1", "HDFC Bank raises rates", []float32{1, 0, 0}, now)
	if _, err := engine.Process(ctx, base); err != nil {
		t.Fatalf("Process: %v", err)
	}

	// High similarity but disjoint title and different source.
	uncorroborated := common.Article{
		ID:          "a2",
		Title:       "Quarterly outlook published",
		Source:      "blog",
		PublishedAt: now,
		Embedding:   []float32{1, 0, 0},
		EntityIDs:   []string{"company:hdfc-bank"},
	}

	out, err := engine.Process(ctx, uncorroborated)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Duplicate {
		t.Fatal("similarity without corroboration must not merge")
	}
}

func TestProcess_WindowBoundsCandidates(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	now := time.Now().UTC()

	base := article("a1", "HDFC Bank raises rates", []float32{1, 0, 0}, now)
	if _, err := engine.Process(ctx, base); err != nil {
		t.Fatalf("Process: %v", err)
	}

	late := article("a2", "HDFC Bank raises rates", []float32{1, 0, 0}, now.Add(100*time.Hour))
	out, err := engine.Process(ctx, late)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Duplicate {
		t.Fatal("article outside the ±72h window must not merge")
	}
}

func TestProcess_CentroidAndUnions(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	now := time.Now().UTC()

	first := article("a1", "HDFC Bank raises rates", []float32{1, 0, 0}, now)
	first.Events = []string{"rate_change"}
	if _, err := engine.Process(ctx, first); err != nil {
		t.Fatalf("Process: %v", err)
	}

	second := article("a2", "HDFC Bank raises rates today", []float32{0.9, 0.1, 0}, now)
	second.EntityIDs = []string{"company:hdfc-bank", "sector:banking"}
	second.Events = []string{"rate_change", "policy_change"}

	out, err := engine.Process(ctx, second)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !out.Duplicate {
		t.Fatal("expected merge")
	}

	// Centroid is the running mean of both member embeddings.
	wantFirst := float32((1.0 + 0.9) / 2)
	if diff := out.Canonical.Embedding[0] - wantFirst; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("centroid[0] = %v, want %v", out.Canonical.Embedding[0], wantFirst)
	}

	if len(out.Canonical.EntityIDs) != 2 {
		t.Fatalf("entity union = %v", out.Canonical.EntityIDs)
	}
	if len(out.Canonical.Events) != 2 {
		t.Fatalf("event union = %v", out.Canonical.Events)
	}
}

func TestProcess_EmitsDecisionRecords(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)
	now := time.Now().UTC()

	if _, err := engine.Process(ctx, article("a1", "HDFC Bank raises rates", []float32{1, 0, 0}, now)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := engine.Process(ctx, article("a2", "HDFC Bank raises rates", []float32{1, 0, 0}, now)); err != nil {
		t.Fatalf("Process: %v", err)
	}

	decisions, err := s.ListDecisions(ctx, time.Time{})
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("expected 2 decision records, got %d", len(decisions))
	}
	if decisions[0].Duplicate || !decisions[1].Duplicate {
		t.Fatalf("unexpected outcomes: %+v", decisions)
	}
	if decisions[1].Similarity < 0.99 {
		t.Fatalf("recorded similarity %v, want ~1", decisions[1].Similarity)
	}
}
