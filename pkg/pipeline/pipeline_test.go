package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/ai"
	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/store/memory"
)

type vectorRule struct {
	substring string
	vector    []float32
}

// stubProviders implements every capability role deterministically so the
// full write path runs without external services. Vector rules match in
// order, first hit wins.
type stubProviders struct {
	vectors []vectorRule

	embedErr   error
	embedHangs string
}

func (s *stubProviders) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	if s.embedHangs != "" && strings.Contains(text, s.embedHangs) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	for _, rule := range s.vectors {
		if strings.Contains(text, rule.substring) {
			return rule.vector, nil
		}
	}
	return []float32{0, 0, 1}, nil
}

func (s *stubProviders) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (s *stubProviders) Dimensions() int { return 3 }

func (s *stubProviders) Extract(ctx context.Context, text string) ([]common.Mention, error) {
	var mentions []common.Mention
	for _, name := range []string{"HDFC Bank", "TCS"} {
		if offset := strings.Index(text, name); offset >= 0 {
			mentions = append(mentions, common.Mention{Text: name, Offset: offset, Type: common.EntityCompany})
		}
	}
	return mentions, nil
}

func (s *stubProviders) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return text, nil
}

func (s *stubProviders) Score(ctx context.Context, text string) (float64, error) {
	return 0.2, nil
}

func (s *stubProviders) Name() string { return "stub" }

func providerSet(stub *stubProviders) ai.ProviderSet {
	return ai.ProviderSet{Embedder: stub, Recognizer: stub, Translator: stub, Sentiment: stub}
}

func newTestPipeline(t *testing.T, stub *stubProviders) (*Pipeline, *memory.Store) {
	t.Helper()
	s := memory.NewStore()
	// A single worker keeps batch ordering deterministic for assertions.
	p, err := NewPipeline(NewPipelineParams{
		Storage:     s,
		Providers:   providerSet(stub),
		Workers:     1,
		CallTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p, s
}

func rawArticle(id, title, content string) common.RawArticle {
	return common.RawArticle{
		ID:      id,
		Title:   title,
		Content: content,
		Source:  "wire",
		Date:    "2026-08-20",
	}
}

func hdfcStub() *stubProviders {
	return &stubProviders{vectors: []vectorRule{
		// The two HDFC variants embed at cosine similarity 0.92.
		{substring: "25 bps", vector: []float32{0.92, 0.39191836, 0}},
		{substring: "HDFC", vector: []float32{1, 0, 0}},
		{substring: "TCS", vector: []float32{0, 1, 0}},
	}}
}

func TestProcessNews_EndToEnd(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(t, hdfcStub())

	report := p.ProcessNews(ctx, []common.RawArticle{
		rawArticle("a1", "HDFC Bank raises rates", "HDFC Bank raised lending rates on Wednesday."),
		rawArticle("a2", "HDFC Bank raises rates today", "HDFC Bank raised lending rates by 25 bps."),
		rawArticle("a3", "TCS expands hiring", "TCS will add engineering roles this quarter."),
	})

	if report.Rejected != 0 {
		t.Fatalf("rejected = %d, errors = %+v", report.Rejected, report.Errors)
	}
	if report.Accepted != 2 || report.Duplicates != 1 {
		t.Fatalf("accepted/duplicates = %d/%d, want 2/1", report.Accepted, report.Duplicates)
	}
	if report.Degraded {
		t.Fatal("report flagged degraded without provider failure")
	}

	stats, err := p.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Articles != 3 || stats.Canonicals != 2 {
		t.Fatalf("stats = %+v, want 3 articles in 2 canonicals", stats)
	}

	results, err := p.QueryNews(ctx, "HDFC Bank rate news", false)
	if err != nil {
		t.Fatalf("QueryNews: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("query returned nothing")
	}
	for _, r := range results {
		canonical, ok, err := p.storage.GetCanonical(ctx, r.CanonicalID)
		if err != nil || !ok {
			t.Fatalf("missing canonical %s", r.CanonicalID)
		}
		if strings.Contains(canonical.Title, "TCS") {
			t.Fatalf("TCS article leaked into an HDFC query: %+v", results)
		}
	}
	first, _, _ := p.storage.GetCanonical(ctx, results[0].CanonicalID)
	if !strings.Contains(first.Title, "HDFC") {
		t.Fatalf("top result %q is not the HDFC canonical", first.Title)
	}
	if len(first.MemberIDs) != 2 {
		t.Fatalf("HDFC canonical members = %v, want the merged pair", first.MemberIDs)
	}
}

func TestProcessNews_PartialFailure(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(t, hdfcStub())

	batch := []common.RawArticle{
		rawArticle("a1", "HDFC Bank quarterly update one", "Earnings details."),
		rawArticle("a2", "TCS wins contract", "Deal details."),
		rawArticle("a3", "Market roundup", "Broad market commentary."),
		rawArticle("a4", "Policy note", "Central bank commentary."),
	}
	bad := rawArticle("a5", "Broken date", "Content present.")
	bad.Date = "not-a-date"
	batch = append(batch, bad)

	report := p.ProcessNews(ctx, batch)

	if report.Rejected != 1 {
		t.Fatalf("rejected = %d, want 1", report.Rejected)
	}
	if report.Accepted+report.Duplicates != 4 {
		t.Fatalf("processed = %d, want 4", report.Accepted+report.Duplicates)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("errors = %+v, want exactly one", report.Errors)
	}
	if report.Errors[0].ArticleID != "a5" || report.Errors[0].Kind != "MalformedArticle" {
		t.Fatalf("error = %+v", report.Errors[0])
	}
}

func TestProcessNews_TimeoutSkipsItem(t *testing.T) {
	ctx := context.Background()
	stub := hdfcStub()
	stub.embedHangs = "stalls"
	p, _ := newTestPipeline(t, stub)

	report := p.ProcessNews(ctx, []common.RawArticle{
		rawArticle("a1", "HDFC Bank raises rates", "HDFC Bank raised lending rates."),
		rawArticle("a2", "This one stalls", "The embedding call never returns."),
	})

	if report.Accepted != 1 || report.Rejected != 1 {
		t.Fatalf("accepted/rejected = %d/%d, want 1/1", report.Accepted, report.Rejected)
	}
	if len(report.Errors) != 1 || report.Errors[0].Kind != "ProviderTimeout" {
		t.Fatalf("errors = %+v, want one ProviderTimeout", report.Errors)
	}
}

func TestProcessNews_DegradesToFallback(t *testing.T) {
	ctx := context.Background()
	stub := hdfcStub()
	stub.embedErr = fmt.Errorf("connection refused")
	p, _ := newTestPipeline(t, stub)

	report := p.ProcessNews(ctx, []common.RawArticle{
		rawArticle("a1", "HDFC Bank raises rates", "HDFC Bank raised lending rates."),
	})

	if !report.Degraded {
		t.Fatal("report must flag degraded mode")
	}
	if report.Accepted != 1 || report.Rejected != 0 {
		t.Fatalf("accepted/rejected = %d/%d, want the fallback to carry the item", report.Accepted, report.Rejected)
	}
}

func TestProcessNews_EmptyBatch(t *testing.T) {
	p, _ := newTestPipeline(t, hdfcStub())
	report := p.ProcessNews(context.Background(), nil)
	if report.Accepted != 0 || report.Rejected != 0 || report.Duplicates != 0 {
		t.Fatalf("empty batch produced %+v", report)
	}
}
