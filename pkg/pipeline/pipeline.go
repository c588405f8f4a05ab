package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tradl-labs/newsgraph/pkg/ai"
	"github.com/tradl-labs/newsgraph/pkg/ai/local"
	"github.com/tradl-labs/newsgraph/pkg/canon"
	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/dedup"
	"github.com/tradl-labs/newsgraph/pkg/entity"
	"github.com/tradl-labs/newsgraph/pkg/impact"
	"github.com/tradl-labs/newsgraph/pkg/logger"
	"github.com/tradl-labs/newsgraph/pkg/query"
	"github.com/tradl-labs/newsgraph/pkg/store"
)

const (
	defaultWorkers        = 4
	defaultCallTimeout    = 30 * time.Second
	defaultMaxEmbedTokens = 8000
)

// Pipeline is the orchestrator: it owns the lifecycle of one batch through
// canonicalization, translation, entity resolution, embedding, dedup, the
// impact graph and the retrieval index, and answers queries. Committed
// canonical articles and graph edges survive batch cancellation; the design
// is at-least-once with idempotent application, not atomic batches.
//
// A Pipeline should be created using NewPipeline.
type Pipeline struct {
	storage       store.Storage
	canonicalizer *canon.Canonicalizer
	resolver      *entity.Resolver
	engine        *dedup.Engine
	builder       *impact.Builder
	queries       *query.Engine

	providers ai.ProviderSet
	fallback  ai.ProviderSet

	workers        int
	callTimeout    time.Duration
	maxEmbedTokens int

	mu       sync.Mutex
	degraded bool
}

// NewPipelineParams configures a Pipeline. Providers must be complete.
// Fallback defaults to the deterministic local provider set; Workers to 4,
// CallTimeout to 30s and MaxEmbedTokens to 8000.
type NewPipelineParams struct {
	Storage   store.Storage
	Providers ai.ProviderSet
	Fallback  ai.ProviderSet

	DedupThreshold *dedup.Threshold
	FuzzyThreshold float64
	RankSimWeight  float64
	Workers        int
	CallTimeout    time.Duration
	MaxEmbedTokens int
}

// NewPipeline wires the processing components over shared storage. The
// returned error is a configuration error and fatal to the caller.
func NewPipeline(params NewPipelineParams) (*Pipeline, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("pipeline requires storage")
	}
	if !params.Providers.Complete() {
		return nil, fmt.Errorf("pipeline requires a complete provider set")
	}
	if !params.Fallback.Complete() {
		fallback := local.NewProvider(local.NewProviderParams{})
		params.Fallback = ai.ProviderSet{
			Embedder:   fallback,
			Recognizer: fallback,
			Translator: fallback,
			Sentiment:  fallback,
		}
	}
	if params.Workers <= 0 {
		params.Workers = defaultWorkers
	}
	if params.CallTimeout <= 0 {
		params.CallTimeout = defaultCallTimeout
	}
	if params.MaxEmbedTokens <= 0 {
		params.MaxEmbedTokens = defaultMaxEmbedTokens
	}

	resolver := entity.NewResolver(entity.NewResolverParams{
		Index:          params.Storage,
		FuzzyThreshold: params.FuzzyThreshold,
	})
	builder := impact.NewBuilder(impact.NewBuilderParams{Store: params.Storage})
	engine := dedup.NewEngine(dedup.NewEngineParams{
		Store:     params.Storage,
		Threshold: params.DedupThreshold,
	})
	var entityWeight float64
	if params.RankSimWeight > 0 {
		entityWeight = 1 - params.RankSimWeight
	}
	queries := query.NewEngine(query.NewEngineParams{
		Resolver:   resolver,
		Expander:   impact.NewExpander(params.Storage),
		Canonicals: params.Storage,
		Index:      params.Storage,
		Embedder:   params.Providers.Embedder,
		Recognizer: params.Providers.Recognizer,

		SimilarityWeight: params.RankSimWeight,
		EntityWeight:     entityWeight,
	})

	return &Pipeline{
		storage:        params.Storage,
		canonicalizer:  canon.NewCanonicalizer(),
		resolver:       resolver,
		engine:         engine,
		builder:        builder,
		queries:        queries,
		providers:      params.Providers,
		fallback:       params.Fallback,
		workers:        params.Workers,
		callTimeout:    params.CallTimeout,
		maxEmbedTokens: params.MaxEmbedTokens,
	}, nil
}

// ProcessNews runs a batch through the full write path. Failures are
// per-item: the report is always returned, even when every article failed.
func (p *Pipeline) ProcessNews(ctx context.Context, batch []common.RawArticle) common.ProcessingReport {
	var (
		reportMu sync.Mutex
		report   common.ProcessingReport
	)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)

	for _, raw := range batch {
		group.Go(func() error {
			outcome, err := p.processOne(ctx, raw)

			reportMu.Lock()
			defer reportMu.Unlock()
			switch {
			case err != nil:
				report.Rejected++
				report.Errors = append(report.Errors, common.ItemError{
					ArticleID: raw.ID,
					Kind:      common.ErrorKind(err),
					Message:   err.Error(),
				})
			case outcome.Duplicate:
				report.Duplicates++
				report.Decisions = append(report.Decisions, outcome.Decision)
			default:
				report.Accepted++
				report.Decisions = append(report.Decisions, outcome.Decision)
			}
			return nil
		})
	}
	// Workers record failures in the report instead of returning them.
	_ = group.Wait()

	report.Degraded = p.isDegraded()
	return report
}

// processOne runs the write path for a single raw article.
func (p *Pipeline) processOne(ctx context.Context, raw common.RawArticle) (dedup.Outcome, error) {
	article, err := p.canonicalizer.Canonicalize(raw)
	if err != nil {
		return dedup.Outcome{}, err
	}

	if article.Language != "" && article.Language != "en" {
		title, err := callProvider(p, ctx, func(ctx context.Context, set ai.ProviderSet) (string, error) {
			return set.Translator.Translate(ctx, article.Title, article.Language, "en")
		})
		if err != nil {
			return dedup.Outcome{}, fmt.Errorf("translating title: %w", err)
		}
		body, err := callProvider(p, ctx, func(ctx context.Context, set ai.ProviderSet) (string, error) {
			return set.Translator.Translate(ctx, article.Body, article.Language, "en")
		})
		if err != nil {
			return dedup.Outcome{}, fmt.Errorf("translating body: %w", err)
		}
		article.Title, article.Body = title, body
	}

	text := article.Title + "\n" + article.Body

	mentions, err := callProvider(p, ctx, func(ctx context.Context, set ai.ProviderSet) ([]common.Mention, error) {
		return set.Recognizer.Extract(ctx, text)
	})
	if err != nil {
		return dedup.Outcome{}, fmt.Errorf("recognizing entities: %w", err)
	}
	article.Mentions = mentions
	if err := p.resolveMentions(ctx, &article); err != nil {
		return dedup.Outcome{}, err
	}

	embedInput, err := ai.TruncateToTokens(text, p.maxEmbedTokens)
	if err != nil {
		embedInput = text
	}
	embedding, err := callProvider(p, ctx, func(ctx context.Context, set ai.ProviderSet) ([]float32, error) {
		return set.Embedder.Embed(ctx, embedInput)
	})
	if err != nil {
		return dedup.Outcome{}, fmt.Errorf("embedding article: %w", err)
	}
	article.Embedding = embedding

	sentiment, err := callProvider(p, ctx, func(ctx context.Context, set ai.ProviderSet) (float64, error) {
		return set.Sentiment.Score(ctx, text)
	})
	if err != nil {
		return dedup.Outcome{}, fmt.Errorf("scoring sentiment: %w", err)
	}
	article.Sentiment = sentiment

	outcome, err := p.engine.Process(ctx, article)
	if err != nil {
		return dedup.Outcome{}, err
	}

	if err := p.storage.AppendArticle(ctx, article); err != nil {
		return dedup.Outcome{}, fmt.Errorf("logging article: %w", err)
	}
	if outcome.Duplicate {
		if err := p.storage.MarkDuplicate(ctx, article.ID, outcome.Canonical.ID); err != nil {
			return dedup.Outcome{}, fmt.Errorf("marking duplicate: %w", err)
		}
	}

	if err := p.storage.Upsert(ctx, common.IndexEntry{
		CanonicalID: outcome.Canonical.ID,
		Embedding:   outcome.Canonical.Embedding,
		EntityIDs:   outcome.Canonical.EntityIDs,
		PublishedAt: outcome.Canonical.PublishedAt,
	}); err != nil {
		return dedup.Outcome{}, fmt.Errorf("indexing canonical: %w", err)
	}

	if err := p.builder.Observe(ctx, outcome.Canonical); err != nil {
		return dedup.Outcome{}, err
	}

	return outcome, nil
}

// resolveMentions maps the article's recognized spans to stable entity ids.
// Unresolvable spans are dropped, not fatal.
func (p *Pipeline) resolveMentions(ctx context.Context, article *common.Article) error {
	seen := make(map[string]struct{}, len(article.Mentions))
	for _, mention := range article.Mentions {
		resolution, ok, err := p.resolver.Resolve(ctx, mention)
		if err != nil {
			return fmt.Errorf("resolving %q: %w", mention.Text, err)
		}
		if !ok {
			continue
		}
		if _, dup := seen[resolution.Entity.ID]; dup {
			continue
		}
		seen[resolution.Entity.ID] = struct{}{}
		article.EntityIDs = append(article.EntityIDs, resolution.Entity.ID)
	}
	return nil
}

// QueryNews answers one query against the current graph and index.
func (p *Pipeline) QueryNews(ctx context.Context, text string, explain bool) ([]common.RankedResult, error) {
	return p.queries.Query(ctx, text, explain)
}

// Stats summarizes the knowledge base.
func (p *Pipeline) Stats(ctx context.Context) (common.Stats, error) {
	articles, err := p.storage.CountArticles(ctx)
	if err != nil {
		return common.Stats{}, fmt.Errorf("counting articles: %w", err)
	}
	canonicals, err := p.storage.CountCanonicals(ctx)
	if err != nil {
		return common.Stats{}, fmt.Errorf("counting canonical articles: %w", err)
	}
	entities, err := p.storage.CountEntities(ctx)
	if err != nil {
		return common.Stats{}, fmt.Errorf("counting entities: %w", err)
	}
	relations, err := p.storage.CountRelations(ctx)
	if err != nil {
		return common.Stats{}, fmt.Errorf("counting relations: %w", err)
	}

	stats := common.Stats{
		Articles:   articles,
		Canonicals: canonicals,
		Entities:   entities,
		Relations:  relations,
	}
	if articles > 0 {
		stats.DedupRatio = 1 - float64(canonicals)/float64(articles)
	}
	return stats, nil
}

func (p *Pipeline) isDegraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}

// degrade swaps all provider calls to the fallback set for the rest of the
// process lifetime. Logged once.
func (p *Pipeline) degrade(cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.degraded {
		return
	}
	p.degraded = true
	logger.Warn("[Pipeline] provider unavailable, degrading to local heuristics",
		"kind", common.ErrorKind(common.ErrProviderUnavailable), "error", cause)
}

func (p *Pipeline) activeProviders() ai.ProviderSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.degraded {
		return p.fallback
	}
	return p.providers
}

// callProvider runs one bounded external-provider call. Deadline overruns
// become ProviderTimeout (the item is skipped, the batch continues); any
// other provider failure degrades the pipeline to the fallback set and
// retries there, surfacing ProviderUnavailable only when the fallback fails
// too.
func callProvider[T any](p *Pipeline, ctx context.Context, call func(context.Context, ai.ProviderSet) (T, error)) (T, error) {
	var zero T

	result, err := invokeBounded(p, ctx, p.activeProviders(), call)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		// The batch itself was canceled or timed out.
		return zero, ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return zero, fmt.Errorf("%w: %v", common.ErrProviderTimeout, err)
	}

	p.degrade(err)
	result, err = invokeBounded(p, ctx, p.fallback, call)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", common.ErrProviderUnavailable, err)
	}
	return result, nil
}

func invokeBounded[T any](p *Pipeline, ctx context.Context, set ai.ProviderSet, call func(context.Context, ai.ProviderSet) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return call(callCtx, set)
}
