package dedup

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/tradl-labs/newsgraph/internal/util"
	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/logger"
	"github.com/tradl-labs/newsgraph/pkg/store"
)

const (
	// DefaultThreshold is the cosine similarity above which a corroborated
	// candidate is treated as a duplicate.
	DefaultThreshold = 0.80

	// defaultWindow bounds the candidate lookup around the article's
	// publication time.
	defaultWindow = 72 * time.Hour

	// tieEpsilon is the similarity band within which the more recent
	// merge-eligible candidate wins.
	tieEpsilon = 0.01

	// titleOverlapMin is the title token Jaccard corroborating a
	// similarity hit.
	titleOverlapMin = 0.5
)

// Engine decides whether an embedded article duplicates an existing
// canonical article or starts a new one. Candidate lookup runs lock-free
// against a snapshot; the merge is re-validated under the canonical's write
// lock and retried once on conflict.
//
// An Engine should be created using NewEngine.
type Engine struct {
	store     store.Storage
	threshold *Threshold
	window    time.Duration
	now       func() time.Time
}

// NewEngineParams configures an Engine. Threshold defaults to a fresh
// Threshold at DefaultThreshold; Window defaults to 72h.
type NewEngineParams struct {
	Store     store.Storage
	Threshold *Threshold
	Window    time.Duration
}

// NewEngine creates a dedup Engine.
func NewEngine(params NewEngineParams) *Engine {
	if params.Threshold == nil {
		params.Threshold = NewThreshold(DefaultThreshold)
	}
	if params.Window <= 0 {
		params.Window = defaultWindow
	}
	return &Engine{
		store:     params.Store,
		threshold: params.Threshold,
		window:    params.Window,
		now:       time.Now,
	}
}

// Outcome is the result of one dedup decision. Canonical is the merged
// canonical article when Duplicate is true, or the freshly created one
// otherwise.
type Outcome struct {
	Canonical common.CanonicalArticle
	Duplicate bool
	Decision  common.DedupDecision
}

// Process runs the dedup decision for one embedded, entity-tagged article
// and commits the resulting canonical article. The decision record is
// appended to the decision log as a side effect.
func (e *Engine) Process(ctx context.Context, article common.Article) (Outcome, error) {
	outcome, err := e.decide(ctx, article)
	if err == nil {
		if logErr := e.store.AppendDecision(ctx, outcome.Decision); logErr != nil {
			logger.Warn("[Dedup] failed to append decision record", "article", article.ID, "error", logErr)
		}
		return outcome, nil
	}

	// Optimistic merge lost a race: retry once with fresh state.
	if err == errMergeConflict {
		logger.Debug("[Dedup] merge conflict, retrying with fresh state", "article", article.ID)
		outcome, err = e.decide(ctx, article)
		if err == errMergeConflict {
			return Outcome{}, fmt.Errorf("article %s: merge re-validation failed twice: %w", article.ID, common.ErrGraphWriteConflict)
		}
		if err == nil {
			if logErr := e.store.AppendDecision(ctx, outcome.Decision); logErr != nil {
				logger.Warn("[Dedup] failed to append decision record", "article", article.ID, "error", logErr)
			}
		}
	}
	return outcome, err
}

var errMergeConflict = fmt.Errorf("merge re-validation failed")

func (e *Engine) decide(ctx context.Context, article common.Article) (Outcome, error) {
	threshold := e.threshold.Value()

	candidates, err := e.store.Candidates(
		ctx,
		article.EntityIDs,
		article.PublishedAt.Add(-e.window),
		article.PublishedAt.Add(e.window),
	)
	if err != nil {
		return Outcome{}, fmt.Errorf("candidate lookup: %w", err)
	}

	best, bestSim, corroborated := pickBest(article, candidates, threshold)

	decision := common.DedupDecision{
		ArticleID:    article.ID,
		Similarity:   bestSim,
		Threshold:    threshold,
		Corroborated: corroborated,
		DecidedAt:    e.now().UTC(),
	}
	if id, err := gonanoid.New(); err == nil {
		decision.ID = id
	}

	if bestSim >= threshold && corroborated {
		merged, err := e.merge(ctx, article, best.ID, threshold)
		if err != nil {
			return Outcome{}, err
		}
		decision.Duplicate = true
		decision.CanonicalID = merged.ID
		return Outcome{Canonical: merged, Duplicate: true, Decision: decision}, nil
	}

	created, err := e.createCanonical(ctx, article)
	if err != nil {
		return Outcome{}, err
	}
	decision.CanonicalID = created.ID
	return Outcome{Canonical: created, Decision: decision}, nil
}

// pickBest selects the merge target: among candidates that clear the
// threshold and are corroborated on their own, the most recent one within
// tieEpsilon of the top score wins, curbing stale-cluster growth without
// ever promoting a sub-threshold candidate. The returned similarity always
// belongs to the returned candidate. When no candidate qualifies, the
// closest candidate is returned so the decision record still carries the
// maximum similarity observed.
func pickBest(article common.Article, candidates []common.CanonicalArticle, threshold float64) (common.CanonicalArticle, float64, bool) {
	var (
		closest    common.CanonicalArticle
		closestSim = -1.0

		eligible []common.CanonicalArticle
		sims     []float64
		maxSim   = -1.0
	)

	for _, candidate := range candidates {
		sim := util.Cosine(article.Embedding, candidate.Embedding)
		if sim > closestSim {
			closest, closestSim = candidate, sim
		}
		if sim < threshold || !corroborates(article, candidate) {
			continue
		}
		eligible = append(eligible, candidate)
		sims = append(sims, sim)
		if sim > maxSim {
			maxSim = sim
		}
	}

	// The band is anchored at the top eligible score so successive
	// replacements cannot drift it below maxSim-tieEpsilon.
	var (
		target    common.CanonicalArticle
		targetSim float64
	)
	for i, candidate := range eligible {
		if sims[i] <= maxSim-tieEpsilon {
			continue
		}
		if target.ID == "" || candidate.PublishedAt.After(target.PublishedAt) {
			target, targetSim = candidate, sims[i]
		}
	}
	if target.ID != "" {
		return target, targetSim, true
	}

	if closest.ID == "" {
		return common.CanonicalArticle{}, 0, false
	}
	return closest, closestSim, corroborates(article, closest)
}

// corroborates checks the metadata agreement required on top of embedding
// similarity: overlapping title tokens or a shared source.
func corroborates(article common.Article, candidate common.CanonicalArticle) bool {
	if util.Jaccard(article.Title, candidate.Title) > titleOverlapMin {
		return true
	}
	for _, source := range candidate.Sources {
		if source != "" && source == article.Source {
			return true
		}
	}
	return false
}

// merge folds the article into canonical id under its write lock,
// re-validating similarity against the latest state first.
func (e *Engine) merge(ctx context.Context, article common.Article, canonicalID string, threshold float64) (common.CanonicalArticle, error) {
	unlock := e.store.LockCanonical(canonicalID)
	defer unlock()

	canonical, ok, err := e.store.GetCanonical(ctx, canonicalID)
	if err != nil {
		return common.CanonicalArticle{}, fmt.Errorf("reloading canonical %s: %w", canonicalID, err)
	}
	if !ok || util.Cosine(article.Embedding, canonical.Embedding) < threshold {
		return common.CanonicalArticle{}, errMergeConflict
	}

	for _, member := range canonical.MemberIDs {
		if member == article.ID {
			// Already merged; at-least-once delivery makes this a no-op.
			return canonical, nil
		}
	}

	n := float64(len(canonical.MemberIDs))
	if len(canonical.Embedding) == len(article.Embedding) {
		for i := range canonical.Embedding {
			canonical.Embedding[i] = float32((float64(canonical.Embedding[i])*n + float64(article.Embedding[i])) / (n + 1))
		}
	}
	canonical.Sentiment = (canonical.Sentiment*n + article.Sentiment) / (n + 1)

	canonical.MemberIDs = append(canonical.MemberIDs, article.ID)
	canonical.EntityIDs = unionStrings(canonical.EntityIDs, article.EntityIDs)
	canonical.Events = unionStrings(canonical.Events, article.Events)
	canonical.Sources = unionStrings(canonical.Sources, []string{article.Source})

	if err := e.store.SaveCanonical(ctx, canonical); err != nil {
		return common.CanonicalArticle{}, fmt.Errorf("saving merged canonical %s: %w", canonicalID, err)
	}
	return canonical, nil
}

func (e *Engine) createCanonical(ctx context.Context, article common.Article) (common.CanonicalArticle, error) {
	id, err := gonanoid.New()
	if err != nil {
		return common.CanonicalArticle{}, fmt.Errorf("generating canonical id: %w", err)
	}

	canonical := common.CanonicalArticle{
		ID:          id,
		Title:       article.Title,
		Body:        article.Body,
		Sources:     []string{article.Source},
		PublishedAt: article.PublishedAt,
		Language:    article.Language,
		MemberIDs:   []string{article.ID},
		Embedding:   article.Embedding,
		EntityIDs:   article.EntityIDs,
		Events:      article.Events,
		Sentiment:   article.Sentiment,
	}
	if err := e.store.SaveCanonical(ctx, canonical); err != nil {
		return common.CanonicalArticle{}, fmt.Errorf("saving canonical: %w", err)
	}
	return canonical, nil
}

func unionStrings(base []string, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, s := range base {
		seen[s] = struct{}{}
	}
	for _, s := range extra {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			base = append(base, s)
		}
	}
	return base
}
