package impact

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/entity"
	"github.com/tradl-labs/newsgraph/pkg/logger"
	"github.com/tradl-labs/newsgraph/pkg/store"
)

const (
	// defaultAlpha is the exponential smoothing factor for confidence
	// updates on existing edges.
	defaultAlpha = 0.3

	// confidenceFloor is the value old, unrepeated relations decay toward.
	// Historical links never vanish entirely.
	confidenceFloor = 0.05

	// decayHalfLife halves the distance to the floor once per period
	// without new evidence.
	decayHalfLife = 30 * 24 * time.Hour

	// disagreementSpread is the polarity range across supporting articles
	// above which the observed confidence is penalized.
	disagreementSpread = 1.0

	disagreementPenalty = 0.7
)

// supplyVocabulary marks text as describing a supplier relationship between
// companies of the same sector.
var supplyVocabulary = []string{
	"supplies", "supplier", "supply", "procures", "procurement",
	"sources from", "vendor", "raw material", "component", "contract with",
}

// Builder maintains the impact graph: one confidence-scored edge per
// (source, target, type) triple, updated from entity co-occurrence in
// canonical articles. Edge writes are serialized per entity pair through
// the store's entity locks.
//
// A Builder should be created using NewBuilder.
type Builder struct {
	store store.Storage
	alpha float64
	now   func() time.Time
}

// NewBuilderParams configures a Builder. Alpha defaults to 0.3.
type NewBuilderParams struct {
	Store store.Storage
	Alpha float64
}

// NewBuilder creates an impact graph Builder.
func NewBuilder(params NewBuilderParams) *Builder {
	if params.Alpha <= 0 || params.Alpha > 1 {
		params.Alpha = defaultAlpha
	}
	return &Builder{
		store: params.Store,
		alpha: params.Alpha,
		now:   time.Now,
	}
}

// Observe folds one canonical article into the graph: every unordered pair
// of co-occurring entities yields a typed edge whose confidence grows with
// corroboration across distinct canonical articles. Re-observing the same
// canonical article is a no-op per edge.
func (b *Builder) Observe(ctx context.Context, canonical common.CanonicalArticle) error {
	ids := uniqueSorted(canonical.EntityIDs)
	if len(ids) < 2 {
		return nil
	}

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			source, target, relType := inferRelation(ids[i], ids[j], canonical.Body)
			if err := b.updateEdge(ctx, source, target, relType, canonical); err != nil {
				return fmt.Errorf("updating edge %s->%s (%s): %w", source, target, relType, err)
			}
		}
	}
	return nil
}

// inferRelation applies the fixed priority table to a co-occurring entity
// pair: regulator involvement wins, then same-sector company pairs split on
// supply-chain vocabulary, everything else is a generic AFFECTS edge.
func inferRelation(a, b string, body string) (source, target string, relType common.RelationType) {
	typeA, typeB := entity.TypeFromID(a), entity.TypeFromID(b)

	if typeA == common.EntityRegulator && typeB != common.EntityRegulator {
		return a, b, common.RelationRegulates
	}
	if typeB == common.EntityRegulator && typeA != common.EntityRegulator {
		return b, a, common.RelationRegulates
	}

	if typeA == common.EntityCompany && typeB == common.EntityCompany {
		sectorA, sectorB := entity.SectorOf(a), entity.SectorOf(b)
		if sectorA != "" && sectorA == sectorB {
			if containsSupplyVocabulary(body) {
				return a, b, common.RelationSupplies
			}
			return a, b, common.RelationCompetes
		}
	}

	return a, b, common.RelationAffects
}

func containsSupplyVocabulary(body string) bool {
	lower := strings.ToLower(body)
	for _, term := range supplyVocabulary {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// updateEdge creates or smooths the edge for one triple under the write
// locks of both endpoints.
func (b *Builder) updateEdge(ctx context.Context, source, target string, relType common.RelationType, canonical common.CanonicalArticle) error {
	// Lock endpoints in id order so concurrent updates of overlapping
	// pairs cannot deadlock.
	first, second := source, target
	if second < first {
		first, second = second, first
	}
	unlockFirst := b.store.LockEntity(first)
	defer unlockFirst()
	if second != first {
		unlockSecond := b.store.LockEntity(second)
		defer unlockSecond()
	}

	now := b.now().UTC()

	relation, exists, err := b.store.GetRelation(ctx, source, target, relType)
	if err != nil {
		return fmt.Errorf("loading relation: %w", err)
	}

	if !exists {
		relation = common.Relation{
			Source:       source,
			Target:       target,
			Type:         relType,
			SentimentMin: canonical.Sentiment,
			SentimentMax: canonical.Sentiment,
		}
	} else {
		for _, id := range relation.SupportIDs {
			if id == canonical.ID {
				// At-least-once delivery; this article already counted.
				return nil
			}
		}
	}

	relation.Corroboration++
	relation.SentimentSum += canonical.Sentiment
	relation.SentimentMin = math.Min(relation.SentimentMin, canonical.Sentiment)
	relation.SentimentMax = math.Max(relation.SentimentMax, canonical.Sentiment)
	relation.SupportIDs = append(relation.SupportIDs, canonical.ID)

	observed := observedConfidence(relation)
	if exists {
		decayed := DecayedConfidence(relation.Confidence, relation.LastUpdated, now)
		relation.Confidence = b.alpha*observed + (1-b.alpha)*decayed
	} else {
		relation.Confidence = observed
	}
	relation.LastUpdated = now

	if err := b.store.SaveRelation(ctx, relation); err != nil {
		return fmt.Errorf("saving relation: %w", err)
	}

	logger.Debug("[Impact] edge updated",
		"source", source,
		"target", target,
		"type", relType,
		"confidence", relation.Confidence,
		"corroboration", relation.Corroboration,
	)
	return nil
}

// observedConfidence turns the edge's evidence into a [0,1) score:
// corroboration saturates as n/(n+2), and strong polarity disagreement
// across supporting articles discounts it.
func observedConfidence(relation common.Relation) float64 {
	n := float64(relation.Corroboration)
	confidence := n / (n + 2)
	if relation.SentimentMax-relation.SentimentMin >= disagreementSpread {
		confidence *= disagreementPenalty
	}
	return confidence
}

// DecayedConfidence applies recency decay to a stored confidence: the
// distance to the floor halves every 30 days since the last update. Readers
// use it to discount stale edges without rewriting them.
func DecayedConfidence(confidence float64, lastUpdated time.Time, now time.Time) float64 {
	if confidence <= confidenceFloor || lastUpdated.IsZero() || !now.After(lastUpdated) {
		return confidence
	}
	periods := now.Sub(lastUpdated).Hours() / decayHalfLife.Hours()
	return confidenceFloor + (confidence-confidenceFloor)*math.Pow(0.5, periods)
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
