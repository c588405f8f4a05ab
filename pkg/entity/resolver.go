package entity

import (
	"context"
	"fmt"
	"strings"

	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/logger"
	"github.com/tradl-labs/newsgraph/pkg/store"
)

const defaultFuzzyThreshold = 0.85

// Resolver maps recognizer spans to stable entity identities. Resolution
// order: exact alias match, fuzzy match above the threshold, then creation
// of a new entity. Every successful resolution registers the mention text
// as an alias, so the index only grows.
//
// A Resolver should be created using NewResolver.
type Resolver struct {
	index          store.AliasIndex
	fuzzyThreshold float64
}

// NewResolverParams configures a Resolver. FuzzyThreshold defaults to 0.85
// when unset.
type NewResolverParams struct {
	Index          store.AliasIndex
	FuzzyThreshold float64
}

// NewResolver creates a Resolver over the given alias index.
func NewResolver(params NewResolverParams) *Resolver {
	threshold := params.FuzzyThreshold
	if threshold <= 0 {
		threshold = defaultFuzzyThreshold
	}
	return &Resolver{
		index:          params.Index,
		fuzzyThreshold: threshold,
	}
}

// Resolution is the outcome of resolving one mention.
type Resolution struct {
	Entity    common.Entity
	Created   bool
	Score     float64
	RunnersUp []string
}

// Resolve maps one mention to an entity, creating a new one when nothing
// matches. The boolean is false when the span is dropped (too short to
// justify a new entity). Ambiguous fuzzy matches resolve to the best
// candidate with the runners-up recorded for audit.
func (r *Resolver) Resolve(ctx context.Context, mention common.Mention) (Resolution, bool, error) {
	resolution, ok, err := r.Lookup(ctx, mention)
	if err != nil {
		return Resolution{}, false, err
	}
	if ok {
		if err := r.learnAlias(ctx, resolution.Entity, mention); err != nil {
			return Resolution{}, false, err
		}
		return resolution, true, nil
	}

	name := strings.Join(strings.Fields(mention.Text), " ")
	if len([]rune(name)) < 2 {
		return Resolution{}, false, nil
	}

	created := common.Entity{
		ID:      DeterministicID(name, mention.Type),
		Name:    name,
		Type:    mention.Type,
		Aliases: append([]string{name}, expandIndicatorForms(name)...),
	}
	keys := make([]string, 0, len(created.Aliases))
	for _, alias := range created.Aliases {
		keys = append(keys, NormalizeAliasKey(alias, created.Type))
	}
	if err := r.index.SaveEntity(ctx, created, keys); err != nil {
		return Resolution{}, false, fmt.Errorf("creating entity for %q: %w", name, err)
	}

	return Resolution{Entity: created, Created: true, Score: 1}, true, nil
}

// Lookup resolves a mention against existing entities only, without
// creating anything. Query parsing uses this so unknown query terms do not
// pollute the entity index.
func (r *Resolver) Lookup(ctx context.Context, mention common.Mention) (Resolution, bool, error) {
	// Exact alias keys first, including the form with a legal suffix
	// (Ltd, Inc, Corp) stripped.
	forms := append([]string{mention.Text}, expandIndicatorForms(mention.Text)...)
	for _, form := range forms {
		key := NormalizeAliasKey(form, mention.Type)
		id, ok, err := r.index.LookupAlias(ctx, key)
		if err != nil {
			return Resolution{}, false, fmt.Errorf("alias lookup for %q: %w", form, err)
		}
		if !ok {
			continue
		}
		e, found, err := r.index.GetEntity(ctx, id)
		if err != nil {
			return Resolution{}, false, err
		}
		if found {
			return Resolution{Entity: e, Score: 1}, true, nil
		}
	}

	return r.fuzzyLookup(ctx, mention)
}

func (r *Resolver) fuzzyLookup(ctx context.Context, mention common.Mention) (Resolution, bool, error) {
	entities, err := r.index.ListEntities(ctx)
	if err != nil {
		return Resolution{}, false, fmt.Errorf("listing entities: %w", err)
	}

	var (
		best      common.Entity
		bestScore float64
		runnersUp []string
	)
	for _, e := range entities {
		if e.Type != mention.Type {
			continue
		}
		score := matchScore(mention.Text, e.Name)
		for _, alias := range e.Aliases {
			if s := matchScore(mention.Text, alias); s > score {
				score = s
			}
		}
		if score < r.fuzzyThreshold {
			continue
		}
		if score > bestScore {
			if best.ID != "" {
				runnersUp = append(runnersUp, best.ID)
			}
			best, bestScore = e, score
		} else {
			runnersUp = append(runnersUp, e.ID)
		}
	}

	if best.ID == "" {
		return Resolution{}, false, nil
	}

	if len(runnersUp) > 0 {
		// Best candidate wins; the ambiguity is logged for audit, not fatal.
		logger.Warn("[Entity] ambiguous resolution",
			"mention", mention.Text,
			"resolved", best.ID,
			"score", bestScore,
			"runners_up", strings.Join(runnersUp, ","),
			"kind", common.ErrorKind(common.ErrAmbiguousResolution),
		)
	}

	return Resolution{Entity: best, Score: bestScore, RunnersUp: runnersUp}, true, nil
}

// learnAlias registers the mention text as an alias of entity so the next
// run resolves it exactly.
func (r *Resolver) learnAlias(ctx context.Context, e common.Entity, mention common.Mention) error {
	name := strings.Join(strings.Fields(mention.Text), " ")
	if name == "" {
		return nil
	}

	for _, alias := range e.Aliases {
		if strings.EqualFold(alias, name) {
			return nil
		}
	}

	e.Aliases = append(e.Aliases, name)
	key := NormalizeAliasKey(name, e.Type)
	if err := r.index.SaveEntity(ctx, e, []string{key}); err != nil {
		return fmt.Errorf("learning alias %q for %s: %w", name, e.ID, err)
	}
	return nil
}
