package impact

import (
	"context"
	"fmt"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/store"
)

// DefaultDepth bounds the expansion walk; two hops cover the canonical
// Company → Sector → Regulator chain.
const DefaultDepth = 2

// Expander walks the impact graph outward from a set of literal entities,
// producing a weighted entity set for retrieval filtering and ranking. It
// only reads the graph.
type Expander struct {
	graph store.GraphStore
	now   func() time.Time
}

// NewExpander creates an Expander over the given graph.
func NewExpander(graph store.GraphStore) *Expander {
	return &Expander{graph: graph, now: time.Now}
}

// Expand returns the expanded entity set keyed by entity id. Seed entities
// carry weight 1.0 and an empty path; each reached entity carries the
// weight of its best path (product of decayed edge confidences) and the
// steps of that path. Depth values below 1 fall back to DefaultDepth.
func (e *Expander) Expand(ctx context.Context, seeds []string, depth int) (map[string]common.ExpansionPath, error) {
	if depth < 1 {
		depth = DefaultDepth
	}

	expanded := make(map[string]common.ExpansionPath, len(seeds))
	frontier := make([]common.ExpansionPath, 0, len(seeds))
	for _, id := range seeds {
		if id == "" {
			continue
		}
		path := common.ExpansionPath{EntityID: id, Weight: 1.0}
		expanded[id] = path
		frontier = append(frontier, path)
	}

	now := e.now().UTC()

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		next := make([]common.ExpansionPath, 0, len(frontier))

		for _, from := range frontier {
			relations, err := e.graph.Outgoing(ctx, from.EntityID)
			if err != nil {
				return nil, fmt.Errorf("expanding from %s: %w", from.EntityID, err)
			}

			for _, rel := range relations {
				weight := from.Weight * DecayedConfidence(rel.Confidence, rel.LastUpdated, now)
				if weight <= 0 {
					continue
				}
				if known, ok := expanded[rel.Target]; ok && known.Weight >= weight {
					continue
				}

				steps := make([]common.ExpansionStep, 0, len(from.Steps)+1)
				steps = append(steps, from.Steps...)
				steps = append(steps, common.ExpansionStep{From: rel.Source, To: rel.Target, Type: rel.Type})

				path := common.ExpansionPath{EntityID: rel.Target, Weight: weight, Steps: steps}
				expanded[rel.Target] = path
				next = append(next, path)
			}
		}

		frontier = next
	}

	return expanded, nil
}
