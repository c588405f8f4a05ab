package impact

import (
	"context"
	"fmt"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/entity"
	"github.com/tradl-labs/newsgraph/pkg/store"
)

// seedConfidence is the prior for baseline market relations. High enough
// to drive expansion before any evidence arrives, low enough that observed
// co-occurrence quickly dominates.
const seedConfidence = 0.6

type seedEdge struct {
	source  string
	target  string
	relType common.RelationType
}

// baselineEdges encodes well-known Indian market structure: regulators over
// their sectors and the main cross-sector supply chains.
func baselineEdges() []seedEdge {
	sector := func(name string) string { return entity.DeterministicID(name, common.EntitySector) }
	regulator := func(name string) string { return entity.DeterministicID(name, common.EntityRegulator) }

	edges := []seedEdge{
		{source: regulator("RBI"), target: sector("Banking"), relType: common.RelationRegulates},
		{source: regulator("TRAI"), target: sector("Telecom"), relType: common.RelationRegulates},
		{source: regulator("SEBI"), target: sector("Banking"), relType: common.RelationRegulates},
		{source: regulator("SEBI"), target: sector("IT"), relType: common.RelationRegulates},
		// Reverse hops so a sector expansion reaches its regulator.
		{source: sector("Banking"), target: regulator("RBI"), relType: common.RelationAffects},
		{source: sector("Telecom"), target: regulator("TRAI"), relType: common.RelationAffects},
		{source: sector("Steel"), target: sector("Auto"), relType: common.RelationSupplies},
		{source: sector("Steel"), target: sector("Real Estate"), relType: common.RelationSupplies},
		{source: sector("Cement"), target: sector("Real Estate"), relType: common.RelationSupplies},
		{source: sector("Energy"), target: sector("Auto"), relType: common.RelationSupplies},
	}

	// Every company is tied to its sector so a sector-level hop reaches
	// company-tagged articles and vice versa.
	for _, e := range entity.SeedEntities() {
		if e.Type != common.EntityCompany {
			continue
		}
		sectorID := entity.SectorOf(e.ID)
		if sectorID == "" {
			continue
		}
		edges = append(edges,
			seedEdge{source: e.ID, target: sectorID, relType: common.RelationAffects},
			seedEdge{source: sectorID, target: e.ID, relType: common.RelationAffects},
		)
	}

	return edges
}

// SeedRelations writes the baseline market edges into the graph. Existing
// edges are left untouched, so evidence-built confidence always wins over
// the prior; seeding is idempotent and safe at every startup.
func SeedRelations(ctx context.Context, graph store.GraphStore) error {
	now := time.Now().UTC()

	for _, edge := range baselineEdges() {
		_, exists, err := graph.GetRelation(ctx, edge.source, edge.target, edge.relType)
		if err != nil {
			return fmt.Errorf("checking baseline edge %s->%s: %w", edge.source, edge.target, err)
		}
		if exists {
			continue
		}

		relation := common.Relation{
			Source:        edge.source,
			Target:        edge.target,
			Type:          edge.relType,
			Confidence:    seedConfidence,
			Corroboration: 1,
			LastUpdated:   now,
		}
		if err := graph.SaveRelation(ctx, relation); err != nil {
			return fmt.Errorf("seeding baseline edge %s->%s: %w", edge.source, edge.target, err)
		}
	}
	return nil
}
