package entity

import (
	"context"
	"testing"

	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/store/memory"
)

func TestDeterministicID_StableAcrossRuns(t *testing.T) {
	a := DeterministicID("HDFC Bank", common.EntityCompany)
	b := DeterministicID("HDFC Bank", common.EntityCompany)
	if a != b {
		t.Fatalf("ids differ: %q vs %q", a, b)
	}
	if a != "company:hdfc-bank" {
		t.Fatalf("unexpected id %q", a)
	}
	if DeterministicID("HDFC Bank", common.EntitySector) == a {
		t.Fatal("ids must differ per type")
	}
}

func TestNormalizeAliasKey(t *testing.T) {
	got := NormalizeAliasKey("  hdfc   Bank ", common.EntityCompany)
	if got != "HDFC BANK|COMPANY" {
		t.Fatalf("NormalizeAliasKey = %q", got)
	}
}

func TestResolve_ExactAliasMatch(t *testing.T) {
	ctx := context.Background()
	index := memory.NewStore()
	if err := Seed(ctx, index); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	r := NewResolver(NewResolverParams{Index: index})

	res, ok, err := r.Resolve(ctx, common.Mention{Text: "SBI", Type: common.EntityCompany})
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if res.Entity.Name != "State Bank of India" || res.Created {
		t.Fatalf("expected seeded SBI entity, got %+v", res)
	}
}

func TestResolve_FuzzyMatchAboveThreshold(t *testing.T) {
	ctx := context.Background()
	index := memory.NewStore()
	if err := Seed(ctx, index); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	r := NewResolver(NewResolverParams{Index: index})

	// One dropped character still clears 0.85 edit similarity.
	res, ok, err := r.Resolve(ctx, common.Mention{Text: "HDFC Bnk", Type: common.EntityCompany})
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if res.Entity.ID != "company:hdfc-bank" || res.Created {
		t.Fatalf("expected fuzzy match to hdfc-bank, got %+v", res)
	}
	if res.Score < 0.85 {
		t.Fatalf("score %v below threshold", res.Score)
	}
}

func TestResolve_CreatesNewEntity(t *testing.T) {
	ctx := context.Background()
	index := memory.NewStore()
	r := NewResolver(NewResolverParams{Index: index})

	res, ok, err := r.Resolve(ctx, common.Mention{Text: "Acme Finance Ltd", Type: common.EntityCompany})
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if !res.Created {
		t.Fatalf("expected creation, got %+v", res)
	}

	// The bare form without the legal suffix resolves to the same entity.
	again, ok, err := r.Resolve(ctx, common.Mention{Text: "Acme Finance", Type: common.EntityCompany})
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if again.Created || again.Entity.ID != res.Entity.ID {
		t.Fatalf("expected resolution to existing entity, got %+v", again)
	}
}

func TestResolve_DropsTooShortSpans(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(NewResolverParams{Index: memory.NewStore()})

	_, ok, err := r.Resolve(ctx, common.Mention{Text: "X", Type: common.EntityCompany})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Fatal("single-character span should be dropped")
	}
}

func TestResolve_AliasMonotonicity(t *testing.T) {
	ctx := context.Background()
	index := memory.NewStore()
	if err := Seed(ctx, index); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	r := NewResolver(NewResolverParams{Index: index})

	// Learn a new alias through fuzzy resolution.
	res, ok, err := r.Resolve(ctx, common.Mention{Text: "Reliance Industries Ltd", Type: common.EntityCompany})
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	id := res.Entity.ID

	// An article later using the canonical name must hit the same identity.
	again, ok, err := r.Resolve(ctx, common.Mention{Text: "Reliance Industries", Type: common.EntityCompany})
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if again.Entity.ID != id {
		t.Fatalf("entity id changed: %q vs %q", again.Entity.ID, id)
	}

	// And the learned alias now resolves exactly.
	direct, ok, err := r.Lookup(ctx, common.Mention{Text: "Reliance Industries Ltd", Type: common.EntityCompany})
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if direct.Entity.ID != id || direct.Score != 1 {
		t.Fatalf("expected exact alias hit, got %+v", direct)
	}
}

func TestLookup_DoesNotCreate(t *testing.T) {
	ctx := context.Background()
	index := memory.NewStore()
	r := NewResolver(NewResolverParams{Index: index})

	_, ok, err := r.Lookup(ctx, common.Mention{Text: "Unknown Corp", Type: common.EntityCompany})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("lookup must not match in an empty index")
	}
	count, _ := index.CountEntities(ctx)
	if count != 0 {
		t.Fatalf("lookup must not create entities, index has %d", count)
	}
}

func TestSectorOf(t *testing.T) {
	if got := SectorOf("company:hdfc-bank"); got != "sector:banking" {
		t.Fatalf("SectorOf = %q", got)
	}
	if got := SectorOf("company:unknown"); got != "" {
		t.Fatalf("expected empty sector for unknown company, got %q", got)
	}
}
