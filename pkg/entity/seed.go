package entity

import (
	"context"
	"fmt"

	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/store"
)

type seedCompany struct {
	name    string
	symbol  string
	sector  string
	aliases []string
}

var seedCompanies = []seedCompany{
	{name: "HDFC Bank", symbol: "HDFCBANK", sector: "Banking", aliases: []string{"HDFC", "HDFC Bank Ltd"}},
	{name: "ICICI Bank", symbol: "ICICIBANK", sector: "Banking", aliases: []string{"ICICI"}},
	{name: "Axis Bank", symbol: "AXISBANK", sector: "Banking"},
	{name: "State Bank of India", symbol: "SBIN", sector: "Banking", aliases: []string{"SBI"}},
	{name: "Kotak Mahindra Bank", symbol: "KOTAKBANK", sector: "Banking", aliases: []string{"Kotak Bank"}},
	{name: "Tata Consultancy Services", symbol: "TCS", sector: "IT", aliases: []string{"TCS"}},
	{name: "Infosys", symbol: "INFY", sector: "IT", aliases: []string{"Infosys Ltd"}},
	{name: "Wipro", symbol: "WIPRO", sector: "IT"},
	{name: "Reliance Industries", symbol: "RELIANCE", sector: "Energy", aliases: []string{"Reliance", "RIL"}},
	{name: "Tata Motors", symbol: "TATAMOTORS", sector: "Auto"},
	{name: "Maruti Suzuki", symbol: "MARUTI", sector: "Auto", aliases: []string{"Maruti"}},
	{name: "Tata Steel", symbol: "TATASTEEL", sector: "Steel"},
	{name: "JSW Steel", symbol: "JSWSTEEL", sector: "Steel"},
	{name: "Sun Pharma", symbol: "SUNPHARMA", sector: "Pharma", aliases: []string{"Sun Pharmaceutical"}},
	{name: "Hindustan Unilever", symbol: "HINDUNILVR", sector: "FMCG", aliases: []string{"HUL"}},
	{name: "Bharti Airtel", symbol: "BHARTIARTL", sector: "Telecom", aliases: []string{"Airtel"}},
	{name: "UltraTech Cement", symbol: "ULTRACEMCO", sector: "Cement"},
	{name: "DLF", symbol: "DLF", sector: "Real Estate"},
}

var seedSectors = []string{
	"Banking", "IT", "Pharma", "Auto", "Steel",
	"Real Estate", "FMCG", "Telecom", "Energy", "Cement",
}

var seedRegulators = []struct {
	name    string
	aliases []string
}{
	{name: "RBI", aliases: []string{"Reserve Bank of India", "Reserve Bank"}},
	{name: "SEBI", aliases: []string{"Securities and Exchange Board of India"}},
	{name: "IRDAI", aliases: []string{"Insurance Regulatory and Development Authority"}},
	{name: "TRAI", aliases: []string{"Telecom Regulatory Authority of India"}},
}

// SeedEntities returns the built-in catalog of Indian market entities:
// listed companies with their tickers and sectors, the sectors themselves
// and the financial regulators.
func SeedEntities() []common.Entity {
	out := make([]common.Entity, 0, len(seedCompanies)+len(seedSectors)+len(seedRegulators))

	for _, c := range seedCompanies {
		aliases := append([]string{c.name, c.symbol}, c.aliases...)
		out = append(out, common.Entity{
			ID:      DeterministicID(c.name, common.EntityCompany),
			Name:    c.name,
			Type:    common.EntityCompany,
			Symbol:  c.symbol,
			Aliases: aliases,
		})
	}

	for _, name := range seedSectors {
		out = append(out, common.Entity{
			ID:      DeterministicID(name, common.EntitySector),
			Name:    name,
			Type:    common.EntitySector,
			Aliases: []string{name},
		})
	}

	for _, r := range seedRegulators {
		out = append(out, common.Entity{
			ID:      DeterministicID(r.name, common.EntityRegulator),
			Name:    r.name,
			Type:    common.EntityRegulator,
			Aliases: append([]string{r.name}, r.aliases...),
		})
	}

	return out
}

// SectorOf maps a company entity id to its sector entity id. Companies
// outside the seed catalog return "".
func SectorOf(companyID string) string {
	if sector, ok := companySectors[companyID]; ok {
		return DeterministicID(sector, common.EntitySector)
	}
	return ""
}

var companySectors = func() map[string]string {
	m := make(map[string]string, len(seedCompanies))
	for _, c := range seedCompanies {
		m[DeterministicID(c.name, common.EntityCompany)] = c.sector
	}
	return m
}()

// Seed writes the built-in catalog into the alias index. Existing entities
// keep any aliases learned since; seeding is an additive, idempotent
// operation safe to run at every startup.
func Seed(ctx context.Context, index store.AliasIndex) error {
	for _, e := range SeedEntities() {
		keys := make([]string, 0, len(e.Aliases)+1)
		keys = append(keys, NormalizeAliasKey(e.Name, e.Type))
		for _, alias := range e.Aliases {
			keys = append(keys, NormalizeAliasKey(alias, e.Type))
		}
		if err := index.SaveEntity(ctx, e, keys); err != nil {
			return fmt.Errorf("seeding entity %s: %w", e.ID, err)
		}
	}
	return nil
}
