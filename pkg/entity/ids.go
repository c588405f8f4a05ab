package entity

import (
	"strings"
	"unicode"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

// NormalizeAliasKey builds the lookup key for one alias of an entity type.
// Keys are uppercase with collapsed whitespace so casing and spacing
// variants of the same name share one key.
func NormalizeAliasKey(name string, entityType common.EntityType) string {
	normalized := strings.ToUpper(strings.Join(strings.Fields(name), " "))
	return normalized + "|" + string(entityType)
}

// DeterministicID derives the stable entity id for a canonical name and
// type. The same inputs always yield the same id, so entity identity
// survives across runs and across store backends.
func DeterministicID(name string, entityType common.EntityType) string {
	return strings.ToLower(string(entityType)) + ":" + slug(name)
}

// TypeFromID recovers the entity type from a deterministic id. Unknown
// prefixes return the empty type.
func TypeFromID(id string) common.EntityType {
	prefix, _, ok := strings.Cut(id, ":")
	if !ok {
		return ""
	}
	switch t := common.EntityType(strings.ToUpper(prefix)); t {
	case common.EntityCompany, common.EntitySector, common.EntityRegulator, common.EntityInstrument:
		return t
	}
	return ""
}

func slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastDash := true
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
