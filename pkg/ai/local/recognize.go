package local

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

// Suffix words marking a capitalized span as a probable company name.
var companyIndicators = map[string]struct{}{
	"ltd": {}, "limited": {}, "inc": {}, "corp": {}, "corporation": {},
	"bank": {}, "industries": {}, "motors": {}, "steel": {}, "tech": {},
	"technologies": {}, "pharma": {}, "pharmaceutical": {}, "finance": {},
	"capital": {}, "energy": {}, "cement": {},
}

// Extract finds entity mentions via the built-in dictionary plus a
// capitalized-span heuristic for companies outside the catalog.
func (p *Provider) Extract(ctx context.Context, text string) ([]common.Mention, error) {
	lower := strings.ToLower(text)

	type spanKey struct {
		text       string
		entityType common.EntityType
	}
	seen := make(map[spanKey]struct{})
	var mentions []common.Mention

	add := func(spanText string, offset int, entityType common.EntityType) {
		key := spanKey{text: strings.ToLower(spanText), entityType: entityType}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		mentions = append(mentions, common.Mention{
			Text:   spanText,
			Offset: offset,
			Type:   entityType,
		})
	}

	for _, entry := range p.dictionary {
		offset := indexWord(lower, entry.lower)
		if offset < 0 {
			continue
		}
		add(text[offset:offset+len(entry.text)], offset, entry.entityType)
	}

	for _, span := range capitalizedCompanySpans(text) {
		add(span.text, span.offset, common.EntityCompany)
	}

	sort.Slice(mentions, func(i, j int) bool {
		return mentions[i].Offset < mentions[j].Offset
	})
	return mentions, nil
}

// indexWord finds needle in haystack at a word boundary, or -1.
func indexWord(haystack string, needle string) int {
	from := 0
	for {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return -1
		}
		idx += from

		beforeOK := idx == 0 || !isWordRune(rune(haystack[idx-1]))
		end := idx + len(needle)
		afterOK := end >= len(haystack) || !isWordRune(rune(haystack[end]))
		if beforeOK && afterOK {
			return idx
		}
		from = idx + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

type span struct {
	text   string
	offset int
}

// capitalizedCompanySpans returns maximal runs of capitalized words whose
// last word is a company indicator, e.g. "Acme Finance Ltd".
func capitalizedCompanySpans(text string) []span {
	type word struct {
		text   string
		offset int
	}

	var words []word
	offset := 0
	for _, field := range strings.Fields(text) {
		idx := strings.Index(text[offset:], field)
		words = append(words, word{text: field, offset: offset + idx})
		offset += idx + len(field)
	}

	var out []span
	var run []word
	flush := func() {
		if len(run) < 2 {
			run = nil
			return
		}
		last := strings.ToLower(strings.Trim(run[len(run)-1].text, ".,!?"))
		if _, ok := companyIndicators[last]; ok {
			first := run[0]
			lastWord := run[len(run)-1]
			end := lastWord.offset + len(strings.TrimRight(lastWord.text, ".,!?"))
			out = append(out, span{
				text:   text[first.offset:end],
				offset: first.offset,
			})
		}
		run = nil
	}

	for _, w := range words {
		r := []rune(w.text)
		if len(r) > 0 && unicode.IsUpper(r[0]) {
			run = append(run, w)
			continue
		}
		flush()
	}
	flush()

	return out
}
