package entity

import (
	"strings"

	"github.com/tradl-labs/newsgraph/internal/util"
)

// matchScore rates how well a mention matches a candidate name in [0, 1].
// It takes the better of token-set overlap and normalized edit-distance
// similarity, so both reordered words ("Bank HDFC") and small misspellings
// score high.
func matchScore(mention string, candidate string) float64 {
	a := util.NormalizeText(mention)
	b := util.NormalizeText(candidate)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	tokenScore := util.Jaccard(a, b)
	editScore := editSimilarity(a, b)
	if tokenScore > editScore {
		return tokenScore
	}
	return editScore
}

// editSimilarity is 1 - levenshtein(a, b) / max(len(a), len(b)).
func editSimilarity(a string, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}

	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a []rune, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// expandIndicatorForms returns additional alias forms for company names
// carrying a legal suffix, so "HDFC Bank Ltd" also matches "HDFC Bank".
func expandIndicatorForms(name string) []string {
	suffixes := []string{" ltd", " ltd.", " limited", " inc", " inc.", " corp", " corp.", " corporation"}
	lower := strings.ToLower(name)
	for _, suffix := range suffixes {
		if strings.HasSuffix(lower, suffix) {
			return []string{strings.TrimSpace(name[:len(name)-len(suffix)])}
		}
	}
	return nil
}
