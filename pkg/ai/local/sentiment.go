package local

import (
	"context"

	"github.com/tradl-labs/newsgraph/internal/util"
)

var positiveWords = map[string]struct{}{
	"gain": {}, "gains": {}, "profit": {}, "profits": {}, "surge": {},
	"surges": {}, "rally": {}, "record": {}, "beat": {}, "beats": {},
	"strong": {}, "growth": {}, "rise": {}, "rises": {}, "upgrade": {},
	"upgraded": {}, "dividend": {}, "buyback": {}, "wins": {}, "approval": {},
}

var negativeWords = map[string]struct{}{
	"loss": {}, "losses": {}, "fall": {}, "falls": {}, "drop": {},
	"drops": {}, "plunge": {}, "plunges": {}, "weak": {}, "decline": {},
	"declines": {}, "downgrade": {}, "downgraded": {}, "fraud": {},
	"penalty": {}, "probe": {}, "default": {}, "miss": {}, "misses": {},
}

// Score rates text by lexicon word counts: (positive - negative) over the
// total matches, 0 when no lexicon word appears.
func (p *Provider) Score(ctx context.Context, text string) (float64, error) {
	positives, negatives := 0, 0
	for _, token := range util.Tokenize(text) {
		if _, ok := positiveWords[token]; ok {
			positives++
		}
		if _, ok := negativeWords[token]; ok {
			negatives++
		}
	}

	total := positives + negatives
	if total == 0 {
		return 0, nil
	}
	return float64(positives-negatives) / float64(total), nil
}
