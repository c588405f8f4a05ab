package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/tradl-labs/newsgraph/internal/util"
	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/entity"
)

const defaultDimensions = 256

// Provider implements every capability role with deterministic local
// heuristics: hashed token embeddings, dictionary entity recognition, a
// sentiment lexicon and an identity translator. The pipeline falls back to
// it when a configured provider is unreachable, and tests use it directly.
//
// A Provider should be created using NewProvider.
type Provider struct {
	dimensions int
	dictionary []dictEntry
}

type dictEntry struct {
	text       string
	lower      string
	entityType common.EntityType
}

// NewProviderParams configures a Provider. Dimensions defaults to 256.
type NewProviderParams struct {
	Dimensions int
}

// NewProvider creates a Provider with the built-in entity dictionary.
func NewProvider(params NewProviderParams) *Provider {
	if params.Dimensions <= 0 {
		params.Dimensions = defaultDimensions
	}

	var dictionary []dictEntry
	for _, e := range entity.SeedEntities() {
		for _, alias := range e.Aliases {
			dictionary = append(dictionary, dictEntry{
				text:       alias,
				lower:      strings.ToLower(alias),
				entityType: e.Type,
			})
		}
	}

	return &Provider{
		dimensions: params.Dimensions,
		dictionary: dictionary,
	}
}

// Name identifies the provider in logs and reports.
func (p *Provider) Name() string {
	return "local"
}

// Dimensions returns the fixed embedding vector length.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// Embed maps text to a hashed bag-of-tokens vector, L2-normalized.
// Identical text always yields an identical vector and token overlap
// approximates cosine similarity, which is exactly the degraded-mode
// heuristic the dedup engine needs.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dimensions)
	tokens := util.Tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}

	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(p.dimensions)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec, nil
}

// EmbedBatch embeds each text in order.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Translate is the identity function; the local provider has no translation
// capability, so non-English text passes through unchanged.
func (p *Provider) Translate(ctx context.Context, text string, sourceLang string, targetLang string) (string, error) {
	return text, nil
}
