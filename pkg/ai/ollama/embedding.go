package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/tradl-labs/newsgraph/pkg/ai"

	"github.com/ollama/ollama/api"
)

// Embed creates a vector embedding for one text using the configured
// embedding model. Blank input embeds to the zero vector without a request.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, c.dimensions), nil
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(rCtx, &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: text,
	})
	if err != nil {
		return nil, err
	}

	c.addMetrics(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  res.TotalDuration.Milliseconds(),
	})

	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}

	vec := make([]float32, 0, c.dimensions)
	for _, v := range res.Embeddings[0] {
		if len(vec) >= c.dimensions {
			break
		}
		vec = append(vec, float32(v))
	}
	if len(vec) < c.dimensions {
		padded := make([]float32, c.dimensions)
		copy(padded, vec)
		vec = padded
	}

	return vec, nil
}

// EmbedBatch creates embeddings for multiple texts. Ollama embeds one input
// per request, so the batch is processed sequentially under the request
// limit.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding input %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}
