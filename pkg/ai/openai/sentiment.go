package openai

import (
	"context"
	"fmt"

	"github.com/tradl-labs/newsgraph/pkg/ai"
)

type sentimentResponse struct {
	Polarity float64 `json:"polarity" jsonschema_description:"Market sentiment from -1.0 (negative) to 1.0 (positive)"`
}

// Score rates the market sentiment of text in [-1, 1]. Out-of-range model
// output is clamped.
func (c *Client) Score(ctx context.Context, text string) (float64, error) {
	var response sentimentResponse
	err := c.generateWithFormat(
		ctx,
		"sentiment",
		"Market sentiment polarity of a news text",
		text,
		&response,
		ai.WithSystemPrompts(ai.SentimentSystemPrompt),
	)
	if err != nil {
		return 0, fmt.Errorf("sentiment scoring failed: %w", err)
	}

	if response.Polarity > 1 {
		return 1, nil
	}
	if response.Polarity < -1 {
		return -1, nil
	}
	return response.Polarity, nil
}
