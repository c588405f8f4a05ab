package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tradl-labs/newsgraph/pkg/ai"
)

// Translate converts text from sourceLang into targetLang, keeping entity
// names and figures intact. Text already in the target language is returned
// unchanged without an API call.
func (c *Client) Translate(
	ctx context.Context,
	text string,
	sourceLang string,
	targetLang string,
) (string, error) {
	if sourceLang == targetLang || strings.TrimSpace(text) == "" {
		return text, nil
	}

	prompt := fmt.Sprintf("Translate the following text from %q to %q:\n\n%s", sourceLang, targetLang, text)
	translated, err := c.generate(
		ctx,
		prompt,
		ai.WithSystemPrompts(ai.TranslatorSystemPrompt),
		ai.WithTemperature(0.1),
	)
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}

	return strings.TrimSpace(translated), nil
}
