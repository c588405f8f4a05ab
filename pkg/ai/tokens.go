package ai

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// TruncateToTokens shortens text to at most maxTokens tokens so embedding
// inputs stay inside the model's context window. Text at or under the budget
// is returned unchanged.
func TruncateToTokens(text string, maxTokens int) (string, error) {
	if maxTokens <= 0 || text == "" {
		return text, nil
	}

	encoder, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return "", fmt.Errorf("failed to load token encoding: %w", err)
	}

	tokens := encoder.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, nil
	}

	return encoder.Decode(tokens[:maxTokens]), nil
}
