package openai

import (
	"context"
	"fmt"

	"github.com/tradl-labs/newsgraph/pkg/ai"
	"github.com/tradl-labs/newsgraph/pkg/common"
)

type extractedMention struct {
	Text   string `json:"text" jsonschema_description:"The mention exactly as it appears in the text"`
	Offset int    `json:"offset" jsonschema_description:"Character offset of the mention in the text"`
	Type   string `json:"type" jsonschema:"enum=COMPANY,enum=SECTOR,enum=REGULATOR,enum=INSTRUMENT" jsonschema_description:"Kind of financial entity"`
}

type mentionResponse struct {
	Mentions []extractedMention `json:"mentions" jsonschema_description:"All financial entity mentions found in the text"`
}

// Extract runs named-entity recognition over text and returns the raw
// mentions. Spans with an unknown type are dropped.
func (c *Client) Extract(ctx context.Context, text string) ([]common.Mention, error) {
	var response mentionResponse
	err := c.generateWithFormat(
		ctx,
		"financial_mentions",
		"Financial entity mentions extracted from a news text",
		text,
		&response,
		ai.WithSystemPrompts(ai.RecognizerSystemPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("entity extraction failed: %w", err)
	}

	mentions := make([]common.Mention, 0, len(response.Mentions))
	for _, m := range response.Mentions {
		entityType := common.EntityType(m.Type)
		switch entityType {
		case common.EntityCompany, common.EntitySector, common.EntityRegulator, common.EntityInstrument:
		default:
			continue
		}
		mentions = append(mentions, common.Mention{
			Text:   m.Text,
			Offset: m.Offset,
			Type:   entityType,
		})
	}

	return mentions, nil
}
