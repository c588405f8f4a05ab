package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

// Fetcher turns RSS/Atom feeds into raw article records for the pipeline.
type Fetcher struct {
	parser *gofeed.Parser
}

func NewFetcher() *Fetcher {
	return &Fetcher{parser: gofeed.NewParser()}
}

// Fetch downloads and parses one feed. Items without a title and content
// are passed through anyway; the canonicalizer decides what is malformed.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]common.RawArticle, error) {
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	source := parsed.Title
	if source == "" {
		source = url
	}

	articles := make([]common.RawArticle, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}

		date := item.Published
		if item.PublishedParsed != nil {
			date = item.PublishedParsed.UTC().Format(time.RFC3339)
		}

		articles = append(articles, common.RawArticle{
			ID:      item.GUID,
			Title:   item.Title,
			Content: content,
			Source:  source,
			Date:    date,
		})
	}

	return articles, nil
}
