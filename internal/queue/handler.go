package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/tradl-labs/newsgraph/internal/feed"
	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/logger"
	"github.com/tradl-labs/newsgraph/pkg/pipeline"
)

// ProcessIngestMessage runs one queued batch of raw articles through the
// pipeline. Per-item failures live in the report and are not message
// failures; only an undecodable payload errors (and ends up dead-lettered
// after its retries).
func ProcessIngestMessage(ctx context.Context, p *pipeline.Pipeline, body []byte) error {
	var articles []common.RawArticle
	if err := json.Unmarshal(body, &articles); err != nil {
		return fmt.Errorf("decoding ingest payload: %w", err)
	}

	report := p.ProcessNews(ctx, articles)
	logger.Info("[Ingest] batch processed",
		"accepted", report.Accepted,
		"duplicates", report.Duplicates,
		"rejected", report.Rejected,
		"degraded", report.Degraded,
	)
	for _, itemErr := range report.Errors {
		logger.Warn("[Ingest] item failed",
			"article", itemErr.ArticleID,
			"kind", itemErr.Kind,
			"message", itemErr.Message,
		)
	}
	return nil
}

type feedRequest struct {
	URL string `json:"url"`
}

// PublishFeedRequest enqueues one feed fetch for the worker.
func PublishFeedRequest(ch *amqp091.Channel, url string) error {
	body, err := json.Marshal(feedRequest{URL: url})
	if err != nil {
		return fmt.Errorf("encoding feed request: %w", err)
	}
	return PublishFIFO(ch, FeedQueue, body)
}

// ProcessFeedMessage fetches one RSS/Atom feed and runs its items through
// the pipeline. Fetch failures error so the broker's retry queue can
// redeliver once the feed host recovers.
func ProcessFeedMessage(ctx context.Context, p *pipeline.Pipeline, fetcher *feed.Fetcher, body []byte) error {
	var req feedRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("decoding feed payload: %w", err)
	}

	articles, err := fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return fmt.Errorf("fetching feed %s: %w", req.URL, err)
	}
	if len(articles) == 0 {
		logger.Info("[Feed] no items", "url", req.URL)
		return nil
	}

	report := p.ProcessNews(ctx, articles)
	logger.Info("[Feed] batch processed",
		"url", req.URL,
		"items", len(articles),
		"accepted", report.Accepted,
		"duplicates", report.Duplicates,
		"rejected", report.Rejected,
	)
	return nil
}
