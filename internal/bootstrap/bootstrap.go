// Package bootstrap assembles the shared infrastructure both binaries need
// at startup: the storage backend and the AI provider set.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/tradl-labs/newsgraph/internal/config"
	"github.com/tradl-labs/newsgraph/pkg/ai"
	"github.com/tradl-labs/newsgraph/pkg/ai/local"
	"github.com/tradl-labs/newsgraph/pkg/ai/ollama"
	"github.com/tradl-labs/newsgraph/pkg/ai/openai"
	"github.com/tradl-labs/newsgraph/pkg/entity"
	"github.com/tradl-labs/newsgraph/pkg/impact"
	"github.com/tradl-labs/newsgraph/pkg/store"
	"github.com/tradl-labs/newsgraph/pkg/store/memory"
	pgxstore "github.com/tradl-labs/newsgraph/pkg/store/pgx"
)

// NewStorage creates the configured storage backend. For postgres it applies
// migrations and returns a pool-backed store alongside the pool; for memory
// the pool is nil.
func NewStorage(ctx context.Context, cfg config.Config) (store.Storage, *pgxpool.Pool, error) {
	if cfg.Store != "postgres" {
		return memory.NewStore(), nil, nil
	}

	if err := pgxstore.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	return pgxstore.NewStore(pool), pool, nil
}

// NewProviders assembles the provider set for the configured adapter. The
// ollama adapter only serves embeddings; the remaining roles run on the
// deterministic local provider.
func NewProviders(cfg config.Config) (ai.ProviderSet, error) {
	switch cfg.AIAdapter {
	case "openai":
		client := openai.NewClient(openai.NewClientParams{
			EmbeddingModel: cfg.EmbedModel,
			ChatModel:      cfg.ChatModel,

			EmbeddingURL: cfg.EmbedURL,
			EmbeddingKey: cfg.EmbedKey,
			ChatURL:      cfg.ChatURL,
			ChatKey:      cfg.ChatKey,

			Dimensions:  cfg.EmbedDims,
			MaxParallel: cfg.AIParallelReqs,
			Timeout:     cfg.CallTimeout,
		})
		return ai.ProviderSet{
			Embedder:   client,
			Recognizer: client,
			Translator: client,
			Sentiment:  client,
		}, nil

	case "ollama":
		client, err := ollama.NewClient(ollama.NewClientParams{
			EmbeddingModel: cfg.EmbedModel,

			BaseURL: cfg.EmbedURL,
			APIKey:  cfg.EmbedKey,

			Dimensions:  cfg.EmbedDims,
			MaxParallel: cfg.AIParallelReqs,
			Timeout:     cfg.CallTimeout,
		})
		if err != nil {
			return ai.ProviderSet{}, fmt.Errorf("creating ollama client: %w", err)
		}
		fallback := local.NewProvider(local.NewProviderParams{Dimensions: cfg.EmbedDims})
		return ai.ProviderSet{
			Embedder:   client,
			Recognizer: fallback,
			Translator: fallback,
			Sentiment:  fallback,
		}, nil

	default:
		provider := local.NewProvider(local.NewProviderParams{Dimensions: cfg.EmbedDims})
		return ai.ProviderSet{
			Embedder:   provider,
			Recognizer: provider,
			Translator: provider,
			Sentiment:  provider,
		}, nil
	}
}

// SeedKnowledgeBase registers the built-in entity catalog and the baseline
// impact edges. Both are idempotent.
func SeedKnowledgeBase(ctx context.Context, storage store.Storage) error {
	if err := entity.Seed(ctx, storage); err != nil {
		return fmt.Errorf("seeding entities: %w", err)
	}
	if err := impact.SeedRelations(ctx, storage); err != nil {
		return fmt.Errorf("seeding relations: %w", err)
	}
	return nil
}
