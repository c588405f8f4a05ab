package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator"

	"github.com/tradl-labs/newsgraph/internal/util"
)

// Config is the full runtime configuration, read from the environment once
// at startup. Invalid values are configuration errors and fatal; nothing
// here is re-read at runtime.
type Config struct {
	Port  string `validate:"required"`
	Debug bool

	// Store selects the storage backend: "memory" or "postgres".
	Store       string `validate:"oneof=memory postgres"`
	DatabaseURL string `validate:"required_if=Store postgres"`

	RabbitMQUser     string
	RabbitMQPassword string
	RabbitMQHost     string
	RabbitMQPort     string

	// AIAdapter selects the provider stack: "openai", "ollama" or "local".
	AIAdapter      string `validate:"oneof=openai ollama local"`
	EmbedModel     string
	ChatModel      string
	EmbedURL       string
	EmbedKey       string
	ChatURL        string
	ChatKey        string
	EmbedDims      int   `validate:"gte=0"`
	AIParallelReqs int64 `validate:"gte=0"`

	DedupThreshold float64 `validate:"gte=0,lte=1"`
	FuzzyThreshold float64 `validate:"gte=0,lte=1"`
	RankSimWeight  float64 `validate:"gte=0,lte=1"`

	Workers     int           `validate:"gt=0"`
	CallTimeout time.Duration `validate:"gt=0"`

	FeedURLs []string
}

// Load reads and validates the configuration. Callers treat an error as
// fatal at startup.
func Load() (Config, error) {
	cfg := Config{
		Port:  util.GetEnvString("PORT", "8080"),
		Debug: util.GetEnvBool("DEBUG", false),

		Store:       util.GetEnvString("STORE_BACKEND", "memory"),
		DatabaseURL: util.GetEnv("DATABASE_URL"),

		RabbitMQUser:     util.GetEnv("RABBITMQ_USER"),
		RabbitMQPassword: util.GetEnv("RABBITMQ_PASSWORD"),
		RabbitMQHost:     util.GetEnv("RABBITMQ_HOST"),
		RabbitMQPort:     util.GetEnvString("RABBITMQ_PORT", "5672"),

		AIAdapter:      util.GetEnvString("AI_ADAPTER", "local"),
		EmbedModel:     util.GetEnv("AI_EMBED_MODEL"),
		ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
		EmbedURL:       util.GetEnv("AI_EMBED_URL"),
		EmbedKey:       util.GetEnv("AI_EMBED_KEY"),
		ChatURL:        util.GetEnv("AI_CHAT_URL"),
		ChatKey:        util.GetEnv("AI_CHAT_KEY"),
		EmbedDims:      util.GetEnvInt("AI_EMBED_DIMS", 0),
		AIParallelReqs: int64(util.GetEnvInt("AI_PARALLEL_REQ", 4)),

		DedupThreshold: util.GetEnvNumeric("DEDUP_THRESHOLD", 0.80),
		FuzzyThreshold: util.GetEnvNumeric("ENTITY_FUZZY_THRESHOLD", 0.85),
		RankSimWeight:  util.GetEnvNumeric("RANK_SIMILARITY_WEIGHT", 0.7),

		Workers:     util.GetEnvInt("PIPELINE_WORKERS", 4),
		CallTimeout: util.GetEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),

		FeedURLs: util.GetEnvList("FEED_URLS"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RabbitMQURL assembles the AMQP connection string.
func (c Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.RabbitMQUser, c.RabbitMQPassword, c.RabbitMQHost, c.RabbitMQPort)
}
