package ai

import (
	"context"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

// EmbeddingProvider converts text to a fixed-length vector. Implementations
// must be deterministic enough that identical inputs embed to (near)
// identical vectors.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// EntityRecognizer extracts named financial spans from normalized text.
type EntityRecognizer interface {
	Extract(ctx context.Context, text string) ([]common.Mention, error)
	Name() string
}

// Translator converts text between languages. The pipeline always targets
// "en" so dedup and entity resolution operate in one language space.
type Translator interface {
	Translate(ctx context.Context, text string, sourceLang string, targetLang string) (string, error)
	Name() string
}

// SentimentScorer rates text polarity in [-1, 1].
type SentimentScorer interface {
	Score(ctx context.Context, text string) (float64, error)
	Name() string
}

// ProviderSet bundles one provider per capability role. The pipeline holds a
// primary set and a deterministic fallback set for degraded operation.
type ProviderSet struct {
	Embedder   EmbeddingProvider
	Recognizer EntityRecognizer
	Translator Translator
	Sentiment  SentimentScorer
}

// Complete reports whether every capability role is filled.
func (p ProviderSet) Complete() bool {
	return p.Embedder != nil && p.Recognizer != nil && p.Translator != nil && p.Sentiment != nil
}

// GenerateOptions holds configuration for model-backed provider requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
}

// GenerateOption is a functional option for configuring provider requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that overrides the model to use.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling
// temperature. Lower values make outputs more deterministic.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// ModelMetrics accumulates usage metrics across provider operations.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}
