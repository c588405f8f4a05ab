package openai

import (
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tradl-labs/newsgraph/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultDimensions  = 1536
	defaultMaxParallel = 4
	defaultTimeout     = 60 * time.Second

	// maxRetries bounds retries of one API request on transient failures.
	maxRetries = 3
)

// Client provides the embedding, entity-recognition, translation and
// sentiment capabilities through OpenAI-compatible APIs. It manages separate
// API clients for embeddings and chat so the two can point at different
// endpoints.
//
// A Client should be created using NewClient.
type Client struct {
	embeddingModel string
	chatModel      string
	dimensions     int
	timeout        time.Duration

	chatLock      *semaphore.Weighted
	embeddingLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewClientParams configures a Client.
//
// EmbeddingModel and ChatModel select the models per capability.
// EmbeddingURL/EmbeddingKey and ChatURL/ChatKey configure the two API
// endpoints; an empty key leaves that capability's client nil.
// Dimensions fixes the embedding vector length (shorter results are padded,
// longer ones truncated). MaxParallel bounds in-flight requests per
// capability and Timeout bounds each request.
type NewClientParams struct {
	EmbeddingModel string
	ChatModel      string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	Dimensions  int
	MaxParallel int64
	Timeout     time.Duration
}

// NewClient creates a Client from params, applying defaults for
// Dimensions, MaxParallel and Timeout when unset.
func NewClient(params NewClientParams) *Client {
	if params.Dimensions <= 0 {
		params.Dimensions = defaultDimensions
	}
	if params.MaxParallel <= 0 {
		params.MaxParallel = defaultMaxParallel
	}
	if params.Timeout <= 0 {
		params.Timeout = defaultTimeout
	}

	return &Client{
		embeddingModel: params.EmbeddingModel,
		chatModel:      params.ChatModel,
		dimensions:     params.Dimensions,
		timeout:        params.Timeout,

		chatLock:      semaphore.NewWeighted(params.MaxParallel),
		embeddingLock: semaphore.NewWeighted(params.MaxParallel),

		ChatClient:      newAPIClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newAPIClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

// Name identifies the provider in logs and reports.
func (c *Client) Name() string {
	return "openai"
}

// Dimensions returns the fixed embedding vector length.
func (c *Client) Dimensions() int {
	return c.dimensions
}

func newAPIClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}

	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)
	return &client
}
