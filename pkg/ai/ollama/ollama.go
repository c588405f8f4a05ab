package ollama

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tradl-labs/newsgraph/pkg/ai"

	"github.com/ollama/ollama/api"
)

const (
	defaultDimensions  = 1024
	defaultMaxParallel = 2
	defaultTimeout     = 60 * time.Second
)

// Client provides the embedding capability through a locally-hosted Ollama
// server.
//
// A Client should be created using NewClient.
type Client struct {
	embeddingModel string
	dimensions     int
	timeout        time.Duration

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *api.Client
}

// NewClientParams contains configuration options for creating a Client.
type NewClientParams struct {
	EmbeddingModel string

	BaseURL string
	APIKey  string

	Dimensions  int
	MaxParallel int64
	Timeout     time.Duration
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewClient creates an Ollama-backed embedding provider connected to the
// server at BaseURL (or the Ollama default if empty).
func NewClient(params NewClientParams) (*Client, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	if params.Dimensions <= 0 {
		params.Dimensions = defaultDimensions
	}
	if params.MaxParallel <= 0 {
		params.MaxParallel = defaultMaxParallel
	}
	if params.Timeout <= 0 {
		params.Timeout = defaultTimeout
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.APIKey,
			},
			rt: http.DefaultTransport,
		},
	}

	return &Client{
		embeddingModel: params.EmbeddingModel,
		dimensions:     params.Dimensions,
		timeout:        params.Timeout,

		reqLock: semaphore.NewWeighted(params.MaxParallel),

		Client: api.NewClient(u, httpClient),
	}, nil
}

// Name identifies the provider in logs and reports.
func (c *Client) Name() string {
	return "ollama"
}

// Dimensions returns the fixed embedding vector length.
func (c *Client) Dimensions() int {
	return c.dimensions
}

func (c *Client) addMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

// GetMetrics returns the accumulated usage metrics.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	return c.metrics
}

// ResetMetrics zeroes the accumulated usage metrics.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics = ai.ModelMetrics{}
}
