package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// defaultContext is the context window Ollama allocates when num_ctx is unset.
const defaultContext = 4096

type chatAPI interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// SamplerOllamaClient implements ai.Sampler against a locally hosted Ollama
// server.
type SamplerOllamaClient struct {
	defaults ai.GenerateOptions

	reqLock *semaphore.Weighted

	metrics ai.MetricsRecorder

	countTokens func(string) (int, error)

	Client chatAPI
}

// NewSamplerOllamaClientParams contains configuration options for creating a
// new SamplerOllamaClient.
type NewSamplerOllamaClientParams struct {
	Model       string
	Temperature float64

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
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

// NewSamplerOllamaClient creates a new Ollama backed sampler. It connects to
// the Ollama server at BaseURL, or the api package default if empty.
func NewSamplerOllamaClient(params NewSamplerOllamaClientParams) (*SamplerOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("ollama base url is required")
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	return newSampler(api.NewClient(u, httpClient), params), nil
}

func newSampler(client chatAPI, params NewSamplerOllamaClientParams) *SamplerOllamaClient {
	limit := params.MaxConcurrentRequests
	if limit < 1 {
		limit = 1
	}
	temperature := params.Temperature
	if temperature == 0 {
		temperature = 1
	}

	return &SamplerOllamaClient{
		defaults: ai.GenerateOptions{
			Model:       params.Model,
			Temperature: temperature,
		},
		reqLock:     semaphore.NewWeighted(limit),
		countTokens: countTokens,
		Client:      client,
	}
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func countTokens(s string) (int, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding("o200k_base")
	})
	if encErr != nil {
		return 0, encErr
	}
	return len(enc.Encode(s, nil, nil)), nil
}

// Sample requests n independent chat completions of prompt. Requests share
// the client wide semaphore, so concurrent Sample calls do not overload the
// server.
func (c *SamplerOllamaClient) Sample(
	ctx context.Context,
	prompt string,
	n int,
	opts ...ai.GenerateOption,
) ([]string, error) {
	if err := ai.ValidateSampleRequest(prompt, n); err != nil {
		return nil, err
	}
	options := ai.ApplyOptions(c.defaults, opts...)

	req, err := c.buildRequest(prompt, options)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out := make([]string, n)

	g, gctx := errgroup.WithContext(ctx)
	for i := range n {
		if err := c.reqLock.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer c.reqLock.Release(1)
			text, err := c.chat(gctx, req)
			if err != nil {
				return fmt.Errorf("sample %d: %w", i, err)
			}
			out[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.metrics.Add(ai.ModelMetrics{WallClockMs: time.Since(start).Milliseconds()})
	return out, nil
}

func (c *SamplerOllamaClient) buildRequest(prompt string, options ai.GenerateOptions) (*api.ChatRequest, error) {
	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	text := prompt
	for _, p := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: p})
		text += p
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": options.Temperature},
	}

	if options.MaxTokens > 0 {
		req.Options["num_predict"] = options.MaxTokens
	}

	promptTokens, err := c.countTokens(text)
	if err != nil {
		return nil, err
	}
	tokens := promptTokens + 200
	if options.MaxTokens > 0 {
		tokens += options.MaxTokens
	}
	if tokens > defaultContext {
		req.Options["num_ctx"] = tokens
	}

	return req, nil
}

func (c *SamplerOllamaClient) chat(ctx context.Context, req *api.ChatRequest) (string, error) {
	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", err
	}

	c.metrics.Add(ai.ModelMetrics{
		Requests:     1,
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})

	return strings.TrimSpace(final.Message.Content), nil
}

// GetMetrics returns the accumulated token usage and timings.
func (c *SamplerOllamaClient) GetMetrics() ai.ModelMetrics {
	return c.metrics.Get()
}

// ResetMetrics clears all accumulated token usage and timings.
func (c *SamplerOllamaClient) ResetMetrics() {
	c.metrics.Reset()
}

var _ ai.Sampler = (*SamplerOllamaClient)(nil)
