package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type completionAPI interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// SamplerOpenAIClient draws generations from any OpenAI compatible chat
// completion endpoint.
//
// A SamplerOpenAIClient should be created using NewSamplerOpenAIClient.
type SamplerOpenAIClient struct {
	defaults ai.GenerateOptions
	parallel int
	limiter  *rate.Limiter

	metrics ai.MetricsRecorder

	completions completionAPI
}

// NewSamplerOpenAIClientParams defines the configuration for a new
// SamplerOpenAIClient.
//
// Model is used unless a request overrides it with ai.WithModel.
// ParallelRequests bounds the number of in-flight requests of one Sample
// call. RequestsPerSecond paces requests across all calls, 0 disables pacing.
type NewSamplerOpenAIClientParams struct {
	Model       string
	Temperature float64

	BaseURL string
	ApiKey  string

	ParallelRequests  int
	RequestsPerSecond float64
}

func newOpenaiClient(baseURL, apiKey string) *openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := openai.NewClient(opts...)
	return &c
}

// NewSamplerOpenAIClient creates a SamplerOpenAIClient.
//
// Example:
//
//	client := openai.NewSamplerOpenAIClient(openai.NewSamplerOpenAIClientParams{
//		Model:            "gpt-4o-mini",
//		ApiKey:           os.Getenv("AI_CHAT_KEY"),
//		ParallelRequests: 8,
//	})
func NewSamplerOpenAIClient(params NewSamplerOpenAIClientParams) *SamplerOpenAIClient {
	client := newOpenaiClient(params.BaseURL, params.ApiKey)
	return newSampler(&client.Chat.Completions, params)
}

func newSampler(completions completionAPI, params NewSamplerOpenAIClientParams) *SamplerOpenAIClient {
	parallel := params.ParallelRequests
	if parallel < 1 {
		parallel = 1
	}

	limit := rate.Inf
	burst := parallel
	if params.RequestsPerSecond > 0 {
		limit = rate.Limit(params.RequestsPerSecond)
	}

	temperature := params.Temperature
	if temperature == 0 {
		temperature = 1
	}

	return &SamplerOpenAIClient{
		defaults: ai.GenerateOptions{
			Model:       params.Model,
			Temperature: temperature,
		},
		parallel:    parallel,
		limiter:     rate.NewLimiter(limit, burst),
		completions: completions,
	}
}

// Sample requests n independent completions of prompt. Each generation is a
// separate request so that providers without multi-choice support behave the
// same. The first failing request cancels the rest.
func (c *SamplerOpenAIClient) Sample(
	ctx context.Context,
	prompt string,
	n int,
	opts ...ai.GenerateOption,
) ([]string, error) {
	if err := ai.ValidateSampleRequest(prompt, n); err != nil {
		return nil, err
	}
	options := ai.ApplyOptions(c.defaults, opts...)
	params := buildParams(prompt, options)

	start := time.Now()
	out := make([]string, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallel)
	for i := range n {
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}
			text, err := c.complete(gctx, params)
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

	c.metrics.Add(ai.ModelMetrics{WallClockMs: time.Since(start).Milliseconds()})
	return out, nil
}

func buildParams(prompt string, options ai.GenerateOptions) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(options.SystemPrompts)+1)
	for _, p := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(p))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:       options.Model,
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}
	if options.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(options.MaxTokens))
	}
	return params
}

func (c *SamplerOpenAIClient) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	startTime := time.Now()
	completion, err := c.completions.New(ctx, params)
	duration := time.Since(startTime)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	c.metrics.Add(ai.ModelMetrics{
		Requests:     1,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:  int(completion.Usage.TotalTokens),
		DurationMs:   duration.Milliseconds(),
	})

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// GetMetrics returns the accumulated token usage and timings.
func (c *SamplerOpenAIClient) GetMetrics() ai.ModelMetrics {
	return c.metrics.Get()
}

// ResetMetrics clears all accumulated token usage and timings.
func (c *SamplerOpenAIClient) ResetMetrics() {
	c.metrics.Reset()
}

var _ ai.Sampler = (*SamplerOpenAIClient)(nil)
