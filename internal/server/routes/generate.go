package routes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/consistency-vis/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/ai"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
)

// PostGenerateHandler samples generations for a prompt, builds their graph
// and optionally stores them as a dataset.
func PostGenerateHandler(c echo.Context) error {
	type generateRequest struct {
		Prompt       string   `json:"prompt" validate:"required"`
		Samples      int      `json:"samples" validate:"required,min=1,max=200"`
		Model        string   `json:"model"`
		SystemPrompt string   `json:"systemPrompt"`
		Temperature  *float64 `json:"temperature" validate:"omitempty,min=0,max=2"`
		MaxTokens    int      `json:"maxTokens" validate:"min=0"`
		MinFrequency *int     `json:"minFrequency" validate:"omitempty,min=1,max=2147483647"`
		Save         bool     `json:"save"`
		Name         string   `json:"name"`
	}

	type generateResponse struct {
		graphResponse
		Generations common.Corpus          `json:"generations"`
		Dataset     *common.DatasetSummary `json:"dataset,omitempty"`
		SampleMs    float64                `json:"sampleMs"`
	}

	data := new(generateRequest)
	if err := c.Bind(data); err != nil {
		return badRequest(c, "Invalid request params")
	}
	if err := c.Validate(data); err != nil {
		return badRequest(c, "Invalid request params")
	}

	if data.MinFrequency != nil && *data.MinFrequency < 1 {
		return badRequest(c, "minFrequency must be >= 1")
	}

	app := c.(*middleware.AppContext).App
	if app.Sampler == nil {
		return unavailable(c, "Generation is not configured")
	}

	var opts []ai.GenerateOption
	if data.Model != "" {
		opts = append(opts, ai.WithModel(data.Model))
	}
	if data.SystemPrompt != "" {
		opts = append(opts, ai.WithSystemPrompts(data.SystemPrompt))
	}
	if data.Temperature != nil {
		opts = append(opts, ai.WithTemperature(*data.Temperature))
	}
	if data.MaxTokens > 0 {
		opts = append(opts, ai.WithMaxTokens(data.MaxTokens))
	}

	ctx := c.Request().Context()
	start := time.Now()
	generations, err := app.Sampler.Sample(ctx, data.Prompt, data.Samples, opts...)
	if err != nil {
		return respondError(c, err)
	}
	sampleDuration := time.Since(start)

	metrics := app.Sampler.GetMetrics()
	logger.Info(
		"[Server] AI Metrics",
		"requests", metrics.Requests,
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"tokens_per_second", metrics.TokenPerSecond,
		"duration", sampleDuration,
	)

	minFrequency := defaultMinFrequency(c)
	if data.MinFrequency != nil {
		minFrequency = *data.MinFrequency
	}
	res, err := buildGraph(c, generations, minFrequency)
	if err != nil {
		return respondError(c, err)
	}

	resp := generateResponse{
		graphResponse: newGraphResponse(res),
		Generations:   generations,
		SampleMs:      ms(sampleDuration),
	}

	if data.Save {
		saved, err := app.Store.SaveDataset(ctx, common.Dataset{
			Name:        data.Name,
			Prompt:      data.Prompt,
			Model:       data.Model,
			Generations: generations,
		})
		if err != nil {
			return respondError(c, err)
		}
		summary := summarize(saved)
		resp.Dataset = &summary
	}

	return c.JSON(http.StatusOK, resp)
}
