package ai

import (
	"errors"
	"sync"
	"testing"
)

func TestValidateSampleRequest(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		n       int
		wantErr bool
	}{
		{name: "valid", prompt: "Name a colour", n: 10},
		{name: "empty prompt", prompt: "  ", n: 10, wantErr: true},
		{name: "zero samples", prompt: "hi", n: 0, wantErr: true},
		{name: "too many samples", prompt: "hi", n: MaxSamples + 1, wantErr: true},
		{name: "upper bound", prompt: "hi", n: MaxSamples},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSampleRequest(tt.prompt, tt.n)
			if tt.wantErr != errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("ValidateSampleRequest(%q, %d) = %v", tt.prompt, tt.n, err)
			}
		})
	}
}

func TestApplyOptions(t *testing.T) {
	got := ApplyOptions(
		GenerateOptions{Model: "base", Temperature: 1},
		WithModel("other"),
		WithTemperature(0.7),
		WithSystemPrompts("be brief"),
		WithMaxTokens(64),
		nil,
	)
	if got.Model != "other" || got.Temperature != 0.7 || got.MaxTokens != 64 || len(got.SystemPrompts) != 1 {
		t.Fatalf("ApplyOptions() = %#v", got)
	}
}

func TestMetricsRecorder(t *testing.T) {
	var r MetricsRecorder

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add(ModelMetrics{Requests: 1, InputTokens: 10, OutputTokens: 40, TotalTokens: 50, DurationMs: 100})
		}()
	}
	wg.Wait()

	got := r.Get()
	if got.Requests != 10 || got.TotalTokens != 500 || got.DurationMs != 1000 {
		t.Fatalf("Get() = %#v", got)
	}
	if got.TokenPerSecond != 500 {
		t.Fatalf("TokenPerSecond = %v, want 500", got.TokenPerSecond)
	}

	r.Reset()
	if r.Get() != (ModelMetrics{}) {
		t.Fatalf("Reset did not clear metrics: %#v", r.Get())
	}
}
