package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/go-huggingface"
)

// HuggingFace uses the hosted inference text-generation task.
type HuggingFace struct {
	client      *huggingface.InferenceClient
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

func NewHuggingFace(cfg Config) (*HuggingFace, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	return &HuggingFace{
		client:      huggingface.NewInferenceClient(strings.TrimSpace(cfg.APIKey)),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.timeout(),
	}, nil
}

func (h *HuggingFace) Describe() (string, string) {
	return ProviderHuggingFace, h.model
}

func (h *HuggingFace) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	params := huggingface.TextGenerationParameters{
		ReturnFullText: boolPtr(false),
	}
	if h.maxTokens > 0 {
		params.MaxNewTokens = intPtr(h.maxTokens)
	}
	if h.temperature > 0 {
		params.Temperature = float64Ptr(h.temperature)
	}
	res, err := h.client.TextGeneration(ctx, &huggingface.TextGenerationRequest{
		Inputs:     prompt,
		Model:      h.model,
		Parameters: params,
	})
	if err != nil {
		return "", fmt.Errorf("text generation: %w", err)
	}
	if len(res) == 0 {
		return "", fmt.Errorf("empty text generation response")
	}
	return res[0].GeneratedText, nil
}

func intPtr(i int) *int {
	return &i
}

func float64Ptr(f float64) *float64 {
	return &f
}

func boolPtr(b bool) *bool {
	return &b
}
