package completion

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChain serves the "langchain-openai" and "ollama" providers through
// langchaingo models.
type LangChain struct {
	provider    string
	model       string
	llm         llms.Model
	temperature float64
	maxTokens   int
}

func NewLangChain(cfg Config) (*LangChain, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	httpClient := &http.Client{Timeout: cfg.timeout()}

	var llm llms.Model
	switch cfg.Provider {
	case ProviderLangChainOpenAI:
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(model),
			openai.WithHTTPClient(httpClient),
		}
		if base := versionedBaseURL(cfg.BaseURL); base != "" {
			opts = append(opts, openai.WithBaseURL(base))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create langchain openai client: %w", err)
		}
		llm = client
	case ProviderOllama:
		opts := []ollama.Option{
			ollama.WithModel(model),
			ollama.WithHTTPClient(httpClient),
		}
		if base := strings.TrimSpace(cfg.BaseURL); base != "" {
			opts = append(opts, ollama.WithServerURL(base))
		}
		client, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		llm = client
	default:
		return nil, fmt.Errorf("unsupported langchain provider %q", cfg.Provider)
	}

	return &LangChain{
		provider:    cfg.Provider,
		model:       model,
		llm:         llm,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (l *LangChain) Describe() (string, string) {
	return l.provider, l.model
}

func (l *LangChain) Complete(ctx context.Context, prompt string) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(l.temperature)}
	if l.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(l.maxTokens))
	}
	text, err := llms.GenerateFromSinglePrompt(ctx, l.llm, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("generate from prompt: %w", err)
	}
	return text, nil
}
