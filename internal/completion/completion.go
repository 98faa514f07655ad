// Package completion sends an assembled prompt to a language model and
// returns the raw completion text.
package completion

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderOpenAICompatible = "openai-compatible"
	ProviderGoOpenAI         = "go-openai"
	ProviderLangChainOpenAI  = "langchain-openai"
	ProviderOllama           = "ollama"
	ProviderHuggingFace      = "huggingface"
)

type TextCompletion interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Describe() (provider, model string)
}

type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func New(cfg Config) (TextCompletion, error) {
	switch cfg.Provider {
	case ProviderOpenAICompatible:
		return NewOpenAICompatible(cfg)
	case ProviderGoOpenAI:
		return NewGoOpenAI(cfg)
	case ProviderLangChainOpenAI, ProviderOllama:
		return NewLangChain(cfg)
	case ProviderHuggingFace:
		return NewHuggingFace(cfg)
	default:
		return nil, fmt.Errorf("unsupported completion provider %q", cfg.Provider)
	}
}

func (cfg Config) timeout() time.Duration {
	if cfg.Timeout <= 0 {
		return 60 * time.Second
	}
	return cfg.Timeout
}

// versionedBaseURL returns base with a trailing /v1, which the SDK clients
// expect.
func versionedBaseURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" || strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}
