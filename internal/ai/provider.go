package ai

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/stenolabs/demandgen/internal/common"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"

	defaultOpenRouterModel = "anthropic/claude-3.5-sonnet"
	defaultOpenAIModel     = "gpt-4o"
	defaultAnthropicModel  = "claude-3-5-sonnet-latest"
	defaultOllamaModel     = "llama3.1"

	// Long generations can take a while; the upstream call is bounded rather
	// than the whole request context.
	defaultRequestTimeout = 2 * time.Minute
)

// CompletionRequest is a single-shot instruction/prompt pair with bounded
// generation parameters.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int64
	Temperature float64
}

// CompletionResponse carries the generated text plus the usage the service
// reported. Model is the identifier the service actually used, which may
// differ from the one requested.
type CompletionResponse struct {
	Content      string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Provider abstracts the external generative-text service.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// NewProvider selects a provider from the environment: OpenRouter first, then
// OpenAI, then Anthropic, then an explicitly configured local Ollama host.
// It returns nil when no credential is configured; the generator turns that
// into a ConfigurationError before any network call.
func NewProvider() Provider {
	logger := common.Logger()

	if key := credential("OPENROUTER_API_KEY"); key != "" {
		model := envOr("AI_MODEL", defaultOpenRouterModel)
		logger.Info("ai: openrouter provider selected", "model", model)
		return newOpenAIProvider(key, openRouterBaseURL, model, "openrouter")
	}
	if key := credential("OPENAI_API_KEY"); key != "" {
		model := envOr("AI_MODEL", defaultOpenAIModel)
		logger.Info("ai: openai provider selected", "model", model)
		return newOpenAIProvider(key, strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")), model, "openai")
	}
	if key := credential("ANTHROPIC_API_KEY"); key != "" {
		model := envOr("AI_MODEL", defaultAnthropicModel)
		logger.Info("ai: anthropic provider selected", "model", model)
		return newAnthropicProvider(key, model)
	}
	if host := strings.TrimSpace(os.Getenv("OLLAMA_HOST")); host != "" {
		model := envOr("AI_MODEL", defaultOllamaModel)
		logger.Warn("ai: no hosted credential set; using local ollama provider", "host", host, "model", model)
		if provider, err := newOllamaProvider(model); err == nil {
			return provider
		} else {
			logger.Error("ai: ollama provider unavailable", "error", err)
		}
	}
	logger.Warn("ai: no generation provider configured; letter generation disabled")
	return nil
}

// credential reads an API key env var, treating placeholder scaffold values
// as unset.
func credential(name string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if strings.HasPrefix(value, "your-") || strings.Contains(value, "-key-here") {
		return ""
	}
	return value
}

func envOr(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}
