package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/stenolabs/demandgen/internal/common"
)

// openAIProvider speaks the chat-completions API, either against OpenAI
// itself or any compatible gateway (OpenRouter) via a base URL override.
type openAIProvider struct {
	client openai.Client
	model  string
	name   string
}

func newOpenAIProvider(apiKey, baseURL, model, name string) *openAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(defaultRequestTimeout),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	return &openAIProvider{client: openai.NewClient(opts...), model: model, name: name}
}

func (p *openAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	logger := common.Logger()
	logger.Debug("ai: sending chat completion request", "provider", p.name, "model", p.model)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, &ServiceError{Message: "no content generated"}
	}
	logger.Debug("ai: chat completion succeeded", "provider", p.name, "model", resp.Model)
	return &CompletionResponse{
		Content:      resp.Choices[0].Message.Content,
		Model:        modelOr(resp.Model, p.model),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (p *openAIProvider) Name() string { return p.name }

func mapOpenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ServiceError{Message: "request deadline exceeded", Err: ErrTimeout}
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &ServiceError{Status: apiErr.StatusCode, Message: apiErr.Message, Err: err}
	}
	return &ServiceError{Message: fmt.Sprintf("chat completion failed: %v", err), Err: err}
}

func modelOr(reported, requested string) string {
	if strings.TrimSpace(reported) != "" {
		return reported
	}
	return requested
}
