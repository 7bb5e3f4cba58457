package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/stenolabs/demandgen/internal/common"
)

type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(apiKey, model string) *anthropicProvider {
	client := anthropic.NewClient(
		aoption.WithAPIKey(apiKey),
		aoption.WithRequestTimeout(defaultRequestTimeout),
	)
	return &anthropicProvider{client: client, model: model}
}

func (p *anthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	logger := common.Logger()
	logger.Debug("ai: sending messages request", "provider", "anthropic", "model", p.model)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: req.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapAnthropicError(err)
	}
	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &ServiceError{Message: "no content generated"}
	}
	logger.Debug("ai: messages request succeeded", "provider", "anthropic", "model", string(msg.Model))
	return &CompletionResponse{
		Content:      text.String(),
		Model:        modelOr(string(msg.Model), p.model),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}, nil
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func mapAnthropicError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ServiceError{Message: "request deadline exceeded", Err: ErrTimeout}
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ServiceError{Status: apiErr.StatusCode, Message: apiErr.Error(), Err: err}
	}
	return &ServiceError{Message: fmt.Sprintf("messages request failed: %v", err), Err: err}
}
