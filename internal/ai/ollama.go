package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/ollama/ollama/api"

	"github.com/stenolabs/demandgen/internal/common"
)

// ollamaProvider runs generation against a local Ollama instance. Development
// convenience only; selected when OLLAMA_HOST is set and no hosted credential
// is available.
type ollamaProvider struct {
	client *api.Client
	model  string
}

func newOllamaProvider(model string) (*ollamaProvider, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return &ollamaProvider{client: client, model: model}, nil
}

func (p *ollamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	logger := common.Logger()
	logger.Debug("ai: sending local chat request", "provider", "ollama", "model", p.model)

	stream := false
	options := map[string]any{}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = int(req.MaxTokens)
	}
	chatReq := &api.ChatRequest{
		Model: p.model,
		Messages: []api.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Stream:  &stream,
		Options: options,
	}

	var resp CompletionResponse
	err := p.client.Chat(ctx, chatReq, func(chunk api.ChatResponse) error {
		resp.Content += chunk.Message.Content
		if chunk.Done {
			resp.InputTokens = int64(chunk.Metrics.PromptEvalCount)
			resp.OutputTokens = int64(chunk.Metrics.EvalCount)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ServiceError{Message: "request deadline exceeded", Err: ErrTimeout}
		}
		return nil, &ServiceError{Message: fmt.Sprintf("ollama chat failed: %v", err), Err: err}
	}
	if resp.Content == "" {
		return nil, &ServiceError{Message: "no content generated"}
	}
	resp.Model = p.model
	return &resp, nil
}

func (p *ollamaProvider) Name() string { return "ollama" }
