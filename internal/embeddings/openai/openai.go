// Package openai embeds text with the OpenAI embeddings API.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
)

// Provider embeds text with an OpenAI-compatible endpoint.
type Provider struct {
	client *goopenai.Client
	model  string
}

// New creates a provider; baseURL overrides the API root when non-empty.
func New(apiKey, baseURL, model string) *Provider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(goopenai.SmallEmbedding3)
	}
	return &Provider{client: goopenai.NewClientWithConfig(cfg), model: model}
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai returned no embedding for model %s", p.model)
	}
	return resp.Data[0].Embedding, nil
}

// HealthPing lists models to confirm credentials and reachability.
func (p *Provider) HealthPing(ctx context.Context) error {
	_, err := p.client.ListModels(ctx)
	return err
}
