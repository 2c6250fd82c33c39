// Package gemini embeds text with Google's embedding models.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Provider wraps a genai embedding model.
type Provider struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

// New creates a provider; model defaults to text-embedding-004.
func New(ctx context.Context, apiKey, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if model == "" {
		model = "text-embedding-004"
	}
	return &Provider{client: client, model: client.EmbeddingModel(model)}, nil
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, errors.New("gemini returned an empty embedding")
	}
	out := make([]float32, len(resp.Embedding.Values))
	for i, v := range resp.Embedding.Values {
		out[i] = float32(v)
	}
	return out, nil
}

// Close releases the client.
func (p *Provider) Close() error { return p.client.Close() }
