package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Provider calls the Ollama embeddings API.
type Provider struct {
	client *resty.Client
	model  string
}

// New creates a provider against baseURL (default http://localhost:11434).
func New(baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	return &Provider{client: c, model: model}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error"`
}

// Embed generates a dense vector for text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text")
	}
	var er embedResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(&embedRequest{Model: p.model, Prompt: text}).
		SetResult(&er).
		SetError(&er).
		Post("/api/embeddings")
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("ollama embeddings status %d: %s", resp.StatusCode(), er.Error)
	}
	if len(er.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding for model %s", p.model)
	}
	vec := make([]float32, len(er.Embedding))
	for i, v := range er.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// HealthPing checks /api/tags for the configured model.
func (p *Provider) HealthPing(ctx context.Context) error {
	return ModelAvailable(ctx, p.client, p.model)
}

// ModelAvailable reports an error unless Ollama lists model. Shared with the chat generator.
func ModelAvailable(ctx context.Context, client *resty.Client, model string) error {
	resp, err := client.R().SetContext(ctx).Get("/api/tags")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("ollama status %d", resp.StatusCode())
	}
	var data struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return err
	}
	want := baseModelName(model)
	for _, m := range data.Models {
		if baseModelName(m.Name) == want {
			return nil
		}
	}
	return fmt.Errorf("model %s not found", want)
}

func baseModelName(name string) string {
	return strings.Split(name, ":")[0]
}
