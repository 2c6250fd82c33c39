// Package openai streams chat completions from an OpenAI-compatible API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/bookmarkai/bookmark-server/internal/llm"
)

// Generator streams chat completions.
type Generator struct {
	client *goopenai.Client
	model  string
}

// New creates a generator; baseURL overrides the API root when non-empty.
func New(apiKey, baseURL, model string) *Generator {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Generator{client: goopenai.NewClientWithConfig(cfg), model: model}
}

func (g *Generator) Stream(ctx context.Context, p llm.Prompt) (llm.Stream, error) {
	s, err := g.client.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
		Model: g.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: p.System},
			{Role: goopenai.ChatMessageRoleUser, Content: p.User},
		},
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}
	return &stream{s: s}, nil
}

// HealthPing lists models to confirm credentials and reachability.
func (g *Generator) HealthPing(ctx context.Context) error {
	_, err := g.client.ListModels(ctx)
	return err
}

type stream struct {
	s *goopenai.ChatCompletionStream
}

func (s *stream) Recv() (string, error) {
	resp, err := s.s.Recv()
	if errors.Is(err, io.EOF) {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("openai stream recv: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *stream) Close() error { return s.s.Close() }
