// Package gemini streams completions from Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bookmarkai/bookmark-server/internal/llm"
)

// Generator streams GenerateContent responses.
type Generator struct {
	client *genai.Client
	model  string
}

// New creates a Gemini client authenticated with apiKey.
func New(ctx context.Context, apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Generator{client: c, model: model}, nil
}

func (g *Generator) Stream(ctx context.Context, p llm.Prompt) (llm.Stream, error) {
	m := g.client.GenerativeModel(g.model)
	if p.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(p.System)}}
	}
	return &stream{it: m.GenerateContentStream(ctx, genai.Text(p.User))}, nil
}

// HealthPing fetches model metadata.
func (g *Generator) HealthPing(ctx context.Context) error {
	_, err := g.client.GenerativeModel(g.model).Info(ctx)
	return err
}

// Close releases the underlying client.
func (g *Generator) Close() error { return g.client.Close() }

type stream struct {
	it *genai.GenerateContentResponseIterator
}

func (s *stream) Recv() (string, error) {
	resp, err := s.it.Next()
	if errors.Is(err, iterator.Done) {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("gemini stream: %w", err)
	}
	return candidateText(resp), nil
}

func (s *stream) Close() error { return nil }

// candidateText concatenates the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
