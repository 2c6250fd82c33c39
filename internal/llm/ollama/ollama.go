// Package ollama streams chat completions from a local Ollama server.
package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	ollamaemb "github.com/bookmarkai/bookmark-server/internal/embeddings/ollama"
	"github.com/bookmarkai/bookmark-server/internal/llm"
)

// Generator streams /api/chat NDJSON responses.
type Generator struct {
	client *resty.Client
	model  string
}

// New creates a generator against baseURL. The client has no overall timeout;
// streams are bounded by the caller's context.
func New(baseURL, model string) *Generator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	return &Generator{client: c, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatChunk struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

func (g *Generator) Stream(ctx context.Context, p llm.Prompt) (llm.Stream, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(&chatRequest{
			Model: g.model,
			Messages: []chatMessage{
				{Role: "system", Content: p.System},
				{Role: "user", Content: p.User},
			},
			Stream: true,
		}).
		SetDoNotParseResponse(true).
		Post("/api/chat")
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(body, 4096))
		_ = body.Close()
		return nil, fmt.Errorf("ollama chat status %d: %s", resp.StatusCode(), strings.TrimSpace(string(msg)))
	}
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &stream{body: body, sc: sc}, nil
}

// HealthPing checks that the chat model is pulled.
func (g *Generator) HealthPing(ctx context.Context) error {
	return ollamaemb.ModelAvailable(ctx, g.client, g.model)
}

type stream struct {
	body io.ReadCloser
	sc   *bufio.Scanner
	done bool
}

func (s *stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if line == "" {
			continue
		}
		var c chatChunk
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return "", fmt.Errorf("ollama chat decode: %w", err)
		}
		if c.Error != "" {
			return "", fmt.Errorf("ollama chat: %s", c.Error)
		}
		if c.Done {
			s.done = true
			if c.Message.Content != "" {
				return c.Message.Content, nil
			}
			return "", io.EOF
		}
		return c.Message.Content, nil
	}
	if err := s.sc.Err(); err != nil {
		return "", fmt.Errorf("ollama chat read: %w", err)
	}
	return "", io.ErrUnexpectedEOF
}

func (s *stream) Close() error { return s.body.Close() }
