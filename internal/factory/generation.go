package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bookmarkai/bookmark-server/internal/config"
	"github.com/bookmarkai/bookmark-server/internal/llm"
	"github.com/bookmarkai/bookmark-server/internal/llm/gemini"
	"github.com/bookmarkai/bookmark-server/internal/llm/ollama"
	"github.com/bookmarkai/bookmark-server/internal/llm/openai"
	"github.com/bookmarkai/bookmark-server/internal/tokenizer"
)

// NewGenerator creates the streaming chat model selected by cfg.LLMProvider.
func NewGenerator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (llm.Generator, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("BOOKMARK_SERVER_OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel), nil
	case "ollama":
		return ollama.New(cfg.OllamaURL, cfg.ChatModel), nil
	case "gemini":
		return gemini.New(ctx, cfg.GeminiAPIKey, cfg.ChatModel)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER: %s", cfg.LLMProvider)
	}
}

// NewTokenizer returns the BPE tokenizer for cfg.ChatModel, or a whitespace counter when
// no encoding can be loaded.
func NewTokenizer(cfg *config.Config, log zerolog.Logger) tokenizer.Tokenizer {
	tok, err := tokenizer.ForModel(cfg.ChatModel)
	if err != nil {
		log.Warn().Err(err).Str("model", cfg.ChatModel).Msg("tokenizer unavailable; counting whitespace-separated words")
		return tokenizer.Whitespace{}
	}
	return tok
}
