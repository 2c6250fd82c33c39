package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// EnvPrefix is the prefix for every environment variable read by New.
const EnvPrefix = "BOOKMARK_SERVER"

// Config holds the configuration for the bookmark service.
// Environment variables are parsed from the BOOKMARK_SERVER_ prefix.
type Config struct {
	// Build target selects high-level environment: local, cloud-dev, cloud
	BuildTarget string `envconfig:"BUILD_TARGET" default:"cloud-dev"`

	// Derived or override drivers
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	VectorStore string `envconfig:"VECTOR_STORE" default:"auto"`

	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Document store
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`

	// Vector index
	WeaviateURL    string `envconfig:"WEAVIATE_URL" default:"weaviate:8080"`
	WeaviateAPIKey string `envconfig:"WEAVIATE_API_KEY" default:""`
	WeaviateClass  string `envconfig:"WEAVIATE_CLASS" default:"Document"`
	ChromemPath    string `envconfig:"CHROMEM_PATH" default:""`

	// Embeddings
	EmbedProvider string `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel    string `envconfig:"EMBED_MODEL" default:"nomic-embed-text"`

	// Generation
	LLMProvider   string `envconfig:"LLM_PROVIDER" default:"openai"`
	ChatModel     string `envconfig:"CHAT_MODEL" default:"gpt-3.5-turbo"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:""`
	OllamaURL     string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY" default:""`

	// Retrieval and context assembly
	MaxContextTokens int     `envconfig:"MAX_CONTEXT_TOKENS" default:"3000"`
	ChunkSize        int     `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap     int     `envconfig:"CHUNK_OVERLAP" default:"100"`
	ContextCertainty float32 `envconfig:"CONTEXT_CERTAINTY" default:"0.8"`
	RetrievalLimit   int     `envconfig:"RETRIEVAL_LIMIT" default:"10"`
	SearchAlpha      float32 `envconfig:"SEARCH_ALPHA" default:"0.25"`

	// Per-owner resources
	ChatRatePerMinute int `envconfig:"CHAT_RATE_PER_MINUTE" default:"30"`
	OwnerCacheSize    int `envconfig:"OWNER_CACHE_SIZE" default:"64"`

	// Health and lifecycle
	HealthIntervalSeconds         int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds     int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
	BootstrapTimeoutSeconds       int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"5"`
	GenerationDrainTimeoutSeconds int `envconfig:"GENERATION_DRAIN_TIMEOUT_SECONDS" default:"120"`
	IndexRetryMaxElapsedSeconds   int `envconfig:"INDEX_RETRY_MAX_ELAPSED_SECONDS" default:"10"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver and VectorStore when set to "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB, defaultVS string

	switch c.BuildTarget {
	case "cloud-dev", "cloud":
		defaultDB, defaultVS = "postgres", "weaviate"
	case "local":
		defaultDB, defaultVS = "sqlite", "chromem"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}
	if c.VectorStore == "" || c.VectorStore == "auto" {
		c.VectorStore = defaultVS
	}
	if c.DBDriver == "sqlite" && c.SQLitePath == "" {
		c.SQLitePath = "./data/bookmarks.db"
	}

	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	allowedVS := map[string]bool{"weaviate": true, "chromem": true}
	if !allowedVS[c.VectorStore] {
		return fmt.Errorf("unsupported VECTOR_STORE: %s", c.VectorStore)
	}
	allowedLLM := map[string]bool{"openai": true, "ollama": true, "gemini": true}
	if !allowedLLM[c.LLMProvider] {
		return fmt.Errorf("unsupported LLM_PROVIDER: %s", c.LLMProvider)
	}
	if c.SearchAlpha < 0 || c.SearchAlpha > 1 {
		return fmt.Errorf("SEARCH_ALPHA must be within [0,1], got %v", c.SearchAlpha)
	}
	if c.ContextCertainty < 0 || c.ContextCertainty > 1 {
		return fmt.Errorf("CONTEXT_CERTAINTY must be within [0,1], got %v", c.ContextCertainty)
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("invalid chunking: size=%d overlap=%d", c.ChunkSize, c.ChunkOverlap)
	}
	if c.MaxContextTokens <= 0 {
		return fmt.Errorf("MAX_CONTEXT_TOKENS must be positive, got %d", c.MaxContextTokens)
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Environment variables should be prefixed with BOOKMARK_SERVER_
// Example: BOOKMARK_SERVER_HTTP_PORT, BOOKMARK_SERVER_WEAVIATE_URL
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("vector_store", cfg.VectorStore).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Str("llm_provider", cfg.LLMProvider).
		Str("chat_model", cfg.ChatModel).
		Int("max_context_tokens", cfg.MaxContextTokens).
		Float32("context_certainty", cfg.ContextCertainty).
		Float32("search_alpha", cfg.SearchAlpha).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Str("sqlite_path", cfg.SQLitePath).
		Str("weaviate_url", cfg.WeaviateURL).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	cfg := &Config{
		Environment: EnvTesting,
		BuildTarget: "local",
		HTTPPort:    8080,
	}

	cfg.DBDriver = "sqlite"
	cfg.VectorStore = "chromem"
	cfg.WeaviateURL = "localhost:8082"
	cfg.WeaviateClass = "Document"

	cfg.EmbedProvider = "ollama"
	cfg.EmbedModel = "nomic-embed-text"
	cfg.LLMProvider = "ollama"
	cfg.ChatModel = "llama3"
	cfg.OllamaURL = "http://localhost:11434"

	cfg.MaxContextTokens = 3000
	cfg.ChunkSize = 1000
	cfg.ChunkOverlap = 100
	cfg.ContextCertainty = 0.8
	cfg.RetrievalLimit = 10
	cfg.SearchAlpha = 0.25

	cfg.ChatRatePerMinute = 30
	cfg.OwnerCacheSize = 64
	cfg.HealthIntervalSeconds = 30
	cfg.HealthProbeTimeoutSeconds = 2
	cfg.BootstrapTimeoutSeconds = 5
	cfg.GenerationDrainTimeoutSeconds = 120
	cfg.IndexRetryMaxElapsedSeconds = 1

	return cfg
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// TablePrefix namespaces document-store tables; only production uses the bare names.
func (c *Config) TablePrefix() string {
	if c.IsProduction() {
		return ""
	}
	return "test_"
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
