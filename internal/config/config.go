package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

var (
	ErrInvalidLLMProvider       = errors.New("invalid llm provider")
	ErrInvalidEmbeddingProvider = errors.New("invalid embedding provider")
	ErrInvalidThreshold         = errors.New("similarity threshold must be in [0, 1)")
	ErrInvalidTopK              = errors.New("top k must be at least 1")
	ErrMissingOpenRouterKey     = errors.New("OPENROUTER_API_KEY is required for openrouter provider")
	ErrMissingAzureCreds        = errors.New("AOAI_API_KEY and AOAI_ENDPOINT are required for azure provider")
	ErrMissingOpenAIKey         = errors.New("OPENAI_API_KEY is required for openai embeddings")
)

type Config struct {
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Knowledge KnowledgeConfig
	Review    ReviewConfig
	Database  DatabaseConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

type LLMConfig struct {
	Provider   string
	OpenRouter OpenRouterConfig
	Azure      AzureConfig
	Timeout    time.Duration
	MaxRetries int
}

type AzureConfig struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type EmbeddingConfig struct {
	Provider string
	OpenAI   OpenAIEmbeddingConfig
	Ollama   OllamaConfig
}

type OpenAIEmbeddingConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OllamaConfig struct {
	Endpoint string
	Model    string
}

type KnowledgeConfig struct {
	SimilarityThreshold float64
	TopK                int
	CacheTTL            time.Duration
}

type ReviewConfig struct {
	RunTimeout      time.Duration
	StageTimeout    time.Duration
	DefaultLanguage string
}

type DatabaseConfig struct {
	URL string // пусто = история ревью не сохраняется
}

type LogConfig struct {
	Level string
}

type RateLimitConfig struct {
	LLMRequestsPerMinute int
}

func Load() (*Config, error) {
	cfg := &Config{
		LLM: LLMConfig{
			Provider: getEnvOrDefault("LLM_PROVIDER", "mock"),
			OpenRouter: OpenRouterConfig{
				APIKey:  os.Getenv("OPENROUTER_API_KEY"),
				Model:   getEnvOrDefault("OPENROUTER_MODEL", "deepseek/deepseek-chat"),
				BaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			},
			Azure: AzureConfig{
				APIKey:     os.Getenv("AOAI_API_KEY"),
				Endpoint:   os.Getenv("AOAI_ENDPOINT"),
				Deployment: getEnvOrDefault("AOAI_DEPLOYMENT", "gpt-4o-mini"),
				APIVersion: getEnvOrDefault("AOAI_API_VERSION", "2024-02-15-preview"),
			},
			Timeout:    time.Duration(getEnvIntOrDefault("LLM_TIMEOUT_SEC", 60)) * time.Second,
			MaxRetries: getEnvIntOrDefault("LLM_MAX_RETRIES", 3),
		},
		Embedding: EmbeddingConfig{
			Provider: getEnvOrDefault("EMBEDDING_PROVIDER", "mock"),
			OpenAI: OpenAIEmbeddingConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   getEnvOrDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
				BaseURL: getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			},
			Ollama: OllamaConfig{
				Endpoint: getEnvOrDefault("OLLAMA_ENDPOINT", "http://localhost:11434"),
				Model:    getEnvOrDefault("OLLAMA_MODEL", "embeddinggemma"),
			},
		},
		Knowledge: KnowledgeConfig{
			SimilarityThreshold: getEnvFloatOrDefault("KNOWLEDGE_SIMILARITY_THRESHOLD", 0.25),
			TopK:                getEnvIntOrDefault("KNOWLEDGE_TOP_K", 3),
			CacheTTL:            time.Duration(getEnvIntOrDefault("KNOWLEDGE_CACHE_TTL_SEC", 3600)) * time.Second,
		},
		Review: ReviewConfig{
			RunTimeout:      time.Duration(getEnvIntOrDefault("REVIEW_RUN_TIMEOUT_SEC", 120)) * time.Second,
			StageTimeout:    time.Duration(getEnvIntOrDefault("REVIEW_STAGE_TIMEOUT_SEC", 45)) * time.Second,
			DefaultLanguage: getEnvOrDefault("REVIEW_DEFAULT_LANGUAGE", "python"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
		RateLimit: RateLimitConfig{
			LLMRequestsPerMinute: getEnvIntOrDefault("LLM_RATE_LIMIT_PER_MINUTE", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "mock":
	case "openrouter":
		if c.LLM.OpenRouter.APIKey == "" {
			return ErrMissingOpenRouterKey
		}
	case "azure":
		if c.LLM.Azure.APIKey == "" || c.LLM.Azure.Endpoint == "" {
			return ErrMissingAzureCreds
		}
	default:
		return ErrInvalidLLMProvider
	}

	switch c.Embedding.Provider {
	case "mock", "ollama":
	case "openai":
		if c.Embedding.OpenAI.APIKey == "" {
			return ErrMissingOpenAIKey
		}
	default:
		return ErrInvalidEmbeddingProvider
	}

	if c.Knowledge.SimilarityThreshold < 0 || c.Knowledge.SimilarityThreshold >= 1 {
		return ErrInvalidThreshold
	}
	if c.Knowledge.TopK < 1 {
		return ErrInvalidTopK
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
