package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/agent"
	"github.com/kitbuilder587/code-review-agent/internal/cache/memory"
	"github.com/kitbuilder587/code-review-agent/internal/config"
	"github.com/kitbuilder587/code-review-agent/internal/embedding"
	embmock "github.com/kitbuilder587/code-review-agent/internal/embedding/mock"
	"github.com/kitbuilder587/code-review-agent/internal/knowledge"
	"github.com/kitbuilder587/code-review-agent/internal/lang"
	"github.com/kitbuilder587/code-review-agent/internal/llm"
	"github.com/kitbuilder587/code-review-agent/internal/llm/azure"
	llmmock "github.com/kitbuilder587/code-review-agent/internal/llm/mock"
	"github.com/kitbuilder587/code-review-agent/internal/llm/openrouter"
	"github.com/kitbuilder587/code-review-agent/internal/metrics"
	"github.com/kitbuilder587/code-review-agent/internal/ratelimit"
	"github.com/kitbuilder587/code-review-agent/internal/repository"
	"github.com/kitbuilder587/code-review-agent/internal/repository/postgres"
	"github.com/kitbuilder587/code-review-agent/internal/review"
	"github.com/kitbuilder587/code-review-agent/internal/service"
)

// App собирает весь стек по конфигу: провайдеры, базу знаний, движок и
// сервисы. Точка входа для любого presentation-слоя.
type App struct {
	Review    *service.ReviewService
	Knowledge *service.KnowledgeService
	Tracker   *review.Tracker
	Store     *knowledge.Store
	Metrics   *metrics.Metrics
	Logger    *zap.Logger

	cache   *memory.Cache
	limiter *ratelimit.Limiter
	db      *postgres.DB
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	m := metrics.New()

	client, err := newLLMClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.RateLimit.LLMRequestsPerMinute})
	gateway := llm.NewGateway(client, llm.GatewayConfig{
		Provider:    cfg.LLM.Provider,
		MaxRetries:  cfg.LLM.MaxRetries,
		CallTimeout: cfg.LLM.Timeout,
	}, limiter, m, logger)

	provider, err := newEmbeddingProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	embCache := memory.New()
	store := knowledge.NewStore(provider, embCache, m, logger, knowledge.Config{
		SimilarityThreshold: cfg.Knowledge.SimilarityThreshold,
		TopK:                cfg.Knowledge.TopK,
		CacheTTL:            cfg.Knowledge.CacheTTL,
	})
	if err := store.IngestBootstrapCorpus(ctx); err != nil {
		embCache.Stop()
		limiter.Stop()
		return nil, fmt.Errorf("bootstrap corpus: %w", err)
	}

	registry := agent.NewRegistry(store, gateway, lang.NewDetector(), cfg.Review.DefaultLanguage, cfg.Knowledge.TopK, logger)
	engine := review.NewEngine(registry, store, m, logger, review.Config{
		RunTimeout:   cfg.Review.RunTimeout,
		StageTimeout: cfg.Review.StageTimeout,
	})
	tracker := review.NewTracker(engine, logger)

	var db *postgres.DB
	var history repository.ReviewRepository
	if cfg.Database.URL != "" {
		db, err = postgres.New(ctx, cfg.Database.URL)
		if err != nil {
			embCache.Stop()
			limiter.Stop()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		history = postgres.NewReviewRepo(db)
	}

	return &App{
		Review:    service.NewReviewService(tracker, history, logger),
		Knowledge: service.NewKnowledgeService(store, logger),
		Tracker:   tracker,
		Store:     store,
		Metrics:   m,
		Logger:    logger,
		cache:     embCache,
		limiter:   limiter,
		db:        db,
	}, nil
}

// Close дожидается активных прогонов и освобождает ресурсы.
func (a *App) Close() {
	a.Tracker.Wait()
	a.Store.Close()
	a.cache.Stop()
	a.limiter.Stop()
	if a.db != nil {
		a.db.Close()
	}
	_ = a.Logger.Sync()
}

func newLLMClient(cfg *config.Config, logger *zap.Logger) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "openrouter":
		return openrouter.New(openrouter.Config{
			APIKey:  cfg.LLM.OpenRouter.APIKey,
			Model:   cfg.LLM.OpenRouter.Model,
			BaseURL: cfg.LLM.OpenRouter.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}, logger), nil
	case "azure":
		return azure.New(azure.Config{
			APIKey:     cfg.LLM.Azure.APIKey,
			Endpoint:   cfg.LLM.Azure.Endpoint,
			Deployment: cfg.LLM.Azure.Deployment,
			APIVersion: cfg.LLM.Azure.APIVersion,
			Timeout:    cfg.LLM.Timeout,
		}, logger), nil
	case "mock":
		return llmmock.New(), nil
	default:
		return nil, config.ErrInvalidLLMProvider
	}
}

func newEmbeddingProvider(cfg *config.Config, logger *zap.Logger) (embedding.Provider, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:  cfg.Embedding.OpenAI.APIKey,
			Model:   cfg.Embedding.OpenAI.Model,
			BaseURL: cfg.Embedding.OpenAI.BaseURL,
		}, logger), nil
	case "ollama":
		return embedding.NewOllamaProvider(embedding.OllamaConfig{
			Endpoint: cfg.Embedding.Ollama.Endpoint,
			Model:    cfg.Embedding.Ollama.Model,
		}), nil
	case "mock":
		return embmock.New(), nil
	default:
		return nil, config.ErrInvalidEmbeddingProvider
	}
}
