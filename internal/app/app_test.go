package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/config"
	"github.com/kitbuilder587/code-review-agent/internal/domain"
)

func mockConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Provider:   "mock",
			Timeout:    5 * time.Second,
			MaxRetries: 1,
		},
		Embedding: config.EmbeddingConfig{Provider: "mock"},
		Knowledge: config.KnowledgeConfig{
			SimilarityThreshold: 0.25,
			TopK:                3,
			CacheTTL:            time.Minute,
		},
		Review: config.ReviewConfig{
			RunTimeout:      30 * time.Second,
			StageTimeout:    10 * time.Second,
			DefaultLanguage: "python",
		},
		Log:       config.LogConfig{Level: "error"},
		RateLimit: config.RateLimitConfig{LLMRequestsPerMinute: 600},
	}
}

// Один экземпляр App на весь бинарь: metrics.New регистрируется в
// глобальном prometheus-реестре.
func TestApp_MockStack(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, mockConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// бутстрап-корпус уже загружен
	if got := a.Store.Len(); got == 0 {
		t.Fatal("expected bootstrap corpus to be ingested")
	}

	result, err := a.Knowledge.SearchKnowledge(ctx, "sql injection parameterized queries", map[string]string{
		domain.MetaCategory: "security",
	}, 3)
	if err != nil {
		t.Fatalf("SearchKnowledge: %v", err)
	}
	if len(result) == 0 {
		t.Fatal("expected security documents from bootstrap corpus")
	}

	runID, err := a.Review.SubmitReview("def f():\n    return 1\n", "f.py")
	if err != nil {
		t.Fatalf("SubmitReview: %v", err)
	}
	a.Tracker.Wait()

	info, err := a.Review.GetReviewStatus(runID)
	if err != nil {
		t.Fatalf("GetReviewStatus: %v", err)
	}
	if info.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want %s", info.Status, domain.StatusCompleted)
	}

	report, err := a.Review.GetReviewReport(ctx, runID)
	if err != nil {
		t.Fatalf("GetReviewReport: %v", err)
	}
	if report.Language != "python" {
		t.Errorf("language = %q, want python", report.Language)
	}
	if report.OverallScore == 0 {
		t.Error("expected non-zero overall score")
	}

	a.Close()

	if _, err := a.Knowledge.SearchKnowledge(ctx, "anything", nil, 3); !errors.Is(err, domain.ErrStoreClosed) {
		t.Errorf("after Close err = %v, want ErrStoreClosed", err)
	}
}

func TestNewLLMClient_UnknownProvider(t *testing.T) {
	cfg := mockConfig()
	cfg.LLM.Provider = "bedrock"
	if _, err := newLLMClient(cfg, zap.NewNop()); !errors.Is(err, config.ErrInvalidLLMProvider) {
		t.Errorf("err = %v, want ErrInvalidLLMProvider", err)
	}
}

func TestNewEmbeddingProvider_UnknownProvider(t *testing.T) {
	cfg := mockConfig()
	cfg.Embedding.Provider = "cohere"
	if _, err := newEmbeddingProvider(cfg, zap.NewNop()); !errors.Is(err, config.ErrInvalidEmbeddingProvider) {
		t.Errorf("err = %v, want ErrInvalidEmbeddingProvider", err)
	}
}
