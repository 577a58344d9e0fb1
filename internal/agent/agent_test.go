package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
	embmock "github.com/kitbuilder587/code-review-agent/internal/embedding/mock"
	"github.com/kitbuilder587/code-review-agent/internal/knowledge"
	"github.com/kitbuilder587/code-review-agent/internal/lang"
	"github.com/kitbuilder587/code-review-agent/internal/llm"
	llmmock "github.com/kitbuilder587/code-review-agent/internal/llm/mock"
)

func newTestStore(t *testing.T) *knowledge.Store {
	t.Helper()
	store := knowledge.NewStore(embmock.New(), nil, nil, zap.NewNop(), knowledge.Config{})
	if err := store.IngestBootstrapCorpus(context.Background()); err != nil {
		t.Fatalf("IngestBootstrapCorpus: %v", err)
	}
	return store
}

func newTestGateway(client llm.Client) *llm.Gateway {
	return llm.NewGateway(client, llm.GatewayConfig{
		MaxRetries:  1,
		BaseBackoff: time.Millisecond,
		CallTimeout: time.Second,
	}, nil, nil, zap.NewNop())
}

func analyzedState(t *testing.T, source, filename string) *domain.ReviewState {
	t.Helper()
	state := mustState(t, source, filename)
	a := NewAnalyzerAgent(lang.NewDetector(), "python", zap.NewNop())
	res := a.Run(context.Background(), state)
	if res.Failed() {
		t.Fatalf("analyzer failed: %v", res.Err)
	}
	return state
}

func TestCategoryAgent_Run(t *testing.T) {
	store := newTestStore(t)
	client := llmmock.New().WithResponse(`{
		"score": 6,
		"findings": [{"severity": "warning", "line": 2, "message": "except without type"}],
		"summary": "mediocre"
	}`)
	a := NewCategoryAgent(categorySpecs[StageQuality], store, newTestGateway(client), 3, zap.NewNop())

	state := analyzedState(t, "try:\n    pass\nexcept ValueError:\n    pass\n", "a.py")
	res := a.Run(context.Background(), state)

	if res.Failed() {
		t.Fatalf("agent failed: %v", res.Err)
	}
	if res.AgentName != StageQuality {
		t.Errorf("agent name = %s", res.AgentName)
	}
	if res.Score != 6 || len(res.Findings) != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.Findings[0].Category != StageQuality {
		t.Errorf("finding category = %s", res.Findings[0].Category)
	}

	// промпт собран: system от специализации, в user - код и структура
	if client.LastSystem != categorySpecs[StageQuality].systemPrompt {
		t.Error("system prompt mismatch")
	}
	if !strings.Contains(client.LastPrompt, "Structure:") {
		t.Error("prompt must carry structure summary")
	}
	if !strings.Contains(client.LastPrompt, "try:") {
		t.Error("prompt must carry the source code")
	}
}

func TestCategoryAgent_ModelUnavailable(t *testing.T) {
	store := newTestStore(t)
	client := llmmock.New().WithError(errors.New("boom"))
	a := NewCategoryAgent(categorySpecs[StageSecurity], store, newTestGateway(client), 3, zap.NewNop())

	state := analyzedState(t, "def f(): pass", "a.py")
	res := a.Run(context.Background(), state)

	if !res.Failed() {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, domain.ErrModelUnavailable) {
		t.Errorf("err = %v, want ErrModelUnavailable", res.Err)
	}
}

func TestCategoryAgent_MalformedOutput(t *testing.T) {
	store := newTestStore(t)
	client := llmmock.New().WithResponse("sorry, I cannot review this code")
	a := NewCategoryAgent(categorySpecs[StagePerformance], store, newTestGateway(client), 3, zap.NewNop())

	state := analyzedState(t, "def f(): pass", "a.py")
	res := a.Run(context.Background(), state)

	if !errors.Is(res.Err, domain.ErrMalformedAgentOutput) {
		t.Errorf("err = %v, want ErrMalformedAgentOutput", res.Err)
	}
}

func TestCategoryAgent_RetrievalFailure(t *testing.T) {
	provider := embmock.New()
	store := knowledge.NewStore(provider, nil, nil, zap.NewNop(), knowledge.Config{})
	if err := store.IngestBootstrapCorpus(context.Background()); err != nil {
		t.Fatalf("IngestBootstrapCorpus: %v", err)
	}
	provider.Error = errors.New("embedding service down")

	a := NewCategoryAgent(categorySpecs[StageQuality], store, newTestGateway(llmmock.New()), 3, zap.NewNop())
	state := analyzedState(t, "def f(): pass", "a.py")

	res := a.Run(context.Background(), state)
	if !errors.Is(res.Err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("err = %v, want ErrEmbeddingUnavailable", res.Err)
	}
}

func TestCategoryAgent_FallsBackToGeneralPractices(t *testing.T) {
	// база содержит только general-документы, язык ревью - python
	store := newTestStore(t)
	client := llmmock.New()
	a := NewCategoryAgent(categorySpecs[StageSecurity], store, newTestGateway(client), 3, zap.NewNop())

	code := "# every external input must be validated: check length, format and allowed characters before use\npass\n"
	state := analyzedState(t, code, "creds.py")
	res := a.Run(context.Background(), state)

	if res.Failed() {
		t.Fatalf("agent failed: %v", res.Err)
	}
	if !strings.Contains(client.LastPrompt, "[K1]") {
		t.Error("expected general security practices in prompt after language fallback")
	}
}

func TestNewCategoryAgents(t *testing.T) {
	agents := NewCategoryAgents(newTestStore(t), newTestGateway(llmmock.New()), 3, zap.NewNop())

	if len(agents) != 4 {
		t.Fatalf("got %d agents, want 4", len(agents))
	}
	for i, stage := range CategoryStages {
		if agents[i].Name() != stage {
			t.Errorf("agents[%d].Name() = %s, want %s", i, agents[i].Name(), stage)
		}
	}
}
