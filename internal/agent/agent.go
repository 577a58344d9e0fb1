package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
	"github.com/kitbuilder587/code-review-agent/internal/knowledge"
	"github.com/kitbuilder587/code-review-agent/internal/llm"
)

// Имена стадий. Используются как ключи в stageResults и как метки метрик.
const (
	StageAnalyzer      = "analyzer"
	StageQuality       = "quality"
	StageSecurity      = "security"
	StagePerformance   = "performance"
	StageDocumentation = "documentation"
	StageAggregator    = "aggregator"
)

// CategoryStages - четыре категорийные стадии, идут параллельно после analyzer.
var CategoryStages = []string{StageQuality, StageSecurity, StagePerformance, StageDocumentation}

// Agent - одна стадия ревью. Run не возвращает error: падение стадии
// кладется в AgentResult.Err и разбирается движком, сам прогон не рушится.
type Agent interface {
	Name() string
	Run(ctx context.Context, state *domain.ReviewState) domain.AgentResult
}

// CategoryAgent - агент одной категории: достает релевантные практики из
// базы знаний (с фильтром по категории и языку), зовет модель и парсит
// ее ответ в findings.
type CategoryAgent struct {
	spec    categorySpec
	store   *knowledge.Store
	gateway *llm.Gateway
	topK    int
	logger  *zap.Logger
}

func NewCategoryAgent(spec categorySpec, store *knowledge.Store, gateway *llm.Gateway, topK int, logger *zap.Logger) *CategoryAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = knowledge.DefaultTopK
	}
	return &CategoryAgent{
		spec:    spec,
		store:   store,
		gateway: gateway,
		topK:    topK,
		logger:  logger,
	}
}

func (a *CategoryAgent) Name() string { return a.spec.stage }

func (a *CategoryAgent) Run(ctx context.Context, state *domain.ReviewState) domain.AgentResult {
	language := state.DetectedLanguage()

	snippets, err := a.retrieve(ctx, state.SourceText, language)
	if err != nil {
		// база знаний недоступна - стадия падает, но это не рушит прогон
		a.logger.Warn("retrieval failed",
			zap.String("stage", a.spec.stage),
			zap.Error(err))
		return domain.AgentResult{AgentName: a.spec.stage, Err: err}
	}

	raw, err := a.gateway.Invoke(ctx, llm.PromptSpec{
		System:   a.spec.systemPrompt,
		Snippets: snippets,
		Language: language,
		Code:     state.SourceText,
		Extra:    structureSummary(state.Structure()),
	})
	if err != nil {
		return domain.AgentResult{AgentName: a.spec.stage, Err: err}
	}

	payload, err := parseReviewPayload(raw)
	if err != nil {
		a.logger.Warn("model output is not parseable",
			zap.String("stage", a.spec.stage),
			zap.Error(err))
		return domain.AgentResult{AgentName: a.spec.stage, Err: err}
	}

	return domain.AgentResult{
		AgentName: a.spec.stage,
		Findings:  payload.toFindings(a.spec.stage),
		Score:     payload.Score,
		Narrative: payload.Summary,
	}
}

// retrieve ищет сначала по языку, при пустом результате - по общим практикам.
func (a *CategoryAgent) retrieve(ctx context.Context, code, language string) ([]string, error) {
	filters := map[string]string{
		domain.MetaCategory: a.spec.category,
		domain.MetaLanguage: language,
	}
	result, err := a.store.Query(ctx, code, a.topK, filters)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		filters[domain.MetaLanguage] = domain.LanguageGeneral
		result, err = a.store.Query(ctx, code, a.topK, filters)
		if err != nil {
			return nil, err
		}
	}
	return result.Texts(), nil
}

func structureSummary(cs domain.CodeStructure) string {
	return fmt.Sprintf("Structure: %d lines, %d functions, %d classes, %d imports, complexity %d",
		cs.Lines, len(cs.Functions), len(cs.Classes), len(cs.Imports), cs.Complexity)
}
