package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
	"github.com/kitbuilder587/code-review-agent/internal/knowledge"
	"github.com/kitbuilder587/code-review-agent/internal/llm"
)

const aggregatorPrompt = `You are the lead reviewer summarizing a multi-agent code review.

You receive the per-category verdicts below. Produce a holistic assessment:
1. Overall verdict of the code in 2-4 sentences.
2. The most important problems to fix first.
3. If some review categories failed to run, name them explicitly and say the review is partial.

Use the reference guidelines when they apply and cite them as [K1], [K2] in messages.

` + outputFormat

// AggregatorAgent - финальная стадия. Собирает результаты всех стадий
// (включая упавшие), делает один запрос к базе знаний и одну модельную
// генерацию с целостным вердиктом.
type AggregatorAgent struct {
	store   *knowledge.Store
	gateway *llm.Gateway
	topK    int
	logger  *zap.Logger
}

func NewAggregatorAgent(store *knowledge.Store, gateway *llm.Gateway, topK int, logger *zap.Logger) *AggregatorAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = knowledge.DefaultTopK
	}
	return &AggregatorAgent{store: store, gateway: gateway, topK: topK, logger: logger}
}

func (a *AggregatorAgent) Name() string { return StageAggregator }

func (a *AggregatorAgent) Run(ctx context.Context, state *domain.ReviewState) domain.AgentResult {
	results := state.StageResults()
	language := state.DetectedLanguage()

	snippets := a.retrieve(ctx, state, results)

	raw, err := a.gateway.Invoke(ctx, llm.PromptSpec{
		System:   aggregatorPrompt,
		Snippets: snippets,
		Language: language,
		Code:     state.SourceText,
		Extra:    stageDigest(results),
	})
	if err != nil {
		return domain.AgentResult{AgentName: StageAggregator, Err: err}
	}

	payload, err := parseReviewPayload(raw)
	if err != nil {
		return domain.AgentResult{AgentName: StageAggregator, Err: err}
	}

	narrative := payload.Summary
	if failed := failedStageNames(results); len(failed) != 0 && !mentionsAll(narrative, failed) {
		// модель обязана упомянуть упавшие категории; если не упомянула - дописываем
		narrative = fmt.Sprintf("%s Review is partial: the following stages failed: %s.",
			narrative, strings.Join(failed, ", "))
	}

	return domain.AgentResult{
		AgentName: StageAggregator,
		Findings:  payload.toFindings(StageAggregator),
		Score:     payload.Score,
		Narrative: narrative,
	}
}

// retrieve строит запрос из найденных проблем, а не из сырого кода:
// так база знаний возвращает практики под конкретные issue.
func (a *AggregatorAgent) retrieve(ctx context.Context, state *domain.ReviewState, results []domain.AgentResult) []string {
	query := issueQuery(results)
	if query == "" {
		query = state.SourceText
	}

	result, err := a.store.Query(ctx, query, a.topK, map[string]string{
		domain.MetaLanguage: domain.LanguageGeneral,
	})
	if err != nil {
		// ретривал для агрегатора не критичен, работаем без контекста
		a.logger.Warn("aggregator retrieval failed", zap.Error(err))
		return nil
	}
	return result.Texts()
}

func issueQuery(results []domain.AgentResult) string {
	var parts []string
	for _, r := range results {
		for _, f := range r.Findings {
			parts = append(parts, f.Message)
			if len(parts) >= 5 {
				return strings.Join(parts, " ")
			}
		}
	}
	return strings.Join(parts, " ")
}

func stageDigest(results []domain.AgentResult) string {
	var sb strings.Builder
	sb.WriteString("Per-stage results:\n")
	for _, r := range results {
		if r.Failed() {
			fmt.Fprintf(&sb, "- %s: FAILED (%v)\n", r.AgentName, r.Err)
			continue
		}
		fmt.Fprintf(&sb, "- %s: score %.1f, %d finding(s)", r.AgentName, r.Score, len(r.Findings))
		if r.Narrative != "" {
			fmt.Fprintf(&sb, ", summary: %s", r.Narrative)
		}
		sb.WriteString("\n")
		for _, f := range r.Findings {
			fmt.Fprintf(&sb, "    [%s] line %d: %s\n", f.Severity, f.Line, f.Message)
		}
	}
	return sb.String()
}

func failedStageNames(results []domain.AgentResult) []string {
	var out []string
	for _, r := range results {
		if r.Failed() {
			out = append(out, r.AgentName)
		}
	}
	return out
}

func mentionsAll(text string, names []string) bool {
	lower := strings.ToLower(text)
	for _, n := range names {
		if !strings.Contains(lower, strings.ToLower(n)) {
			return false
		}
	}
	return true
}
