package review

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/agent"
	"github.com/kitbuilder587/code-review-agent/internal/domain"
)

// BuildReport собирает терминальную проекцию прогона. Для нетерминальных
// статусов - ErrNotReady.
func (e *Engine) BuildReport(ctx context.Context, state *domain.ReviewState) (domain.ReviewReport, error) {
	status := state.Status()
	if !status.IsTerminal() {
		return domain.ReviewReport{}, domain.ErrNotReady
	}

	results := state.StageResults()

	report := domain.ReviewReport{
		RunID:          state.ID,
		Language:       state.DetectedLanguage(),
		Status:         status,
		Structure:      state.Structure(),
		CategoryScores: make(map[string]float64),
		SeverityCounts: make(map[domain.Severity]int),
		CategoryCounts: make(map[string]int),
		CreatedAt:      time.Now(),
	}

	var aggScore float64
	var aggOK bool

	for _, res := range results {
		if res.Failed() {
			report.FailedStages = append(report.FailedStages, domain.StageFailure{
				Stage:  res.AgentName,
				Reason: failureReason(res.Err),
			})
			continue
		}

		switch res.AgentName {
		case agent.StageAggregator:
			aggScore, aggOK = res.Score, true
			report.Narrative = res.Narrative
		case agent.StageAnalyzer:
			// структурная стадия в среднее не входит
		default:
			report.CategoryScores[res.AgentName] = res.Score
		}

		report.Findings = append(report.Findings, res.Findings...)
	}

	report.OverallScore = overallScore(report.CategoryScores, aggScore, aggOK)
	report.OverallSeverity = domain.MaxSeverity(report.Findings)
	domain.SortFindings(report.Findings)

	for _, f := range report.Findings {
		report.SeverityCounts[f.Severity]++
		report.CategoryCounts[f.Category]++
	}

	report.Recommendations = e.recommend(ctx, state, report.Findings)

	return report, nil
}

// overallScore - среднее по успешным категориям плюс целостная оценка
// агрегатора, округленное до одного знака. Упавшие категории исключаются
// из среднего, а не считаются нулем.
func overallScore(categoryScores map[string]float64, aggScore float64, aggOK bool) float64 {
	sum := 0.0
	n := 0
	for _, s := range categoryScores {
		sum += s
		n++
	}
	if aggOK {
		sum += aggScore
		n++
	}
	if n == 0 {
		return 0
	}
	return domain.RoundScore(sum / float64(n))
}

// recommend подбирает практики под найденные проблемы. Ошибки ретривала
// не фатальны: отчет без рекомендаций лучше, чем никакого.
func (e *Engine) recommend(ctx context.Context, state *domain.ReviewState, findings []domain.Finding) []domain.Recommendation {
	if e.store == nil || len(findings) == 0 {
		return nil
	}

	var parts []string
	for i, f := range findings {
		if i >= 5 {
			break
		}
		parts = append(parts, f.Message)
	}

	result, err := e.store.Query(ctx, strings.Join(parts, " "), 3, nil)
	if err != nil {
		e.logger.Warn("recommendation retrieval failed",
			zap.String("run_id", state.ID),
			zap.Error(err))
		return nil
	}

	recs := make([]domain.Recommendation, 0, len(result))
	for _, sd := range result {
		recs = append(recs, domain.Recommendation{
			Title:    sd.Document.Metadata[domain.MetaTitle],
			Category: sd.Document.Category(),
			Language: sd.Document.Language(),
			Text:     sd.Document.Text,
		})
	}
	return recs
}
