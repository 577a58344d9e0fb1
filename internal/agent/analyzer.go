package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
	"github.com/kitbuilder587/code-review-agent/internal/lang"
)

// AnalyzerAgent - первая стадия: определяет язык, извлекает структуру и
// прогоняет локальные линт-проверки. К модели не обращается вообще,
// поэтому быстрая и почти не падает.
type AnalyzerAgent struct {
	detector        lang.Detector
	defaultLanguage string
	logger          *zap.Logger
}

func NewAnalyzerAgent(detector lang.Detector, defaultLanguage string, logger *zap.Logger) *AnalyzerAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultLanguage == "" {
		defaultLanguage = lang.LangPython
	}
	return &AnalyzerAgent{
		detector:        detector,
		defaultLanguage: defaultLanguage,
		logger:          logger,
	}
}

func (a *AnalyzerAgent) Name() string { return StageAnalyzer }

func (a *AnalyzerAgent) Run(ctx context.Context, state *domain.ReviewState) domain.AgentResult {
	if ctx.Err() != nil {
		return domain.AgentResult{AgentName: StageAnalyzer, Err: ctx.Err()}
	}

	language, ok := a.detector.Detect(state.SourceText, state.Filename)
	if !ok {
		a.logger.Debug("language detection inconclusive, using default",
			zap.String("default", a.defaultLanguage))
		language = a.defaultLanguage
	}

	if err := state.SetDetectedLanguage(language); err != nil {
		return domain.AgentResult{AgentName: StageAnalyzer, Err: err}
	}

	structure := lang.AnalyzeStructure(state.SourceText, language)
	state.SetStructure(structure)

	findings := lang.Lint(state.SourceText, language)

	return domain.AgentResult{
		AgentName: StageAnalyzer,
		Findings:  findings,
		Score:     penaltyScore(findings),
		Narrative: analyzerNarrative(language, structure, findings),
	}
}

// penaltyScore: 10 минус взвешенная сумма issue (critical 3, warning 2, info 1),
// не ниже 1.
func penaltyScore(findings []domain.Finding) float64 {
	penalty := 0
	for _, f := range findings {
		switch f.Severity {
		case domain.SeverityCritical:
			penalty += 3
		case domain.SeverityWarning:
			penalty += 2
		default:
			penalty++
		}
	}
	if penalty > 9 {
		penalty = 9
	}
	return float64(10 - penalty)
}

func analyzerNarrative(language string, cs domain.CodeStructure, findings []domain.Finding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Detected %s: %d lines, %d functions, %d classes, complexity %d.",
		language, cs.Lines, len(cs.Functions), len(cs.Classes), cs.Complexity)
	if len(findings) > 0 {
		fmt.Fprintf(&sb, " Static checks raised %d issue(s).", len(findings))
	}
	return sb.String()
}
