package review

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/agent"
	"github.com/kitbuilder587/code-review-agent/internal/domain"
	embmock "github.com/kitbuilder587/code-review-agent/internal/embedding/mock"
	"github.com/kitbuilder587/code-review-agent/internal/knowledge"
)

func record(t *testing.T, state *domain.ReviewState, res domain.AgentResult) {
	t.Helper()
	if err := state.RecordStageResult(res); err != nil {
		t.Fatalf("RecordStageResult(%s): %v", res.AgentName, err)
	}
}

func TestBuildReport_NotReady(t *testing.T) {
	eng := newStubEngine(stubRegistry(allOKCategories(8), okStage(agent.StageAggregator, 7)), Config{})
	state := mustState(t, "def f(): pass", "a.py")
	state.SetStatus(domain.StatusRunning)

	_, err := eng.BuildReport(context.Background(), state)
	if !errors.Is(err, domain.ErrNotReady) {
		t.Errorf("err = %v, want ErrNotReady", err)
	}
}

func TestBuildReport_ExcludesFailedFromMean(t *testing.T) {
	eng := newStubEngine(nil, Config{})
	state := mustState(t, "def f(): pass", "a.py")
	if err := state.SetDetectedLanguage("python"); err != nil {
		t.Fatal(err)
	}

	record(t, state, domain.AgentResult{AgentName: agent.StageAnalyzer, Score: 10})
	record(t, state, domain.AgentResult{AgentName: agent.StageQuality, Score: 8})
	record(t, state, domain.AgentResult{AgentName: agent.StageSecurity, Score: 6})
	record(t, state, domain.AgentResult{AgentName: agent.StagePerformance, Err: domain.ErrModelUnavailable})
	record(t, state, domain.AgentResult{AgentName: agent.StageDocumentation, Score: 7})
	record(t, state, domain.AgentResult{AgentName: agent.StageAggregator, Score: 5, Narrative: "performance stage failed"})
	state.SetStatus(domain.StatusPartiallyFailed)

	report, err := eng.BuildReport(context.Background(), state)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}

	// (8 + 6 + 7 + 5) / 4 = 6.5; performance исключена, не занулена
	if report.OverallScore != 6.5 {
		t.Errorf("overall score = %v, want 6.5", report.OverallScore)
	}
	if _, ok := report.CategoryScores[agent.StagePerformance]; ok {
		t.Error("failed stage must not appear in category scores")
	}
	if len(report.FailedStages) != 1 || report.FailedStages[0].Stage != agent.StagePerformance {
		t.Errorf("failed stages = %+v", report.FailedStages)
	}
	if report.FailedStages[0].Reason != "model_unavailable" {
		t.Errorf("reason = %s", report.FailedStages[0].Reason)
	}
	if report.Narrative != "performance stage failed" {
		t.Errorf("narrative = %q", report.Narrative)
	}
}

func TestBuildReport_RoundsToOneDecimal(t *testing.T) {
	eng := newStubEngine(nil, Config{})
	state := mustState(t, "def f(): pass", "a.py")

	record(t, state, domain.AgentResult{AgentName: agent.StageQuality, Score: 8})
	record(t, state, domain.AgentResult{AgentName: agent.StageSecurity, Score: 7})
	record(t, state, domain.AgentResult{AgentName: agent.StageAggregator, Score: 7})
	state.SetStatus(domain.StatusPartiallyFailed)

	report, err := eng.BuildReport(context.Background(), state)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	// (8 + 7 + 7) / 3 = 7.333... -> 7.3
	if report.OverallScore != 7.3 {
		t.Errorf("overall score = %v, want 7.3", report.OverallScore)
	}
}

func TestBuildReport_FindingsAggregation(t *testing.T) {
	eng := newStubEngine(nil, Config{})
	state := mustState(t, "def f(): pass", "a.py")

	record(t, state, domain.AgentResult{AgentName: agent.StageQuality, Score: 7, Findings: []domain.Finding{
		{Severity: domain.SeverityInfo, Category: "quality", Message: "minor", Line: 10},
	}})
	record(t, state, domain.AgentResult{AgentName: agent.StageSecurity, Score: 3, Findings: []domain.Finding{
		{Severity: domain.SeverityCritical, Category: "security", Message: "injection", Line: 5},
		{Severity: domain.SeverityWarning, Category: "security", Message: "weak hash", Line: 2},
	}})
	record(t, state, domain.AgentResult{AgentName: agent.StageAggregator, Score: 5})
	state.SetStatus(domain.StatusPartiallyFailed)

	report, err := eng.BuildReport(context.Background(), state)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}

	if report.OverallSeverity != domain.SeverityCritical {
		t.Errorf("overall severity = %s, want critical", report.OverallSeverity)
	}
	// отсортированы по убыванию severity
	if report.Findings[0].Severity != domain.SeverityCritical {
		t.Errorf("first finding = %+v", report.Findings[0])
	}
	if report.SeverityCounts[domain.SeverityCritical] != 1 ||
		report.SeverityCounts[domain.SeverityWarning] != 1 ||
		report.SeverityCounts[domain.SeverityInfo] != 1 {
		t.Errorf("severity counts = %v", report.SeverityCounts)
	}
	if report.CategoryCounts["security"] != 2 {
		t.Errorf("category counts = %v", report.CategoryCounts)
	}
}

func TestBuildReport_Recommendations(t *testing.T) {
	store := knowledge.NewStore(embmock.New(), nil, nil, zap.NewNop(), knowledge.Config{})
	if err := store.IngestBootstrapCorpus(context.Background()); err != nil {
		t.Fatalf("IngestBootstrapCorpus: %v", err)
	}
	eng := NewEngine(nil, store, nil, zap.NewNop(), Config{})
	state := mustState(t, "def f(): pass", "a.py")

	record(t, state, domain.AgentResult{AgentName: agent.StageSecurity, Score: 3, Findings: []domain.Finding{
		{Severity: domain.SeverityCritical, Category: "security",
			Message: "user input interpolated directly into SQL queries"},
	}})
	record(t, state, domain.AgentResult{AgentName: agent.StageAggregator, Score: 4})
	state.SetStatus(domain.StatusPartiallyFailed)

	report, err := eng.BuildReport(context.Background(), state)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if len(report.Recommendations) == 0 {
		t.Fatal("expected recommendations matched to findings")
	}
	rec := report.Recommendations[0]
	if rec.Title == "" || rec.Text == "" {
		t.Errorf("recommendation = %+v", rec)
	}
}

func TestOverallScore_Empty(t *testing.T) {
	if got := overallScore(nil, 0, false); got != 0 {
		t.Errorf("overallScore() = %v, want 0", got)
	}
}
