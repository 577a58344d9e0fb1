package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/agent"
	"github.com/kitbuilder587/code-review-agent/internal/domain"
)

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	eng := newStubEngine(stubRegistry(allOKCategories(8), okStage(agent.StageAggregator, 7)), Config{})
	return NewTracker(eng, zap.NewNop())
}

func TestTracker_SubmitAndReport(t *testing.T) {
	tr := newTracker(t)

	runID, err := tr.Submit("def f(): pass", "a.py")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	tr.Wait()

	info, err := tr.Status(runID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if info.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", info.Status)
	}
	if len(info.CompletedStages) != 6 {
		t.Errorf("completed stages = %v", info.CompletedStages)
	}

	report, err := tr.Report(context.Background(), runID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.RunID != runID {
		t.Errorf("report run id = %s, want %s", report.RunID, runID)
	}
}

func TestTracker_SubmitEmptySource(t *testing.T) {
	tr := newTracker(t)

	if _, err := tr.Submit("   ", "a.py"); !errors.Is(err, domain.ErrEmptySource) {
		t.Errorf("err = %v, want ErrEmptySource", err)
	}
}

func TestTracker_UnknownRun(t *testing.T) {
	tr := newTracker(t)

	if _, err := tr.Status("no-such-run"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("Status err = %v, want ErrRunNotFound", err)
	}
	if _, err := tr.Report(context.Background(), "no-such-run"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("Report err = %v, want ErrRunNotFound", err)
	}
}

func TestTracker_ReportNotReady(t *testing.T) {
	// категории висят, прогон не успевает завершиться к моменту запроса
	slow := func(name string) agent.Agent {
		return &stubAgent{name: name, fn: func(ctx context.Context, state *domain.ReviewState) domain.AgentResult {
			time.Sleep(200 * time.Millisecond)
			return domain.AgentResult{AgentName: name, Score: 8}
		}}
	}
	categories := []agent.Agent{
		slow(agent.StageQuality),
		slow(agent.StageSecurity),
		slow(agent.StagePerformance),
		slow(agent.StageDocumentation),
	}
	eng := newStubEngine(stubRegistry(categories, okStage(agent.StageAggregator, 7)), Config{})
	tr := NewTracker(eng, zap.NewNop())

	runID, err := tr.Submit("def f(): pass", "a.py")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := tr.Report(context.Background(), runID); !errors.Is(err, domain.ErrNotReady) {
		t.Errorf("err = %v, want ErrNotReady", err)
	}

	tr.Wait()

	if _, err := tr.Report(context.Background(), runID); err != nil {
		t.Errorf("Report after completion: %v", err)
	}
}

func TestTracker_ReportCached(t *testing.T) {
	tr := newTracker(t)

	runID, err := tr.Submit("def f(): pass", "a.py")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	tr.Wait()

	first, err := tr.Report(context.Background(), runID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	second, err := tr.Report(context.Background(), runID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !first.CreatedAt.Equal(second.CreatedAt) {
		t.Error("report must be built once and cached")
	}
}

func TestTracker_ConcurrentSubmits(t *testing.T) {
	tr := newTracker(t)

	ids := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		id, err := tr.Submit("def f(): pass", "a.py")
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, id)
	}
	tr.Wait()

	for _, id := range ids {
		info, err := tr.Status(id)
		if err != nil {
			t.Fatalf("Status(%s): %v", id, err)
		}
		if !info.Status.IsTerminal() {
			t.Errorf("run %s not terminal: %s", id, info.Status)
		}
	}
}
