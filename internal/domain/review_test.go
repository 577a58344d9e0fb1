package domain

import (
	"errors"
	"sync"
	"testing"
)

func TestSeverity_Rank(t *testing.T) {
	if SeverityCritical.Rank() <= SeverityWarning.Rank() {
		t.Error("critical must rank above warning")
	}
	if SeverityWarning.Rank() <= SeverityInfo.Rank() {
		t.Error("warning must rank above info")
	}
	if Severity("bogus").Rank() != 0 {
		t.Error("unknown severity must rank below info")
	}
}

func TestMaxSeverity(t *testing.T) {
	tests := []struct {
		name     string
		findings []Finding
		expected Severity
	}{
		{
			"critical dominates",
			[]Finding{
				{Severity: SeverityInfo},
				{Severity: SeverityWarning},
				{Severity: SeverityCritical},
				{Severity: SeverityInfo},
			},
			SeverityCritical,
		},
		{
			"warning over info",
			[]Finding{{Severity: SeverityInfo}, {Severity: SeverityWarning}},
			SeverityWarning,
		},
		{"empty", nil, Severity("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxSeverity(tt.findings); got != tt.expected {
				t.Errorf("MaxSeverity() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusPartiallyFailed, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, expected %v", got, tt.terminal)
			}
		})
	}
}

func TestNewReviewState(t *testing.T) {
	state, err := NewReviewState("def f(): pass", "a.py")
	if err != nil {
		t.Fatalf("NewReviewState() error: %v", err)
	}
	if state.ID == "" {
		t.Error("state must get an id at creation")
	}
	if state.Status() != StatusPending {
		t.Errorf("fresh state status = %v, expected pending", state.Status())
	}

	if _, err := NewReviewState("   \n", "a.py"); !errors.Is(err, ErrEmptySource) {
		t.Errorf("empty source: got %v, expected ErrEmptySource", err)
	}
}

func TestReviewState_SetDetectedLanguage(t *testing.T) {
	state, _ := NewReviewState("code", "")

	if err := state.SetDetectedLanguage("python"); err != nil {
		t.Fatalf("first SetDetectedLanguage() error: %v", err)
	}
	if err := state.SetDetectedLanguage("go"); !errors.Is(err, ErrLanguageIsSet) {
		t.Errorf("second set: got %v, expected ErrLanguageIsSet", err)
	}
	if state.DetectedLanguage() != "python" {
		t.Errorf("language = %q, expected python", state.DetectedLanguage())
	}
}

func TestReviewState_RecordStageResult(t *testing.T) {
	state, _ := NewReviewState("code", "")

	if err := state.RecordStageResult(AgentResult{AgentName: "quality", Score: 8}); err != nil {
		t.Fatalf("RecordStageResult() error: %v", err)
	}

	// второй результат того же агента отклоняется
	err := state.RecordStageResult(AgentResult{AgentName: "quality", Score: 2})
	if !errors.Is(err, ErrStageConflict) {
		t.Errorf("duplicate record: got %v, expected ErrStageConflict", err)
	}

	res, ok := state.StageResult("quality")
	if !ok || res.Score != 8 {
		t.Errorf("StageResult() = %+v, first write must win", res)
	}
}

// конкурентная запись: ровно один победитель на слот, порядок стабильный
func TestReviewState_ConcurrentRecords(t *testing.T) {
	state, _ := NewReviewState("code", "")
	stages := []string{"quality", "security", "performance", "documentation"}

	var wg sync.WaitGroup
	for _, name := range stages {
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(name string, score float64) {
				defer wg.Done()
				state.RecordStageResult(AgentResult{AgentName: name, Score: score})
			}(name, float64(i+1))
		}
	}
	wg.Wait()

	results := state.StageResults()
	if len(results) != len(stages) {
		t.Fatalf("got %d results, expected %d", len(results), len(stages))
	}
	seen := make(map[string]bool)
	for _, r := range results {
		if seen[r.AgentName] {
			t.Errorf("agent %s recorded twice", r.AgentName)
		}
		seen[r.AgentName] = true
	}
}
