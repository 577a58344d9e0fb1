package domain

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

func (s Severity) String() string { return string(s) }

// Rank задает тотальный порядок: critical > warning > info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// MaxSeverity возвращает максимальную severity среди findings (critical доминирует).
func MaxSeverity(findings []Finding) Severity {
	max := Severity("")
	for _, f := range findings {
		if f.Severity.Rank() > max.Rank() {
			max = f.Severity
		}
	}
	return max
}

type Finding struct {
	Severity   Severity
	Category   string
	Message    string
	Line       int    // 0 если не привязано к строке
	Symbol     string // опционально: имя функции/класса
	Suggestion string
}

// AgentResult - результат одной стадии. Err != nil означает что стадия упала
// и Score/Findings доверять нельзя.
type AgentResult struct {
	AgentName string
	Findings  []Finding
	Score     float64 // 1-10, 0 если стадия упала
	Narrative string
	Err       error
}

func (r AgentResult) Failed() bool { return r.Err != nil }

type Status string

const (
	StatusPending         Status = "pending"
	StatusRunning         Status = "running"
	StatusCompleted       Status = "completed"
	StatusPartiallyFailed Status = "partially_failed"
	StatusFailed          Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusPartiallyFailed, StatusFailed:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusPartiallyFailed, StatusFailed:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// CodeStructure - результат структурного анализа кода (стадия analyzer).
type CodeStructure struct {
	Lines      int
	Functions  []FunctionInfo
	Classes    []ClassInfo
	Imports    []string
	Complexity int
}

type FunctionInfo struct {
	Name string
	Line int
	Args int
}

type ClassInfo struct {
	Name    string
	Line    int
	Methods int
}

// ReviewState - состояние одного ревью. Принадлежит ровно одному прогону движка.
// Поля SourceText/Filename иммутабельны после создания, DetectedLanguage и
// Structure выставляются ровно один раз стадией analyzer до запуска
// категорийных агентов. Запись в stageResults синхронизирована: каждый агент
// пишет только свой слот, повторная запись отклоняется.
type ReviewState struct {
	ID         string
	SourceText string
	Filename   string

	mu               sync.RWMutex
	detectedLanguage string
	structure        CodeStructure
	status           Status
	stageResults     map[string]AgentResult
	stageOrder       []string
}

func NewReviewState(sourceText, filename string) (*ReviewState, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, ErrEmptySource
	}
	return &ReviewState{
		ID:           uuid.NewString(),
		SourceText:   sourceText,
		Filename:     filename,
		status:       StatusPending,
		stageResults: make(map[string]AgentResult),
	}, nil
}

func (s *ReviewState) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *ReviewState) SetStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *ReviewState) DetectedLanguage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detectedLanguage
}

// SetDetectedLanguage выставляет язык ровно один раз.
func (s *ReviewState) SetDetectedLanguage(lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detectedLanguage != "" {
		return ErrLanguageIsSet
	}
	s.detectedLanguage = lang
	return nil
}

func (s *ReviewState) Structure() CodeStructure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.structure
}

func (s *ReviewState) SetStructure(cs CodeStructure) {
	s.mu.Lock()
	s.structure = cs
	s.mu.Unlock()
}

// RecordStageResult пишет результат стадии. Один победитель на слот:
// повторная запись того же агента возвращает ErrStageConflict.
func (s *ReviewState) RecordStageResult(res AgentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stageResults[res.AgentName]; ok {
		return ErrStageConflict
	}
	s.stageResults[res.AgentName] = res
	s.stageOrder = append(s.stageOrder, res.AgentName)
	return nil
}

func (s *ReviewState) StageResult(name string) (AgentResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.stageResults[name]
	return res, ok
}

// StageResults возвращает копию результатов в порядке записи.
func (s *ReviewState) StageResults() []AgentResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AgentResult, 0, len(s.stageOrder))
	for _, name := range s.stageOrder {
		out = append(out, s.stageResults[name])
	}
	return out
}

// CompletedStages - имена записанных стадий в порядке записи (для polling API).
func (s *ReviewState) CompletedStages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.stageOrder))
	copy(out, s.stageOrder)
	return out
}
