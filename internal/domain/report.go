package domain

import (
	"math"
	"sort"
	"time"
)

// StageFailure - стадия, не вернувшая результат, с причиной.
type StageFailure struct {
	Stage  string
	Reason string
}

type Recommendation struct {
	Title    string
	Category string
	Language string
	Text     string
}

// ReviewReport - терминальная проекция ReviewState. Категории, которые упали,
// перечислены в FailedStages явно и исключены из среднего, не занулены.
type ReviewReport struct {
	RunID            string
	Language         string
	Status           Status
	Structure        CodeStructure
	OverallScore     float64
	OverallSeverity  Severity
	CategoryScores   map[string]float64
	FailedStages     []StageFailure
	Findings         []Finding // отсортированы по убыванию severity
	SeverityCounts   map[Severity]int
	CategoryCounts   map[string]int
	Narrative        string
	Recommendations  []Recommendation
	CreatedAt        time.Time
}

// ReviewSummary - строка истории ревью, как она хранится в БД.
type ReviewSummary struct {
	RunID           string
	Filename        string
	Language        string
	Status          Status
	OverallScore    float64
	OverallSeverity Severity
	TotalFindings   int
	CriticalCount   int
	WarningCount    int
	InfoCount       int
	Narrative       string
	CreatedAt       time.Time
}

// Summarize сводит отчет к строке истории.
func (r ReviewReport) Summarize(filename string) ReviewSummary {
	return ReviewSummary{
		RunID:           r.RunID,
		Filename:        filename,
		Language:        r.Language,
		Status:          r.Status,
		OverallScore:    r.OverallScore,
		OverallSeverity: r.OverallSeverity,
		TotalFindings:   len(r.Findings),
		CriticalCount:   r.SeverityCounts[SeverityCritical],
		WarningCount:    r.SeverityCounts[SeverityWarning],
		InfoCount:       r.SeverityCounts[SeverityInfo],
		Narrative:       r.Narrative,
		CreatedAt:       r.CreatedAt,
	}
}

// GroupFindingsBySeverity группирует findings для рендера отчета.
func GroupFindingsBySeverity(findings []Finding) map[Severity][]Finding {
	groups := make(map[Severity][]Finding)
	for _, f := range findings {
		groups[f.Severity] = append(groups[f.Severity], f)
	}
	return groups
}

// SortFindings сортирует по убыванию severity, внутри severity - по строке.
// Сортировка стабильная, чтобы отчет рендерился детерминированно.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity.Rank() != findings[j].Severity.Rank() {
			return findings[i].Severity.Rank() > findings[j].Severity.Rank()
		}
		return findings[i].Line < findings[j].Line
	})
}

// RoundScore округляет до одного знака после запятой.
func RoundScore(score float64) float64 {
	return math.Round(score*10) / 10
}
