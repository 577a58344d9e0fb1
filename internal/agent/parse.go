package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
)

// reviewPayload - ожидаемая структура ответа модели.
type reviewPayload struct {
	Score    float64          `json:"score"`
	Findings []findingPayload `json:"findings"`
	Summary  string           `json:"summary"`
}

type findingPayload struct {
	Severity   string `json:"severity"`
	Line       int    `json:"line"`
	Symbol     string `json:"symbol"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// parseReviewPayload разбирает ответ модели. Парсинг защитный: модель
// любит оборачивать JSON в markdown-заборы и приписывать текст вокруг.
// Если структуру восстановить нельзя - ErrMalformedAgentOutput, никаких
// догадок и частичных результатов.
func parseReviewPayload(raw string) (reviewPayload, error) {
	var p reviewPayload

	body := extractJSON(raw)
	if body == "" {
		return p, fmt.Errorf("%w: no JSON object in model response", domain.ErrMalformedAgentOutput)
	}

	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return p, fmt.Errorf("%w: %v", domain.ErrMalformedAgentOutput, err)
	}

	if p.Score < 1 || p.Score > 10 {
		return p, fmt.Errorf("%w: score %.1f out of range 1-10", domain.ErrMalformedAgentOutput, p.Score)
	}
	for i, f := range p.Findings {
		if !normalizeSeverity(f.Severity).IsValid() {
			return p, fmt.Errorf("%w: finding %d has unknown severity %q", domain.ErrMalformedAgentOutput, i, f.Severity)
		}
		if strings.TrimSpace(f.Message) == "" {
			return p, fmt.Errorf("%w: finding %d has empty message", domain.ErrMalformedAgentOutput, i)
		}
	}

	return p, nil
}

// extractJSON достает первый сбалансированный JSON-объект из текста.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// срезаем markdown-забор если есть
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx >= 0 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
	}

	start := strings.Index(raw, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

func normalizeSeverity(s string) domain.Severity {
	return domain.Severity(strings.ToLower(strings.TrimSpace(s)))
}

func (p reviewPayload) toFindings(category string) []domain.Finding {
	if len(p.Findings) == 0 {
		return nil
	}
	out := make([]domain.Finding, 0, len(p.Findings))
	for _, f := range p.Findings {
		out = append(out, domain.Finding{
			Severity:   normalizeSeverity(f.Severity),
			Category:   category,
			Message:    f.Message,
			Line:       f.Line,
			Symbol:     f.Symbol,
			Suggestion: f.Suggestion,
		})
	}
	return out
}
