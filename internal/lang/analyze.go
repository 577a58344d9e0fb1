package lang

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
)

const maxLineLength = 120

var (
	pyFuncRe    = regexp.MustCompile(`^(\s*)def\s+(\w+)\s*\(([^)]*)\)`)
	pyClassRe   = regexp.MustCompile(`^(\s*)class\s+(\w+)`)
	pyImportRe  = regexp.MustCompile(`^\s*import\s+([\w.]+)`)
	pyFromRe    = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import`)
	jsFuncRe    = regexp.MustCompile(`function\s+(\w+)\s*\(([^)]*)\)`)
	javaMethodRe = regexp.MustCompile(`(?:public|private|protected)\s+(?:static\s+)?\w[\w<>\[\]]*\s+(\w+)\s*\(([^)]*)\)`)
	javaClassRe  = regexp.MustCompile(`\bclass\s+(\w+)`)

	hardcodedValueRe = regexp.MustCompile(`["'][^"']*[0-9]{2,}[^"']*["']`)
	jsVarRe          = regexp.MustCompile(`\bvar\b`)
)

var complexityKeywords = map[string][]string{
	LangPython: {"if", "for", "while", "try"},
}

var genericComplexityKeywords = []string{"if", "for", "while", "switch", "case", "try", "catch"}

// AnalyzeStructure извлекает функции, классы, импорты и грубую оценку
// сложности. Тяжелых парсеров нет, только построчные регэкспы.
func AnalyzeStructure(code, language string) domain.CodeStructure {
	lines := strings.Split(code, "\n")
	cs := domain.CodeStructure{Lines: len(lines)}

	switch language {
	case LangPython:
		analyzePython(lines, &cs)
	case LangJava:
		analyzeJava(lines, &cs)
	default:
		analyzeJS(lines, &cs)
	}

	cs.Complexity = complexityScore(lines, language)
	return cs
}

func analyzePython(lines []string, cs *domain.CodeStructure) {
	var lastClass *domain.ClassInfo
	var classIndent int

	for i, line := range lines {
		if m := pyClassRe.FindStringSubmatch(line); m != nil {
			cs.Classes = append(cs.Classes, domain.ClassInfo{Name: m[2], Line: i + 1})
			lastClass = &cs.Classes[len(cs.Classes)-1]
			classIndent = len(m[1])
			continue
		}
		if m := pyFuncRe.FindStringSubmatch(line); m != nil {
			fn := domain.FunctionInfo{Name: m[2], Line: i + 1, Args: countArgs(m[3])}
			cs.Functions = append(cs.Functions, fn)
			// def, вложенный глубже class, считаем методом
			if lastClass != nil && len(m[1]) > classIndent {
				lastClass.Methods++
			} else {
				lastClass = nil
			}
			continue
		}
		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			cs.Imports = append(cs.Imports, m[1])
			continue
		}
		if m := pyFromRe.FindStringSubmatch(line); m != nil {
			cs.Imports = append(cs.Imports, m[1])
		}
	}
}

func analyzeJS(lines []string, cs *domain.CodeStructure) {
	for i, line := range lines {
		if m := jsFuncRe.FindStringSubmatch(line); m != nil {
			cs.Functions = append(cs.Functions, domain.FunctionInfo{
				Name: m[1], Line: i + 1, Args: countArgs(m[2]),
			})
		}
		if m := javaClassRe.FindStringSubmatch(line); m != nil {
			cs.Classes = append(cs.Classes, domain.ClassInfo{Name: m[1], Line: i + 1})
		}
	}
}

func analyzeJava(lines []string, cs *domain.CodeStructure) {
	for i, line := range lines {
		if m := javaClassRe.FindStringSubmatch(line); m != nil {
			cs.Classes = append(cs.Classes, domain.ClassInfo{Name: m[1], Line: i + 1})
			continue
		}
		if m := javaMethodRe.FindStringSubmatch(line); m != nil {
			cs.Functions = append(cs.Functions, domain.FunctionInfo{
				Name: m[1], Line: i + 1, Args: countArgs(m[2]),
			})
			if len(cs.Classes) > 0 {
				cs.Classes[len(cs.Classes)-1].Methods++
			}
		}
	}
}

func countArgs(params string) int {
	params = strings.TrimSpace(params)
	if params == "" {
		return 0
	}
	return len(strings.Split(params, ","))
}

func complexityScore(lines []string, language string) int {
	keywords, ok := complexityKeywords[language]
	if !ok {
		keywords = genericComplexityKeywords
	}
	score := 0
	for _, kw := range keywords {
		re := regexp.MustCompile(`\b` + kw + `\b`)
		for _, line := range lines {
			score += len(re.FindAllStringIndex(line, -1))
		}
	}
	return score
}

// Lint - локальные проверки без обращения к модели.
func Lint(code, language string) []domain.Finding {
	var findings []domain.Finding
	lines := strings.Split(code, "\n")

	for i, line := range lines {
		lineNum := i + 1

		if len(line) > maxLineLength {
			findings = append(findings, domain.Finding{
				Severity: domain.SeverityWarning,
				Category: "quality",
				Line:     lineNum,
				Message:  fmt.Sprintf("line is too long (%d chars), keep it under %d", len(line), maxLineLength),
			})
		}
		if hardcodedValueRe.MatchString(line) {
			findings = append(findings, domain.Finding{
				Severity:   domain.SeverityInfo,
				Category:   "quality",
				Line:       lineNum,
				Message:    "hardcoded value detected",
				Suggestion: "extract it into a named constant or configuration",
			})
		}
	}

	switch language {
	case LangPython:
		findings = append(findings, lintPython(lines)...)
	case LangJavaScript, LangTypeScript:
		findings = append(findings, lintJS(lines)...)
	}

	return findings
}

func lintPython(lines []string) []domain.Finding {
	var findings []domain.Finding

	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		lineNum := i + 1

		if strings.Contains(stripped, "except:") {
			findings = append(findings, domain.Finding{
				Severity:   domain.SeverityWarning,
				Category:   "quality",
				Line:       lineNum,
				Message:    "bare except clause",
				Suggestion: "name the exception types you expect, e.g. except ValueError:",
			})
		}
		if strings.HasPrefix(stripped, "from ") && i > 0 {
			prev := strings.TrimSpace(lines[i-1])
			if strings.HasPrefix(prev, "import ") {
				findings = append(findings, domain.Finding{
					Severity: domain.SeverityInfo,
					Category: "quality",
					Line:     lineNum,
					Message:  "from-imports conventionally precede plain imports",
				})
			}
		}
	}

	return findings
}

func lintJS(lines []string) []domain.Finding {
	var findings []domain.Finding

	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		lineNum := i + 1

		if jsVarRe.MatchString(stripped) {
			findings = append(findings, domain.Finding{
				Severity:   domain.SeverityWarning,
				Category:   "quality",
				Line:       lineNum,
				Message:    "var declaration",
				Suggestion: "use let or const instead of var",
			})
		}
		if strings.Contains(stripped, "==") && !strings.Contains(stripped, "===") && !strings.Contains(stripped, "!==") {
			findings = append(findings, domain.Finding{
				Severity:   domain.SeverityWarning,
				Category:   "quality",
				Line:       lineNum,
				Message:    "loose equality comparison",
				Suggestion: "use === so types are compared as well",
			})
		}
	}

	return findings
}
