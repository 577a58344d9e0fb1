package lang

import (
	"regexp"
	"strings"
)

const (
	LangPython     = "python"
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangJava       = "java"
)

// Detector определяет язык сниппета. ok = false означает, что эвристика
// не дала однозначного ответа и вызывающий должен применить дефолт.
type Detector interface {
	Detect(code, filename string) (language string, ok bool)
}

type languageProfile struct {
	extensions []string
	keywords   []string
}

var profiles = map[string]languageProfile{
	LangPython: {
		extensions: []string{".py"},
		keywords:   []string{"def", "class", "import", "from", "if", "for", "while", "try", "except"},
	},
	LangJavaScript: {
		extensions: []string{".js", ".jsx"},
		keywords:   []string{"function", "var", "let", "const", "if", "for", "while", "try", "catch"},
	},
	LangTypeScript: {
		extensions: []string{".ts", ".tsx"},
		keywords:   []string{"function", "var", "let", "const", "interface", "type", "class"},
	},
	LangJava: {
		extensions: []string{".java"},
		keywords:   []string{"public", "private", "class", "interface", "if", "for", "while", "try", "catch"},
	},
}

// keywordPatterns компилируется один раз на старте.
var keywordPatterns = func() map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(profiles))
	for lang, p := range profiles {
		res := make([]*regexp.Regexp, 0, len(p.keywords))
		for _, kw := range p.keywords {
			res = append(res, regexp.MustCompile(`\b`+kw+`\b`))
		}
		out[lang] = res
	}
	return out
}()

// HeuristicDetector - детектор по расширению файла, с фолбэком на
// подсчет ключевых слов в тексте.
type HeuristicDetector struct{}

func NewDetector() *HeuristicDetector { return &HeuristicDetector{} }

func (d *HeuristicDetector) Detect(code, filename string) (string, bool) {
	if filename != "" {
		lower := strings.ToLower(filename)
		for lang, p := range profiles {
			for _, ext := range p.extensions {
				if strings.HasSuffix(lower, ext) {
					return lang, true
				}
			}
		}
	}

	best := ""
	bestScore := 0
	for lang, patterns := range keywordPatterns {
		score := 0
		for _, re := range patterns {
			score += len(re.FindAllStringIndex(code, -1))
		}
		// при равном счете выигрывает лексикографически меньший язык,
		// чтобы результат был детерминированным
		if score > bestScore || (score == bestScore && score > 0 && lang < best) {
			best = lang
			bestScore = score
		}
	}

	if bestScore == 0 {
		return "", false
	}
	return best, true
}

var _ Detector = (*HeuristicDetector)(nil)
