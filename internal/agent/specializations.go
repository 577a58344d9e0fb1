package agent

// Конфиги категорийных агентов

import (
	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/knowledge"
	"github.com/kitbuilder587/code-review-agent/internal/llm"
)

type categorySpec struct {
	stage        string
	category     string // фильтр для базы знаний
	systemPrompt string
}

const outputFormat = `Respond with a single JSON object and nothing else:
{
  "score": <number 1-10, 10 means no problems>,
  "findings": [
    {
      "severity": "info|warning|critical",
      "line": <line number or 0>,
      "symbol": "<function or class name if applicable>",
      "message": "<what is wrong>",
      "suggestion": "<how to fix it>"
    }
  ],
  "summary": "<one paragraph verdict>"
}`

// TODO: вынести промпты в конфиг, чтобы можно было менять без пересборки
var categorySpecs = map[string]categorySpec{
	StageQuality: {
		stage:    StageQuality,
		category: knowledge.CategoryQuality,
		systemPrompt: `You are a code quality expert reviewing a code snippet.

Focus on:
1. Readability
2. Function and class design
3. Naming conventions
4. Code duplication
5. Complexity

Use the reference guidelines when they apply and cite them as [K1], [K2] in messages.

` + outputFormat,
	},

	StageSecurity: {
		stage:    StageSecurity,
		category: knowledge.CategorySecurity,
		systemPrompt: `You are an application security expert reviewing a code snippet.

Focus on:
1. Injection vulnerabilities (SQL, command, template)
2. Hardcoded secrets and credentials
3. Missing input validation
4. Unsafe use of dangerous APIs
5. Data exposure

Report only real, exploitable problems with a critical severity where warranted.
Use the reference guidelines when they apply and cite them as [K1], [K2] in messages.

` + outputFormat,
	},

	StagePerformance: {
		stage:    StagePerformance,
		category: knowledge.CategoryPerformance,
		systemPrompt: `You are a performance expert reviewing a code snippet.

Focus on:
1. Algorithmic complexity of loops and lookups
2. Redundant work and repeated computation
3. Memory usage and leaks
4. Inefficient I/O and query patterns

Use the reference guidelines when they apply and cite them as [K1], [K2] in messages.

` + outputFormat,
	},

	StageDocumentation: {
		stage:    StageDocumentation,
		category: knowledge.CategoryDocumentation,
		systemPrompt: `You are a documentation reviewer examining a code snippet.

Focus on:
1. Missing doc comments on public functions and classes
2. Comments that restate the code instead of explaining intent
3. Stale or misleading documentation
4. Unclear parameter and return descriptions

Use the reference guidelines when they apply and cite them as [K1], [K2] in messages.

` + outputFormat,
	},
}

// NewCategoryAgents собирает четыре категорийных агента в порядке CategoryStages.
func NewCategoryAgents(store *knowledge.Store, gateway *llm.Gateway, topK int, logger *zap.Logger) []Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	agents := make([]Agent, 0, len(CategoryStages))
	for _, stage := range CategoryStages {
		agents = append(agents, NewCategoryAgent(categorySpecs[stage], store, gateway, topK, logger))
	}
	return agents
}
