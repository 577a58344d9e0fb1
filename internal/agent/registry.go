package agent

import (
	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/knowledge"
	"github.com/kitbuilder587/code-review-agent/internal/lang"
	"github.com/kitbuilder587/code-review-agent/internal/llm"
)

// Registry - полный набор агентов одного прогона: analyzer идет первым,
// категории параллельно, aggregator последним.
type Registry struct {
	Analyzer   Agent
	Categories []Agent
	Aggregator Agent
}

func NewRegistry(store *knowledge.Store, gateway *llm.Gateway, detector lang.Detector, defaultLanguage string, topK int, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if detector == nil {
		detector = lang.NewDetector()
	}
	return &Registry{
		Analyzer:   NewAnalyzerAgent(detector, defaultLanguage, logger),
		Categories: NewCategoryAgents(store, gateway, topK, logger),
		Aggregator: NewAggregatorAgent(store, gateway, topK, logger),
	}
}
