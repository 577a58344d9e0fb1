package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
	"github.com/kitbuilder587/code-review-agent/internal/knowledge"
)

// KnowledgeService - граница базы знаний: пользовательское пополнение
// корпуса и ad hoc поиск с той же семантикой, что у внутреннего ретривала.
type KnowledgeService struct {
	store  *knowledge.Store
	logger *zap.Logger
}

func NewKnowledgeService(store *knowledge.Store, logger *zap.Logger) *KnowledgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeService{store: store, logger: logger}
}

// AddKnowledge добавляет пользовательскую практику. Документ виден
// поиску сразу после возврата.
func (s *KnowledgeService) AddKnowledge(ctx context.Context, text string, metadata map[string]string) (string, error) {
	doc, err := s.store.Ingest(ctx, text, metadata)
	if err != nil {
		return "", err
	}

	s.logger.Info("custom practice added",
		zap.String("document_id", doc.ID),
		zap.String("category", doc.Category()),
		zap.String("language", doc.Language()))
	return doc.ID, nil
}

// SearchKnowledge - поиск по корпусу с фильтрами.
func (s *KnowledgeService) SearchKnowledge(ctx context.Context, text string, filters map[string]string, k int) (domain.RetrievalResult, error) {
	return s.store.Query(ctx, text, k, filters)
}

// RemoveKnowledge удаляет документ из корпуса.
func (s *KnowledgeService) RemoveKnowledge(id string) error {
	return s.store.Delete(id)
}
