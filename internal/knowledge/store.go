package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/cache"
	"github.com/kitbuilder587/code-review-agent/internal/domain"
	"github.com/kitbuilder587/code-review-agent/internal/embedding"
	"github.com/kitbuilder587/code-review-agent/internal/metrics"
)

const (
	DefaultSimilarityThreshold = 0.25
	DefaultTopK                = 3
	defaultCacheTTL            = 30 * time.Minute
)

type Config struct {
	SimilarityThreshold float64
	TopK                int
	CacheTTL            time.Duration
}

// Store - in-memory база знаний с косинусным поиском.
// Запись идёт через copy-on-write: читатели работают со снапшотом
// слайса и не блокируются во время ингеста.
type Store struct {
	provider embedding.Provider
	cache    cache.Cache
	metrics  *metrics.Metrics
	logger   *zap.Logger
	cfg      Config

	mu     sync.RWMutex
	docs   []domain.KnowledgeDocument
	closed bool
}

func NewStore(provider embedding.Provider, c cache.Cache, m *metrics.Metrics, logger *zap.Logger, cfg Config) *Store {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	return &Store{
		provider: provider,
		cache:    c,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
	}
}

// Ingest считает эмбеддинг, присваивает id и публикует документ.
// Документ виден последующим запросам сразу после возврата.
func (s *Store) Ingest(ctx context.Context, text string, metadata map[string]string) (domain.KnowledgeDocument, error) {
	if err := domain.ValidateDocument(text, metadata); err != nil {
		return domain.KnowledgeDocument{}, err
	}

	vec, err := s.embed(ctx, text)
	if err != nil {
		return domain.KnowledgeDocument{}, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}

	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	if meta[domain.MetaLanguage] == "" {
		meta[domain.MetaLanguage] = domain.LanguageGeneral
	}

	doc := domain.KnowledgeDocument{
		ID:        uuid.NewString(),
		Text:      text,
		Embedding: vec,
		Metadata:  meta,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.KnowledgeDocument{}, domain.ErrStoreClosed
	}
	// копия под новый снапшот, читатели старого не затронуты
	next := make([]domain.KnowledgeDocument, len(s.docs), len(s.docs)+1)
	copy(next, s.docs)
	s.docs = append(next, doc)
	total := len(s.docs)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetKnowledgeDocuments(float64(total))
	}
	s.logger.Debug("документ добавлен в базу знаний",
		zap.String("id", doc.ID),
		zap.String("category", doc.Category()),
		zap.Int("total", total))

	return doc, nil
}

// Query возвращает top-k документов по косинусной близости, только те,
// что проходят порог и точно совпадают по всем ключам фильтра.
// Пустая база - пустой результат, не ошибка.
func (s *Store) Query(ctx context.Context, text string, k int, filters map[string]string) (domain.RetrievalResult, error) {
	start := time.Now()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, domain.ErrStoreClosed
	}
	snapshot := s.docs
	s.mu.RUnlock()

	if len(snapshot) == 0 {
		return domain.RetrievalResult{}, nil
	}
	if k <= 0 {
		k = s.cfg.TopK
	}

	vec, err := s.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}

	scored := make(domain.RetrievalResult, 0, len(snapshot))
	for _, doc := range snapshot {
		if !doc.MatchesFilters(filters) {
			continue
		}
		sim := cosineSimilarity(vec, doc.Embedding)
		if sim < s.cfg.SimilarityThreshold {
			continue
		}
		scored = append(scored, domain.ScoredDocument{Document: doc, Similarity: sim})
	}

	// stable сохраняет порядок ингеста при равных score
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > k {
		scored = scored[:k]
	}

	if s.metrics != nil {
		s.metrics.RecordKnowledgeQuery(time.Since(start))
	}
	return scored, nil
}

// Delete удаляет документ, последующие запросы его не вернут.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}
	for i, doc := range s.docs {
		if doc.ID == id {
			next := make([]domain.KnowledgeDocument, 0, len(s.docs)-1)
			next = append(next, s.docs[:i]...)
			next = append(next, s.docs[i+1:]...)
			s.docs = next
			if s.metrics != nil {
				s.metrics.SetKnowledgeDocuments(float64(len(s.docs)))
			}
			return nil
		}
	}
	return domain.ErrDocumentNotFound
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Close закрывает базу, дальнейшие операции возвращают ErrStoreClosed.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// embed кеширует векторы по хешу текста, чтобы не дёргать провайдер
// повторно на одинаковых запросах.
func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	key := embeddingCacheKey(text)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if vec, ok := v.([]float32); ok {
				if s.metrics != nil {
					s.metrics.RecordCacheHit()
				}
				return vec, nil
			}
		}
		if s.metrics != nil {
			s.metrics.RecordCacheMiss()
		}
	}

	vec, err := s.provider.Embed(ctx, text)
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordEmbeddingRequest(s.provider.Name(), status)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, vec, s.cfg.CacheTTL)
	}
	return vec, nil
}

func embeddingCacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + hex.EncodeToString(sum[:])
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
