package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
)

type MockReviewRepository struct {
	mu        sync.RWMutex
	summaries map[string]*domain.ReviewSummary

	SaveErr error // если задан, SaveSummary возвращает его
}

func NewMockReviewRepository() *MockReviewRepository {
	return &MockReviewRepository{
		summaries: make(map[string]*domain.ReviewSummary),
	}
}

func (m *MockReviewRepository) SaveSummary(ctx context.Context, summary *domain.ReviewSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *summary
	m.summaries[summary.RunID] = &cp
	return nil
}

func (m *MockReviewRepository) GetSummary(ctx context.Context, runID string) (*domain.ReviewSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.summaries[runID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrRunNotFound
}

func (m *MockReviewRepository) ListRecent(ctx context.Context, limit int) ([]domain.ReviewSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.ReviewSummary, 0, len(m.summaries))
	for _, s := range m.summaries {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockReviewRepository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[domain.Status]int)
	for _, s := range m.summaries {
		counts[s.Status]++
	}
	return counts, nil
}

var _ ReviewRepository = (*MockReviewRepository)(nil)
