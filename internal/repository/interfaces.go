package repository

import (
	"context"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
)

// ReviewRepository - история прогонов ревью. Хранилище опционально:
// движок работает и без него, история просто не пишется.
type ReviewRepository interface {
	SaveSummary(ctx context.Context, summary *domain.ReviewSummary) error
	GetSummary(ctx context.Context, runID string) (*domain.ReviewSummary, error)
	ListRecent(ctx context.Context, limit int) ([]domain.ReviewSummary, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}
