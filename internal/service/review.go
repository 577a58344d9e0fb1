package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
	"github.com/kitbuilder587/code-review-agent/internal/repository"
	"github.com/kitbuilder587/code-review-agent/internal/review"
)

// ReviewService - внешняя граница движка: submit/status/report плюс
// история прогонов, если подключено хранилище.
type ReviewService struct {
	tracker *review.Tracker
	history repository.ReviewRepository // nil = история не ведется
	logger  *zap.Logger

	mu        sync.Mutex
	filenames map[string]string // runID -> filename, для истории
	persisted map[string]bool
}

func NewReviewService(tracker *review.Tracker, history repository.ReviewRepository, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		tracker:   tracker,
		history:   history,
		logger:    logger,
		filenames: make(map[string]string),
		persisted: make(map[string]bool),
	}
}

// SubmitReview стартует прогон асинхронно и сразу возвращает runID.
func (s *ReviewService) SubmitReview(sourceText, filename string) (string, error) {
	runID, err := s.tracker.Submit(sourceText, filename)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.filenames[runID] = filename
	s.mu.Unlock()

	s.logger.Info("review submitted",
		zap.String("run_id", runID),
		zap.String("filename", filename))
	return runID, nil
}

func (s *ReviewService) GetReviewStatus(runID string) (review.StatusInfo, error) {
	return s.tracker.Status(runID)
}

// GetReviewReport отдает отчет терминального прогона. Первый успешный
// запрос пишет сводку в историю; падение записи отчет не ломает.
func (s *ReviewService) GetReviewReport(ctx context.Context, runID string) (domain.ReviewReport, error) {
	report, err := s.tracker.Report(ctx, runID)
	if err != nil {
		return domain.ReviewReport{}, err
	}

	s.persistOnce(ctx, runID, report)
	return report, nil
}

func (s *ReviewService) persistOnce(ctx context.Context, runID string, report domain.ReviewReport) {
	if s.history == nil {
		return
	}

	s.mu.Lock()
	if s.persisted[runID] {
		s.mu.Unlock()
		return
	}
	s.persisted[runID] = true
	filename := s.filenames[runID]
	s.mu.Unlock()

	summary := report.Summarize(filename)
	if err := s.history.SaveSummary(ctx, &summary); err != nil {
		s.logger.Warn("failed to persist review summary",
			zap.String("run_id", runID),
			zap.Error(err))
	}
}

// History возвращает последние прогоны из хранилища.
func (s *ReviewService) History(ctx context.Context, limit int) ([]domain.ReviewSummary, error) {
	if s.history == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.history.ListRecent(ctx, limit)
}

// Stats - количество прогонов по терминальным статусам.
func (s *ReviewService) Stats(ctx context.Context) (map[domain.Status]int, error) {
	if s.history == nil {
		return map[domain.Status]int{}, nil
	}
	return s.history.CountByStatus(ctx)
}
