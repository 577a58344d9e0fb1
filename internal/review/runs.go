package review

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
)

type run struct {
	state *domain.ReviewState

	buildOnce sync.Once
	report    domain.ReviewReport
	reportErr error
}

// StatusInfo - ответ polling-интерфейса.
type StatusInfo struct {
	Status          domain.Status
	CompletedStages []string
}

// Tracker хранит прогоны и запускает их асинхронно. Submit возвращает
// сразу, результат забирается поллингом по runID.
type Tracker struct {
	engine *Engine
	logger *zap.Logger

	mu   sync.RWMutex
	runs map[string]*run

	wg sync.WaitGroup
}

func NewTracker(engine *Engine, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		engine: engine,
		logger: logger,
		runs:   make(map[string]*run),
	}
}

// Submit регистрирует прогон и стартует его в фоне.
func (t *Tracker) Submit(sourceText, filename string) (string, error) {
	state, err := domain.NewReviewState(sourceText, filename)
	if err != nil {
		return "", err
	}

	r := &run{state: state}
	t.mu.Lock()
	t.runs[state.ID] = r
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		// прогон живет дольше вызова Submit, поэтому фоновый контекст;
		// таймауты навешивает сам движок
		t.engine.Execute(context.Background(), state)
	}()

	return state.ID, nil
}

func (t *Tracker) Status(runID string) (StatusInfo, error) {
	r, ok := t.get(runID)
	if !ok {
		return StatusInfo{}, domain.ErrRunNotFound
	}
	return StatusInfo{
		Status:          r.state.Status(),
		CompletedStages: r.state.CompletedStages(),
	}, nil
}

// Report возвращает отчет терминального прогона. Для незавершенного -
// ErrNotReady. Отчет строится один раз и кешируется.
func (t *Tracker) Report(ctx context.Context, runID string) (domain.ReviewReport, error) {
	r, ok := t.get(runID)
	if !ok {
		return domain.ReviewReport{}, domain.ErrRunNotFound
	}
	if !r.state.Status().IsTerminal() {
		return domain.ReviewReport{}, domain.ErrNotReady
	}

	r.buildOnce.Do(func() {
		r.report, r.reportErr = t.engine.BuildReport(ctx, r.state)
	})
	return r.report, r.reportErr
}

// Wait блокирует до завершения всех запущенных прогонов. Для graceful
// shutdown и тестов.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) get(runID string) (*run, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.runs[runID]
	return r, ok
}
