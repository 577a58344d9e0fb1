package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/agent"
	"github.com/kitbuilder587/code-review-agent/internal/domain"
	"github.com/kitbuilder587/code-review-agent/internal/knowledge"
	"github.com/kitbuilder587/code-review-agent/internal/metrics"
)

type Config struct {
	RunTimeout   time.Duration // весь прогон
	StageTimeout time.Duration // одна категорийная стадия
}

// Engine гонит ревью по конвейеру: analyzer -> 4 категории параллельно ->
// aggregator. Машина состояний: Pending -> Running -> {Completed |
// PartiallyFailed | Failed}.
type Engine struct {
	registry *agent.Registry
	store    *knowledge.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
	cfg      Config
}

func NewEngine(registry *agent.Registry, store *knowledge.Store, m *metrics.Metrics, logger *zap.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 120 * time.Second
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 45 * time.Second
	}
	return &Engine{
		registry: registry,
		store:    store,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
	}
}

// Execute прогоняет ревью до терминального статуса. Блокирует до конца
// прогона, асинхронность - забота Tracker.
func (e *Engine) Execute(ctx context.Context, state *domain.ReviewState) domain.Status {
	start := time.Now()
	if e.metrics != nil {
		e.metrics.IncReviewsInFlight()
		defer e.metrics.DecReviewsInFlight()
	}

	state.SetStatus(domain.StatusRunning)
	e.logger.Info("review started",
		zap.String("run_id", state.ID),
		zap.String("filename", state.Filename))

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.RunTimeout)
	defer cancel()

	// analyzer идет синхронно: от него зависят фильтры и промпты остальных
	if res := e.runStage(runCtx, e.registry.Analyzer, state); res.Failed() {
		state.SetStatus(domain.StatusFailed)
		e.finish(state, start)
		return domain.StatusFailed
	}

	e.fanOutCategories(runCtx, state)

	// aggregator работает всегда, даже если категории не вернулись:
	// ему дается свой таймаут, не зависящий от исчерпанного run-таймаута
	aggCtx, aggCancel := context.WithTimeout(ctx, e.cfg.StageTimeout)
	aggRes := e.runStage(aggCtx, e.registry.Aggregator, state)
	aggCancel()

	state.SetStatus(e.terminalStatus(state, aggRes))
	e.finish(state, start)
	return state.Status()
}

// fanOutCategories запускает четыре категорийные стадии параллельно.
// Каждая пишет только свой слот stageResults; упавшая не трогает соседей.
func (e *Engine) fanOutCategories(ctx context.Context, state *domain.ReviewState) {
	var wg sync.WaitGroup
	for _, a := range e.registry.Categories {
		wg.Add(1)
		go func(a agent.Agent) {
			defer wg.Done()
			e.runBoundedStage(ctx, a, state)
		}(a)
	}
	wg.Wait()
}

// runBoundedStage выполняет стадию с отдельным таймаутом. Если стадия не
// уложилась - записывается ErrStageTimeout, а зависший вызов бросается:
// его поздний результат уже никому не нужен.
func (e *Engine) runBoundedStage(ctx context.Context, a agent.Agent, state *domain.ReviewState) {
	stageCtx, cancel := context.WithTimeout(ctx, e.cfg.StageTimeout)
	defer cancel()

	done := make(chan domain.AgentResult, 1)
	start := time.Now()
	go func() {
		done <- a.Run(stageCtx, state)
	}()

	var res domain.AgentResult
	select {
	case res = <-done:
	case <-stageCtx.Done():
		res = domain.AgentResult{
			AgentName: a.Name(),
			Err:       fmt.Errorf("%w: %v", domain.ErrStageTimeout, stageCtx.Err()),
		}
	}

	e.record(state, res, time.Since(start))
}

func (e *Engine) runStage(ctx context.Context, a agent.Agent, state *domain.ReviewState) domain.AgentResult {
	start := time.Now()
	res := a.Run(ctx, state)
	e.record(state, res, time.Since(start))
	return res
}

func (e *Engine) record(state *domain.ReviewState, res domain.AgentResult, elapsed time.Duration) {
	if err := state.RecordStageResult(res); err != nil {
		// слот уже занят - поздний результат брошенной стадии
		e.logger.Warn("stage result dropped",
			zap.String("run_id", state.ID),
			zap.String("stage", res.AgentName),
			zap.Error(err))
		return
	}

	if e.metrics != nil {
		e.metrics.RecordStage(res.AgentName, elapsed)
		if res.Failed() {
			e.metrics.RecordStageFailure(res.AgentName, failureReason(res.Err))
		}
	}

	if res.Failed() {
		e.logger.Warn("stage failed",
			zap.String("run_id", state.ID),
			zap.String("stage", res.AgentName),
			zap.Error(res.Err))
	} else {
		e.logger.Debug("stage completed",
			zap.String("run_id", state.ID),
			zap.String("stage", res.AgentName),
			zap.Float64("score", res.Score),
			zap.Duration("elapsed", elapsed))
	}
}

// terminalStatus: Completed если все чисто; PartiallyFailed если aggregator
// отработал при упавших категориях; Failed если упал сам aggregator.
func (e *Engine) terminalStatus(state *domain.ReviewState, aggRes domain.AgentResult) domain.Status {
	if aggRes.Failed() {
		return domain.StatusFailed
	}
	for _, stage := range agent.CategoryStages {
		if res, ok := state.StageResult(stage); !ok || res.Failed() {
			return domain.StatusPartiallyFailed
		}
	}
	return domain.StatusCompleted
}

func (e *Engine) finish(state *domain.ReviewState, start time.Time) {
	status := state.Status()
	if e.metrics != nil {
		e.metrics.RecordReview(status.String(), time.Since(start))
	}
	e.logger.Info("review finished",
		zap.String("run_id", state.ID),
		zap.String("status", status.String()),
		zap.Duration("elapsed", time.Since(start)))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrStageTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case errors.Is(err, domain.ErrMalformedAgentOutput):
		return "malformed_output"
	default:
		return "error"
	}
}
