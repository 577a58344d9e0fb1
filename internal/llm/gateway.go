package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
	"github.com/kitbuilder587/code-review-agent/internal/metrics"
	"github.com/kitbuilder587/code-review-agent/internal/ratelimit"
)

// PromptSpec - запрос к модели. Снипеты должны приходить в порядке убывания
// релевантности: порядок сборки промпта фиксирован (system, снипеты, код),
// чтобы одинаковый вход давал одинаковый промпт.
type PromptSpec struct {
	System   string
	Snippets []string
	Language string
	Code     string
	Extra    string // доп. контекст (результаты структурного анализа и т.п.)
}

func (p PromptSpec) UserPrompt() string {
	var sb strings.Builder

	if len(p.Snippets) > 0 {
		sb.WriteString("Reference guidelines (most relevant first):\n")
		for i, s := range p.Snippets {
			fmt.Fprintf(&sb, "[K%d] %s\n", i+1, s)
		}
		sb.WriteString("\n")
	}

	if p.Extra != "" {
		sb.WriteString(p.Extra)
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "Code (%s):\n```%s\n%s\n```\n", p.Language, p.Language, p.Code)
	return sb.String()
}

type GatewayConfig struct {
	Provider    string // имя провайдера для метрик/троттлинга
	MaxRetries  int
	BaseBackoff time.Duration
	CallTimeout time.Duration
}

// Gateway оборачивает Client ограниченными ретраями с экспоненциальным
// backoff + jitter, таймаутом на вызов и клиентским троттлингом. После
// исчерпания ретраев возвращает domain.ErrModelUnavailable. Содержимое
// ответа не интерпретирует - это работа агента.
type Gateway struct {
	client  Client
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger
	cfg     GatewayConfig
}

func NewGateway(client Client, cfg GatewayConfig, limiter *ratelimit.Limiter, m *metrics.Metrics, logger *zap.Logger) *Gateway {
	if cfg.Provider == "" {
		cfg.Provider = "llm"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gateway{
		client:  client,
		limiter: limiter,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
	}
}

func (g *Gateway) Invoke(ctx context.Context, spec PromptSpec) (string, error) {
	prompt := spec.UserPrompt()

	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", domain.ErrModelUnavailable, ctx.Err())
			case <-time.After(g.backoff(attempt)):
			}
		}

		if err := g.waitForSlot(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
		}

		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		start := time.Now()
		content, err := g.client.CompleteWithSystem(callCtx, spec.System, prompt)
		cancel()

		if err == nil {
			if g.metrics != nil {
				g.metrics.RecordLLMRequest(g.cfg.Provider, "success", time.Since(start))
			}
			return content, nil
		}

		if g.metrics != nil {
			g.metrics.RecordLLMRequest(g.cfg.Provider, "error", time.Since(start))
		}
		lastErr = err

		// просроченный родительский контекст ретраить бессмысленно
		if ctx.Err() != nil {
			break
		}

		if !IsTransient(err) && !errors.Is(err, context.DeadlineExceeded) {
			break
		}

		g.logger.Warn("llm call failed, retrying",
			zap.String("provider", g.cfg.Provider),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return "", fmt.Errorf("%w: %v", domain.ErrModelUnavailable, lastErr)
}

// backoff: base * 2^(attempt-1) плюс jitter до половины интервала
func (g *Gateway) backoff(attempt int) time.Duration {
	d := g.cfg.BaseBackoff << (attempt - 1)
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}

func (g *Gateway) waitForSlot(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}

	for !g.limiter.Allow(g.cfg.Provider) {
		if g.metrics != nil {
			g.metrics.RecordThrottleWait(g.cfg.Provider)
		}
		wait := time.Until(g.limiter.ResetTime(g.cfg.Provider))
		if wait < 100*time.Millisecond {
			wait = 100 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
