package llm

import (
	"context"
	"errors"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrRequestFailed = errors.New("request failed")
	ErrEmptyResponse = errors.New("empty response")
	ErrRateLimit     = errors.New("rate limit exceeded")
)

type Client interface {
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// IsTransient - стоит ли повторять запрос. Rate limit и сетевые/5xx ошибки
// временные, auth и пустой ответ - нет.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrRequestFailed)
}
