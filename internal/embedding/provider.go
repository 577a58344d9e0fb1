package embedding

import (
	"context"
	"errors"
)

var (
	ErrRequestFailed = errors.New("embedding request failed")
	ErrEmptyInput    = errors.New("embedding input cannot be empty")
)

// Provider превращает текст в вектор фиксированной длины. Внешняя
// способность: мы ее потребляем, не реализуем.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Name() string
}
