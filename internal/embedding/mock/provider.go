package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/kitbuilder587/code-review-agent/internal/embedding"
)

const defaultDims = 64

// Provider - детерминированный bag-of-words embedder для тестов: слова
// хэшируются в бакеты, вектор нормализуется. Одинаковый текст дает
// одинаковый вектор (cos = 1), тексты с общими словами - положительную
// близость, без общих слов - близость около нуля.
type Provider struct {
	Error error
	Dims  int

	mu        sync.Mutex
	CallCount int
	LastText  string
}

func New() *Provider {
	return &Provider{Dims: defaultDims}
}

func (p *Provider) WithError(err error) *Provider {
	p.Error = err
	return p
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.CallCount++
	p.LastText = text
	err := p.Error
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	dims := p.Dims
	if dims <= 0 {
		dims = defaultDims
	}

	vec := make([]float32, dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%uint32(dims)]++
	}

	// нормализация, чтобы dot product был косинусом
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}

	return vec, nil
}

func (p *Provider) Dimensions() int {
	if p.Dims > 0 {
		return p.Dims
	}
	return defaultDims
}

func (p *Provider) Name() string { return "mock" }

var _ embedding.Provider = (*Provider)(nil)
