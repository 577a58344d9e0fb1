package cache

import "time"

// Cache - минимальный TTL-кеш. Используется базой знаний, чтобы не считать
// embedding повторно для одинаковых текстов.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
}
