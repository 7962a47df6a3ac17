package rate

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryBackend: contadores en proceso para despliegues de una sola instancia
// y tests. Mismo esquema de claves que RedisBackend.
type MemoryBackend struct {
	mu sync.Mutex
	c  *cache.Cache
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{c: cache.New(time.Minute, 5*time.Minute)}
}

func (b *MemoryBackend) Incr(_ context.Context, key string, quotas []Quota, now time.Time) ([]Hit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hits := make([]Hit, len(quotas))
	for i, q := range quotas {
		start := windowStart(now, q.Window)
		cur, prev := windowKeys("", key, q, start)

		var n int64 = 1
		if err := b.c.Add(cur, int64(1), counterTTL(q)); err != nil {
			n, _ = b.c.IncrementInt64(cur, 1)
		}
		var p int64
		if v, ok := b.c.Get(prev); ok {
			p, _ = v.(int64)
		}
		hits[i] = Hit{Quota: q, Current: n, Previous: p, WindowStart: start}
	}
	return hits, nil
}

func (b *MemoryBackend) Ping(context.Context) error { return nil }
