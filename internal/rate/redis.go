package rate

import (
	"context"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Por cada cuota: INCR de la ventana actual, PEXPIRE si es el primer hit
// (o si el contador quedó sin TTL) y GET de la ventana anterior.
// KEYS = actual1, anterior1, actual2, anterior2...; ARGV = ttl ms por cuota.
var incrScript = rdb.NewScript(`
local out = {}
for i = 1, #ARGV do
  local cur = KEYS[2 * i - 1]
  local prev = KEYS[2 * i]
  local n = redis.call('INCR', cur)
  if n == 1 or redis.call('PTTL', cur) < 0 then
    redis.call('PEXPIRE', cur, ARGV[i])
  end
  local p = tonumber(redis.call('GET', prev) or '0') or 0
  out[#out + 1] = n
  out[#out + 1] = p
end
return out
`)

// RedisBackend guarda los contadores en Redis, compartidos entre instancias.
type RedisBackend struct {
	client rdb.UniversalClient
	prefix string
}

func NewRedisBackend(client rdb.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Incr(ctx context.Context, key string, quotas []Quota, now time.Time) ([]Hit, error) {
	if len(quotas) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, 2*len(quotas))
	args := make([]any, 0, len(quotas))
	hits := make([]Hit, len(quotas))
	for i, q := range quotas {
		start := windowStart(now, q.Window)
		cur, prev := windowKeys(b.prefix, key, q, start)
		keys = append(keys, cur, prev)
		args = append(args, counterTTL(q).Milliseconds())
		hits[i] = Hit{Quota: q, WindowStart: start}
	}

	vals, err := incrScript.Run(ctx, b.client, keys, args...).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate: redis incr: %w", err)
	}
	if len(vals) != 2*len(quotas) {
		return nil, fmt.Errorf("rate: redis incr: unexpected reply length %d", len(vals))
	}
	for i := range hits {
		hits[i].Current = vals[2*i]
		hits[i].Previous = vals[2*i+1]
	}
	return hits, nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
