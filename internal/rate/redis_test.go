package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *rdb.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := rdb.NewClient(&rdb.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisBackendIncrSetsTTLOnce(t *testing.T) {
	mr, client := newMiniRedis(t)
	b := NewRedisBackend(client, "rl:")
	ctx := context.Background()
	now := newClock().Now()
	q := MustQuota("100/minute")

	for i := int64(1); i <= 3; i++ {
		hits, err := b.Incr(ctx, "standard:c1", []Quota{q}, now)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if hits[0].Current != i {
			t.Fatalf("hit %d: current = %d", i, hits[0].Current)
		}
	}

	cur, _ := windowKeys("rl:", "standard:c1", q, windowStart(now, q.Window))
	if got := mr.TTL(cur); got != 2*time.Minute {
		t.Fatalf("ttl = %v, want %v", got, 2*time.Minute)
	}
}

func TestRedisBackendRepairsCounterWithoutTTL(t *testing.T) {
	mr, client := newMiniRedis(t)
	b := NewRedisBackend(client, "rl:")
	now := newClock().Now()
	q := MustQuota("5/second")

	cur, _ := windowKeys("rl:", "auth:c1", q, windowStart(now, q.Window))
	// contador huérfano sin TTL
	if err := mr.Set(cur, "3"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Incr(context.Background(), "auth:c1", []Quota{q}, now); err != nil {
		t.Fatal(err)
	}
	if mr.TTL(cur) <= 0 {
		t.Fatal("counter left without expiry")
	}
}

func TestRedisBackendReadsPreviousWindow(t *testing.T) {
	_, client := newMiniRedis(t)
	b := NewRedisBackend(client, "rl:")
	ctx := context.Background()
	clk := newClock()
	q := MustQuota("5/second")

	for i := 0; i < 4; i++ {
		if _, err := b.Incr(ctx, "auth:c1", []Quota{q}, clk.Now()); err != nil {
			t.Fatal(err)
		}
	}
	clk.Advance(time.Second)
	hits, err := b.Incr(ctx, "auth:c1", []Quota{q}, clk.Now())
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Current != 1 || hits[0].Previous != 4 {
		t.Fatalf("hits = %+v", hits[0])
	}
}

func TestLimiterOverRedisStandardScenario(t *testing.T) {
	_, client := newMiniRedis(t)
	clk := newClock()
	l := NewLimiter(NewRedisBackend(client, "rl:"), WithClock(clk.Now), WithLogger(zap.NewNop()))
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		if d := l.Allow(ctx, "analytics_dashboard", Standard); !d.Allowed {
			t.Fatalf("request %d denied: %+v", i, d)
		}
	}
	d := l.Allow(ctx, "analytics_dashboard", Standard)
	if d.Allowed || d.RetryAfter <= 0 {
		t.Fatalf("101st: %+v", d)
	}
}

func TestLimiterOverClosedRedisAppliesPolicy(t *testing.T) {
	mr, client := newMiniRedis(t)
	l := NewLimiter(NewRedisBackend(client, "rl:"), WithLogger(zap.NewNop()))
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if d := l.Allow(ctx, "c", Auth); d.Allowed || !d.Degraded {
		t.Fatalf("auth: %+v", d)
	}
	if d := l.Allow(ctx, "c", Standard); !d.Allowed || !d.Degraded {
		t.Fatalf("standard: %+v", d)
	}
	if err := l.Ping(ctx); err == nil {
		t.Fatal("ping should fail")
	}
}
