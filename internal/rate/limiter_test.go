package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// 2026-01-01 10:00:00.250 UTC: alineado a hora/minuto/segundo + 250ms.
func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 10, 0, 0, int(250*time.Millisecond), time.UTC)}
}

type downBackend struct{}

func (downBackend) Incr(context.Context, string, []Quota, time.Time) ([]Hit, error) {
	return nil, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}
func (downBackend) Ping(context.Context) error { return errors.New("down") }

func TestAllowSequentialAdmitsExactlyQuota(t *testing.T) {
	clk := newClock()
	l := NewLimiter(NewMemoryBackend(), WithClock(clk.Now), WithLogger(zap.NewNop()))
	ctx := context.Background()

	const n = 9
	admitted := 0
	for i := 0; i < n; i++ {
		d := l.Allow(ctx, "marketing_cloud_app_1", Auth)
		if d.Allowed {
			admitted++
			continue
		}
		if d.RetryAfter <= 0 || d.RetryAfter > time.Second {
			t.Fatalf("denial %d: retry_after %v out of (0, 1s]", i, d.RetryAfter)
		}
	}
	if admitted != 5 {
		t.Fatalf("admitted %d of %d, want 5", admitted, n)
	}
}

func TestStandard101stRequestIsDenied(t *testing.T) {
	clk := newClock()
	l := NewLimiter(NewMemoryBackend(), WithClock(clk.Now), WithLogger(zap.NewNop()))
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		d := l.Allow(ctx, "analytics_dashboard", Standard)
		if !d.Allowed {
			t.Fatalf("request %d denied", i)
		}
		clk.Advance(100 * time.Millisecond)
	}
	d := l.Allow(ctx, "analytics_dashboard", Standard)
	if d.Allowed {
		t.Fatal("101st request admitted")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("retry_after = %v", d.RetryAfter)
	}
	if d.Quota.Window != time.Minute || d.Limit != 100 {
		t.Fatalf("deciding quota = %+v", d.Quota)
	}
}

func TestClientsAndCategoriesAreIndependent(t *testing.T) {
	clk := newClock()
	l := NewLimiter(NewMemoryBackend(), WithClock(clk.Now), WithLogger(zap.NewNop()))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.Allow(ctx, "a", Auth)
	}
	if l.Allow(ctx, "a", Auth).Allowed {
		t.Fatal("client a should be exhausted on auth")
	}
	if !l.Allow(ctx, "b", Auth).Allowed {
		t.Fatal("client b must not share a's counter")
	}
	if !l.Allow(ctx, "a", Standard).Allowed {
		t.Fatal("standard must not share auth's counter")
	}
}

func TestFixedWindowResetsAtBoundary(t *testing.T) {
	clk := newClock()
	l := NewLimiter(NewMemoryBackend(), WithClock(clk.Now), WithAlgorithm(FixedWindow), WithLogger(zap.NewNop()))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.Allow(ctx, "c", Auth)
	}
	d := l.Allow(ctx, "c", Auth)
	if d.Allowed {
		t.Fatal("expected denial")
	}
	clk.Advance(d.RetryAfter)
	if !l.Allow(ctx, "c", Auth).Allowed {
		t.Fatal("expected admission after retry_after in fixed window")
	}
}

func TestSlidingWindowCarriesPreviousWeight(t *testing.T) {
	clk := newClock()
	l := NewLimiter(NewMemoryBackend(), WithClock(clk.Now), WithLogger(zap.NewNop()))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !l.Allow(ctx, "s", Auth).Allowed {
			t.Fatalf("attempt %d denied", i)
		}
	}
	// 100ms into the next second the previous window still weighs 0.9 * 5 = 4.5
	clk.Advance(850 * time.Millisecond)
	if l.Allow(ctx, "s", Auth).Allowed {
		t.Fatal("estimate 4.5 + 1 exceeds 5, expected denial")
	}
	// at 700ms the weight drops to 0.3 * 5 = 1.5, plus 2 attempts in the current window
	clk.Advance(600 * time.Millisecond)
	if !l.Allow(ctx, "s", Auth).Allowed {
		t.Fatal("expected admission once the previous window has mostly slid out")
	}
}

func TestDegradedAuthFailsClosed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l := NewLimiter(downBackend{}, WithLogger(zap.New(core)))

	d := l.Allow(context.Background(), "marketing_cloud_app_1", Auth)
	if d.Allowed {
		t.Fatal("auth must be denied when the store is down")
	}
	if !d.Degraded || d.StoreErr == nil {
		t.Fatalf("expected degraded decision, got %+v", d)
	}
	if d.RetryAfter <= 0 {
		t.Fatal("fail-closed decision should carry a retry hint")
	}
	if logs.FilterMessageSnippet("fail-closed").Len() != 1 {
		t.Fatalf("expected one fail-closed log, got %d", logs.Len())
	}
}

func TestDegradedStandardFailsOpenWithWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l := NewLimiter(downBackend{}, WithLogger(zap.New(core)))

	for _, c := range []Category{Standard, Upload} {
		d := l.Allow(context.Background(), "mobile_app_client", c)
		if !d.Allowed || !d.Degraded {
			t.Fatalf("%s: expected degraded admission, got %+v", c, d)
		}
	}
	warned := logs.FilterMessageSnippet("fail-open")
	if warned.Len() != 2 {
		t.Fatalf("expected one warning per category, got %d", warned.Len())
	}
	if warned.All()[0].Level != zap.WarnLevel {
		t.Fatalf("level = %v", warned.All()[0].Level)
	}
}

func TestDegradedWarningsAreThrottled(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l := NewLimiter(downBackend{}, WithLogger(zap.New(core)))
	for i := 0; i < 50; i++ {
		l.Allow(context.Background(), "x", Standard)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected throttled warnings, got %d", logs.Len())
	}
}

func TestCustomPolicyOverridesCategory(t *testing.T) {
	clk := newClock()
	l := NewLimiter(NewMemoryBackend(),
		WithClock(clk.Now),
		WithLogger(zap.NewNop()),
		WithPolicies(map[Category]Policy{Upload: {Quotas: []Quota{MustQuota("2/hour")}, OnStoreFailure: FailClosed}}),
	)
	ctx := context.Background()
	l.Allow(ctx, "u", Upload)
	l.Allow(ctx, "u", Upload)
	d := l.Allow(ctx, "u", Upload)
	if d.Allowed {
		t.Fatal("expected denial with custom quota")
	}
	if d.RetryAfter > time.Hour {
		t.Fatalf("retry_after %v > window", d.RetryAfter)
	}
	if got := l.Policy(Standard).Quotas; len(got) != 2 {
		t.Fatal("untouched categories keep their defaults")
	}
}

func TestUnknownCategoryUsesStandard(t *testing.T) {
	l := NewLimiter(NewMemoryBackend(), WithLogger(zap.NewNop()))
	d := l.Allow(context.Background(), "z", Category("bulk"))
	if d.Category != Standard {
		t.Fatalf("category = %q", d.Category)
	}
}
