package rate

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	xrate "golang.org/x/time/rate"

	"github.com/dropDatabas3/mcgate/internal/metrics"
	"github.com/dropDatabas3/mcgate/internal/observability/logger"
)

// Algorithm elige cómo se estima el uso de la ventana.
type Algorithm string

const (
	// SlidingWindow pondera la ventana anterior por la fracción que todavía
	// se solapa con la ventana deslizante.
	SlidingWindow Algorithm = "sliding_window"
	// FixedWindow ignora la ventana anterior.
	FixedWindow Algorithm = "fixed_window"
)

// ParseAlgorithm acepta sliding_window/fixed_window (o sliding/fixed).
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "", "sliding", string(SlidingWindow):
		return SlidingWindow, nil
	case "fixed", string(FixedWindow):
		return FixedWindow, nil
	}
	return "", fmt.Errorf("rate: unknown algorithm %q", s)
}

// Decision es el resultado de Allow.
type Decision struct {
	Allowed  bool
	Category Category

	// Cuota determinante: la excedida con mayor espera, o la más ajustada si se admitió.
	Quota      Quota
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
	ResetAfter time.Duration

	// Degraded indica que el store no respondió y se aplicó la FailurePolicy.
	Degraded bool
	StoreErr error
}

// Limiter aplica las políticas por categoría sobre un Backend compartido.
type Limiter struct {
	backend   Backend
	policies  map[Category]Policy
	algorithm Algorithm
	prefix    string
	log       *zap.Logger
	now       func() time.Time
	warn      map[Category]*xrate.Sometimes
}

type Option func(*Limiter)

// WithPolicies reemplaza las políticas por defecto. Las categorías ausentes
// conservan su valor por defecto.
func WithPolicies(p map[Category]Policy) Option {
	return func(l *Limiter) {
		for c, pol := range p {
			l.policies[c] = pol
		}
	}
}

func WithAlgorithm(a Algorithm) Option      { return func(l *Limiter) { l.algorithm = a } }
func WithLogger(log *zap.Logger) Option     { return func(l *Limiter) { l.log = log } }
func WithClock(now func() time.Time) Option { return func(l *Limiter) { l.now = now } }

// WithKeyPrefix separa los contadores de varios despliegues en un mismo store.
func WithKeyPrefix(p string) Option { return func(l *Limiter) { l.prefix = p } }

func NewLimiter(backend Backend, opts ...Option) *Limiter {
	l := &Limiter{
		backend:   backend,
		policies:  DefaultPolicies(),
		algorithm: SlidingWindow,
		now:       time.Now,
		warn:      make(map[Category]*xrate.Sometimes),
	}
	for _, o := range opts {
		o(l)
	}
	if l.log == nil {
		l.log = logger.Named("rate")
	}
	for c := range l.policies {
		l.warn[c] = &xrate.Sometimes{Interval: time.Second}
	}
	return l
}

// Policy devuelve la política efectiva; categorías desconocidas usan Standard.
func (l *Limiter) Policy(c Category) Policy {
	if p, ok := l.policies[c]; ok {
		return p
	}
	return l.policies[Standard]
}

// Ping verifica el store de contadores.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.backend.Ping(ctx)
}

// Allow cuenta el intento de clientID en la categoría y decide.
// Cada intento incrementa los contadores exactamente una vez, se admita o no.
func (l *Limiter) Allow(ctx context.Context, clientID string, c Category) Decision {
	if _, ok := l.policies[c]; !ok {
		c = Standard
	}
	pol := l.policies[c]
	now := l.now()

	hits, err := l.backend.Incr(ctx, l.prefix+string(c)+":"+clientID, pol.Quotas, now)
	if err != nil {
		return l.degraded(c, pol, clientID, err)
	}

	d := l.decide(c, hits, now)
	outcome := "allowed"
	if !d.Allowed {
		outcome = "denied"
	}
	metrics.RateDecisions.WithLabelValues(string(c), outcome).Inc()
	return d
}

func (l *Limiter) decide(c Category, hits []Hit, now time.Time) Decision {
	d := Decision{Allowed: true, Category: c, Remaining: math.MaxInt64}
	for _, h := range hits {
		w := h.Quota.Window
		elapsed := now.Sub(h.WindowStart)
		if elapsed < 0 {
			elapsed = 0
		}
		untilBoundary := w - elapsed
		if untilBoundary <= 0 {
			untilBoundary = time.Millisecond
		}

		est := float64(h.Current)
		if l.algorithm == SlidingWindow && h.Previous > 0 {
			est += float64(h.Previous) * float64(w-elapsed) / float64(w)
		}
		remaining := h.Quota.Limit - int64(math.Ceil(est))
		if remaining < 0 {
			remaining = 0
		}

		if est > float64(h.Quota.Limit) {
			if d.Allowed || untilBoundary > d.RetryAfter {
				d.Quota = h.Quota
				d.Limit = h.Quota.Limit
				d.RetryAfter = untilBoundary
				d.ResetAfter = untilBoundary
			}
			d.Allowed = false
			d.Remaining = 0
			continue
		}
		if d.Allowed && remaining < d.Remaining {
			d.Quota = h.Quota
			d.Limit = h.Quota.Limit
			d.Remaining = remaining
			d.ResetAfter = untilBoundary
		}
	}
	if d.Remaining == math.MaxInt64 {
		d.Remaining = 0
	}
	return d
}

func (l *Limiter) degraded(c Category, pol Policy, clientID string, err error) Decision {
	metrics.RateStoreErrors.WithLabelValues(string(c)).Inc()

	d := Decision{Category: c, Degraded: true, StoreErr: err}
	if len(pol.Quotas) > 0 {
		d.Quota = pol.Quotas[0]
		d.Limit = pol.Quotas[0].Limit
	}

	if pol.OnStoreFailure == FailClosed {
		d.Allowed = false
		d.RetryAfter = time.Second
		metrics.RateDecisions.WithLabelValues(string(c), "degraded_closed").Inc()
		l.throttled(c, func() {
			l.log.Error("rate store unavailable, denying (fail-closed)",
				logger.Category(string(c)), logger.ClientID(clientID), logger.Err(err))
		})
		return d
	}

	d.Allowed = true
	metrics.RateDecisions.WithLabelValues(string(c), "degraded_open").Inc()
	l.throttled(c, func() {
		l.log.Warn("rate store unavailable, admitting without limit (fail-open)",
			logger.Category(string(c)), logger.ClientID(clientID), logger.Err(err))
	})
	return d
}

func (l *Limiter) throttled(c Category, f func()) {
	if s, ok := l.warn[c]; ok {
		s.Do(f)
		return
	}
	f()
}
