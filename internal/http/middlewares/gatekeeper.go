package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dropDatabas3/mcgate/internal/audit"
	"github.com/dropDatabas3/mcgate/internal/http/errors"
	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
	"github.com/dropDatabas3/mcgate/internal/metrics"
	"github.com/dropDatabas3/mcgate/internal/observability/logger"
	"github.com/dropDatabas3/mcgate/internal/observability/tracing"
	"github.com/dropDatabas3/mcgate/internal/rate"
	"github.com/dropDatabas3/mcgate/internal/registry"
	"github.com/dropDatabas3/mcgate/internal/scope"
)

// GatekeeperDeps agrupa los colaboradores del gatekeeper. Limiter nil
// desactiva el rate limiting; Audit nil descarta las entradas.
type GatekeeperDeps struct {
	Validator *jwtx.Validator
	Limiter   *rate.Limiter
	Registry  *registry.Registry
	Audit     audit.Auditor
}

// Gatekeeper admite o rechaza cada request protegido:
// token → validación → categoría → rate check → handler.
type Gatekeeper struct {
	validator *jwtx.Validator
	limiter   *rate.Limiter
	registry  *registry.Registry
	audit     audit.Auditor
	now       func() time.Time
}

func NewGatekeeper(d GatekeeperDeps) *Gatekeeper {
	g := &Gatekeeper{
		validator: d.Validator,
		limiter:   d.Limiter,
		registry:  d.Registry,
		audit:     d.Audit,
		now:       time.Now,
	}
	if g.audit == nil {
		g.audit = audit.Nop{}
	}
	return g
}

// Require protege la ruta con el scope requerido y la categoría dada
// (rate.Inherit usa la del cliente). El primer fallo corta el request.
func (g *Gatekeeper) Require(required scope.Set, category rate.Category) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := g.now()
			ctx := r.Context()

			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="mcgate"`)
				g.deny(w, r, "", category, "token_missing", errors.ErrTokenMissing)
				return
			}

			id, err := g.validator.Validate(raw, scope.Set{})
			if err != nil {
				appErr := errors.FromDomain(err)
				w.Header().Set("WWW-Authenticate", `Bearer realm="mcgate", error="invalid_token"`)
				g.deny(w, r, "", category, strings.ToLower(appErr.Code), appErr)
				return
			}
			if missing := id.Scopes.Missing(required); len(missing) > 0 {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+required.String()+`"`)
				g.deny(w, r, id.ClientID, category, "insufficient_scope",
					errors.FromDomain(&jwtx.ScopeError{Missing: missing}))
				return
			}

			cat := g.classify(id.ClientID, category)
			if g.limiter != nil {
				sctx, span := tracing.Tracer("gatekeeper").Start(ctx, "rate.Allow")
				d := g.limiter.Allow(sctx, id.ClientID, cat)
				span.SetAttributes(
					attribute.String("mcgate.client_id", id.ClientID),
					attribute.String("mcgate.rate_category", string(cat)),
					attribute.Bool("mcgate.rate_allowed", d.Allowed),
					attribute.Bool("mcgate.rate_degraded", d.Degraded),
				)
				span.End()
				setRateHeaders(w, d, g.now())
				if !d.Allowed {
					g.deny(w, r, id.ClientID, cat, rateReason(d), rateError(d))
					return
				}
			}

			ctx = WithIdentity(ctx, id)
			ctx = setCategory(ctx, cat)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.ClientID(id.ClientID)))

			metrics.AdmissionDecisions.WithLabelValues(string(cat), audit.DecisionAllowed).Inc()
			metrics.AdmissionLatency.WithLabelValues(string(cat)).
				Observe(float64(g.now().Sub(start).Microseconds()) / 1000)
			g.record(r, id.ClientID, cat, audit.DecisionAllowed, "")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// classify resuelve la categoría efectiva de la ruta.
func (g *Gatekeeper) classify(clientID string, category rate.Category) rate.Category {
	if category != rate.Inherit {
		return category
	}
	if g.registry != nil {
		if c, err := g.registry.Lookup(clientID); err == nil && c.Category != "" {
			return c.Category
		}
	}
	return rate.Standard
}

func (g *Gatekeeper) deny(w http.ResponseWriter, r *http.Request, clientID string, cat rate.Category, reason string, appErr *errors.AppError) {
	label := string(cat)
	if cat == rate.Inherit {
		label = "inherit"
	}
	metrics.AdmissionDecisions.WithLabelValues(label, audit.DecisionDenied).Inc()
	logger.From(r.Context()).Info("request denied",
		logger.Component("gatekeeper"),
		logger.ClientID(clientID),
		logger.Category(label),
		logger.Reason(reason),
	)
	g.record(r, clientID, cat, audit.DecisionDenied, reason)
	errors.WriteError(w, appErr)
}

func (g *Gatekeeper) record(r *http.Request, clientID string, cat rate.Category, decision, reason string) {
	g.audit.Record(audit.Entry{
		ClientID:  clientID,
		Method:    r.Method,
		Endpoint:  r.URL.Path,
		Category:  string(cat),
		Decision:  decision,
		Reason:    reason,
		RequestID: GetRequestID(r.Context()),
		At:        g.now().UTC(),
	})
}

// bearerToken extrae el token de "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// setRateHeaders publica la cuota determinante; Reset es epoch en segundos.
func setRateHeaders(w http.ResponseWriter, d rate.Decision, now time.Time) {
	if d.Limit <= 0 {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	if d.ResetAfter > 0 {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(d.ResetAfter).Unix(), 10))
	}
}

func rateReason(d rate.Decision) string {
	if d.Degraded {
		return "store_unavailable"
	}
	return "rate_limited"
}

// rateError: 429 si se excedió la cuota, 503 si la categoría es fail-closed
// y el store no respondió.
func rateError(d rate.Decision) *errors.AppError {
	if d.Degraded {
		e := errors.ErrStoreUnavailable.WithRetryAfter(d.RetryAfter)
		if d.StoreErr != nil {
			e = e.WithCause(d.StoreErr)
		}
		return e
	}
	return errors.ErrRateLimitExceeded.
		WithRetryAfter(d.RetryAfter).
		WithDetail("Rate limit exceeded: " + d.Quota.String())
}
