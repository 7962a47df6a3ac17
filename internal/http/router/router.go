// Package router arma el árbol chi del servicio: endpoints de auth, health,
// discovery y las rutas de recursos protegidas por el gatekeeper.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	clientsctrl "github.com/dropDatabas3/mcgate/internal/http/controllers/clients"
	healthctrl "github.com/dropDatabas3/mcgate/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/mcgate/internal/http/controllers/oauth"
	"github.com/dropDatabas3/mcgate/internal/http/errors"
	mw "github.com/dropDatabas3/mcgate/internal/http/middlewares"
	"github.com/dropDatabas3/mcgate/internal/rate"
	"github.com/dropDatabas3/mcgate/internal/resources"
	"github.com/dropDatabas3/mcgate/internal/scope"
)

// Deps contiene las dependencias del router.
type Deps struct {
	OAuth      *oauthctrl.Controllers
	Health     *healthctrl.Controllers
	Clients    *clientsctrl.Controller
	Gatekeeper *mw.Gatekeeper
	// Resources nil usa resources.Echo.
	Resources resources.Handler

	CORSOrigins []string
	// TrustProxy toma la IP del cliente de los headers del proxy.
	TrustProxy bool
	// MetricsPath vacío no expone métricas.
	MetricsPath    string
	MetricsHandler http.Handler
	// Tracing envuelve el árbol con otelhttp.
	Tracing bool
}

// New devuelve el handler raíz.
func New(d Deps) http.Handler {
	if d.Resources == nil {
		d.Resources = resources.Echo{}
	}

	r := chi.NewRouter()
	if d.TrustProxy {
		r.Use(mw.WithTrustedProxy())
	}
	r.Use(
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
		mw.WithMetrics(),
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSOrigins),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrMethodNotAllowed)
	})

	registerHealthRoutes(r, d)
	registerAuthRoutes(r, d)
	registerResourceRoutes(r, d)

	if !d.Tracing {
		return r
	}
	return otelhttp.NewHandler(r, "mcgate",
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
	)
}

func registerHealthRoutes(r chi.Router, d Deps) {
	h := d.Health.Health
	r.Get("/health", h.Health)
	r.Get("/readyz", h.Ready)
	r.Get("/v1", h.Info)
	r.Get("/.well-known/jwks.json", d.OAuth.JWKS.GetJWKS)

	if d.MetricsPath != "" {
		mh := d.MetricsHandler
		if mh == nil {
			mh = defaultMetricsHandler()
		}
		r.Method(http.MethodGet, d.MetricsPath, mh)
	}
}

// registerAuthRoutes: los endpoints de credenciales cuentan contra la
// categoría auth por client_id del body.
func registerAuthRoutes(r chi.Router, d Deps) {
	c := d.OAuth
	r.Route("/v1/auth", func(r chi.Router) {
		r.Use(mw.WithNoStore())

		r.Group(func(r chi.Router) {
			r.Use(d.Gatekeeper.RateLimitByClient(rate.Auth))
			r.Post("/token", c.Token.Token)
			r.Post("/refresh", c.Token.Refresh)
			r.Post("/revoke", c.Revoke.Revoke)
			r.Post("/verify", c.Introspect.Verify)
		})

		r.With(d.Gatekeeper.Require(scope.Set{}, rate.Inherit)).Get("/clients", d.Clients.List)
		r.Get("/permissions", d.Clients.Permissions)
	})
}

func registerResourceRoutes(r chi.Router, d Deps) {
	for _, g := range resources.Groups {
		routes := g.Routes
		r.Route(g.Prefix, func(r chi.Router) {
			for _, rt := range routes {
				rt := rt
				h := mw.ChainFunc(func(w http.ResponseWriter, req *http.Request) {
					d.Resources.ServeResource(w, req, rt)
				}, d.Gatekeeper.Require(rt.Required(), rt.Category))
				r.Method(rt.Method, rt.Pattern, h)
			}
		})
	}
}
