// Package server arma todas las dependencias del servicio HTTP a partir de
// la configuración.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	rdb "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/mcgate/internal/audit"
	cacheredis "github.com/dropDatabas3/mcgate/internal/cache/redis"
	"github.com/dropDatabas3/mcgate/internal/config"
	clientsctrl "github.com/dropDatabas3/mcgate/internal/http/controllers/clients"
	healthctrl "github.com/dropDatabas3/mcgate/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/mcgate/internal/http/controllers/oauth"
	mw "github.com/dropDatabas3/mcgate/internal/http/middlewares"
	"github.com/dropDatabas3/mcgate/internal/http/router"
	healthsvc "github.com/dropDatabas3/mcgate/internal/http/services/health"
	oauthsvc "github.com/dropDatabas3/mcgate/internal/http/services/oauth"
	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
	"github.com/dropDatabas3/mcgate/internal/metrics"
	"github.com/dropDatabas3/mcgate/internal/observability/logger"
	"github.com/dropDatabas3/mcgate/internal/observability/tracing"
	"github.com/dropDatabas3/mcgate/internal/rate"
	"github.com/dropDatabas3/mcgate/internal/registry"
	"github.com/dropDatabas3/mcgate/internal/resources"
	"github.com/dropDatabas3/mcgate/internal/store/refresh"
)

// Runtime es el servicio armado. Close libera en orden inverso.
type Runtime struct {
	Handler  http.Handler
	Keys     *jwtx.KeySet
	Registry *registry.Registry
	Reloader *registry.Reloader
	// Recorder es nil con audit.sink=none.
	Recorder *audit.Recorder

	closers []func() error
}

// Options permite reemplazar colaboradores (tests, embebidos).
type Options struct {
	Resources resources.Handler
	// Clients reemplaza registry.path / seed.
	Clients []registry.Client
	// Keys reemplaza jwt.signing_key.
	Keys *jwtx.KeySet
	// Redis reemplaza store.redis (ya conectado; el caller lo cierra).
	Redis rdb.UniversalClient
	// AuditSink reemplaza audit.sink.
	AuditSink audit.Sink
	Now       func() time.Time
}

// BuildHandler arma el handler con los defaults de Options.
func BuildHandler(ctx context.Context, cfg *config.Config) (http.Handler, func() error, error) {
	rt, err := Build(ctx, cfg, Options{})
	if err != nil {
		return nil, nil, err
	}
	return rt.Handler, rt.Close, nil
}

// Build arma el servicio completo. Un error de clave de firma aborta.
func Build(ctx context.Context, cfg *config.Config, opts Options) (rt *Runtime, err error) {
	log := logger.Named("server")
	rt = &Runtime{}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	// 1. Clave de firma
	keys, err := loadKeys(cfg, opts, log)
	if err != nil {
		return nil, err
	}
	rt.Keys = keys

	// 2. Registry
	clients := opts.Clients
	var src registry.Source
	if clients == nil {
		if cfg.Registry.Path != "" {
			src = registry.FileSource(cfg.Registry.Path)
			if clients, err = src(ctx); err != nil {
				return nil, err
			}
		} else {
			clients = registry.Defaults()
		}
	}
	reg, err := registry.New(clients)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	rt.Registry = reg
	if src != nil {
		rt.Reloader = registry.NewReloader(reg, src)
	}
	log.Info("registry loaded", logger.Count(reg.Len()))

	// 3. Stores compartidos
	var (
		backend rate.Backend
		store   refresh.Store
	)
	switch {
	case opts.Redis != nil || cfg.Store.Kind == "redis":
		client := opts.Redis
		if client == nil {
			c, err := cacheredis.Open(ctx, cfg.Store.Redis)
			if err != nil {
				return nil, err
			}
			rt.closers = append(rt.closers, c.Close)
			client = c
		}
		prefix := cfg.Store.Redis.Prefix
		backend = rate.NewRedisBackend(client, prefix+"rl:")
		store = refresh.NewRedisStore(client, prefix, cfg.JWT.RefreshTTL)
	default:
		backend = rate.NewMemoryBackend()
		store = refresh.NewMemoryStore(cfg.JWT.RefreshTTL)
	}

	// 4. Rate limiter
	policies, err := cfg.RatePolicies()
	if err != nil {
		return nil, err
	}
	alg, err := rate.ParseAlgorithm(cfg.Rate.Algorithm)
	if err != nil {
		return nil, err
	}
	limiterOpts := []rate.Option{
		rate.WithPolicies(policies),
		rate.WithAlgorithm(alg),
		rate.WithLogger(logger.Named("rate")),
	}
	if opts.Now != nil {
		limiterOpts = append(limiterOpts, rate.WithClock(opts.Now))
	}
	limiter := rate.NewLimiter(backend, limiterOpts...)
	gateLimiter := limiter
	if !cfg.Rate.Enabled {
		gateLimiter = nil
		log.Warn("rate limiting disabled")
	}

	// 5. Auditoría
	sink, err := openSink(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	var auditor audit.Auditor = audit.Nop{}
	if sink != nil {
		rt.Recorder = audit.NewRecorder(sink, cfg.Audit.Buffer)
		// Sobrevive a la cancelación de ctx: Close drena lo pendiente.
		rt.Recorder.Start(context.WithoutCancel(ctx))
		rt.closers = append(rt.closers, rt.Recorder.Close)
		auditor = rt.Recorder
	}

	// 6. Métricas y tracing
	if cfg.Metrics.Enabled {
		if err := metrics.Register(nil); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Env:         cfg.App.Env,
	})
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func() error {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(sctx)
	})

	// 7. Services
	issuer := jwtx.NewIssuer(cfg.JWT.Issuer, keys, cfg.JWT.AccessTTL)
	validator := jwtx.NewValidator(keys, cfg.JWT.Issuer)
	if opts.Now != nil {
		issuer = issuer.WithClock(opts.Now)
		validator = validator.WithClock(opts.Now)
	}
	oauth := oauthsvc.NewServices(oauthsvc.Deps{
		Registry:            reg,
		Issuer:              issuer,
		Validator:           validator,
		Store:               store,
		Audit:               auditor,
		RefreshTTL:          cfg.JWT.RefreshTTL,
		RevokeFamilyOnReuse: cfg.Refresh.RevokeFamilyOnReuse,
		RestInstanceURL:     cfg.Server.PublicURL,
		Now:                 opts.Now,
	})

	components := []healthsvc.Component{
		{Name: "refresh_store", Pinger: store, Critical: true},
		{Name: "rate_store", Pinger: limiter, Critical: false},
	}
	if p, ok := sink.(healthsvc.Pinger); ok {
		components = append(components, healthsvc.Component{Name: "audit", Pinger: p})
	}
	health := healthsvc.NewServices(healthsvc.Deps{
		Components: components,
		Version:    cfg.App.Version,
		KeyID:      keys.KID,
	})

	// 8. HTTP
	gk := mw.NewGatekeeper(mw.GatekeeperDeps{
		Validator: validator,
		Limiter:   gateLimiter,
		Registry:  reg,
		Audit:     auditor,
	})
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	rt.Handler = router.New(router.Deps{
		OAuth:       oauthctrl.NewControllers(oauth, keys),
		Health:      healthctrl.NewControllers(health, cfg.App.Version, policies),
		Clients:     clientsctrl.NewController(reg),
		Gatekeeper:  gk,
		Resources:   opts.Resources,
		CORSOrigins: cfg.Server.CORSOrigins,
		TrustProxy:  cfg.Server.TrustProxyHeaders,
		MetricsPath: metricsPath,
		Tracing:     cfg.Tracing.Enabled,
	})
	return rt, nil
}

// Close libera los recursos en orden inverso de creación.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func loadKeys(cfg *config.Config, opts Options, log *zap.Logger) (*jwtx.KeySet, error) {
	if opts.Keys != nil {
		return opts.Keys, nil
	}
	if cfg.JWT.SigningKey == "" {
		if !cfg.IsDev() {
			return nil, fmt.Errorf("%w: jwt.signing_key is required outside dev", jwtx.ErrKeyMisconfigured)
		}
		ks, _, err := jwtx.GenerateEd25519(cfg.JWT.KID)
		if err != nil {
			return nil, err
		}
		log.Warn("using an ephemeral signing key; tokens will not survive a restart", logger.String("kid", ks.KID))
		return ks, nil
	}
	return jwtx.Load(cfg.JWT.Alg, cfg.JWT.KID, cfg.JWT.SigningKey)
}

// openSink devuelve nil con sink=none.
func openSink(ctx context.Context, cfg *config.Config, opts Options) (audit.Sink, error) {
	if opts.AuditSink != nil {
		return opts.AuditSink, nil
	}
	switch cfg.Audit.Sink {
	case "none":
		return nil, nil
	case "postgres":
		s, err := audit.OpenPostgres(ctx, cfg.Audit.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "nats":
		s, err := audit.ConnectNATS(cfg.Audit.NATS.URL, cfg.Audit.NATS.Subject)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return audit.NewLogSink(logger.Named("audit")), nil
	}
}
