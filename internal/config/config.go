// Package config carga la configuración del servicio.
//
// Orden de precedencia: Defaults() < config.yaml (opcional) < variables MCGATE_*.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
	"github.com/dropDatabas3/mcgate/internal/rate"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env     string `yaml:"env" env:"MCGATE_APP_ENV"`
		Name    string `yaml:"name" env:"MCGATE_APP_NAME"`
		Version string `yaml:"version" env:"MCGATE_APP_VERSION"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr" env:"MCGATE_SERVER_ADDR"`
		PublicURL       string        `yaml:"public_url" env:"MCGATE_SERVER_PUBLIC_URL"`
		ReadTimeout     time.Duration `yaml:"read_timeout" env:"MCGATE_SERVER_READ_TIMEOUT"`
		WriteTimeout    time.Duration `yaml:"write_timeout" env:"MCGATE_SERVER_WRITE_TIMEOUT"`
		IdleTimeout     time.Duration `yaml:"idle_timeout" env:"MCGATE_SERVER_IDLE_TIMEOUT"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"MCGATE_SERVER_SHUTDOWN_TIMEOUT"`
		CORSOrigins     []string      `yaml:"cors_origins" env:"MCGATE_SERVER_CORS_ORIGINS" env-separator:","`
		// true solo detrás de un proxy que pise X-Forwarded-For / X-Real-IP.
		TrustProxyHeaders bool `yaml:"trust_proxy_headers" env:"MCGATE_SERVER_TRUST_PROXY_HEADERS"`
	} `yaml:"server"`

	Store struct {
		// redis | memory
		Kind  string      `yaml:"kind" env:"MCGATE_STORE_KIND"`
		Redis RedisConfig `yaml:"redis"`
	} `yaml:"store"`

	JWT struct {
		Issuer string `yaml:"issuer" env:"MCGATE_JWT_ISSUER"`
		// EdDSA | HS256
		Alg        string        `yaml:"alg" env:"MCGATE_JWT_ALG"`
		KID        string        `yaml:"kid" env:"MCGATE_JWT_KID"`
		SigningKey string        `yaml:"signing_key" env:"MCGATE_JWT_SIGNING_KEY"`
		AccessTTL  time.Duration `yaml:"access_ttl" env:"MCGATE_JWT_ACCESS_TTL"`
		RefreshTTL time.Duration `yaml:"refresh_ttl" env:"MCGATE_JWT_REFRESH_TTL"`
	} `yaml:"jwt"`

	Refresh struct {
		RevokeFamilyOnReuse bool `yaml:"revoke_family_on_reuse" env:"MCGATE_REFRESH_REVOKE_FAMILY_ON_REUSE"`
	} `yaml:"refresh"`

	Registry struct {
		// Vacío = clientes seed de la API emulada.
		Path string `yaml:"path" env:"MCGATE_REGISTRY_PATH"`
	} `yaml:"registry"`

	Rate struct {
		Enabled bool `yaml:"enabled" env:"MCGATE_RATE_ENABLED"`
		// sliding_window | fixed_window
		Algorithm  string                    `yaml:"algorithm" env:"MCGATE_RATE_ALGORITHM"`
		Categories map[string]CategoryConfig `yaml:"categories"`
		// "standard:100/minute|1000/hour,auth:5/second"
		QuotaOverrides map[string]string `yaml:"-" env:"MCGATE_RATE_QUOTAS" env-separator:","`
	} `yaml:"rate"`

	Audit struct {
		// log | postgres | nats | none
		Sink   string `yaml:"sink" env:"MCGATE_AUDIT_SINK"`
		DSN    string `yaml:"dsn" env:"MCGATE_AUDIT_DSN"`
		Buffer int    `yaml:"buffer" env:"MCGATE_AUDIT_BUFFER"`
		NATS   struct {
			URL     string `yaml:"url" env:"MCGATE_AUDIT_NATS_URL"`
			Subject string `yaml:"subject" env:"MCGATE_AUDIT_NATS_SUBJECT"`
		} `yaml:"nats"`
	} `yaml:"audit"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled" env:"MCGATE_TRACING_ENABLED"`
		Endpoint    string  `yaml:"endpoint" env:"MCGATE_TRACING_ENDPOINT"`
		Insecure    bool    `yaml:"insecure" env:"MCGATE_TRACING_INSECURE"`
		SampleRatio float64 `yaml:"sample_ratio" env:"MCGATE_TRACING_SAMPLE_RATIO"`
	} `yaml:"tracing"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"MCGATE_METRICS_ENABLED"`
		Path    string `yaml:"path" env:"MCGATE_METRICS_PATH"`
	} `yaml:"metrics"`

	Log struct {
		Level string `yaml:"level" env:"MCGATE_LOG_LEVEL"`
	} `yaml:"log"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr" env:"MCGATE_REDIS_ADDR"`
	Password     string        `yaml:"password" env:"MCGATE_REDIS_PASSWORD"`
	DB           int           `yaml:"db" env:"MCGATE_REDIS_DB"`
	Prefix       string        `yaml:"prefix" env:"MCGATE_REDIS_PREFIX"`
	PoolSize     int           `yaml:"pool_size" env:"MCGATE_REDIS_POOL_SIZE"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"MCGATE_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"MCGATE_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"MCGATE_REDIS_WRITE_TIMEOUT"`
}

// CategoryConfig: cuotas ("100/minute") + política ante caída del store.
type CategoryConfig struct {
	Quotas         []string `yaml:"quotas"`
	OnStoreFailure string   `yaml:"on_store_failure"`
}

// Defaults devuelve la config base. Las cuotas por defecto son el contrato
// de la API emulada.
func Defaults() *Config {
	var c Config
	c.App.Env = "dev"
	c.App.Name = "mcgate"
	c.App.Version = "dev"

	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.IdleTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 15 * time.Second
	c.Server.CORSOrigins = []string{"*"}

	c.Store.Kind = "memory"
	c.Store.Redis.Addr = "localhost:6379"
	c.Store.Redis.Prefix = "mcgate:"
	c.Store.Redis.PoolSize = 20
	c.Store.Redis.DialTimeout = 2 * time.Second
	c.Store.Redis.ReadTimeout = 500 * time.Millisecond
	c.Store.Redis.WriteTimeout = 500 * time.Millisecond

	c.JWT.Issuer = "mcgate"
	c.JWT.Alg = jwtx.AlgEdDSA
	c.JWT.AccessTTL = time.Hour
	c.JWT.RefreshTTL = 30 * 24 * time.Hour

	c.Refresh.RevokeFamilyOnReuse = true

	c.Rate.Enabled = true
	c.Rate.Algorithm = string(rate.SlidingWindow)
	c.Rate.Categories = map[string]CategoryConfig{}
	for cat, p := range rate.DefaultPolicies() {
		cc := CategoryConfig{OnStoreFailure: string(p.OnStoreFailure)}
		for _, q := range p.Quotas {
			cc.Quotas = append(cc.Quotas, q.String())
		}
		c.Rate.Categories[string(cat)] = cc
	}

	c.Audit.Sink = "log"
	c.Audit.Buffer = 1024
	c.Audit.NATS.URL = "nats://127.0.0.1:4222"
	c.Audit.NATS.Subject = "mcgate.audit.admission"

	c.Tracing.Endpoint = "localhost:4318"
	c.Tracing.SampleRatio = 1

	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"

	c.Log.Level = "info"
	return &c
}

// Load aplica defaults, el YAML en path (si existe) y las variables MCGATE_*.
// path vacío o inexistente no es error.
func Load(path string) (*Config, error) {
	c := Defaults()
	if path != "" {
		b, err := os.ReadFile(filepath.Clean(path))
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := cleanenv.ReadEnv(c); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	c.applyQuotaOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyQuotaOverrides() {
	for cat, raw := range c.Rate.QuotaOverrides {
		cat = strings.ToLower(strings.TrimSpace(cat))
		cc := c.Rate.Categories[cat]
		cc.Quotas = nil
		for _, q := range strings.Split(raw, "|") {
			if q = strings.TrimSpace(q); q != "" {
				cc.Quotas = append(cc.Quotas, q)
			}
		}
		if c.Rate.Categories == nil {
			c.Rate.Categories = map[string]CategoryConfig{}
		}
		c.Rate.Categories[cat] = cc
	}
}

// IsDev: dev o vacío.
func (c *Config) IsDev() bool { return c.App.Env == "" || c.App.Env == "dev" }

// Validate rechaza valores que el servicio no puede usar.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	for name, d := range map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"jwt.access_ttl":          c.JWT.AccessTTL,
		"jwt.refresh_ttl":         c.JWT.RefreshTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.JWT.RefreshTTL > 0 && c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		errs = append(errs, errors.New("jwt.refresh_ttl must exceed jwt.access_ttl"))
	}
	switch c.Store.Kind {
	case "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.kind %q: want redis or memory", c.Store.Kind))
	}
	switch strings.ToUpper(c.JWT.Alg) {
	case strings.ToUpper(jwtx.AlgEdDSA), "ED25519", jwtx.AlgHS256:
	default:
		errs = append(errs, fmt.Errorf("jwt.alg %q: want EdDSA or HS256", c.JWT.Alg))
	}
	if c.JWT.SigningKey == "" && !c.IsDev() {
		errs = append(errs, errors.New("jwt.signing_key is required outside dev"))
	}
	if _, err := rate.ParseAlgorithm(c.Rate.Algorithm); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.RatePolicies(); err != nil {
		errs = append(errs, err)
	}
	switch c.Audit.Sink {
	case "log", "none", "":
	case "postgres":
		if c.Audit.DSN == "" {
			errs = append(errs, errors.New("audit.dsn is required for the postgres sink"))
		}
	case "nats":
		if c.Audit.NATS.URL == "" {
			errs = append(errs, errors.New("audit.nats.url is required for the nats sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("audit.sink %q: want log, postgres, nats or none", c.Audit.Sink))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sample_ratio must be within [0, 1]"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// RatePolicies convierte rate.categories en políticas del limiter.
// Categorías ausentes conservan el default.
func (c *Config) RatePolicies() (map[rate.Category]rate.Policy, error) {
	out := rate.DefaultPolicies()
	for name, cc := range c.Rate.Categories {
		cat, err := rate.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("rate.categories: %w", err)
		}
		p := out[cat]
		if len(cc.Quotas) > 0 {
			p.Quotas = p.Quotas[:0:0]
			for _, s := range cc.Quotas {
				q, err := rate.ParseQuota(s)
				if err != nil {
					return nil, fmt.Errorf("rate.categories.%s: %w", name, err)
				}
				p.Quotas = append(p.Quotas, q)
			}
		}
		if cc.OnStoreFailure != "" {
			fp, err := rate.ParseFailurePolicy(cc.OnStoreFailure)
			if err != nil {
				return nil, fmt.Errorf("rate.categories.%s: %w", name, err)
			}
			p.OnStoreFailure = fp
		}
		out[cat] = p
	}
	return out, nil
}
