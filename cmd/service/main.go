package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/mcgate/internal/config"
	"github.com/dropDatabas3/mcgate/internal/http/server"
	"github.com/dropDatabas3/mcgate/internal/observability/logger"
)

var version = "dev"

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func main() {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $MCGATE_CONFIG o configs/config.yaml)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
		flagPrint      = flag.Bool("print-config", false, "imprime config efectiva y termina")
	)
	flag.Parse()

	if *flagEnvFile != "" && fileExists(*flagEnvFile) {
		if err := godotenv.Load(*flagEnvFile); err != nil {
			fmt.Fprintf(os.Stderr, "dotenv: %v\n", err)
		}
	}

	cfgPath := *flagConfigPath
	if cfgPath == "" {
		cfgPath = os.Getenv("MCGATE_CONFIG")
	}
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.App.Version == "dev" {
		cfg.App.Version = version
	}
	if *flagPrint {
		printConfigSummary(cfg)
		return
	}

	logEnv := "prod"
	if cfg.IsDev() {
		logEnv = "dev"
	}
	logger.Init(logger.Config{
		Env:         logEnv,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.L().Error("service stopped with error", logger.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := server.Build(ctx, cfg, server.Options{})
	if err != nil {
		return fmt.Errorf("wiring: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn("cleanup", logger.Err(err))
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      rt.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("service up",
			logger.String("addr", cfg.Server.Addr),
			logger.String("env", cfg.App.Env),
			logger.String("store", cfg.Store.Kind),
			logger.String("kid", rt.Keys.KID),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", logger.String("timeout", cfg.Server.ShutdownTimeout.String()))
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if rt.Reloader != nil {
		g.Go(func() error {
			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-hup:
					n, err := rt.Reloader.Reload(gctx)
					if err != nil {
						log.Error("registry reload failed; keeping previous snapshot", logger.Err(err))
						continue
					}
					log.Info("registry reloaded", logger.Count(n))
				}
			}
		})
	}

	return g.Wait()
}

func printConfigSummary(c *config.Config) {
	fmt.Printf("app:      %s %s (env=%s)\n", c.App.Name, c.App.Version, c.App.Env)
	fmt.Printf("server:   addr=%s public_url=%q cors=%v\n", c.Server.Addr, c.Server.PublicURL, c.Server.CORSOrigins)
	fmt.Printf("store:    kind=%s redis=%s prefix=%q\n", c.Store.Kind, c.Store.Redis.Addr, c.Store.Redis.Prefix)
	fmt.Printf("jwt:      iss=%s alg=%s access=%s refresh=%s key_set=%t\n",
		c.JWT.Issuer, c.JWT.Alg, c.JWT.AccessTTL, c.JWT.RefreshTTL, c.JWT.SigningKey != "")
	fmt.Printf("refresh:  revoke_family_on_reuse=%t\n", c.Refresh.RevokeFamilyOnReuse)
	fmt.Printf("registry: path=%q\n", c.Registry.Path)
	fmt.Printf("rate:     enabled=%t algorithm=%s\n", c.Rate.Enabled, c.Rate.Algorithm)
	if pol, err := c.RatePolicies(); err == nil {
		for cat, p := range pol {
			fmt.Printf("          %-8s %v on_store_failure=%s\n", cat, p.Quotas, p.OnStoreFailure)
		}
	}
	fmt.Printf("audit:    sink=%s buffer=%d\n", c.Audit.Sink, c.Audit.Buffer)
	fmt.Printf("tracing:  enabled=%t endpoint=%s\n", c.Tracing.Enabled, c.Tracing.Endpoint)
	fmt.Printf("metrics:  enabled=%t path=%s\n", c.Metrics.Enabled, c.Metrics.Path)
}
