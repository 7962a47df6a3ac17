package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/mcgate/internal/audit"
	"github.com/dropDatabas3/mcgate/internal/config"
	"github.com/dropDatabas3/mcgate/internal/observability/logger"
)

// Uso: migrate [-config path] [up|down|status]
func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "Path to YAML config")
		envFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
		dsnFlag    = flag.String("dsn", "", "DSN de Postgres (default: audit.dsn)")
	)
	flag.Parse()

	if *envFile != "" {
		_ = godotenv.Load(*envFile)
	}
	logger.Init(logger.Config{Env: "dev", ServiceName: "mcgate-migrate"})
	log := logger.Named("migrate")
	defer func() { _ = logger.Sync() }()

	action := "up"
	if args := flag.Args(); len(args) >= 1 && args[0] != "" {
		action = strings.ToLower(args[0])
	}

	dsn := *dsnFlag
	if dsn == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal("config load", logger.Err(err))
		}
		dsn = cfg.Audit.DSN
	}
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "audit.dsn vacío: usar -dsn o MCGATE_AUDIT_DSN")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal("db open", logger.Err(err))
	}
	defer db.Close()

	switch action {
	case "up":
		err = audit.Migrate(ctx, db)
	case "down":
		err = audit.MigrateDown(ctx, db)
	case "status":
		err = audit.MigrationStatus(ctx, db)
	default:
		fmt.Fprintf(os.Stderr, "acción desconocida %q (up|down|status)\n", action)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("migrate "+action, logger.Err(err))
	}
	log.Info("migrate done", logger.String("action", action))
}
