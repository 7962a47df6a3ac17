package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	migrations "github.com/dropDatabas3/mcgate/migrations/postgres"
)

const insertEntry = `INSERT INTO admission_audit
    (client_id, method, endpoint, category, decision, reason, request_id, at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// PostgresSink inserta cada lote en una transacción.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// OpenPostgres abre dsn con el driver pgx y aplica las migraciones de auditoría.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSink, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: db ping: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgresSink(db), nil
}

func prepareGoose() error {
	goose.SetBaseFS(migrations.AuditFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("audit: goose dialect: %w", err)
	}
	return nil
}

// Migrate corre las migraciones embebidas hasta la última versión.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, migrations.AuditDir); err != nil {
		return fmt.Errorf("audit: migrate: %w", err)
	}
	return nil
}

// MigrateDown revierte la última migración aplicada.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, db, migrations.AuditDir); err != nil {
		return fmt.Errorf("audit: migrate down: %w", err)
	}
	return nil
}

// MigrationStatus loguea el estado de cada migración (logger de goose).
func MigrationStatus(ctx context.Context, db *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, migrations.AuditDir)
}

func (s *PostgresSink) Write(ctx context.Context, batch []Entry) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("audit: begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertEntry)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("audit: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.ExecContext(ctx, e.ClientID, e.Method, e.Endpoint, e.Category, e.Decision, e.Reason, e.RequestID, e.At); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("audit: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("audit: commit: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error { return s.db.Close() }

// Ping lo usa /readyz.
func (s *PostgresSink) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
