// Package migrations embeds SQL migration files.
package migrations

import "embed"

// AuditFS contains the goose migrations for the audit database.
//
//go:embed audit/*.sql
var AuditFS embed.FS

// AuditDir is the directory within AuditFS where migrations live.
const AuditDir = "audit"
