// Package migration bootstraps the compliance schema on first start.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_accounts",
		SQL: `CREATE TABLE IF NOT EXISTS accounts (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name             TEXT        NOT NULL,
  compliance_rules JSONB       NOT NULL DEFAULT '{}'::jsonb,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_vendors",
		SQL: `CREATE TABLE IF NOT EXISTS vendors (
  id                UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  account_id        UUID        NOT NULL REFERENCES accounts (id),
  name              TEXT        NOT NULL,
  email             TEXT        NOT NULL DEFAULT '',
  w9_status         TEXT        NOT NULL DEFAULT 'MISSING' CHECK (w9_status IN ('MISSING', 'RECEIVED', 'EXPIRED')),
  coi_status        TEXT        NOT NULL DEFAULT 'MISSING' CHECK (coi_status IN ('MISSING', 'RECEIVED', 'EXPIRED')),
  coi_expiry        TIMESTAMPTZ NULL,
  coi_expiry_source TEXT        NOT NULL DEFAULT '' CHECK (coi_expiry_source IN ('', 'extracted', 'fallback')),
  is_exempt         BOOLEAN     NOT NULL DEFAULT false,
  created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  vendor_id         UUID        NOT NULL REFERENCES vendors (id),
  type              TEXT        NOT NULL CHECK (type IN ('W9', 'COI')),
  filename          TEXT        NOT NULL,
  storage_path      TEXT        NOT NULL UNIQUE,
  size              BIGINT      NOT NULL CHECK (size >= 0),
  content_type      TEXT        NOT NULL,
  parsed_data       JSONB       NULL,
  violations        JSONB       NOT NULL DEFAULT '[]'::jsonb,
  compliance_status TEXT        NOT NULL DEFAULT '',
  created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_bills",
		SQL: `CREATE TABLE IF NOT EXISTS bills (
  id                   UUID          PRIMARY KEY DEFAULT uuid_generate_v4(),
  vendor_id            UUID          NOT NULL REFERENCES vendors (id),
  amount               NUMERIC(14,2) NOT NULL,
  balance              NUMERIC(14,2) NOT NULL,
  discount_percent     NUMERIC(5,2)  NULL,
  discount_amount      NUMERIC(14,2) NULL,
  discount_due_date    TIMESTAMPTZ   NULL,
  discount_captured    BOOLEAN       NOT NULL DEFAULT false,
  discount_captured_at TIMESTAMPTZ   NULL,
  is_paid              BOOLEAN       NOT NULL DEFAULT false,
  created_at           TIMESTAMPTZ   NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_vendor_type",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_vendor_type ON documents (vendor_id, type, created_at DESC);`,
	},
	{
		Name: "create_index_vendors_coi_expiry",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_vendors_coi_expiry ON vendors (coi_expiry) WHERE coi_expiry IS NOT NULL AND NOT is_exempt;`,
	},
	{
		Name: "create_index_bills_capturable",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_bills_capturable ON bills (vendor_id) WHERE NOT discount_captured AND NOT is_paid;`,
	},
}

// sentinelQuery checks for the last table created by the steps above.
const sentinelQuery = "SELECT to_regclass('public.bills') IS NOT NULL"

// EnsureMigrated runs the schema steps unless the bills table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *zap.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check")

	var exists bool
	if err := db.QueryRowContext(ctx, sentinelQuery).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.String("error_message", fmt.Sprintf("failed to check sentinel table: %v", err)),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("reason", "schema already exists"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", zap.Int("steps", len(steps)))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Debug("db_migration_step",
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success", zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}
