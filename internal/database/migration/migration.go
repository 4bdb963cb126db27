package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
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
		Name: "create_table_profiles",
		SQL: `CREATE TABLE IF NOT EXISTS profiles (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  email         TEXT        NOT NULL,
  full_name     TEXT,
  role          TEXT        NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
  password_hash TEXT        NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_profiles_email",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS idx_profiles_email ON profiles (lower(email));`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name       TEXT        NOT NULL,
  file_path  TEXT        NOT NULL UNIQUE,
  file_size  BIGINT      NOT NULL CHECK (file_size >= 0),
  file_type  TEXT        NOT NULL,
  visibility TEXT        NOT NULL DEFAULT 'private' CHECK (visibility IN ('public', 'private')),
  user_id    UUID        NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  deleted_at TIMESTAMPTZ
);`,
	},
	{
		Name: "create_index_documents_user_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents (user_id);`,
	},
	{
		Name: "create_index_documents_visibility",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_visibility ON documents (visibility) WHERE deleted_at IS NULL;`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at DESC, id DESC);`,
	},
	{
		Name: "create_table_document_shares",
		SQL: `CREATE TABLE IF NOT EXISTS document_shares (
  id                  UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  document_id         UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  shared_by_user_id   UUID        NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
  shared_with_user_id UUID        NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
  created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (document_id, shared_with_user_id)
);`,
	},
	{
		Name: "create_index_document_shares_shared_with",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_shares_shared_with ON document_shares (shared_with_user_id);`,
	},
	{
		Name: "create_table_authorized_emails",
		SQL: `CREATE TABLE IF NOT EXISTS authorized_emails (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  email      TEXT        NOT NULL,
  added_by   UUID        REFERENCES profiles (id) ON DELETE SET NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_authorized_emails_email",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS idx_authorized_emails_email ON authorized_emails (lower(email));`,
	},
	{
		Name: "create_table_audit_logs",
		SQL: `CREATE TABLE IF NOT EXISTS audit_logs (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  action_type   TEXT        NOT NULL,
  user_id       UUID,
  resource_type TEXT        NOT NULL,
  resource_id   TEXT,
  details       JSONB       NOT NULL DEFAULT '{}'::jsonb,
  ip_address    TEXT,
  user_agent    TEXT,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_audit_logs_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at);`,
	},
	{
		Name: "create_table_rate_limits",
		SQL: `CREATE TABLE IF NOT EXISTS rate_limits (
  key          TEXT        NOT NULL,
  window_start TIMESTAMPTZ NOT NULL,
  attempts     INTEGER     NOT NULL DEFAULT 0,
  expires_at   TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (key, window_start)
);`,
	},
	{
		Name: "create_index_rate_limits_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_rate_limits_expires_at ON rate_limits (expires_at);`,
	},
}

const (
	createTrackingTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
  name       TEXT        PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	selectApplied = `SELECT name FROM schema_migrations`
	insertApplied = `INSERT INTO schema_migrations (name) VALUES ($1)`
)

// Run applies every step not yet recorded in schema_migrations, in order.
// Each step runs in its own transaction together with its bookkeeping row.
// It returns the number of steps applied.
func Run(ctx context.Context, db *sql.DB, log logrus.FieldLogger, dbHost string) (int, error) {
	start := time.Now()
	entry := log.WithFields(logrus.Fields{"component": "database", "db_host": dbHost})

	entry.WithField("event", "db_migration_check").Info("checking schema")

	if _, err := db.ExecContext(ctx, createTrackingTable); err != nil {
		entry.WithFields(logrus.Fields{
			"event":       "db_migration_failed",
			"duration_ms": time.Since(start).Milliseconds(),
		}).WithError(err).Error("failed to create tracking table")
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedSteps(ctx, db)
	if err != nil {
		entry.WithField("event", "db_migration_failed").WithError(err).Error("failed to read applied steps")
		return 0, err
	}

	count := 0
	for _, step := range steps {
		if applied[step.Name] {
			continue
		}
		stepStart := time.Now()
		if err := applyStep(ctx, db, step); err != nil {
			entry.WithFields(logrus.Fields{
				"event":            "db_migration_failed",
				"migration_step":   step.Name,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			}).WithError(err).Error("migration step failed")
			return count, fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		count++
		entry.WithFields(logrus.Fields{
			"event":            "db_migration_step",
			"migration_step":   step.Name,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		}).Info("migration step applied")
	}

	if count == 0 {
		entry.WithFields(logrus.Fields{
			"event":       "db_migration_skip",
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("schema up to date, skipping migration")
		return 0, nil
	}

	entry.WithFields(logrus.Fields{
		"event":       "db_migration_success",
		"steps":       count,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("schema migrated")
	return count, nil
}

func appliedSteps(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, selectApplied)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func applyStep(ctx context.Context, db *sql.DB, step migrationStep) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, insertApplied, step.Name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
