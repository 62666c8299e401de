package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_vehicles",
		SQL: `CREATE TABLE IF NOT EXISTS vehicles (
  id          BIGSERIAL PRIMARY KEY,
  unit_number TEXT      NOT NULL,
  plates      TEXT      NOT NULL,
  make        TEXT      NOT NULL,
  model       TEXT      NOT NULL
);`,
	},
	{
		Name: "create_table_vehicle_documents",
		SQL: `CREATE TABLE IF NOT EXISTS vehicle_documents (
  id            BIGSERIAL   PRIMARY KEY,
  vehicle_id    BIGINT      NOT NULL REFERENCES vehicles (id),
  document_type TEXT        NOT NULL,
  filename      TEXT        NOT NULL,
  storage_path  TEXT        NOT NULL UNIQUE,
  description   TEXT        CHECK (char_length(description) <= 500),
  uploaded_by   BIGINT      NOT NULL,
  uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_vehicle_documents_vehicle",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_vehicle_documents_vehicle ON vehicle_documents (vehicle_id, uploaded_at DESC);`,
	},
	{
		Name: "create_index_vehicle_documents_type",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_vehicle_documents_type ON vehicle_documents (vehicle_id, document_type);`,
	},
	{
		Name: "create_table_insurance_policies",
		SQL: `CREATE TABLE IF NOT EXISTS insurance_policies (
  id              BIGSERIAL     PRIMARY KEY,
  vehicle_id      BIGINT        NOT NULL REFERENCES vehicles (id),
  policy_number   TEXT          NOT NULL CHECK (char_length(policy_number) BETWEEN 3 AND 50),
  insurer         TEXT          NOT NULL CHECK (char_length(insurer) BETWEEN 2 AND 100),
  coverage_type   TEXT,
  start_date      DATE          NOT NULL,
  expiration_date DATE          NOT NULL CHECK (expiration_date > start_date),
  coverage_amount NUMERIC(10,2) CHECK (coverage_amount > 0),
  annual_premium  NUMERIC(9,2)  CHECK (annual_premium > 0),
  deductible      NUMERIC(8,2)  CHECK (deductible >= 0),
  beneficiary     TEXT,
  observations    TEXT          CHECK (char_length(observations) <= 1000),
  filename        TEXT,
  storage_path    TEXT          UNIQUE,
  active          BOOLEAN       NOT NULL DEFAULT TRUE,
  created_by      BIGINT        NOT NULL,
  created_at      TIMESTAMPTZ   NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_insurance_policies_vehicle",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_insurance_policies_vehicle ON insurance_policies (vehicle_id, active, created_at DESC);`,
	},
	{
		Name: "create_index_insurance_policies_expiration",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_insurance_policies_expiration ON insurance_policies (expiration_date) WHERE active;`,
	},
	{
		// Backstop for the single-active-policy invariant: the in-transaction
		// sweep keeps it, the index makes a racing writer fail instead of
		// committing a second active row.
		Name: "create_unique_index_single_active_policy",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_insurance_policies_one_active ON insurance_policies (vehicle_id) WHERE active;`,
	},
}

// EnsureMigrated checks for the sentinel table and runs the DDL steps when it
// is missing.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.vehicle_documents') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			logJSON(loc, map[string]any{
				"component":      "database",
				"event":          "db_migration_failed",
				"status":         "error",
				"migration_step": step.Name,
				"error_message":  err.Error(),
				"db_host":        dbHost,
				"duration_ms":    time.Since(start).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
