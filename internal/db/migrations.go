package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'claim_status') THEN
			CREATE TYPE claim_status AS ENUM ('PENDING', 'IN_PROGRESS', 'COMPLETED', 'CANCELLED');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS technicians (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL UNIQUE,
		name TEXT NOT NULL,
		phone VARCHAR(32) NOT NULL,
		email VARCHAR(255) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		approved BOOLEAN NOT NULL DEFAULT FALSE,
		available_for_assignment BOOLEAN NOT NULL DEFAULT TRUE,
		current_assignments INTEGER NOT NULL DEFAULT 0,
		completed_assignments INTEGER NOT NULL DEFAULT 0,
		total_assignments INTEGER NOT NULL DEFAULT 0,
		push_token TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS claims (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name TEXT NOT NULL,
		phone VARCHAR(32) NOT NULL,
		address TEXT NOT NULL,
		reason TEXT NOT NULL,
		status claim_status NOT NULL DEFAULT 'PENDING',
		technician_id UUID REFERENCES technicians(id) ON DELETE SET NULL,
		resolution TEXT,
		resolved_at TIMESTAMPTZ,
		received_by TEXT NOT NULL,
		notification_sent BOOLEAN NOT NULL DEFAULT FALSE,
		is_archived BOOLEAN NOT NULL DEFAULT FALSE,
		archived_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_claims_archived_at CHECK (is_archived = (archived_at IS NOT NULL))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_claims_technician_id ON claims (technician_id);`,
	`CREATE INDEX IF NOT EXISTS idx_claims_status ON claims (status);`,
	`CREATE INDEX IF NOT EXISTS idx_claims_is_archived ON claims (is_archived);`,
	`CREATE INDEX IF NOT EXISTS idx_claims_created_at_id ON claims (created_at DESC, id DESC);`,
	`CREATE TABLE IF NOT EXISTS pending_users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL,
		name TEXT NOT NULL,
		phone VARCHAR(32),
		requested_role VARCHAR(20) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS claim_events (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		claim_id UUID NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
		actor TEXT NOT NULL,
		type VARCHAR(30) NOT NULL,
		detail TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_claim_events_claim_id ON claim_events (claim_id);`,
	`CREATE OR REPLACE FUNCTION set_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_claims_updated_at') THEN
			CREATE TRIGGER trg_claims_updated_at
				BEFORE UPDATE ON claims
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_technicians_updated_at') THEN
			CREATE TRIGGER trg_technicians_updated_at
				BEFORE UPDATE ON technicians
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
