package db

import (
	"fmt"

	"gorm.io/gorm"
)

// Statements must stay idempotent; they run on every start.
var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS municipalities (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		admin_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_municipalities_name ON municipalities (name);`,
	`CREATE TABLE IF NOT EXISTS municipality_boundaries (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		municipality_id UUID NOT NULL UNIQUE REFERENCES municipalities(id) ON DELETE CASCADE,
		geometry JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name VARCHAR(255),
		role VARCHAR(20) NOT NULL,
		municipality_id UUID REFERENCES municipalities(id) ON DELETE SET NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_role_check CHECK (role IN ('citizen', 'operator', 'manager', 'admin'))
	);`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'users_staff_municipality_check') THEN
			ALTER TABLE users ADD CONSTRAINT users_staff_municipality_check
				CHECK (role IN ('citizen', 'admin') OR municipality_id IS NOT NULL);
		END IF;
	END
	$$;`,
	`CREATE INDEX IF NOT EXISTS idx_users_role ON users (role);`,
	`CREATE INDEX IF NOT EXISTS idx_users_municipality_id ON users (municipality_id);`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		municipality_id UUID NOT NULL REFERENCES municipalities(id),
		citizen_id UUID REFERENCES users(id) ON DELETE SET NULL,
		is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
		assigned_operator_id UUID REFERENCES users(id),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		category VARCHAR(32) NOT NULL,
		title VARCHAR(200) NOT NULL,
		description TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		address TEXT,
		completed_at TIMESTAMPTZ,
		rejected_at TIMESTAMPTZ,
		rejection_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT tickets_status_check CHECK (status IN ('pending', 'in_progress', 'completed', 'rejected')),
		CONSTRAINT tickets_latitude_check CHECK (latitude BETWEEN -90 AND 90),
		CONSTRAINT tickets_longitude_check CHECK (longitude BETWEEN -180 AND 180)
	);`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'tickets_assignment_status_check') THEN
			ALTER TABLE tickets ADD CONSTRAINT tickets_assignment_status_check
				CHECK ((assigned_operator_id IS NOT NULL) = (status IN ('in_progress', 'completed')));
		END IF;
	END
	$$;`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_municipality_id ON tickets (municipality_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets (status);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_citizen_id ON tickets (citizen_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_assigned_operator_id ON tickets (assigned_operator_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets (created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_location ON tickets (latitude, longitude);`,
	`CREATE TABLE IF NOT EXISTS ticket_assignments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		ticket_id UUID NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
		operator_id UUID NOT NULL REFERENCES users(id),
		assigned_by UUID NOT NULL REFERENCES users(id),
		assigned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		unassigned_at TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_ticket_assignments_ticket_id ON ticket_assignments (ticket_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_ticket_assignments_active ON ticket_assignments (ticket_id) WHERE is_active;`,
	`CREATE TABLE IF NOT EXISTS ticket_comments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		ticket_id UUID NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
		author_id UUID REFERENCES users(id) ON DELETE SET NULL,
		author_role VARCHAR(20) NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_ticket_comments_ticket_id ON ticket_comments (ticket_id);`,
	`CREATE TABLE IF NOT EXISTS ticket_feedback (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		ticket_id UUID NOT NULL UNIQUE REFERENCES tickets(id) ON DELETE CASCADE,
		citizen_id UUID NOT NULL REFERENCES users(id),
		rating SMALLINT NOT NULL,
		comment TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT ticket_feedback_rating_check CHECK (rating BETWEEN 1 AND 5)
	);`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type VARCHAR(20) NOT NULL,
		message TEXT NOT NULL,
		ticket_id UUID REFERENCES tickets(id) ON DELETE SET NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT notifications_type_check CHECK (type IN ('info', 'warning', 'success', 'error'))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_created_at ON notifications (created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications (read);`,
	`CREATE TABLE IF NOT EXISTS notification_preferences (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		channels JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS media_files (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		ticket_id UUID NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
		uploaded_by UUID NOT NULL REFERENCES users(id),
		filename VARCHAR(255) NOT NULL,
		stored_filename VARCHAR(255) NOT NULL,
		mime_type VARCHAR(100),
		size BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_media_files_ticket_id ON media_files (ticket_id);`,
	`CREATE OR REPLACE FUNCTION set_updated_at() RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	DECLARE
		tbl TEXT;
	BEGIN
		FOREACH tbl IN ARRAY ARRAY['municipalities', 'municipality_boundaries', 'users', 'tickets', 'notification_preferences'] LOOP
			IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_' || tbl || '_updated_at') THEN
				EXECUTE format('CREATE TRIGGER %I BEFORE UPDATE ON %I FOR EACH ROW EXECUTE FUNCTION set_updated_at()', 'trg_' || tbl || '_updated_at', tbl);
			END IF;
		END LOOP;
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
