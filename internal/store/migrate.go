package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) migrate(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.db.DriverName() == "sqlite" {
		if _, err := s.db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
			return fmt.Errorf("enable wal: %w", err)
		}
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

// schemaStatements is kept to SQL that both SQLite and PostgreSQL accept.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS firms (
                id TEXT PRIMARY KEY,
                name TEXT NOT NULL,
                address TEXT NOT NULL DEFAULT '',
                phone TEXT NOT NULL DEFAULT '',
                email TEXT NOT NULL DEFAULT '',
                created_at TIMESTAMP NOT NULL,
                updated_at TIMESTAMP NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS users (
                id TEXT PRIMARY KEY,
                firm_id TEXT NOT NULL REFERENCES firms(id) ON DELETE CASCADE,
                email TEXT NOT NULL UNIQUE,
                password_hash TEXT NOT NULL,
                first_name TEXT NOT NULL DEFAULT '',
                last_name TEXT NOT NULL DEFAULT '',
                role TEXT NOT NULL DEFAULT 'attorney',
                active BOOLEAN NOT NULL DEFAULT TRUE,
                created_at TIMESTAMP NOT NULL,
                updated_at TIMESTAMP NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS sessions (
                token TEXT PRIMARY KEY,
                user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
                expires_at TIMESTAMP NOT NULL,
                created_at TIMESTAMP NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS invitations (
                id TEXT PRIMARY KEY,
                firm_id TEXT NOT NULL REFERENCES firms(id) ON DELETE CASCADE,
                email TEXT NOT NULL,
                role TEXT NOT NULL DEFAULT 'attorney',
                token TEXT NOT NULL UNIQUE,
                invited_by TEXT NOT NULL,
                expires_at TIMESTAMP NOT NULL,
                accepted_at TIMESTAMP,
                created_at TIMESTAMP NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS templates (
                id TEXT PRIMARY KEY,
                firm_id TEXT NOT NULL REFERENCES firms(id) ON DELETE CASCADE,
                name TEXT NOT NULL,
                description TEXT NOT NULL DEFAULT '',
                category TEXT NOT NULL DEFAULT '',
                content TEXT NOT NULL,
                version INTEGER NOT NULL DEFAULT 1,
                is_default BOOLEAN NOT NULL DEFAULT FALSE,
                created_by TEXT NOT NULL,
                created_at TIMESTAMP NOT NULL,
                updated_at TIMESTAMP NOT NULL,
                deleted_at TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS template_versions (
                id TEXT PRIMARY KEY,
                template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
                version INTEGER NOT NULL,
                content TEXT NOT NULL,
                created_by TEXT NOT NULL,
                created_at TIMESTAMP NOT NULL,
                UNIQUE(template_id, version)
        );`,
	`CREATE TABLE IF NOT EXISTS letters (
                id TEXT PRIMARY KEY,
                firm_id TEXT NOT NULL REFERENCES firms(id) ON DELETE CASCADE,
                template_id TEXT,
                client_name TEXT NOT NULL,
                defendant_name TEXT NOT NULL DEFAULT '',
                case_reference TEXT NOT NULL DEFAULT '',
                incident_date TIMESTAMP,
                demand_amount DOUBLE PRECISION,
                injuries TEXT NOT NULL DEFAULT '',
                damages TEXT NOT NULL DEFAULT '',
                content TEXT NOT NULL DEFAULT '',
                status TEXT NOT NULL DEFAULT 'Draft',
                version INTEGER NOT NULL DEFAULT 1,
                created_by TEXT NOT NULL,
                created_at TIMESTAMP NOT NULL,
                updated_at TIMESTAMP NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS letter_versions (
                id TEXT PRIMARY KEY,
                letter_id TEXT NOT NULL REFERENCES letters(id) ON DELETE CASCADE,
                version INTEGER NOT NULL,
                content TEXT NOT NULL,
                note TEXT NOT NULL DEFAULT '',
                created_by TEXT NOT NULL,
                created_at TIMESTAMP NOT NULL,
                UNIQUE(letter_id, version)
        );`,
	`CREATE TABLE IF NOT EXISTS source_documents (
                id TEXT PRIMARY KEY,
                letter_id TEXT NOT NULL REFERENCES letters(id) ON DELETE CASCADE,
                file_name TEXT NOT NULL,
                file_path TEXT NOT NULL,
                mime_type TEXT NOT NULL,
                size_bytes BIGINT NOT NULL DEFAULT 0,
                extracted_text TEXT NOT NULL DEFAULT '',
                created_at TIMESTAMP NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS generation_records (
                id TEXT PRIMARY KEY,
                letter_id TEXT NOT NULL REFERENCES letters(id) ON DELETE CASCADE,
                provider TEXT NOT NULL,
                model TEXT NOT NULL,
                input_tokens INTEGER NOT NULL DEFAULT 0,
                output_tokens INTEGER NOT NULL DEFAULT 0,
                cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
                duration_ms BIGINT NOT NULL DEFAULT 0,
                status TEXT NOT NULL,
                error_kind TEXT NOT NULL DEFAULT '',
                created_at TIMESTAMP NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS export_records (
                id TEXT PRIMARY KEY,
                letter_id TEXT NOT NULL REFERENCES letters(id) ON DELETE CASCADE,
                file_path TEXT NOT NULL,
                format TEXT NOT NULL DEFAULT 'docx',
                exported_by TEXT NOT NULL,
                created_at TIMESTAMP NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_users_firm ON users(firm_id);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_firm ON invitations(firm_id);`,
	`CREATE INDEX IF NOT EXISTS idx_templates_firm ON templates(firm_id);`,
	`CREATE INDEX IF NOT EXISTS idx_template_versions_template ON template_versions(template_id, version);`,
	`CREATE INDEX IF NOT EXISTS idx_letters_firm_status ON letters(firm_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_letters_firm_updated ON letters(firm_id, updated_at);`,
	`CREATE INDEX IF NOT EXISTS idx_letter_versions_letter ON letter_versions(letter_id, version);`,
	`CREATE INDEX IF NOT EXISTS idx_source_documents_letter ON source_documents(letter_id);`,
	`CREATE INDEX IF NOT EXISTS idx_generation_records_letter ON generation_records(letter_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_export_records_letter ON export_records(letter_id, created_at);`,
}
