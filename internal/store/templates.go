package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CreateTemplate inserts a template and records its first version snapshot.
func (s *Store) CreateTemplate(ctx context.Context, tpl *Template) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(tpl.Name) == "" {
		return fmt.Errorf("template name required")
	}
	if len(tpl.Content) == 0 {
		return fmt.Errorf("template content required")
	}
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	tpl.Version = 1
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		insert := tx.Rebind(`INSERT INTO templates (id, firm_id, name, description, category, content, version, is_default, created_by, created_at, updated_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, insert,
			tpl.ID, tpl.FirmID, tpl.Name, tpl.Description, tpl.Category, []byte(tpl.Content),
			tpl.Version, tpl.IsDefault, tpl.CreatedBy, tpl.CreatedAt, tpl.UpdatedAt); err != nil {
			return fmt.Errorf("insert template: %w", err)
		}
		return insertTemplateVersion(ctx, tx, tpl.ID, tpl.Version, tpl.Content, tpl.CreatedBy)
	})
}

// TemplateByID retrieves a template scoped to a firm.
func (s *Store) TemplateByID(ctx context.Context, firmID, id string) (*Template, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var tpl Template
	query := s.db.Rebind(`SELECT * FROM templates WHERE id = ? AND firm_id = ? AND deleted_at IS NULL`)
	if err := s.db.GetContext(ctx, &tpl, query, id, firmID); err != nil {
		return nil, mapNotFound(err)
	}
	return &tpl, nil
}

// TemplatesForFirm lists the firm's templates, default first, then by name.
func (s *Store) TemplatesForFirm(ctx context.Context, firmID string) ([]Template, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	templates := []Template{}
	query := s.db.Rebind(`SELECT * FROM templates WHERE firm_id = ? AND deleted_at IS NULL ORDER BY is_default DESC, name`)
	if err := s.db.SelectContext(ctx, &templates, query, firmID); err != nil {
		return nil, fmt.Errorf("select templates: %w", err)
	}
	return templates, nil
}

// UpdateTemplate replaces a template's metadata and content, bumping the
// version and snapshotting the new content.
func (s *Store) UpdateTemplate(ctx context.Context, tpl *Template, updatedBy string) error {
	if err := s.ready(); err != nil {
		return err
	}
	tpl.Version++
	tpl.UpdatedAt = time.Now().UTC()
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		update := tx.Rebind(`UPDATE templates SET name = ?, description = ?, category = ?, content = ?, version = ?, is_default = ?, updated_at = ?
                        WHERE id = ? AND firm_id = ?`)
		res, err := tx.ExecContext(ctx, update,
			tpl.Name, tpl.Description, tpl.Category, []byte(tpl.Content), tpl.Version, tpl.IsDefault, tpl.UpdatedAt, tpl.ID, tpl.FirmID)
		if err != nil {
			return fmt.Errorf("update template: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return ErrNotFound
		}
		return insertTemplateVersion(ctx, tx, tpl.ID, tpl.Version, tpl.Content, updatedBy)
	})
}

// SetDefaultTemplate marks one template as the firm default and clears the
// flag on the rest.
func (s *Store) SetDefaultTemplate(ctx context.Context, firmID, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		clear := tx.Rebind(`UPDATE templates SET is_default = FALSE WHERE firm_id = ?`)
		if _, err := tx.ExecContext(ctx, clear, firmID); err != nil {
			return fmt.Errorf("clear default template: %w", err)
		}
		mark := tx.Rebind(`UPDATE templates SET is_default = TRUE WHERE id = ? AND firm_id = ? AND deleted_at IS NULL`)
		res, err := tx.ExecContext(ctx, mark, id, firmID)
		if err != nil {
			return fmt.Errorf("set default template: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteTemplate soft-deletes a template. Version history stays intact and
// letters that referenced it keep their reference.
func (s *Store) DeleteTemplate(ctx context.Context, firmID, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	query := s.db.Rebind(`UPDATE templates SET deleted_at = ?, is_default = FALSE WHERE id = ? AND firm_id = ? AND deleted_at IS NULL`)
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id, firmID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// TemplateVersions lists a template's snapshots, newest first.
func (s *Store) TemplateVersions(ctx context.Context, templateID string) ([]TemplateVersion, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	versions := []TemplateVersion{}
	query := s.db.Rebind(`SELECT * FROM template_versions WHERE template_id = ? ORDER BY version DESC`)
	if err := s.db.SelectContext(ctx, &versions, query, templateID); err != nil {
		return nil, fmt.Errorf("select template versions: %w", err)
	}
	return versions, nil
}

func insertTemplateVersion(ctx context.Context, tx *sqlx.Tx, templateID string, version int, content json.RawMessage, createdBy string) error {
	insert := tx.Rebind(`INSERT INTO template_versions (id, template_id, version, content, created_by, created_at)
                VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), templateID, version, []byte(content), createdBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert template version: %w", err)
	}
	return nil
}
