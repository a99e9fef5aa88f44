package site

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a site id or slug has no live row.
var ErrNotFound = errors.New("site not found")

// ByID fetches a single site row that is not deleted.
func ByID(ctx context.Context, db *sqlx.DB, id uint64) (*Record, error) {
	const q = `
        SELECT id, tenant_id, name, slug, domain, storage_path,
               template_id, deleted_at, created_at, updated_at
        FROM   site
        WHERE  id = ?
          AND  deleted_at IS NULL
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ByTenant returns every live site owned by a tenant, newest first.
func ByTenant(ctx context.Context, db *sqlx.DB, tenantID uint64) ([]Record, error) {
	const q = `
        SELECT id, tenant_id, name, slug, domain, storage_path,
               template_id, deleted_at, created_at, updated_at
        FROM   site
        WHERE  tenant_id = ?
          AND  deleted_at IS NULL
        ORDER  BY created_at DESC`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q, tenantID); err != nil {
		return nil, err
	}
	return rows, nil
}

// Create inserts a site row and returns its id.
func Create(ctx context.Context, db *sqlx.DB, rec *Record) (uint64, error) {
	const q = `
        INSERT INTO site (tenant_id, name, slug, domain, storage_path, template_id)
        VALUES (?, ?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, q,
		rec.TenantID, rec.Name, rec.Slug, rec.Domain, rec.StoragePath, rec.TemplateID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// Touch bumps the modification timestamp after a successful artifact write.
func Touch(ctx context.Context, db *sqlx.DB, id uint64) error {
	const q = `UPDATE site SET updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := db.ExecContext(ctx, q, id)
	return err
}

// ActiveTemplates lists templates available to the wizard, in display
// order.
func ActiveTemplates(ctx context.Context, db *sqlx.DB) ([]Template, error) {
	const q = `
        SELECT id, name, description, category, base_html, active, ordinal
        FROM   template
        WHERE  active = TRUE
        ORDER  BY ordinal`
	var rows []Template
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// TemplateByID fetches one template row.
func TemplateByID(ctx context.Context, db *sqlx.DB, id uint64) (*Template, error) {
	const q = `
        SELECT id, name, description, category, base_html, active, ordinal
        FROM   template
        WHERE  id = ?
        LIMIT  1`
	var rec Template
	if err := db.GetContext(ctx, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}
