package site

import "time"

// Record mirrors one row in the persistent `site` table.  StoragePath is
// the per-site artifact root holding `public/`, `uploads/`, and `backups/`;
// it is unique and never reused after deletion.
type Record struct {
	ID          uint64     `db:"id"`
	TenantID    uint64     `db:"tenant_id"`
	Name        string     `db:"name"`
	Slug        string     `db:"slug"`
	Domain      *string    `db:"domain"`
	StoragePath string     `db:"storage_path"`
	TemplateID  *uint64    `db:"template_id"`
	DeletedAt   *time.Time `db:"deleted_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Template mirrors one row in the `template` table: a static HTML shell a
// site can be published from without any generator call (and therefore
// without consuming quota).
type Template struct {
	ID          uint64 `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Category    string `db:"category"`
	BaseHTML    string `db:"base_html"`
	Active      bool   `db:"active"`
	Ordinal     int    `db:"ordinal"`
}
