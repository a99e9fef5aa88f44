// Package history is the append-only audit log for content mutations.
// Records are never updated or deleted by normal operation; they ride
// along with their site and are cascade-deleted with it.
package history

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
)

// Mutation kinds.
const (
	KindGeneration    = "generation"
	KindSectionUpdate = "section_update"
	KindRestore       = "restore"
)

// PreviewLimit bounds the stored before/after excerpts.
const PreviewLimit = 1000

// Record mirrors one row in the `change_history` table.
type Record struct {
	ID            uint64    `db:"id"`
	SiteID        uint64    `db:"site_id"`
	ActorID       uint64    `db:"actor_id"`
	Kind          string    `db:"kind"`
	Section       *string   `db:"section"`
	BeforePreview string    `db:"before_preview"`
	AfterPreview  string    `db:"after_preview"`
	Description   string    `db:"description"`
	CreatedAt     time.Time `db:"created_at"`
}

// Append writes one audit row.  Previews are truncated to PreviewLimit
// before storage.
func Append(ctx context.Context, db *sqlx.DB, rec *Record) error {
	const q = `
        INSERT INTO change_history
               (site_id, actor_id, kind, section, before_preview,
                after_preview, description)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, q,
		rec.SiteID, rec.ActorID, rec.Kind, rec.Section,
		Preview(rec.BeforePreview), Preview(rec.AfterPreview), rec.Description)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// BySite lists the newest records for one site.
func BySite(ctx context.Context, db *sqlx.DB, siteID uint64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
        SELECT id, site_id, actor_id, kind, section, before_preview,
               after_preview, description, created_at
        FROM   change_history
        WHERE  site_id = ?
        ORDER  BY created_at DESC, id DESC
        LIMIT  ?`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q, siteID, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

// Preview bounds an excerpt to PreviewLimit bytes.
func Preview(s string) string {
	if len(s) <= PreviewLimit {
		return s
	}
	// Back off to a rune boundary so the stored preview stays valid
	// UTF-8; a split multi-byte rune is rejected by utf8mb4 columns.
	cut := PreviewLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
