package tenant

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a tenant id is not present in the table.
var ErrNotFound = errors.New("tenant not found")

// ByID fetches a single tenant row that is not suspended.
func ByID(ctx context.Context, db *sqlx.DB, id uint64) (*Record, error) {
	const q = `
        SELECT id, email, company, plan, daily_calls, calls_date,
               suspended_at, created_at
        FROM   tenant
        WHERE  id = ?
          AND  suspended_at IS NULL
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

// Create inserts a tenant and returns its id.  Used by the wizard handoff
// when an intake session completes.
func Create(ctx context.Context, db *sqlx.DB, email, company, plan string) (uint64, error) {
	const q = `
        INSERT INTO tenant (email, company, plan, daily_calls)
        VALUES (?, ?, ?, 0)`
	res, err := db.ExecContext(ctx, q, email, company, plan)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}
