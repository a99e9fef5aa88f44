package tenant

import "time"

// Plan tiers.  Daily generator-call limits per tier live in
// internal/quota; the tenant row only records which tier applies.
const (
	PlanBasic      = "basic"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Record mirrors one row in the persistent `tenant` table.  DailyCalls and
// CallsDate together implement the lazy quota reset: CallsDate is the UTC
// calendar day the counter belongs to, and a row whose CallsDate is not
// "today" has an effective counter of zero.
type Record struct {
	ID          uint64     `db:"id"`
	Email       string     `db:"email"`
	Company     string     `db:"company"`
	Plan        string     `db:"plan"`
	DailyCalls  int        `db:"daily_calls"`
	CallsDate   *string    `db:"calls_date"` // "2006-01-02", NULL until first call
	SuspendedAt *time.Time `db:"suspended_at"`
	CreatedAt   time.Time  `db:"created_at"`
}
