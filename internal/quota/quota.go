// internal/quota/quota.go
//
// Daily generator-call quota, per tenant.
//
// Context
// -------
// Quota bounds the cost of calls to the expensive external generator, so
// it is conservative: rejections on ties, and no state mutation on a
// rejected check.  The counter lives on the tenant row together with its
// UTC calendar-day stamp; a row stamped with an older day has an effective
// counter of zero.  The reset is lazy — it happens inside the next
// CheckAndConsume, never via a background timer.
//
// Concurrency
// -----------
// The check-then-increment is one critical section per tenant: a
// per-tenant in-process mutex plus a SELECT … FOR UPDATE transaction, so
// two simultaneous requests can never both observe "under limit" before
// either increments.
//
// All date arithmetic is UTC, fixed, by contract.
package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/webforja/forja/internal/tenant"
)

const dayFormat = "2006-01-02"

// DefaultDailyLimits are the per-plan presets, overridable via the quota
// config section.
var DefaultDailyLimits = map[string]int{
	tenant.PlanBasic:      20,
	tenant.PlanPro:        100,
	tenant.PlanEnterprise: 500,
}

// Usage is a tenant's consumption for one UTC day.
type Usage struct {
	Used  int
	Limit int
	Day   string // "2006-01-02", UTC
}

// Remaining never goes below zero.
func (u Usage) Remaining() int {
	if r := u.Limit - u.Used; r > 0 {
		return r
	}
	return 0
}

// QuotaError reports a rejected consumption attempt.  It is an expected
// outcome, not a system fault; RetryAfter points at the next UTC midnight.
type QuotaError struct {
	TenantID   uint64
	Used       int
	Limit      int
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("daily generation limit reached (%d of %d)", e.Used, e.Limit)
}

// Tracker owns quota state access.  Construct once at boot and inject.
type Tracker struct {
	db     *sqlx.DB
	limits map[string]int
	log    *zap.SugaredLogger
	now    func() time.Time

	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

// NewTracker builds a Tracker.  limits overrides the per-plan presets for
// the plans it names; nil keeps every preset.
func NewTracker(db *sqlx.DB, limits map[string]int, log *zap.SugaredLogger) *Tracker {
	merged := make(map[string]int, len(DefaultDailyLimits))
	for plan, n := range DefaultDailyLimits {
		merged[plan] = n
	}
	for plan, n := range limits {
		merged[plan] = n
	}
	return &Tracker{
		db:     db,
		limits: merged,
		log:    log,
		now:    time.Now,
		locks:  make(map[uint64]*sync.Mutex),
	}
}

// LimitFor maps a plan tier to its daily limit, falling back to the basic
// preset for unknown tiers.
func (t *Tracker) LimitFor(plan string) int {
	if n, ok := t.limits[plan]; ok {
		return n
	}
	return DefaultDailyLimits[tenant.PlanBasic]
}

// CheckAndConsume atomically consumes one quota unit, returning the
// resulting usage.  When the effective counter has already reached limit,
// it returns a *QuotaError and leaves state untouched.
func (t *Tracker) CheckAndConsume(ctx context.Context, tenantID uint64, limit int) (Usage, error) {
	lock := t.lockFor(tenantID)
	lock.Lock()
	defer lock.Unlock()

	today := t.now().UTC().Format(dayFormat)

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return Usage{}, fmt.Errorf("quota tx begin: %w", err)
	}
	defer tx.Rollback()

	var row struct {
		Calls int     `db:"daily_calls"`
		Day   *string `db:"calls_date"`
	}
	const sel = `SELECT daily_calls, calls_date FROM tenant WHERE id = ? FOR UPDATE`
	if err := tx.GetContext(ctx, &row, sel, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Usage{}, tenant.ErrNotFound
		}
		return Usage{}, fmt.Errorf("quota read: %w", err)
	}

	effective := 0
	if row.Day != nil && *row.Day == today {
		effective = row.Calls
	}

	if effective >= limit {
		// Reject without mutating; the implicit rollback discards the lock.
		return Usage{Used: effective, Limit: limit, Day: today}, &QuotaError{
			TenantID:   tenantID,
			Used:       effective,
			Limit:      limit,
			RetryAfter: untilNextUTCDay(t.now),
		}
	}

	const upd = `UPDATE tenant SET daily_calls = ?, calls_date = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, effective+1, today, tenantID); err != nil {
		return Usage{}, fmt.Errorf("quota increment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Usage{}, fmt.Errorf("quota commit: %w", err)
	}

	t.log.Debugw("quota unit consumed",
		"tenant", tenantID, "used", effective+1, "limit", limit)
	return Usage{Used: effective + 1, Limit: limit, Day: today}, nil
}

// Usage reads current consumption without consuming, for UI display.
func (t *Tracker) Usage(ctx context.Context, tenantID uint64, limit int) (Usage, error) {
	var row struct {
		Calls int     `db:"daily_calls"`
		Day   *string `db:"calls_date"`
	}
	const q = `SELECT daily_calls, calls_date FROM tenant WHERE id = ?`
	if err := t.db.GetContext(ctx, &row, q, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Usage{}, tenant.ErrNotFound
		}
		return Usage{}, fmt.Errorf("quota read: %w", err)
	}

	today := t.now().UTC().Format(dayFormat)
	used := 0
	if row.Day != nil && *row.Day == today {
		used = row.Calls
	}
	return Usage{Used: used, Limit: limit, Day: today}, nil
}

func (t *Tracker) lockFor(tenantID uint64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[tenantID] = l
	}
	return l
}

func untilNextUTCDay(now func() time.Time) time.Duration {
	n := now().UTC()
	midnight := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return midnight.Sub(n)
}
