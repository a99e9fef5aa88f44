// internal/wizard/session.go
//
// Multi-step intake sessions.
//
// Context
// -------
// The wizard walks an operator through five steps, accumulating a site
// specification as a free-form field map.  Each step performs a shallow
// last-write-wins merge, so replaying a step is idempotent for the fields
// it supplies and out-of-order submissions are accepted rather than
// rejected.  Once completed (site created, contact recorded) a session is
// read-only.
//
// Every mutation is one transaction: a field update either fully applies
// or fully fails.
package wizard

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// TotalSteps is the number of wizard steps (business info, template and
// colors, services, contact, media).
const TotalSteps = 5

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")

	// ErrCompleted is returned when a caller tries to mutate a completed
	// (read-only) session.
	ErrCompleted = errors.New("session already completed")
)

// Session mirrors one row in the `wizard_session` table.  Fields are kept
// as a JSON blob; FieldMap decodes it on demand.
type Session struct {
	ID           string     `db:"session_id"`
	Step         int        `db:"current_step"`
	FieldsJSON   []byte     `db:"fields"`
	Completed    bool       `db:"completed"`
	SiteID       *uint64    `db:"site_id"`
	ContactEmail *string    `db:"contact_email"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// FieldMap decodes the accumulated fields.  A fresh session decodes to an
// empty map.
func (s *Session) FieldMap() (map[string]any, error) {
	m := make(map[string]any)
	if len(s.FieldsJSON) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(s.FieldsJSON, &m); err != nil {
		return nil, fmt.Errorf("decode session fields: %w", err)
	}
	return m, nil
}

// Manager owns session persistence.  Construct once at boot and inject.
type Manager struct {
	db  *sqlx.DB
	log *zap.SugaredLogger
}

// NewManager builds a Manager.
func NewManager(db *sqlx.DB, log *zap.SugaredLogger) *Manager {
	return &Manager{db: db, log: log}
}

const selectCols = `session_id, current_step, fields, completed, site_id,
               contact_email, created_at, updated_at`

// Create allocates a new session at step 1 with an empty field map.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	const q = `
        INSERT INTO wizard_session (session_id, current_step, fields, completed)
        VALUES (?, 1, '{}', FALSE)`
	if _, err := m.db.ExecContext(ctx, q, id); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	m.log.Debugw("wizard session created", "session", id)
	return &Session{ID: id, Step: 1, FieldsJSON: []byte("{}")}, nil
}

// Get fetches a session by id.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	const q = `
        SELECT ` + selectCols + `
        FROM   wizard_session
        WHERE  session_id = ?
        LIMIT  1`
	var s Session
	if err := m.db.GetContext(ctx, &s, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// AdvanceStep merges fields into the session's accumulated map (new keys
// added, existing keys overwritten) and records the step number.  The
// whole operation is one transaction.
func (m *Manager) AdvanceStep(ctx context.Context, id string, step int, fields map[string]any) (*Session, error) {
	if step < 1 || step > TotalSteps {
		return nil, &ValidationError{Missing: nil, Reason: fmt.Sprintf("step %d out of range 1..%d", step, TotalSteps)}
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("session tx begin: %w", err)
	}
	defer tx.Rollback()

	const sel = `
        SELECT ` + selectCols + `
        FROM   wizard_session
        WHERE  session_id = ?
        FOR UPDATE`
	var s Session
	if err := tx.GetContext(ctx, &s, sel, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if s.Completed {
		return nil, ErrCompleted
	}

	current, err := s.FieldMap()
	if err != nil {
		return nil, err
	}
	merged := Merge(current, fields)
	blob, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode session fields: %w", err)
	}

	const upd = `
        UPDATE wizard_session
        SET    current_step = ?, fields = ?, updated_at = UTC_TIMESTAMP()
        WHERE  session_id = ?`
	if _, err := tx.ExecContext(ctx, upd, step, blob, id); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("session commit: %w", err)
	}

	s.Step = step
	s.FieldsJSON = blob
	return &s, nil
}

// Complete marks the session completed and stamps it with the site it
// produced plus a contact identifier.  Fields are read-only afterwards.
func (m *Manager) Complete(ctx context.Context, id string, siteID uint64, contactEmail string) error {
	const q = `
        UPDATE wizard_session
        SET    completed = TRUE, site_id = ?, contact_email = ?,
               updated_at = UTC_TIMESTAMP()
        WHERE  session_id = ?`
	res, err := m.db.ExecContext(ctx, q, siteID, contactEmail, id)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	m.log.Infow("wizard session completed", "session", id, "site", siteID)
	return nil
}

// Merge is the shallow last-write-wins field merge: keys from src are
// copied over dst, one level deep.  Commutative per key in the sense that
// the last writer of a key wins regardless of step ordering.
func Merge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}
