// internal/wizard/session_test.go
//
// Unit-tests for the session Manager using sqlmock, plus pure tests for
// the merge and brief helpers.
//
// Run: go test ./internal/wizard -v

package wizard

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var sessionCols = []string{
	"session_id", "current_step", "fields", "completed",
	"site_id", "contact_email", "created_at", "updated_at",
}

func newManager(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewManager(sqlx.NewDb(db, "sqlmock"), zap.NewNop().Sugar()), mock
}

func sessionRow(step int, fields string, completed bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(sessionCols).
		AddRow("sess-1", step, []byte(fields), completed, nil, nil, now, now)
}

func TestCreateStartsAtStepOne(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectExec("INSERT INTO wizard_session").
		WillReturnResult(sqlmock.NewResult(1, 1))

	s, err := m.Create(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, s.Step)

	fields, err := s.FieldMap()
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestGetUnknownSession(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectQuery("(?s)SELECT .+ FROM\\s+wizard_session").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(sessionCols))

	_, err := m.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdvanceStepMergesLastWriteWins(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery("(?s)SELECT .+ FOR UPDATE").
		WithArgs("sess-1").
		WillReturnRows(sessionRow(1, `{"a":1}`, false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wizard_session")).
		WithArgs(2, []byte(`{"a":2,"b":3}`), "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s, err := m.AdvanceStep(context.Background(), "sess-1", 2,
		map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Step)

	fields, err := s.FieldMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(2), "b": float64(3)}, fields)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceStepRejectsCompletedSession(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery("(?s)SELECT .+ FOR UPDATE").
		WithArgs("sess-1").
		WillReturnRows(sessionRow(5, `{}`, true))
	mock.ExpectRollback()

	_, err := m.AdvanceStep(context.Background(), "sess-1", 3, map[string]any{"x": 1})
	assert.ErrorIs(t, err, ErrCompleted)
}

func TestAdvanceStepRejectsOutOfRangeStep(t *testing.T) {
	m, _ := newManager(t)

	_, err := m.AdvanceStep(context.Background(), "sess-1", TotalSteps+1, nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCompleteUnknownSession(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE wizard_session")).
		WithArgs(uint64(9), "owner@example.com", "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := m.Complete(context.Background(), "nope", 9, "owner@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

//
// pure helpers
//

func TestMergeCommutativePerKeyLastWriteWins(t *testing.T) {
	// Merging {a:1} then {a:2,b:3} yields {a:2,b:3} regardless of which
	// step numbers carried the submissions.
	got := Merge(map[string]any{"a": 1}, map[string]any{"a": 2, "b": 3})
	assert.Equal(t, map[string]any{"a": 2, "b": 3}, got)
}

func TestMergeIsShallow(t *testing.T) {
	dst := map[string]any{"contact": map[string]any{"phone": "1"}}
	src := map[string]any{"contact": map[string]any{"email": "x@y.z"}}
	got := Merge(dst, src)
	// One level deep only: the nested map is replaced, not deep-merged.
	assert.Equal(t, map[string]any{"email": "x@y.z"}, got["contact"])
}

func TestMergeLeavesInputsUntouched(t *testing.T) {
	dst := map[string]any{"a": 1}
	_ = Merge(dst, map[string]any{"a": 2})
	assert.Equal(t, 1, dst["a"])
}

func TestBriefRequiresNameAndType(t *testing.T) {
	_, err := Brief(map[string]any{"description": "a bakery"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"business_name", "business_type"}, verr.Missing)
}

func TestBriefMapsFields(t *testing.T) {
	b, err := Brief(map[string]any{
		"business_name": "Café Martín",
		"business_type": "bakery",
		"services":      []any{"bread", "cakes"},
		"contact":       map[string]any{"phone": "555-1234", "email": "x@y.z"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Café Martín", b.BusinessName)
	assert.Equal(t, []string{"bread", "cakes"}, b.Services)
	assert.Equal(t, "555-1234", b.Contact.Phone)
	assert.Equal(t, defaultPrimary, b.PrimaryColor, "color defaults apply when step 2 was skipped")
}
