package pipeline

import (
	"context"
	"os"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webforja/forja/internal/generator"
	"github.com/webforja/forja/internal/quota"
	"github.com/webforja/forja/internal/site"
	"github.com/webforja/forja/internal/snapshot"
	"github.com/webforja/forja/internal/tenant"
)

// fakeGen scripts the generator collaborator.
type fakeGen struct {
	calls int
	html  string
	err   error
}

func (f *fakeGen) GenerateSite(ctx context.Context, brief generator.SiteBrief) (string, error) {
	f.calls++
	return f.html, f.err
}

func (f *fakeGen) UpdateSection(ctx context.Context, req generator.SectionRequest) (string, error) {
	f.calls++
	return f.html, f.err
}

func (f *fakeGen) ImproveText(ctx context.Context, text, about string) (string, error) {
	f.calls++
	return f.html, f.err
}

func newEngine(t *testing.T, gen generator.Generator, limits map[string]int) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	db := sqlx.NewDb(raw, "mysql")
	log := zap.NewNop().Sugar()
	return NewEngine(db, gen, quota.NewTracker(db, limits, log), log), mock
}

func testSite(t *testing.T) *site.Record {
	t.Helper()
	return &site.Record{ID: 10, TenantID: 1, Name: "Cafe Azul", Slug: "cafe-azul", StoragePath: t.TempDir()}
}

func testTenant() *tenant.Record {
	return &tenant.Record{ID: 1, Email: "owner@example.com", Plan: tenant.PlanBasic}
}

func today() string { return time.Now().UTC().Format("2006-01-02") }

// expectConsume scripts one successful quota unit: used calls so far on
// today's counter, below limit.
func expectConsume(mock sqlmock.Sqlmock, used int) {
	day := today()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT daily_calls, calls_date FROM tenant WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"daily_calls", "calls_date"}).AddRow(used, day))
	mock.ExpectExec(`UPDATE tenant SET daily_calls = \?, calls_date = \? WHERE id = \?`).
		WithArgs(used+1, day, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

// expectReject scripts a quota read that is already at limit.
func expectReject(mock sqlmock.Sqlmock, used int) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT daily_calls, calls_date FROM tenant WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"daily_calls", "calls_date"}).AddRow(used, today()))
	mock.ExpectRollback()
}

func expectPublishTail(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`(?s)INSERT INTO change_history`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE site SET updated_at = UTC_TIMESTAMP\(\) WHERE id = \?`).
		WithArgs(uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func readIndex(t *testing.T, rec *site.Record) string {
	t.Helper()
	b, err := os.ReadFile(site.StorageFor(rec).LiveFile(site.IndexFile))
	require.NoError(t, err)
	return string(b)
}

func TestUpdateSectionLimitEnforced(t *testing.T) {
	gen := &fakeGen{html: "<html><body>v</body></html>"}
	eng, mock := newEngine(t, gen, map[string]int{tenant.PlanBasic: 2})
	rec, ten := testSite(t), testTenant()

	expectConsume(mock, 0)
	expectPublishTail(mock)
	expectConsume(mock, 1)
	expectPublishTail(mock)
	expectReject(mock, 2)

	upd := SectionUpdate{Section: "hero", Instruction: "shorter headline"}

	_, err := eng.UpdateSection(context.Background(), rec, ten, ten.ID, upd)
	require.NoError(t, err)
	_, err = eng.UpdateSection(context.Background(), rec, ten, ten.ID, upd)
	require.NoError(t, err)

	_, err = eng.UpdateSection(context.Background(), rec, ten, ten.ID, upd)
	var qerr *quota.QuotaError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 2, qerr.Used)
	assert.Equal(t, 2, gen.calls, "rejected call must not reach the generator")
	assert.Equal(t, "<html><body>v</body></html>", readIndex(t, rec), "artifact unchanged by the rejected call")

	// Two writes over an initially empty site leave one backup.
	entries, err := eng.ListBackups(rec)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateNewFailureConsumesQuotaWritesNothing(t *testing.T) {
	gen := &fakeGen{err: &generator.GenerationError{Op: "generate_site", Err: context.DeadlineExceeded}}
	eng, mock := newEngine(t, gen, nil)
	rec, ten := testSite(t), testTenant()

	expectConsume(mock, 0)

	res, err := eng.GenerateNew(context.Background(), rec, ten, generator.SiteBrief{BusinessName: "Cafe Azul", BusinessType: "cafe"})
	var gerr *generator.GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 1, res.Usage.Used, "quota unit stays consumed after failure")

	_, statErr := os.Stat(site.StorageFor(rec).LiveFile(site.IndexFile))
	assert.True(t, os.IsNotExist(statErr), "no artifact may exist after a failed generation")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSectionTimeoutOnFreshSite(t *testing.T) {
	gen := &fakeGen{err: &generator.GenerationError{Op: "update_section", Err: context.DeadlineExceeded}}
	eng, mock := newEngine(t, gen, nil)
	rec, ten := testSite(t), testTenant()

	expectConsume(mock, 0)

	res, err := eng.UpdateSection(context.Background(), rec, ten, ten.ID, SectionUpdate{Section: "hero"})
	var gerr *generator.GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 1, res.Usage.Used)

	st := site.StorageFor(rec)
	_, statErr := os.Stat(st.LiveFile(site.IndexFile))
	assert.True(t, os.IsNotExist(statErr), "no live artifact after a failed first edit")
	entries, err := eng.ListBackups(rec)
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSectionSanitizesCandidate(t *testing.T) {
	gen := &fakeGen{html: `<html><body><script src="https://evil.example/x.js"></script><p onclick="x()">hi</p></body></html>`}
	eng, mock := newEngine(t, gen, nil)
	rec, ten := testSite(t), testTenant()

	expectConsume(mock, 0)
	expectPublishTail(mock)

	res, err := eng.UpdateSection(context.Background(), rec, ten, ten.ID, SectionUpdate{Section: "hero"})
	require.NoError(t, err)
	assert.Contains(t, res.Findings, "script")
	assert.Contains(t, res.Findings, "event-handler")

	got := readIndex(t, rec)
	assert.NotContains(t, got, "<script", "scripts are removed")
	assert.Contains(t, got, "onclick", "non-script findings are reported, not stripped")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRestoreUnknownBackupLeavesSiteUntouched(t *testing.T) {
	eng, mock := newEngine(t, &fakeGen{}, nil)
	rec := testSite(t)

	st := site.StorageFor(rec)
	require.NoError(t, st.EnsureLayout())
	require.NoError(t, os.WriteFile(st.LiveFile(site.IndexFile), []byte("<html>live</html>"), 0o644))

	_, err := eng.RestoreBackup(context.Background(), rec, 1, "index.html.2020-01-01T00-00-00-000Z.bak")
	require.ErrorIs(t, err, snapshot.ErrNotFound)

	assert.Equal(t, "<html>live</html>", readIndex(t, rec))
	entries, err := eng.ListBackups(rec)
	require.NoError(t, err)
	assert.Empty(t, entries, "no safety snapshot for a failed restore")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRestoreRoundTrip(t *testing.T) {
	gen := &fakeGen{html: "<html>v2</html>"}
	eng, mock := newEngine(t, gen, nil)
	rec, ten := testSite(t), testTenant()

	st := site.StorageFor(rec)
	require.NoError(t, st.EnsureLayout())
	require.NoError(t, os.WriteFile(st.LiveFile(site.IndexFile), []byte("<html>v1</html>"), 0o644))

	expectConsume(mock, 0)
	expectPublishTail(mock)
	res, err := eng.UpdateSection(context.Background(), rec, ten, ten.ID, SectionUpdate{Section: "hero"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Backup)
	require.Equal(t, "<html>v2</html>", readIndex(t, rec))

	// history + touch for the restore
	mock.ExpectExec(`(?s)INSERT INTO change_history`).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(`UPDATE site SET updated_at = UTC_TIMESTAMP\(\) WHERE id = \?`).
		WithArgs(uint64(10)).WillReturnResult(sqlmock.NewResult(0, 1))

	rres, err := eng.RestoreBackup(context.Background(), rec, ten.ID, res.Backup)
	require.NoError(t, err)
	assert.Equal(t, "<html>v1</html>", readIndex(t, rec))
	assert.Contains(t, rres.Backup, "pre-restore-", "restore snapshots the replaced state")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTemplateSkipsQuota(t *testing.T) {
	eng, mock := newEngine(t, &fakeGen{}, nil)
	rec := testSite(t)

	cols := []string{"id", "name", "description", "category", "base_html", "active", "ordinal"}
	mock.ExpectQuery(`(?s)SELECT .+ FROM\s+template`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "Launch", "", "business", "<html>tpl</html>", true, 1))
	expectPublishTail(mock)

	_, err := eng.ApplyTemplate(context.Background(), rec, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "<html>tpl</html>", readIndex(t, rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImproveText(t *testing.T) {
	gen := &fakeGen{html: "  Crisp copy.  "}
	eng, mock := newEngine(t, gen, nil)

	expectConsume(mock, 4)

	out, usage, err := eng.ImproveText(context.Background(), testTenant(), "copy", "hero headline")
	require.NoError(t, err)
	assert.Equal(t, "Crisp copy.", out)
	assert.Equal(t, 5, usage.Used)

	require.NoError(t, mock.ExpectationsWereMet())
}
