// internal/history/history_test.go
//
// Unit-tests for history helpers using sqlmock.
//
// Run: go test ./internal/history -v

package history

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func TestAppendTruncatesPreviews(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	long := strings.Repeat("x", PreviewLimit+500)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO change_history")).
		WithArgs(uint64(3), uint64(1), KindSectionUpdate, "hero",
			long[:PreviewLimit], long[:PreviewLimit], "reworded the headline").
		WillReturnResult(sqlmock.NewResult(1, 1))

	section := "hero"
	err = Append(context.Background(), sqlx.NewDb(db, "sqlmock"), &Record{
		SiteID:        3,
		ActorID:       1,
		Kind:          KindSectionUpdate,
		Section:       &section,
		BeforePreview: long,
		AfterPreview:  long,
		Description:   "reworded the headline",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestPreviewShortStringUntouched(t *testing.T) {
	if got := Preview("short"); got != "short" {
		t.Fatalf("unexpected preview %q", got)
	}
}

func TestPreviewBacksOffToRuneBoundary(t *testing.T) {
	// 'é' is two bytes and straddles the limit; a byte slice would store
	// invalid UTF-8 and lose the audit row on utf8mb4 columns.
	s := strings.Repeat("a", PreviewLimit-1) + "é more"

	got := Preview(s)
	if !utf8.ValidString(got) {
		t.Fatalf("preview is not valid UTF-8: %q", got[len(got)-4:])
	}
	if len(got) > PreviewLimit {
		t.Fatalf("preview length %d exceeds limit %d", len(got), PreviewLimit)
	}
	if got != strings.Repeat("a", PreviewLimit-1) {
		t.Fatalf("unexpected cut point, tail %q", got[len(got)-4:])
	}
}

func TestBySiteDefaultsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("(?s)SELECT .+ FROM\\s+change_history").
		WithArgs(uint64(3), 50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "site_id", "actor_id", "kind", "section",
			"before_preview", "after_preview", "description", "created_at",
		}))

	if _, err := BySite(context.Background(), sqlx.NewDb(db, "sqlmock"), 3, 0); err != nil {
		t.Fatalf("BySite: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
