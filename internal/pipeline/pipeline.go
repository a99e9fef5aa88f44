// internal/pipeline/pipeline.go
//
// Update pipeline.
//
// Context
// -------
// Engine is the write path for site content.  Every mutation follows the
// same shape: serialize on the site, charge quota when the generator is
// involved, run the candidate document through the sanitizer, snapshot
// the live artifact, write, and record the change in history.
//
// Quota is consumed the moment the generator is invoked.  A provider
// failure after that point does not refund the unit; the tenant paid for
// the attempt.  A history append failure is logged but never rolls back
// a completed write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/webforja/forja/internal/generator"
	"github.com/webforja/forja/internal/history"
	"github.com/webforja/forja/internal/metrics"
	"github.com/webforja/forja/internal/quota"
	"github.com/webforja/forja/internal/sanitize"
	"github.com/webforja/forja/internal/site"
	"github.com/webforja/forja/internal/snapshot"
	"github.com/webforja/forja/internal/tenant"
)

// SectionUpdate is one operator-initiated edit to a live page.
type SectionUpdate struct {
	Section     string
	NewText     string
	NewImageURL string
	Instruction string
}

// Result reports what a write-path operation did.
type Result struct {
	Usage    quota.Usage
	Findings []string // sanitizer categories detected in the candidate
	Backup   string   // snapshot taken before the write, "" when none
}

// Engine orchestrates the content write path.
type Engine struct {
	db    *sqlx.DB
	gen   generator.Generator
	quota *quota.Tracker
	log   *zap.SugaredLogger

	locks sync.Map // site ID -> *semaphore.Weighted(1)
}

// NewEngine builds an Engine on shared collaborators.
func NewEngine(db *sqlx.DB, gen generator.Generator, q *quota.Tracker, log *zap.SugaredLogger) *Engine {
	return &Engine{db: db, gen: gen, quota: q, log: log}
}

// GenerateNew produces and publishes the first document for a site from
// the wizard's brief.  One quota unit is consumed for the generator
// call; nothing is written when generation fails.
func (e *Engine) GenerateNew(ctx context.Context, rec *site.Record, ten *tenant.Record, brief generator.SiteBrief) (Result, error) {
	release, err := e.lockSite(ctx, rec.ID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	usage, err := e.consume(ctx, ten)
	if err != nil {
		return Result{Usage: usage}, err
	}

	metrics.GeneratorCallsTotal.Inc()
	raw, err := e.gen.GenerateSite(ctx, brief)
	if err != nil {
		metrics.GeneratorErrorsTotal.Inc()
		return Result{Usage: usage}, err
	}

	res, err := e.publish(ctx, rec, raw, &history.Record{
		SiteID:      rec.ID,
		ActorID:     ten.ID,
		Kind:        history.KindGeneration,
		Description: fmt.Sprintf("initial site generated for %q", brief.BusinessName),
	})
	res.Usage = usage
	return res, err
}

// ApplyTemplate publishes a curated template as the site's document.  No
// generator call happens, so no quota is consumed.
func (e *Engine) ApplyTemplate(ctx context.Context, rec *site.Record, actorID uint64, templateID uint64) (Result, error) {
	release, err := e.lockSite(ctx, rec.ID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	tpl, err := site.TemplateByID(ctx, e.db, templateID)
	if err != nil {
		return Result{}, err
	}

	return e.publish(ctx, rec, tpl.BaseHTML, &history.Record{
		SiteID:      rec.ID,
		ActorID:     actorID,
		Kind:        history.KindGeneration,
		Description: fmt.Sprintf("template %q applied", tpl.Name),
	})
}

// UpdateSection is the steady-state edit: current document plus an
// instruction become a new candidate, sanitized and published with a
// backup of the previous state.
func (e *Engine) UpdateSection(ctx context.Context, rec *site.Record, ten *tenant.Record, actorID uint64, upd SectionUpdate) (Result, error) {
	release, err := e.lockSite(ctx, rec.ID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	usage, err := e.consume(ctx, ten)
	if err != nil {
		return Result{Usage: usage}, err
	}

	st := site.StorageFor(rec)
	current := readLive(st)

	metrics.GeneratorCallsTotal.Inc()
	raw, err := e.gen.UpdateSection(ctx, generator.SectionRequest{
		CurrentHTML: current,
		Section:     upd.Section,
		NewText:     upd.NewText,
		NewImageURL: upd.NewImageURL,
		Instruction: upd.Instruction,
	})
	if err != nil {
		metrics.GeneratorErrorsTotal.Inc()
		return Result{Usage: usage}, err
	}

	section := upd.Section
	res, err := e.publish(ctx, rec, raw, &history.Record{
		SiteID:      rec.ID,
		ActorID:     actorID,
		Kind:        history.KindSectionUpdate,
		Section:     &section,
		Description: fmt.Sprintf("section %q updated", upd.Section),
	})
	res.Usage = usage
	return res, err
}

// ImproveText runs one free-standing text through the generator.  It
// consumes quota but touches no files.
func (e *Engine) ImproveText(ctx context.Context, ten *tenant.Record, text, about string) (string, quota.Usage, error) {
	usage, err := e.consume(ctx, ten)
	if err != nil {
		return "", usage, err
	}

	metrics.GeneratorCallsTotal.Inc()
	out, err := e.gen.ImproveText(ctx, text, about)
	if err != nil {
		metrics.GeneratorErrorsTotal.Inc()
		return "", usage, err
	}
	return strings.TrimSpace(out), usage, nil
}

// ListBackups lists a site's snapshots, newest first.
func (e *Engine) ListBackups(rec *site.Record) ([]snapshot.Entry, error) {
	return snapshot.List(site.StorageFor(rec))
}

// RestoreBackup copies a named backup over the live document, after a
// safety snapshot of the current state.  An unknown backup name leaves
// everything untouched.
func (e *Engine) RestoreBackup(ctx context.Context, rec *site.Record, actorID uint64, backupName string) (Result, error) {
	release, err := e.lockSite(ctx, rec.ID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	st := site.StorageFor(rec)
	before := readLive(st)

	safety, err := snapshot.Restore(st, site.IndexFile, backupName)
	if err != nil {
		return Result{}, err
	}
	metrics.RestoresTotal.Inc()

	res := Result{}
	if safety != nil {
		res.Backup = safety.Name
		metrics.SnapshotsTotal.Inc()
	}

	e.appendHistory(ctx, &history.Record{
		SiteID:        rec.ID,
		ActorID:       actorID,
		Kind:          history.KindRestore,
		BeforePreview: before,
		AfterPreview:  readLive(st),
		Description:   fmt.Sprintf("restored backup %q", backupName),
	})
	e.touch(ctx, rec.ID)
	return res, nil
}

// publish runs the common tail of every write: sanitize, snapshot,
// write, history, touch.  rec's history previews are filled here from
// the artifact before and after.
func (e *Engine) publish(ctx context.Context, rec *site.Record, raw string, hist *history.Record) (Result, error) {
	report := sanitize.Inspect(raw)
	for _, f := range report.Findings {
		metrics.SanitizerFindingsTotal.WithLabelValues(f.Category).Inc()
	}
	if len(report.Findings) > 0 {
		e.log.Warnw("sanitizer findings in candidate document",
			"site", rec.ID, "categories", report.Categories())
	}
	clean := sanitize.Clean(raw)

	st := site.StorageFor(rec)
	if err := st.EnsureLayout(); err != nil {
		return Result{}, err
	}
	before := readLive(st)

	snap, err := snapshot.CaptureIfExists(st, site.IndexFile)
	if err != nil {
		return Result{}, fmt.Errorf("capture before write: %w", err)
	}
	res := Result{Findings: report.Categories()}
	if snap != nil {
		res.Backup = snap.Name
		metrics.SnapshotsTotal.Inc()
	}

	if err := snapshot.Write(st, site.IndexFile, []byte(clean)); err != nil {
		return res, err
	}

	hist.BeforePreview = before
	hist.AfterPreview = clean
	e.appendHistory(ctx, hist)
	e.touch(ctx, rec.ID)
	return res, nil
}

// consume charges one quota unit against the tenant's plan limit.
func (e *Engine) consume(ctx context.Context, ten *tenant.Record) (quota.Usage, error) {
	usage, err := e.quota.CheckAndConsume(ctx, ten.ID, e.quota.LimitFor(ten.Plan))
	var qerr *quota.QuotaError
	if errors.As(err, &qerr) {
		metrics.QuotaRejectionsTotal.Inc()
	}
	return usage, err
}

func (e *Engine) appendHistory(ctx context.Context, rec *history.Record) {
	if err := history.Append(ctx, e.db, rec); err != nil {
		e.log.Errorw("history append failed",
			"site", rec.SiteID, "kind", rec.Kind, "error", err)
	}
}

func (e *Engine) touch(ctx context.Context, siteID uint64) {
	if err := site.Touch(ctx, e.db, siteID); err != nil {
		e.log.Errorw("site touch failed", "site", siteID, "error", err)
	}
}

// lockSite serializes writers per site.  The semaphore honors ctx, so a
// caller whose deadline expires while queued gets the context error
// instead of blocking on a slow neighbor.
func (e *Engine) lockSite(ctx context.Context, siteID uint64) (func(), error) {
	v, _ := e.locks.LoadOrStore(siteID, semaphore.NewWeighted(1))
	sem := v.(*semaphore.Weighted)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

func readLive(st site.Storage) string {
	b, err := os.ReadFile(st.LiveFile(site.IndexFile))
	if err != nil {
		return ""
	}
	return string(b)
}
