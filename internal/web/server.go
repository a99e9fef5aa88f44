// internal/web/server.go
//
// HTTP API.
//
// Context
// -------
// One chi router serves three audiences: the wizard (session intake and
// first publish), the dashboard (content updates, backups, history,
// quota), and published pages reporting visits.  Dashboard and content
// routes resolve the tenant from the X-Tenant-ID header; the visit
// beacon and the wizard start are open.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/webforja/forja/internal/generator"
	"github.com/webforja/forja/internal/pipeline"
	"github.com/webforja/forja/internal/quota"
	"github.com/webforja/forja/internal/site"
	"github.com/webforja/forja/internal/snapshot"
	"github.com/webforja/forja/internal/stats"
	"github.com/webforja/forja/internal/tenant"
	"github.com/webforja/forja/internal/wizard"
)

// Pipeline is the slice of the update engine the handlers need.
type Pipeline interface {
	GenerateNew(ctx context.Context, rec *site.Record, ten *tenant.Record, brief generator.SiteBrief) (pipeline.Result, error)
	ApplyTemplate(ctx context.Context, rec *site.Record, actorID, templateID uint64) (pipeline.Result, error)
	UpdateSection(ctx context.Context, rec *site.Record, ten *tenant.Record, actorID uint64, upd pipeline.SectionUpdate) (pipeline.Result, error)
	ImproveText(ctx context.Context, ten *tenant.Record, text, about string) (string, quota.Usage, error)
	ListBackups(rec *site.Record) ([]snapshot.Entry, error)
	RestoreBackup(ctx context.Context, rec *site.Record, actorID uint64, backupName string) (pipeline.Result, error)
}

// Server bundles the collaborators behind the HTTP API.
type Server struct {
	db       *sqlx.DB
	pipe     Pipeline
	sessions *wizard.Manager
	quota    *quota.Tracker
	stats    *stats.Recorder
	sitesDir string
	log      *zap.SugaredLogger
}

// NewServer builds a Server.  sitesDir is the root under which each new
// site's storage tree is created.
func NewServer(db *sqlx.DB, pipe Pipeline, sessions *wizard.Manager, q *quota.Tracker, rec *stats.Recorder, sitesDir string, log *zap.SugaredLogger) *Server {
	return &Server{
		db:       db,
		pipe:     pipe,
		sessions: sessions,
		quota:    q,
		stats:    rec,
		sitesDir: sitesDir,
		log:      log,
	}
}

// Router assembles the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	r.Handle("/metrics", promhttp.Handler())
	r.Post("/visit/{siteID}", s.handleVisit)

	r.Route("/api", func(r chi.Router) {
		r.Route("/wizard", func(r chi.Router) {
			r.Post("/", s.handleWizardStart)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleWizardGet)
				r.Post("/step", s.handleWizardStep)
				r.Post("/finalize", s.handleWizardFinalize)
				r.Post("/generate", s.handleWizardGenerate)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireTenant)

			r.Get("/quota", s.handleQuota)
			r.Get("/templates", s.handleTemplates)
			r.Post("/improve-text", s.handleImproveText)

			r.Route("/sites/{siteID}", func(r chi.Router) {
				r.Use(s.requireSite)
				r.Get("/", s.handleSiteGet)
				r.Post("/update", s.handleUpdateSection)
				r.Post("/template", s.handleApplyTemplate)
				r.Get("/backups", s.handleListBackups)
				r.Post("/restore", s.handleRestore)
				r.Post("/upload", s.handleUploadImage)
				r.Get("/history", s.handleHistory)
				r.Get("/stats", s.handleStats)
			})
		})
	})
	return r
}

type ctxKey int

const (
	ctxTenant ctxKey = iota
	ctxSite
)

// requireTenant resolves X-Tenant-ID, rejecting unknown or suspended
// tenants before any handler runs.
func (s *Server) requireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(r.Header.Get("X-Tenant-ID"), 10, 64)
		if err != nil {
			s.fail(w, http.StatusUnauthorized, "missing or malformed X-Tenant-ID")
			return
		}
		ten, err := tenant.ByID(r.Context(), s.db, id)
		if err != nil {
			s.renderError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxTenant, ten)))
	})
}

// requireSite resolves {siteID} and checks ownership against the
// resolved tenant.
func (s *Server) requireSite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "siteID"), 10, 64)
		if err != nil {
			s.fail(w, http.StatusBadRequest, "malformed site id")
			return
		}
		rec, err := site.ByID(r.Context(), s.db, id)
		if err != nil {
			s.renderError(w, err)
			return
		}
		ten := tenantFrom(r)
		if rec.TenantID != ten.ID {
			// Do not leak existence of other tenants' sites.
			s.renderError(w, site.ErrNotFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxSite, rec)))
	})
}

func tenantFrom(r *http.Request) *tenant.Record {
	return r.Context().Value(ctxTenant).(*tenant.Record)
}

func siteFrom(r *http.Request) *site.Record {
	return r.Context().Value(ctxSite).(*site.Record)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

// handleVisit is the beacon published pages call.  It never reveals
// whether the site exists.
func (s *Server) handleVisit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "siteID"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	v := s.stats.ParseVisit(id, r.UserAgent(), r.RemoteAddr)
	if err := s.stats.Record(r.Context(), v); err != nil {
		s.log.Warnw("visit record failed", "site", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
