// internal/web/wizard.go
//
// Wizard endpoints: session intake, owner handoff, first publish.
package web

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/webforja/forja/internal/account"
	"github.com/webforja/forja/internal/site"
	"github.com/webforja/forja/internal/tenant"
	"github.com/webforja/forja/internal/wizard"
)

func (s *Server) handleWizardStart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]any{
		"session_id":  sess.ID,
		"step":        sess.Step,
		"total_steps": wizard.TotalSteps,
	})
}

func (s *Server) handleWizardGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respondSession(w, http.StatusOK, sess)
}

func (s *Server) handleWizardStep(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Step   int            `json:"step"`
		Fields map[string]any `json:"fields"`
	}
	if err := decode(r, &body); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed body: "+err.Error())
		return
	}
	sess, err := s.sessions.AdvanceStep(r.Context(), chi.URLParam(r, "sessionID"), body.Step, body.Fields)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respondSession(w, http.StatusOK, sess)
}

// handleWizardFinalize registers the owner: tenant row, site row with a
// fresh slug and storage tree, and a one-time temporary password.  The
// generator is not involved, so no quota is consumed here.
func (s *Server) handleWizardFinalize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Plan string `json:"plan"`
	}
	if err := decode(r, &body); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed body: "+err.Error())
		return
	}
	if body.Plan == "" {
		body.Plan = tenant.PlanBasic
	}

	ctx := r.Context()
	sess, err := s.sessions.Get(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	if sess.Completed {
		s.renderError(w, wizard.ErrCompleted)
		return
	}

	fields, err := sess.FieldMap()
	if err != nil {
		s.renderError(w, err)
		return
	}
	brief, err := wizard.Brief(fields)
	if err != nil {
		s.renderError(w, err)
		return
	}
	if brief.Contact.Email == "" {
		s.renderError(w, &wizard.ValidationError{
			Missing: []string{"contact.email"},
			Reason:  "an owner email is required to finish",
		})
		return
	}

	tenantID, err := tenant.Create(ctx, s.db, brief.Contact.Email, brief.BusinessName, body.Plan)
	if err != nil {
		s.renderError(w, err)
		return
	}

	slug := site.Slugify(brief.BusinessName)
	siteID, err := site.Create(ctx, s.db, &site.Record{
		TenantID:    tenantID,
		Name:        brief.BusinessName,
		Slug:        slug,
		StoragePath: filepath.Join(s.sitesDir, slug),
	})
	if err != nil {
		s.renderError(w, err)
		return
	}

	tempPass, err := account.CreateOwner(ctx, s.db, tenantID, brief.Contact.Email)
	if err != nil {
		s.renderError(w, err)
		return
	}

	if err := s.sessions.Complete(ctx, sess.ID, siteID, brief.Contact.Email); err != nil {
		s.renderError(w, err)
		return
	}

	s.log.Infow("wizard completed", "session", sess.ID, "tenant", tenantID, "site", siteID)
	s.respond(w, http.StatusCreated, map[string]any{
		"tenant_id":     tenantID,
		"site_id":       siteID,
		"slug":          slug,
		"temp_password": tempPass,
	})
}

// handleWizardGenerate publishes the first document for a finalized
// session: the generator when no template was chosen, the template
// otherwise.  Only the generator path consumes quota.
func (s *Server) handleWizardGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := s.sessions.Get(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	if sess.SiteID == nil {
		s.fail(w, http.StatusConflict, "session not finalized")
		return
	}

	rec, err := site.ByID(ctx, s.db, *sess.SiteID)
	if err != nil {
		s.renderError(w, err)
		return
	}
	ten, err := tenant.ByID(ctx, s.db, rec.TenantID)
	if err != nil {
		s.renderError(w, err)
		return
	}

	fields, err := sess.FieldMap()
	if err != nil {
		s.renderError(w, err)
		return
	}

	if id, ok := templateID(fields); ok {
		res, err := s.pipe.ApplyTemplate(ctx, rec, ten.ID, id)
		if err != nil {
			s.renderError(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]any{"site_id": rec.ID, "template_id": id, "backup": res.Backup})
		return
	}

	brief, err := wizard.Brief(fields)
	if err != nil {
		s.renderError(w, err)
		return
	}
	res, err := s.pipe.GenerateNew(ctx, rec, ten, brief)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"site_id":  rec.ID,
		"usage":    res.Usage,
		"findings": res.Findings,
		"backup":   res.Backup,
	})
}

func (s *Server) respondSession(w http.ResponseWriter, status int, sess *wizard.Session) {
	fields, err := sess.FieldMap()
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, status, map[string]any{
		"session_id":  sess.ID,
		"step":        sess.Step,
		"total_steps": wizard.TotalSteps,
		"fields":      fields,
		"completed":   sess.Completed,
		"site_id":     sess.SiteID,
	})
}

// templateID extracts a wizard template choice from the field map, where
// JSON numbers arrive as float64.
func templateID(fields map[string]any) (uint64, bool) {
	switch v := fields["template_id"].(type) {
	case float64:
		if v > 0 {
			return uint64(v), true
		}
	}
	return 0, false
}
