// internal/web/content.go
//
// Dashboard endpoints: section updates, backups, restore, history,
// quota, stats, text improvement.
package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/webforja/forja/internal/history"
	"github.com/webforja/forja/internal/pipeline"
	"github.com/webforja/forja/internal/site"
)

func (s *Server) handleSiteGet(w http.ResponseWriter, r *http.Request) {
	rec := siteFrom(r)
	s.respond(w, http.StatusOK, map[string]any{
		"id":         rec.ID,
		"name":       rec.Name,
		"slug":       rec.Slug,
		"domain":     rec.Domain,
		"created_at": rec.CreatedAt,
		"updated_at": rec.UpdatedAt,
	})
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	ten := tenantFrom(r)
	usage, err := s.quota.Usage(r.Context(), ten.ID, s.quota.LimitFor(ten.Plan))
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"used":      usage.Used,
		"limit":     usage.Limit,
		"remaining": usage.Remaining(),
		"day":       usage.Day,
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	rows, err := site.ActiveTemplates(r.Context(), s.db)
	if err != nil {
		s.renderError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, t := range rows {
		out = append(out, map[string]any{
			"id":          t.ID,
			"name":        t.Name,
			"description": t.Description,
			"category":    t.Category,
		})
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Section     string `json:"section"`
		NewText     string `json:"new_text"`
		NewImageURL string `json:"new_image_url"`
		Instruction string `json:"instruction"`
	}
	if err := decode(r, &body); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed body: "+err.Error())
		return
	}
	if strings.TrimSpace(body.Section) == "" {
		s.fail(w, http.StatusBadRequest, "section is required")
		return
	}

	ten := tenantFrom(r)
	res, err := s.pipe.UpdateSection(r.Context(), siteFrom(r), ten, ten.ID, pipeline.SectionUpdate{
		Section:     body.Section,
		NewText:     body.NewText,
		NewImageURL: body.NewImageURL,
		Instruction: body.Instruction,
	})
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"usage":    res.Usage,
		"findings": res.Findings,
		"backup":   res.Backup,
	})
}

func (s *Server) handleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TemplateID uint64 `json:"template_id"`
	}
	if err := decode(r, &body); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed body: "+err.Error())
		return
	}
	ten := tenantFrom(r)
	res, err := s.pipe.ApplyTemplate(r.Context(), siteFrom(r), ten.ID, body.TemplateID)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"backup": res.Backup})
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	entries, err := s.pipe.ListBackups(siteFrom(r))
	if err != nil {
		s.renderError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"name":        e.Name,
			"captured_at": e.CapturedAt,
			"size":        e.Size,
		})
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Backup string `json:"backup"`
	}
	if err := decode(r, &body); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed body: "+err.Error())
		return
	}
	if body.Backup == "" {
		s.fail(w, http.StatusBadRequest, "backup name is required")
		return
	}

	ten := tenantFrom(r)
	res, err := s.pipe.RestoreBackup(r.Context(), siteFrom(r), ten.ID, body.Backup)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"safety_backup": res.Backup})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := history.BySite(r.Context(), s.db, siteFrom(r).ID, limit)
	if err != nil {
		s.renderError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, h := range rows {
		out = append(out, map[string]any{
			"id":          h.ID,
			"kind":        h.Kind,
			"section":     h.Section,
			"before":      h.BeforePreview,
			"after":       h.AfterPreview,
			"description": h.Description,
			"created_at":  h.CreatedAt,
		})
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	rows, err := s.stats.BySite(r.Context(), siteFrom(r).ID, days)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, rows)
}

func (s *Server) handleImproveText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text  string `json:"text"`
		About string `json:"about"`
	}
	if err := decode(r, &body); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed body: "+err.Error())
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		s.fail(w, http.StatusBadRequest, "text is required")
		return
	}

	out, usage, err := s.pipe.ImproveText(r.Context(), tenantFrom(r), body.Text, body.About)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"text": out, "usage": usage})
}
