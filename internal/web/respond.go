// internal/web/respond.go
//
// JSON responders and the error-to-status mapping.  Every typed error in
// the domain gets a stable HTTP shape here, so handlers just return and
// let renderError pick the status.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/webforja/forja/internal/generator"
	"github.com/webforja/forja/internal/quota"
	"github.com/webforja/forja/internal/site"
	"github.com/webforja/forja/internal/snapshot"
	"github.com/webforja/forja/internal/tenant"
	"github.com/webforja/forja/internal/wizard"
)

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorw("response encode failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, map[string]any{"error": msg})
}

// renderError maps domain errors onto HTTP statuses.
func (s *Server) renderError(w http.ResponseWriter, err error) {
	var qerr *quota.QuotaError
	if errors.As(err, &qerr) {
		retry := int(qerr.RetryAfter.Seconds())
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		s.respond(w, http.StatusTooManyRequests, map[string]any{
			"error":       "daily generation limit reached",
			"used":        qerr.Used,
			"limit":       qerr.Limit,
			"retry_after": retry,
		})
		return
	}

	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		s.respond(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   verr.Error(),
			"missing": verr.Missing,
		})
		return
	}

	switch {
	case errors.Is(err, tenant.ErrNotFound),
		errors.Is(err, site.ErrNotFound),
		errors.Is(err, snapshot.ErrNotFound),
		errors.Is(err, wizard.ErrNotFound):
		s.fail(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, wizard.ErrCompleted):
		s.fail(w, http.StatusConflict, err.Error())
		return
	}

	var gerr *generator.GenerationError
	if errors.As(err, &gerr) {
		s.log.Errorw("generation failed", "op", gerr.Op, "status", gerr.Status, "error", gerr)
		s.fail(w, http.StatusBadGateway, "generation failed; the attempt counted against today's quota")
		return
	}

	s.log.Errorw("internal error", "error", err)
	s.fail(w, http.StatusInternalServerError, "internal error")
}

// decode parses a JSON request body into dst, bounded to 1 MiB.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
