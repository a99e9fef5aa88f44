// internal/web/upload.go
//
// Image upload into a site's uploads tree.  Stored files are referenced
// by generated pages via NewImageURL; the pipeline never writes here.
package web

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/webforja/forja/internal/site"
)

const maxUploadBytes = 8 << 20

var allowedImageExt = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed upload: "+err.Error())
		return
	}
	f, hdr, err := r.FormFile("image")
	if err != nil {
		s.fail(w, http.StatusBadRequest, "an image file is required")
		return
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	if !allowedImageExt[ext] {
		s.fail(w, http.StatusUnprocessableEntity, "unsupported image type "+ext)
		return
	}

	st := site.StorageFor(siteFrom(r))
	if err := st.EnsureLayout(); err != nil {
		s.renderError(w, err)
		return
	}

	// Server-chosen name: no collisions, no caller-controlled paths.
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(st.UploadsDir(), name))
	if err != nil {
		s.renderError(w, err)
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, f); err != nil {
		s.renderError(w, err)
		return
	}

	s.log.Infow("image uploaded", "site", siteFrom(r).ID, "file", name, "size", hdr.Size)
	s.respond(w, http.StatusCreated, map[string]any{
		"filename": name,
		"url":      "/uploads/" + name,
	})
}
