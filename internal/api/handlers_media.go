package api

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}

	if limit := s.cfg.Server.MaxUploadBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+1024*1024) // extra 1MB for form overhead
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	a, err := e.sess.Attach(sanitizeFilename(header.Filename), file)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"attachment": a,
		"status":     e.sess.Status(),
		"events":     e.events.take(),
	})
}

func (s *Server) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attachments": e.sess.Attachments()})
}

func (s *Server) handleRemoveAttachment(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	if err := e.sess.RemoveAttachment(chi.URLParam(r, "attachmentID")); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attachments": e.sess.Attachments()})
}

// handleVideo records that the recorder produced a statement
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	var req struct {
		DurationSeconds float64 `json:"duration_seconds"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DurationSeconds <= 0 {
		jsonError(w, "duration_seconds must be positive", http.StatusBadRequest)
		return
	}

	rec := e.sess.RecordVideo(time.Duration(req.DurationSeconds * float64(time.Second)))
	writeJSON(w, http.StatusCreated, map[string]any{
		"recording": rec,
		"status":    e.sess.Status(),
		"events":    e.events.take(),
	})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
