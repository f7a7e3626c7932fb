package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ppiankov/testament/internal/media"
	"github.com/ppiankov/testament/internal/model"
	"github.com/ppiankov/testament/internal/render"
	"github.com/ppiankov/testament/internal/roster"
	"github.com/ppiankov/testament/internal/session"
	"github.com/ppiankov/testament/internal/stage"
	"github.com/ppiankov/testament/internal/store"
)

const maxJSONBody = 1 << 20

type willView struct {
	ID          string             `json:"id"`
	WillID      string             `json:"will_id,omitempty"`
	Template    model.TemplateKind `json:"template"`
	Status      session.Status     `json:"status"`
	Facts       model.Facts        `json:"facts"`
	Document    model.Document     `json:"document"`
	Contacts    []model.Contact    `json:"contacts"`
	Attachments []media.Attachment `json:"attachments"`
	Events      Events             `json:"events"`
}

func view(id string, e *entry) willView {
	return willView{
		ID:          id,
		WillID:      e.sess.WillID(),
		Template:    e.sess.Template(),
		Status:      e.sess.Status(),
		Facts:       e.sess.Facts(),
		Document:    e.sess.Document(),
		Contacts:    e.sess.Contacts(),
		Attachments: e.sess.Attachments(),
		Events:      e.events.take(),
	}
}

type willSummary struct {
	ID        string             `json:"id"`
	Template  model.TemplateKind `json:"template"`
	Title     string             `json:"title"`
	Stage     model.Stage        `json:"stage"`
	UpdatedAt time.Time          `json:"updated_at,omitempty"`
}

func (s *Server) handleCreateWill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Template string `json:"template"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	template := req.Template
	if template == "" {
		template = s.cfg.Template
	}

	id, e := s.create(model.ParseTemplateKind(template))
	writeJSON(w, http.StatusCreated, view(id, e))
}

func (s *Server) handleListWills(w http.ResponseWriter, r *http.Request) {
	out := []willSummary{}
	if s.store == nil {
		s.mu.Lock()
		for id, e := range s.sessions {
			doc := e.sess.Document()
			out = append(out, willSummary{ID: id, Template: doc.Template, Title: doc.Title, Stage: e.sess.Stage()})
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"wills": out})
		return
	}

	wills, err := s.store.List(r.Context())
	if err != nil {
		jsonError(w, "failed to list wills: "+err.Error(), http.StatusInternalServerError)
		return
	}
	for _, will := range wills {
		out = append(out, willSummary{
			ID:        will.ID,
			Template:  will.Template,
			Title:     will.Title,
			Stage:     will.Stage,
			UpdatedAt: will.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"wills": out})
}

func (s *Server) handleGetWill(w http.ResponseWriter, r *http.Request) {
	id, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view(id, e))
}

func (s *Server) handleCloseWill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "willID")
	e, ok := s.remove(id)
	if !ok {
		jsonError(w, "will not open", http.StatusNotFound)
		return
	}
	if err := e.sess.Close(r.Context()); err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "will_id": e.sess.WillID(), "closed": true})
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res := e.sess.Submit(req.Text)
	writeJSON(w, http.StatusOK, resultView(res, e))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": e.sess.PreviewDraft(req.Text)})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}

	resp, err := e.sess.Ask(r.Context(), s.assistant)
	if err != nil {
		jsonError(w, "assistant request cancelled: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reply":    resp.Reply,
		"model":    resp.Model,
		"cached":   resp.Cached,
		"stage":    e.sess.Stage(),
		"facts":    e.sess.Facts(),
		"document": e.sess.Document(),
		"events":   e.events.take(),
	})
}

func (s *Server) handleRederive(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	doc := e.sess.Rederive()
	writeJSON(w, http.StatusOK, map[string]any{"document": doc, "facts": e.sess.Facts()})
}

func (s *Server) handleSetTemplate(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	var req struct {
		Template string `json:"template"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	doc := e.sess.SetTemplate(model.TemplateKind(req.Template))
	writeJSON(w, http.StatusOK, map[string]any{"template": doc.Template, "document": doc})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := render.Export(&buf, e.sess.Document(), format); err != nil {
		jsonError(w, "failed to export document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if format == render.FormatDOCX {
		w.Header().Set("Content-Disposition", `attachment; filename="will.docx"`)
	}
	w.Write(buf.Bytes())
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, func(sess *session.Session) error { return sess.Advance(r.Context()) })
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, func(sess *session.Session) error { return sess.Retreat(r.Context()) })
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, func(sess *session.Session) error { return sess.Skip() })
}

// move runs a stage transition. A save failure after the stage moved is
// reported as a warning in the response, not as a failed request.
func (s *Server) move(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) {
	id, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}

	before := e.sess.Status()
	err := fn(e.sess)
	after := e.sess.Status()
	if err != nil && before.Stage == after.Stage && len(before.Skipped) == len(after.Skipped) {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view(id, e))
}

func resultView(res session.Result, e *entry) map[string]any {
	return map[string]any{
		"changed":        res.Changed,
		"section":        res.Section,
		"delta":          res.Delta,
		"hints":          res.Hints,
		"stage":          res.Stage,
		"stage_complete": res.StageComplete,
		"document":       res.Document,
		"events":         e.events.take(),
	}
}

func (s *Server) entryFor(w http.ResponseWriter, r *http.Request) (string, *entry, bool) {
	id := chi.URLParam(r, "willID")
	e, err := s.lookup(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return "", nil, false
	}
	return id, e, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeSessionError maps domain errors onto HTTP status codes
func writeSessionError(w http.ResponseWriter, err error) {
	var incomplete *roster.IncompleteError
	var notSatisfied *stage.NotSatisfiedError
	var invalid validator.ValidationErrors

	switch {
	case errors.As(err, &incomplete):
		problems := make([]string, len(incomplete.Problems))
		for i, p := range incomplete.Problems {
			problems[i] = p.String()
		}
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "problems": problems})
	case errors.As(err, &notSatisfied),
		errors.Is(err, stage.ErrTerminal),
		errors.Is(err, stage.ErrFirstStage),
		errors.Is(err, stage.ErrNotSkippable),
		errors.Is(err, roster.ErrLastOfRequiredRole):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, "will not found", http.StatusNotFound)
	case errors.Is(err, roster.ErrNotFound), errors.Is(err, media.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalid), errors.Is(err, roster.ErrRoleRequired),
		errors.Is(err, media.ErrUnsupported), errors.Is(err, media.ErrEmpty):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, media.ErrTooLarge):
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
	default:
		jsonError(w, fmt.Sprintf("internal error: %v", err), http.StatusInternalServerError)
	}
}
