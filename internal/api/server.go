package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/testament/internal/model"
	"github.com/ppiankov/testament/internal/session"
	"github.com/ppiankov/testament/internal/store"
)

// Server is the HTTP API over in-progress wills
type Server struct {
	router    chi.Router
	cfg       *model.Config
	store     store.Store
	assistant session.Replier
	log       *slog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	sess   *session.Session
	events *eventLog
}

// NewServer creates and configures the HTTP server. A nil store keeps
// wills in memory only; a nil assistant uses offline questions.
func NewServer(cfg *model.Config, st store.Store, assistant session.Replier, log *slog.Logger) *Server {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		store:     st,
		assistant: assistant,
		log:       log,
		sessions:  make(map[string]*entry),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.Server.APIKey, s.log))

		r.Post("/api/wills", s.handleCreateWill)
		r.Get("/api/wills", s.handleListWills)

		r.Route("/api/wills/{willID}", func(r chi.Router) {
			r.Get("/", s.handleGetWill)
			r.Delete("/", s.handleCloseWill)

			r.Post("/messages", s.handleMessage)
			r.Post("/preview", s.handlePreview)
			r.Post("/ask", s.handleAsk)
			r.Post("/rederive", s.handleRederive)
			r.Put("/template", s.handleSetTemplate)
			r.Get("/document", s.handleDocument)

			r.Post("/advance", s.handleAdvance)
			r.Post("/retreat", s.handleRetreat)
			r.Post("/skip", s.handleSkip)

			r.Get("/contacts", s.handleListContacts)
			r.Post("/contacts", s.handleAddContact)
			r.Post("/contacts/save", s.handleSaveContacts)
			r.Put("/contacts/{contactID}", s.handleUpdateContact)
			r.Delete("/contacts/{contactID}", s.handleRemoveContact)

			r.Get("/attachments", s.handleListAttachments)
			r.Post("/attachments", s.handleAttach)
			r.Delete("/attachments/{attachmentID}", s.handleRemoveAttachment)
			r.Post("/video", s.handleVideo)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Shutdown flushes and closes every open session
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.sessions))
	for id, e := range s.sessions {
		entries = append(entries, e)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := e.sess.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) sessionOptions(template model.TemplateKind, events *eventLog) session.Options {
	return session.Options{
		Template:       template,
		Stages:         s.cfg.Stages,
		Store:          s.store,
		Saver:          s.cfg.Saver,
		Sink:           events,
		Log:            s.log,
		MaxUploadBytes: s.cfg.Server.MaxUploadBytes,
	}
}

func (s *Server) create(template model.TemplateKind) (string, *entry) {
	events := &eventLog{}
	e := &entry{sess: session.New(s.sessionOptions(template, events)), events: events}
	id := e.sess.Key()

	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()
	return id, e
}

// lookup finds an open session, restoring a persisted will on first access
func (s *Server) lookup(ctx context.Context, id string) (*entry, error) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return e, nil
	}
	if s.store == nil {
		return nil, store.ErrNotFound
	}

	w, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	events := &eventLog{}
	restored := &entry{sess: session.Restore(w, s.sessionOptions(w.Template, events)), events: events}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		_ = restored.sess.Close(ctx)
		return existing, nil
	}
	s.sessions[id] = restored
	return restored, nil
}

func (s *Server) remove(id string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	return e, ok
}

// eventLog buffers session events until the next response picks them up
type eventLog struct {
	mu       sync.Mutex
	complete []model.Stage
	warnings []string
}

func (l *eventLog) Preview(model.Document, string) {}

func (l *eventLog) StageComplete(stage model.Stage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.complete = append(l.complete, stage)
}

func (l *eventLog) Warning(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, err.Error())
}

// Events is the part of a response reporting what happened in the background
type Events struct {
	StageComplete []model.Stage `json:"stage_complete,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
}

func (l *eventLog) take() Events {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := Events{StageComplete: l.complete, Warnings: l.warnings}
	l.complete, l.warnings = nil, nil
	return ev
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
