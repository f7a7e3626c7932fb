package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ppiankov/testament/internal/model"
)

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contacts": e.sess.Contacts(),
		"status":   e.sess.Status(),
	})
}

func (s *Server) handleAddContact(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	var c model.Contact
	if !decodeJSON(w, r, &c) {
		return
	}

	added, err := e.sess.AddContact(c)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"contact": added,
		"status":  e.sess.Status(),
		"events":  e.events.take(),
	})
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	var c model.Contact
	if !decodeJSON(w, r, &c) {
		return
	}
	c.ID = chi.URLParam(r, "contactID")

	if err := e.sess.UpdateContact(c); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contact": c,
		"status":  e.sess.Status(),
		"events":  e.events.take(),
	})
}

func (s *Server) handleRemoveContact(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	if err := e.sess.RemoveContact(chi.URLParam(r, "contactID")); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contacts": e.sess.Contacts(),
		"status":   e.sess.Status(),
	})
}

// handleSaveContacts persists the roster even while it is incomplete
func (s *Server) handleSaveContacts(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	e.sess.SaveContacts()
	if err := e.sess.Flush(r.Context()); err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": len(e.sess.Contacts()), "will_id": e.sess.WillID()})
}
