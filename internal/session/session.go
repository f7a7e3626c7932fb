package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/testament/internal/extract"
	"github.com/ppiankov/testament/internal/llm"
	"github.com/ppiankov/testament/internal/media"
	"github.com/ppiankov/testament/internal/model"
	"github.com/ppiankov/testament/internal/render"
	"github.com/ppiankov/testament/internal/roster"
	"github.com/ppiankov/testament/internal/stage"
	"github.com/ppiankov/testament/internal/store"
	"github.com/ppiankov/testament/internal/worker"
)

// Replier produces assistant turns; *llm.Assistant implements it
type Replier interface {
	Reply(ctx context.Context, req llm.CompleteRequest) (*llm.CompleteResponse, error)
}

// Options configures a session
type Options struct {
	Template  model.TemplateKind
	Stages    model.StagesConfig
	Store     store.Store // nil disables persistence
	Saver     model.SaverConfig
	Extractor *extract.Extractor
	Sink      Sink
	Log       *slog.Logger

	// MaxUploadBytes caps attachment size; zero means unlimited
	MaxUploadBytes int64
}

// Result describes the effect of one utterance
type Result struct {
	Delta         model.Delta
	Hints         model.Delta // sanitized model hints that were merged
	Changed       bool
	Section       string
	Document      model.Document
	Stage         model.Stage
	StageComplete bool
}

// Session orchestrates one will in progress. Every utterance, model
// reply and edit runs under one lock, so they apply in arrival order
// against the facts current at that moment. Persistence runs in the
// background and never blocks extraction or rendering.
type Session struct {
	key       string
	extractor *extract.Extractor
	sink      Sink
	log       *slog.Logger
	store     store.Store
	saver     *worker.Saver
	now       func() time.Time

	mu               sync.Mutex
	template         model.TemplateKind
	facts            model.Facts
	doc              model.Document
	transcript       []model.Message
	roster           *roster.Roster
	stages           *stage.Controller
	media            *media.Tracker
	unsaved          bool // An earlier save failed; resend everything on next change
	contactsExplicit bool // User asked to save an incomplete roster

	createMu sync.Mutex // Serializes will creation; held across the store call
	idMu     sync.Mutex // Guards willID only
	willID   string
}

// New creates an empty session
func New(opts Options) *Session {
	if opts.Extractor == nil {
		opts.Extractor = extract.NewExtractor()
	}
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	controller := stage.NewController(opts.Stages)
	template := model.ParseTemplateKind(string(opts.Template))

	s := &Session{
		key:       uuid.NewString(),
		extractor: opts.Extractor,
		sink:      opts.Sink,
		store:     opts.Store,
		now:       time.Now,
		template:  template,
		roster:    roster.New(controller.RequiredRoles()),
		stages:    controller,
		media:     media.NewTracker(opts.MaxUploadBytes),
		doc:       render.Build(template, model.Facts{}),
	}
	s.log = opts.Log.With("session", s.key)
	if opts.Store != nil {
		s.saver = worker.NewSaver(opts.Saver, s.log)
		s.saver.OnFailure(s.saveFailed)
	}
	return s
}

// Restore rebuilds a session from a persisted will. Attachments are not
// persisted, so a restored documents stage starts with none.
func Restore(w *store.Will, opts Options) *Session {
	opts.Template = w.Template
	s := New(opts)
	s.willID = w.ID
	s.facts = w.Facts.Clone()
	s.transcript = append([]model.Message(nil), w.Transcript...)
	s.roster.Load(w.Contacts)
	s.stages.Restore(w.Stage, w.Skipped)
	s.doc = render.Build(s.template, s.facts)
	return s
}

// Key identifies the session in process
func (s *Session) Key() string {
	return s.key
}

// WillID returns the persisted will ID, empty until the first save lands
func (s *Session) WillID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return s.willID
}

// Submit processes one user message
func (s *Session) Submit(text string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.utter(model.MessageUser, text, nil)
}

// ReceiveReply processes one assistant turn. The reply text goes through
// the same extraction as user text; hints are sanitized against the facts
// current now, not when the request was made.
func (s *Session) ReceiveReply(reply string, hints *model.Delta) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.utter(model.MessageAssistant, reply, hints)
}

// Ask requests the next assistant turn without holding the session lock.
// A failed model call falls back to the offline question and is reported
// as a warning; only cancellation is returned as an error.
func (s *Session) Ask(ctx context.Context, r Replier) (*llm.CompleteResponse, error) {
	s.mu.Lock()
	req := llm.CompleteRequest{
		History:  append([]model.Message(nil), s.transcript...),
		Template: s.template,
		Stage:    s.stages.Current(),
		Facts:    s.facts.Clone(),
	}
	s.mu.Unlock()

	var resp *llm.CompleteResponse
	var err error
	if r != nil {
		resp, err = r.Reply(ctx, req)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		s.warn(fmt.Errorf("assistant unavailable, using offline question: %w", err))
		resp = nil
	}
	if resp == nil {
		resp = llm.Offline(req)
	}

	s.ReceiveReply(resp.Reply, resp.Hints)
	return resp, nil
}

// PreviewDraft renders what the document would look like if text were
// submitted, without committing anything. Used for keystroke previews.
func (s *Session) PreviewDraft(text string) model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	delta := s.extractor.Extract(text, s.template, s.facts)
	if delta.IsEmpty() {
		return s.doc
	}
	next, _, _ := model.Merge(s.facts, delta)
	return render.Build(s.template, next)
}

// Rederive rebuilds the facts by replaying the transcript from empty.
// It is a recovery operation; model hints are not part of the transcript
// and are not replayed.
func (s *Session) Rederive() model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	var facts model.Facts
	for _, m := range s.transcript {
		delta := s.extractor.ExtractFrom(m.Role, m.Text, s.template, facts)
		facts, _, _ = model.Merge(facts, delta)
	}
	s.facts = facts
	s.doc = render.Build(s.template, s.facts)
	s.sink.Preview(s.doc, "")
	s.persist(saveDraft, saveTranscript)
	return s.doc
}

// SetTemplate switches the article layout and re-renders
func (s *Session) SetTemplate(kind model.TemplateKind) model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.template = model.ParseTemplateKind(string(kind))
	s.doc = render.Build(s.template, s.facts)
	s.sink.Preview(s.doc, "")
	s.persist(saveDraft)
	return s.doc
}

func (s *Session) utter(role model.MessageRole, text string, hints *model.Delta) Result {
	text = strings.TrimSpace(text)
	if text != "" {
		s.transcript = append(s.transcript, model.Message{Role: role, Text: text, At: s.now()})
	}

	res := Result{Delta: s.extractor.ExtractFrom(role, text, s.template, s.facts)}
	changed, section := s.apply(res.Delta)

	if hints != nil {
		res.Hints = extract.Sanitize(*hints, s.facts)
		if c, sec := s.apply(res.Hints); c {
			changed = true
			if section == "" {
				section = sec
			}
		}
	}

	res.Changed, res.Section = changed, section
	if changed {
		s.doc = render.Build(s.template, s.facts)
		s.sink.Preview(s.doc, section)
		s.persist(saveDraft)
	}
	if text != "" {
		s.persist(saveTranscript)
	}

	res.StageComplete = s.checkStage()
	res.Document = s.doc
	res.Stage = s.stages.Current()
	return res
}

func (s *Session) apply(delta model.Delta) (bool, string) {
	if delta.IsEmpty() {
		return false, ""
	}
	next, changed, section := model.Merge(s.facts, delta)
	if changed {
		next.LastUpdatedField = section
		s.facts = next
	}
	return changed, section
}

// checkStage surfaces the completion affordance the first time the
// active stage's predicate holds
func (s *Session) checkStage() bool {
	if _, newly := s.stages.Check(s.signals()); !newly {
		return false
	}
	s.sink.StageComplete(s.stages.Current())
	s.persist(saveDraft, saveContacts, saveTranscript)
	return true
}

func (s *Session) signals() stage.Signals {
	sig := stage.Signals{
		MessageCount:  len(s.transcript),
		Contacts:      s.roster.Contacts(),
		DocumentCount: s.media.Count(),
		VideoRecorded: s.media.Recorded(),
	}
	for i := len(s.transcript) - 1; i >= 0; i-- {
		if s.transcript[i].Role == model.MessageAssistant {
			sig.LastAssistantReply = s.transcript[i].Text
			break
		}
	}
	return sig
}

func (s *Session) warn(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Warn("session warning", "error", err)
	s.sink.Warning(err)
}

// Facts returns a copy of the collected facts
func (s *Session) Facts() model.Facts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facts.Clone()
}

// Document returns the current rendered document
func (s *Session) Document() model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Template returns the active template
func (s *Session) Template() model.TemplateKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.template
}

// Transcript returns a copy of the conversation so far
func (s *Session) Transcript() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.transcript...)
}

// Status is a snapshot of stage progress
type Status struct {
	Stage         model.Stage   `json:"stage"`
	Satisfied     bool          `json:"satisfied"`
	Skipped       []model.Stage `json:"skipped,omitempty"`
	Messages      int           `json:"messages"`
	Contacts      int           `json:"contacts"`
	Documents     int           `json:"documents"`
	VideoRecorded bool          `json:"video_recorded"`
	Problems      []string      `json:"problems,omitempty"`
}

// Status reports where the will stands
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig := s.signals()
	st := Status{
		Stage:         s.stages.Current(),
		Satisfied:     s.stages.Satisfied(sig),
		Skipped:       s.stages.SkippedStages(),
		Messages:      sig.MessageCount,
		Contacts:      len(sig.Contacts),
		Documents:     sig.DocumentCount,
		VideoRecorded: sig.VideoRecorded,
	}
	for _, p := range roster.Problems(sig.Contacts, s.stages.RequiredRoles()) {
		st.Problems = append(st.Problems, p.String())
	}
	return st
}

// Stage returns the active stage
func (s *Session) Stage() model.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stages.Current()
}

// Advance moves to the next stage and then waits for pending saves.
// A save failure does not undo the move; it is surfaced as a warning
// and returned, and everything is resent on the next change.
func (s *Session) Advance(ctx context.Context) error {
	s.mu.Lock()
	from := s.stages.Current()
	if err := s.stages.Advance(s.signals()); err != nil {
		s.mu.Unlock()
		return err
	}
	s.persist(saveDraft, saveContacts, saveTranscript)
	s.checkStage()
	s.mu.Unlock()

	return s.flush(ctx, from)
}

// Retreat moves to the previous stage; nothing collected is lost
func (s *Session) Retreat(ctx context.Context) error {
	s.mu.Lock()
	from := s.stages.Current()
	if err := s.stages.Retreat(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.persist(saveDraft)
	s.checkStage()
	s.mu.Unlock()

	return s.flush(ctx, from)
}

// Skip marks the documents or video stage as skipped
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stages.Skip(); err != nil {
		return err
	}
	s.persist(saveDraft)
	s.checkStage()
	return nil
}

// Flush waits for pending saves and surfaces any failure
func (s *Session) Flush(ctx context.Context) error {
	return s.flush(ctx, s.Stage())
}

// Close flushes pending saves and stops the background saver
func (s *Session) Close(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}
	if err := s.saver.Close(ctx); err != nil {
		s.warn(fmt.Errorf("closing with unsaved changes: %w", err))
		return err
	}
	return nil
}

func (s *Session) flush(ctx context.Context, from model.Stage) error {
	if s.saver == nil {
		return nil
	}
	err := s.saver.Drain(ctx)
	if err == nil {
		return nil
	}

	s.mu.Lock()
	s.unsaved = true
	s.mu.Unlock()

	err = fmt.Errorf("unsaved changes from the %s stage: %w", from, err)
	s.warn(err)
	return err
}

// AddContact validates and adds a contact
func (s *Session) AddContact(c model.Contact) (model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.roster.Add(c)
	if err != nil {
		return model.Contact{}, err
	}
	s.contactsChanged()
	return added, nil
}

// UpdateContact replaces a contact by ID
func (s *Session) UpdateContact(c model.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.roster.Update(c); err != nil {
		return err
	}
	s.contactsChanged()
	return nil
}

// RemoveContact deletes a contact unless it is the last of a required role
func (s *Session) RemoveContact(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.roster.Remove(id); err != nil {
		return err
	}
	s.contactsChanged()
	return nil
}

// Contacts returns a copy of the roster
func (s *Session) Contacts() []model.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Contacts()
}

// SaveContacts queues the roster for saving even when it is incomplete
func (s *Session) SaveContacts() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contactsExplicit = true
	s.persist(saveContacts)
}

func (s *Session) contactsChanged() {
	if s.roster.Complete() {
		s.persist(saveContacts)
	}
	s.checkStage()
}

// Attach inspects a document and counts it toward the documents stage.
// Reading r happens outside the session lock.
func (s *Session) Attach(name string, r io.Reader) (media.Attachment, error) {
	a, err := s.media.Attach(name, r)
	if err != nil {
		return media.Attachment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkStage()
	return a, nil
}

// RemoveAttachment detaches a document
func (s *Session) RemoveAttachment(id string) error {
	return s.media.Remove(id)
}

// Attachments lists attached documents
func (s *Session) Attachments() []media.Attachment {
	return s.media.Attachments()
}

// RecordVideo notes that the recorder produced a statement
func (s *Session) RecordVideo(d time.Duration) media.Recording {
	rec := s.media.Record(d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkStage()
	return rec
}

type saveKind int

const (
	saveDraft saveKind = iota
	saveContacts
	saveTranscript
)

// persist queues saves for the given parts, or for every part after an
// earlier failure. Must be called with s.mu held.
func (s *Session) persist(kinds ...saveKind) {
	if s.saver == nil {
		return
	}
	if s.unsaved {
		s.unsaved = false
		kinds = []saveKind{saveDraft, saveContacts, saveTranscript}
	}

	for _, k := range kinds {
		switch k {
		case saveDraft:
			s.enqueueDraft()
		case saveContacts:
			if s.roster.Complete() || s.contactsExplicit {
				s.enqueueContacts()
			}
		case saveTranscript:
			s.enqueueTranscript()
		}
	}
}

func (s *Session) enqueueDraft() {
	text := s.doc.Text()
	title := strings.TrimSpace(s.doc.Title + " " + s.doc.Subtitle)
	current := s.stages.Current()
	skipped := s.stages.SkippedStages()
	meta := store.Meta{Template: s.template, Title: title, Stage: current}

	s.saver.Enqueue("draft", s.key, func(ctx context.Context) error {
		id, created, err := s.ensureWill(ctx, text, meta)
		if err != nil {
			return err
		}
		if created && len(skipped) == 0 {
			return nil
		}
		return classify(s.store.UpdateDraft(ctx, id, store.Fields{
			Text:    &text,
			Title:   &title,
			Stage:   &current,
			Skipped: &skipped,
		}))
	})
}

func (s *Session) enqueueContacts() {
	contacts := s.roster.Contacts()
	text := s.doc.Text()
	meta := store.Meta{Template: s.template, Stage: s.stages.Current()}

	s.saver.Enqueue("contacts", s.key, func(ctx context.Context) error {
		id, _, err := s.ensureWill(ctx, text, meta)
		if err != nil {
			return err
		}
		return classify(s.store.SaveContacts(ctx, id, contacts))
	})
}

func (s *Session) enqueueTranscript() {
	transcript := append([]model.Message(nil), s.transcript...)
	facts := s.facts.Clone()
	text := s.doc.Text()
	meta := store.Meta{Template: s.template, Stage: s.stages.Current()}

	s.saver.Enqueue("transcript", s.key, func(ctx context.Context) error {
		id, _, err := s.ensureWill(ctx, text, meta)
		if err != nil {
			return err
		}
		return classify(s.store.SaveTranscript(ctx, id, transcript, facts))
	})
}

// ensureWill creates the will record on first use. Concurrent savers
// wait on createMu so only one creates it; WillID never waits on the store.
func (s *Session) ensureWill(ctx context.Context, text string, meta store.Meta) (string, bool, error) {
	if id := s.WillID(); id != "" {
		return id, false, nil
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if id := s.WillID(); id != "" {
		return id, false, nil
	}
	id, err := s.store.SaveDraft(ctx, text, meta)
	if err != nil {
		return "", false, fmt.Errorf("create draft: %w", err)
	}
	s.setWillID(id)
	return id, true, nil
}

func (s *Session) setWillID(id string) {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	s.willID = id
}

// saveFailed runs on the saver's goroutine when a save is abandoned.
// The next change resends every part, and the user is told now rather
// than at the next stage move.
func (s *Session) saveFailed(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsaved = true
	s.sink.Warning(fmt.Errorf("%s not saved: %w", key, err))
}

// classify marks errors a retry cannot fix
func classify(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return worker.Permanent(err)
	}
	return err
}
