package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/testament/internal/model"
)

// ErrNotFound is returned when no will has the requested ID
var ErrNotFound = errors.New("will not found")

// Store persists wills in progress. Every call may fail; callers keep
// their in-memory state authoritative and retry.
type Store interface {
	// SaveDraft creates a will record holding the rendered text and returns its ID
	SaveDraft(ctx context.Context, text string, meta Meta) (string, error)

	// UpdateDraft applies a partial update to an existing will
	UpdateDraft(ctx context.Context, id string, fields Fields) error

	// SaveContacts replaces the contact roster of a will
	SaveContacts(ctx context.Context, willID string, contacts []model.Contact) error

	// SaveTranscript replaces the conversation transcript and extracted facts
	SaveTranscript(ctx context.Context, willID string, transcript []model.Message, facts model.Facts) error

	// Load returns the full record of one will
	Load(ctx context.Context, id string) (*Will, error)

	// List returns every will, most recently updated first
	List(ctx context.Context) ([]Will, error)

	Close() error
}

// Meta describes a draft when it is first saved
type Meta struct {
	Template model.TemplateKind
	Title    string
	Stage    model.Stage
}

// Fields is a partial draft update. Nil fields are left unchanged.
type Fields struct {
	Text    *string
	Title   *string
	Stage   *model.Stage
	Skipped *[]model.Stage
}

// Will is the persisted state of one will in progress
type Will struct {
	ID         string             `json:"id"`
	Template   model.TemplateKind `json:"template"`
	Title      string             `json:"title"`
	Stage      model.Stage        `json:"stage"`
	Skipped    []model.Stage      `json:"skipped,omitempty"`
	Text       string             `json:"text"`
	Contacts   []model.Contact    `json:"contacts,omitempty"`
	Transcript []model.Message    `json:"transcript,omitempty"`
	Facts      model.Facts        `json:"facts"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Open creates the store selected by cfg.Driver
func Open(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "file":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file store requires a directory")
		}
		return NewFileStore(cfg.Dir)
	case "memory":
		return NewMemoryStore(), nil
	case "postgres", "postgresql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires a DSN")
		}
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver: %s (supported: file, memory, postgres)", cfg.Driver)
	}
}

func (w *Will) apply(f Fields) {
	if f.Text != nil {
		w.Text = *f.Text
	}
	if f.Title != nil {
		w.Title = *f.Title
	}
	if f.Stage != nil {
		w.Stage = *f.Stage
	}
	if f.Skipped != nil {
		w.Skipped = append([]model.Stage(nil), (*f.Skipped)...)
	}
}

func (w Will) clone() Will {
	out := w
	out.Skipped = append([]model.Stage(nil), w.Skipped...)
	out.Contacts = append([]model.Contact(nil), w.Contacts...)
	out.Transcript = append([]model.Message(nil), w.Transcript...)
	out.Facts = w.Facts.Clone()
	return out
}

func newWill(id, text string, meta Meta, now time.Time) Will {
	return Will{
		ID:        id,
		Template:  meta.Template,
		Title:     meta.Title,
		Stage:     meta.Stage,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
