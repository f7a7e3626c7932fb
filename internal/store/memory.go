package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/testament/internal/model"
)

// MemoryStore keeps wills in process. Nothing survives a restart.
type MemoryStore struct {
	mu    sync.Mutex
	wills *gocache.Cache
	now   func() time.Time
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wills: gocache.New(gocache.NoExpiration, 0),
		now:   time.Now,
	}
}

func (s *MemoryStore) SaveDraft(ctx context.Context, text string, meta Meta) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	s.wills.Set(id, newWill(id, text, meta, s.now()), gocache.NoExpiration)
	return id, nil
}

func (s *MemoryStore) UpdateDraft(ctx context.Context, id string, fields Fields) error {
	return s.update(ctx, id, func(w *Will) { w.apply(fields) })
}

func (s *MemoryStore) SaveContacts(ctx context.Context, willID string, contacts []model.Contact) error {
	return s.update(ctx, willID, func(w *Will) {
		w.Contacts = append([]model.Contact(nil), contacts...)
	})
}

func (s *MemoryStore) SaveTranscript(ctx context.Context, willID string, transcript []model.Message, facts model.Facts) error {
	return s.update(ctx, willID, func(w *Will) {
		w.Transcript = append([]model.Message(nil), transcript...)
		w.Facts = facts.Clone()
	})
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*Will, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := s.wills.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	w := v.(Will).clone()
	return &w, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Will, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Will
	for _, item := range s.wills.Items() {
		out = append(out, item.Object.(Will).clone())
	}
	sortByUpdated(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.wills.Flush()
	return nil
}

func (s *MemoryStore) update(ctx context.Context, id string, fn func(*Will)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.wills.Get(id)
	if !ok {
		return ErrNotFound
	}
	w := v.(Will).clone()
	fn(&w)
	w.UpdatedAt = s.now()
	s.wills.Set(id, w, gocache.NoExpiration)
	return nil
}

func sortByUpdated(wills []Will) {
	sort.SliceStable(wills, func(i, j int) bool {
		if wills[i].UpdatedAt.Equal(wills[j].UpdatedAt) {
			return wills[i].ID < wills[j].ID
		}
		return wills[i].UpdatedAt.After(wills[j].UpdatedAt)
	})
}
