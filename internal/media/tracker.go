package media

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTooLarge = errors.New("attachment too large")
	ErrEmpty    = errors.New("attachment is empty")
	ErrNotFound = errors.New("attachment not found")
)

// Attachment is one supporting document. Only its description is kept.
type Attachment struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	AttachedAt time.Time `json:"attached_at"`
	Summary
}

// Recording describes a finished video statement
type Recording struct {
	Duration   time.Duration `json:"duration"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Tracker records attachments and the video statement for one will.
// It reports counts to the stage controller; binaries are never stored.
type Tracker struct {
	mu          sync.Mutex
	maxBytes    int64
	attachments []Attachment
	recording   *Recording
	now         func() time.Time
}

// NewTracker creates a tracker. A non-positive maxBytes disables the size limit.
func NewTracker(maxBytes int64) *Tracker {
	return &Tracker{maxBytes: maxBytes, now: time.Now}
}

// Attach reads and inspects a document
func (t *Tracker) Attach(name string, r io.Reader) (Attachment, error) {
	if _, err := KindForFile(name); err != nil {
		return Attachment{}, err
	}

	src := r
	if t.maxBytes > 0 {
		src = io.LimitReader(r, t.maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return Attachment{}, fmt.Errorf("read %s: %w", name, err)
	}
	if t.maxBytes > 0 && int64(len(data)) > t.maxBytes {
		return Attachment{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, name, t.maxBytes)
	}
	if len(data) == 0 {
		return Attachment{}, fmt.Errorf("%w: %s", ErrEmpty, name)
	}

	summary, err := Inspect(name, data)
	if err != nil {
		return Attachment{}, err
	}

	a := Attachment{
		ID:         uuid.NewString(),
		Name:       filepath.Base(name),
		Size:       int64(len(data)),
		AttachedAt: t.now(),
		Summary:    summary,
	}

	t.mu.Lock()
	t.attachments = append(t.attachments, a)
	t.mu.Unlock()
	return a, nil
}

// Remove detaches a document by ID
func (t *Tracker) Remove(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, a := range t.attachments {
		if a.ID == id {
			t.attachments = append(t.attachments[:i], t.attachments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Attachments returns a copy of the attached documents
func (t *Tracker) Attachments() []Attachment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Attachment(nil), t.attachments...)
}

// Count returns the number of attached documents
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.attachments)
}

// Record marks the video statement as produced
func (t *Tracker) Record(d time.Duration) Recording {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := Recording{Duration: d, RecordedAt: t.now()}
	t.recording = &rec
	return rec
}

// Recorded reports whether a video statement exists
func (t *Tracker) Recorded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recording != nil
}

// Recording returns the video statement, if any
func (t *Tracker) Recording() (Recording, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.recording == nil {
		return Recording{}, false
	}
	return *t.recording, true
}
