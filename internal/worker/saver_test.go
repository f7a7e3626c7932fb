package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/testament/internal/model"
)

func newTestSaver(maxRetries int) *Saver {
	s := NewSaver(model.SaverConfig{Workers: 2, MaxRetries: maxRetries}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return s
}

func drain(t *testing.T, s *Saver) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Drain(ctx)
}

func TestSaver_CoalescesQueuedSaves(t *testing.T) {
	s := newTestSaver(0)
	defer func() { _ = s.Close(context.Background()) }()

	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var calls []string

	record := func(name string) SaveFunc {
		return func(ctx context.Context) error {
			mu.Lock()
			calls = append(calls, name)
			mu.Unlock()
			return nil
		}
	}

	s.Enqueue("draft", "will-1", func(ctx context.Context) error {
		close(started)
		<-release
		return record("first")(ctx)
	})
	<-started

	s.Enqueue("draft", "will-1", record("second"))
	s.Enqueue("draft", "will-1", record("third"))
	close(release)

	if err := drain(t, s); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(calls, ",") != "first,third" {
		t.Errorf("expected queued save to be replaced by the latest, got %v", calls)
	}
}

func TestSaver_RetriesTransientFailures(t *testing.T) {
	s := newTestSaver(3)
	defer func() { _ = s.Close(context.Background()) }()

	var attempts int32
	s.Enqueue("contacts", "will-1", func(ctx context.Context) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	if err := drain(t, s); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestSaver_SurfacesExhaustedRetries(t *testing.T) {
	s := newTestSaver(2)
	defer func() { _ = s.Close(context.Background()) }()

	var attempts int32
	s.Enqueue("contacts", "will-1", func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("store unavailable")
	})

	err := drain(t, s)
	if err == nil {
		t.Fatal("expected failure to be surfaced")
	}
	if !strings.Contains(err.Error(), "contacts") {
		t.Errorf("expected error to name the save key, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}

	if err := drain(t, s); err != nil {
		t.Errorf("expected failures to be reported once, got %v", err)
	}
}

func TestSaver_PermanentErrorsAreNotRetried(t *testing.T) {
	s := newTestSaver(5)
	defer func() { _ = s.Close(context.Background()) }()

	var attempts int32
	s.Enqueue("draft", "will-1", func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return Permanent(errors.New("invalid draft"))
	})

	if err := drain(t, s); err == nil {
		t.Fatal("expected permanent failure to be surfaced")
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestSaver_LaterSuccessClearsFailure(t *testing.T) {
	s := newTestSaver(0)
	defer func() { _ = s.Close(context.Background()) }()

	s.Enqueue("draft", "will-1", func(ctx context.Context) error { return errors.New("boom") })
	waitIdle(t, s)
	s.Enqueue("draft", "will-1", func(ctx context.Context) error { return nil })

	if err := drain(t, s); err != nil {
		t.Errorf("expected later success to supersede failure, got %v", err)
	}
}

func TestSaver_OnFailureReportsWithoutDrain(t *testing.T) {
	s := newTestSaver(1)
	defer func() { _ = s.Close(context.Background()) }()

	type failure struct {
		key string
		err error
	}
	reported := make(chan failure, 4)
	s.OnFailure(func(key string, err error) { reported <- failure{key, err} })

	s.Enqueue("transcript", "will-1", func(ctx context.Context) error { return nil })
	s.Enqueue("draft", "will-1", func(ctx context.Context) error { return errors.New("database unavailable") })

	select {
	case f := <-reported:
		if f.key != "draft" || f.err == nil || !strings.Contains(f.err.Error(), "database unavailable") {
			t.Errorf("expected the draft failure, got %s: %v", f.key, f.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected failure to be reported before any Drain")
	}

	waitIdle(t, s)
	select {
	case f := <-reported:
		t.Errorf("expected successful saves not to be reported, got %s: %v", f.key, f.err)
	default:
	}

	// The failure is still kept for the next Drain.
	if err := drain(t, s); err == nil {
		t.Error("expected drain to return the failure as well")
	}
}

func TestSaver_EnqueueAfterClose(t *testing.T) {
	s := newTestSaver(0)
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("expected clean close, got %v", err)
	}

	s.Enqueue("draft", "will-1", func(ctx context.Context) error { return nil })
	if err := drain(t, s); !errors.Is(err, ErrSaverClosed) {
		t.Errorf("expected ErrSaverClosed, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	if IsRetryable(context.Canceled) {
		t.Error("cancellation should not be retryable")
	}
	if IsRetryable(Permanent(errors.New("bad"))) {
		t.Error("permanent errors should not be retryable")
	}
	if !IsRetryable(errors.New("timeout")) {
		t.Error("plain errors should be retryable")
	}
}

func TestBackoff(t *testing.T) {
	for attempt := 0; attempt < 8; attempt++ {
		d := Backoff(attempt)
		if d < time.Second || d > 45*time.Second {
			t.Errorf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}

// waitIdle waits for in-flight saves without consuming failures
func waitIdle(t *testing.T, s *Saver) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := s.inflight
		s.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("saves did not finish")
}
