package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/testament/internal/model"
)

// ErrSaverClosed is recorded for saves enqueued after Close
var ErrSaverClosed = errors.New("saver closed")

// SaveFunc performs one persistence call
type SaveFunc func(ctx context.Context) error

// SaveResult is the outcome of one coalesced save
type SaveResult struct {
	Key      string
	Attempts int
	Err      error
}

// GetError returns the error from the save
func (r *SaveResult) GetError() error {
	return r.Err
}

// Saver runs persistence calls in the background so extraction and
// rendering never wait on I/O. Saves are coalesced per key (only the
// latest queued call for a key runs), serialized per key, rate limited
// per limiter key and retried with backoff. Failures are kept until
// Drain surfaces them, and reported as they happen to the OnFailure
// handler when one is set.
type Saver struct {
	pool       *Pool
	limiter    *Limiter
	maxRetries int
	debounce   time.Duration
	log        *slog.Logger

	// Injectable for tests
	sleep   func(ctx context.Context, d time.Duration) error
	backoff func(attempt int) time.Duration

	mu        sync.Mutex
	onFailure func(key string, err error)
	pending   map[string]*saveJob
	keyLocks map[string]*sync.Mutex
	failures map[string]error
	inflight int
	idle     chan struct{} // Closed when inflight drops to zero
	closed   bool
	done     chan struct{}
}

type saveJob struct {
	saver    *Saver
	key      string
	limitKey string
	fn       SaveFunc
}

// NewSaver creates and starts a saver
func NewSaver(cfg model.SaverConfig, log *slog.Logger) *Saver {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	s := &Saver{
		pool:       NewPool(cfg.Workers),
		limiter:    NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		maxRetries: cfg.MaxRetries,
		debounce:   cfg.Interval,
		log:        log,
		sleep:      sleepContext,
		backoff:    Backoff,
		pending:    make(map[string]*saveJob),
		keyLocks:   make(map[string]*sync.Mutex),
		failures:   make(map[string]error),
		idle:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	close(s.idle)

	s.pool.Start()
	go s.collect()
	return s
}

// OnFailure sets fn to be called each time a save is abandoned. It runs
// on the saver's collector goroutine with no saver lock held, so it may
// take the caller's own locks but must not wait on Drain or Close.
func (s *Saver) OnFailure(fn func(key string, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFailure = fn
}

// Enqueue schedules fn under key. If a save for key is queued but not yet
// started, fn replaces it. Enqueue never blocks on I/O.
func (s *Saver) Enqueue(key, limitKey string, fn SaveFunc) {
	s.mu.Lock()
	if s.closed {
		s.failures[key] = ErrSaverClosed
		s.mu.Unlock()
		return
	}
	if job, ok := s.pending[key]; ok {
		job.fn = fn
		s.mu.Unlock()
		return
	}

	job := &saveJob{saver: s, key: key, limitKey: limitKey, fn: fn}
	s.pending[key] = job
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
	s.mu.Unlock()

	go func() {
		if !s.pool.Submit(job) {
			s.finish(&SaveResult{Key: key, Err: ErrSaverClosed})
		}
	}()
}

// Drain waits for every queued save to finish and returns the failures
// recorded since the last Drain, joined in key order. It gives up when
// ctx is done; the saves keep running in that case.
func (s *Saver) Drain(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.inflight == 0 {
			err := s.takeFailures()
			s.mu.Unlock()
			return err
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return fmt.Errorf("drain saves: %w", ctx.Err())
		}
	}
}

// Close drains outstanding saves and stops the workers
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.Drain(ctx)
	if err != nil && ctx.Err() != nil {
		s.pool.Shutdown()
		return err
	}
	s.pool.Close()
	<-s.done
	return err
}

// Execute runs the latest save queued for the job's key
func (j *saveJob) Execute(ctx context.Context) Result {
	s := j.saver

	if s.debounce > 0 {
		if err := s.sleep(ctx, s.debounce); err != nil {
			return &SaveResult{Key: j.key, Err: err}
		}
	}

	lock := s.keyLock(j.key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	fn := j.fn
	if s.pending[j.key] == j {
		delete(s.pending, j.key)
	}
	s.mu.Unlock()

	if err := s.limiter.Wait(ctx, j.limitKey); err != nil {
		return &SaveResult{Key: j.key, Err: err}
	}

	attempts, err := s.run(ctx, j.key, fn)
	return &SaveResult{Key: j.key, Attempts: attempts, Err: err}
}

func (s *Saver) run(ctx context.Context, key string, fn SaveFunc) (int, error) {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			if serr := s.sleep(ctx, s.backoff(attempt-1)); serr != nil {
				return attempt, serr
			}
		}
		if err = fn(ctx); err == nil {
			return attempt + 1, nil
		}
		if !IsRetryable(err) {
			return attempt + 1, err
		}
		s.log.Warn("save failed", "key", key, "attempt", attempt+1, "error", err)
	}
	return s.maxRetries + 1, err
}

func (s *Saver) collect() {
	for r := range s.pool.Results() {
		s.finish(r.(*SaveResult))
	}
	close(s.done)
}

func (s *Saver) finish(res *SaveResult) {
	s.mu.Lock()
	notify := s.onFailure
	if res.Err != nil {
		s.failures[res.Key] = res.Err
		s.log.Error("save abandoned", "key", res.Key, "attempts", res.Attempts, "error", res.Err)
	} else {
		delete(s.failures, res.Key)
		s.log.Debug("saved", "key", res.Key, "attempts", res.Attempts)
		notify = nil
	}

	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
	s.mu.Unlock()

	if notify != nil {
		notify(res.Key, res.Err)
	}
}

func (s *Saver) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.keyLocks[key] = lock
	}
	return lock
}

// takeFailures must be called with s.mu held
func (s *Saver) takeFailures() error {
	if len(s.failures) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s.failures))
	for k := range s.failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		errs = append(errs, fmt.Errorf("%s: %w", k, s.failures[k]))
	}
	s.failures = make(map[string]error)
	return errors.Join(errs...)
}
