package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type mockResult struct {
	err error
}

func (r *mockResult) GetError() error {
	return r.err
}

type mockJob struct {
	duration  time.Duration
	shouldErr bool
	executed  *int32
}

func (j *mockJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &mockResult{err: ctx.Err()}
		}
	}
	if j.shouldErr {
		return &mockResult{err: errors.New("job error")}
	}
	return &mockResult{}
}

func TestNewPool(t *testing.T) {
	if p := NewPool(5); p.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p.workers)
	}
	if p := NewPool(0); p.workers != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p.workers)
	}
}

func TestPool_CollectsAllResults(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	var executed int32
	go func() {
		for i := 0; i < 8; i++ {
			pool.Submit(&mockJob{executed: &executed, shouldErr: i%5 == 0})
		}
		pool.Close()
	}()

	var results []Result
	for r := range pool.Results() {
		results = append(results, r)
	}
	if len(results) != 8 {
		t.Errorf("expected 8 results, got %d", len(results))
	}
	if atomic.LoadInt32(&executed) != 8 {
		t.Errorf("expected 8 executed jobs, got %d", executed)
	}

	failed := 0
	for _, r := range results {
		if r.GetError() != nil {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("expected 2 failed jobs, got %d", failed)
	}
}

func TestPool_StreamingResults(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	received := make(chan int, 1)
	go func() {
		n := 0
		for range pool.Results() {
			n++
		}
		received <- n
	}()

	for i := 0; i < 5; i++ {
		pool.Submit(&mockJob{})
	}
	pool.Close()

	select {
	case n := <-received:
		if n != 5 {
			t.Errorf("expected 5 streamed results, got %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("results channel was not closed")
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	pool.Shutdown()

	done := make(chan bool, 1)
	go func() {
		done <- pool.Submit(&mockJob{})
	}()

	select {
	case accepted := <-done:
		if accepted {
			t.Error("expected submit after shutdown to be rejected")
		}
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ShutdownCancelsRunningJobs(t *testing.T) {
	pool := NewPool(1)
	pool.Start()

	var executed int32
	pool.Submit(&mockJob{duration: 5 * time.Second, executed: &executed})

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&executed) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	start := time.Now()
	pool.Shutdown()
	if time.Since(start) > time.Second {
		t.Error("expected shutdown to cancel the running job")
	}
}
