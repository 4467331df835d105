package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsTasks(t *testing.T) {
	p := NewPool(Config{Workers: 3, QueueSize: 10})
	p.Start(context.Background())

	var done atomic.Int32
	for range 10 {
		if err := p.Submit(func(ctx context.Context) error {
			done.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	p.Stop()
	if got := done.Load(); got != 10 {
		t.Errorf("ran %d tasks, want 10", got)
	}
}

func TestPoolQueueFull(t *testing.T) {
	p := NewPool(Config{Workers: 1, QueueSize: 1})

	// not started, so nothing drains the queue
	if err := p.Submit(func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if err := p.Submit(func(ctx context.Context) error { return nil }); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Submit: got %v, want ErrQueueFull", err)
	}

	p.Start(context.Background())
	p.Stop()

	if err := p.Submit(func(ctx context.Context) error { return nil }); !errors.Is(err, ErrStopped) {
		t.Errorf("Submit after Stop: got %v, want ErrStopped", err)
	}
	p.Stop()
}

func TestPoolTaskTimeout(t *testing.T) {
	p := NewPool(Config{Workers: 1, Timeout: 20 * time.Millisecond})
	p.Start(context.Background())

	result := make(chan error, 1)
	if err := p.Submit(func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case err := <-result:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("got %v, want DeadlineExceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task was not cancelled")
	}
	p.Stop()
}

func TestPoolSurvivesPanic(t *testing.T) {
	p := NewPool(Config{Workers: 1})
	p.Start(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	_ = p.Submit(func(ctx context.Context) error { panic("boom") })
	_ = p.Submit(func(ctx context.Context) error {
		wg.Done()
		return nil
	})

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not recover from a panic")
	}
	p.Stop()
}

func TestPoolParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(Config{Workers: 1})
	p.Start(ctx)

	started := make(chan struct{})
	result := make(chan error, 1)
	_ = p.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		result <- ctx.Err()
		return nil
	})

	<-started
	cancel()

	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task ignored parent cancellation")
	}
	p.Stop()
}
