package reload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

var quiet = slog.New(slog.DiscardHandler)

type countingReloader struct {
	calls atomic.Int32
	err   error
	block chan struct{}
}

func (r *countingReloader) Reload() error {
	r.calls.Add(1)
	if r.block != nil {
		<-r.block
	}
	return r.err
}

func waitFor(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
		return nil
	}
}

func TestController_Trigger(t *testing.T) {
	target := &countingReloader{err: fmt.Errorf("rules unavailable")}
	results := make(chan error, 4)
	c := New(target, WithOnReload(func(err error) { results <- err }), WithLogger(quiet))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- c.Run(ctx) }()

	c.Trigger()
	if err := waitFor(t, results); err != target.err {
		t.Errorf("onReload got %v, want %v", err, target.err)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
	if target.calls.Load() != 1 {
		t.Errorf("Reload called %d times, want 1", target.calls.Load())
	}
}

func TestController_TriggersCoalesce(t *testing.T) {
	target := &countingReloader{block: make(chan struct{})}
	results := make(chan error, 8)
	c := New(target, WithOnReload(func(err error) { results <- err }), WithLogger(quiet))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Trigger()
	for target.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	// The first reload is running; these collapse into one more.
	for i := 0; i < 5; i++ {
		c.Trigger()
	}
	close(target.block)

	waitFor(t, results)
	waitFor(t, results)
	select {
	case <-results:
		t.Error("queued triggers should coalesce into one reload")
	case <-time.After(50 * time.Millisecond):
	}
	if target.calls.Load() != 2 {
		t.Errorf("Reload called %d times, want 2", target.calls.Load())
	}
}

func TestController_Notify(t *testing.T) {
	target := &countingReloader{}
	results := make(chan error, 1)
	c := New(target, WithOnReload(func(err error) { results <- err }), WithLogger(quiet))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	stop := c.Notify(syscall.SIGUSR1)
	defer stop()

	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if err := waitFor(t, results); err != nil {
		t.Errorf("reload error: %v", err)
	}
	stop()
	stop()
}

func TestController_Poll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.conf")
	if err := os.WriteFile(path, []byte("*\n"), 0644); err != nil {
		t.Fatal(err)
	}

	target := &countingReloader{}
	results := make(chan error, 4)
	c := New(target,
		WithPoll(path, 10*time.Millisecond),
		WithOnReload(func(err error) { results <- err }),
		WithLogger(quiet),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	// Let the controller record the initial stat before changing the file.
	time.Sleep(30 * time.Millisecond)
	if err := os.WriteFile(path, []byte("*.example.com\n10.0.0.0/8\n"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, results)

	if target.calls.Load() < 1 {
		t.Error("file change should trigger a reload")
	}
}

func TestController_ChangedDetectsRemoval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.conf")
	os.WriteFile(path, []byte("*\n"), 0644)

	c := New(&countingReloader{}, WithPoll(path, time.Second), WithLogger(quiet))
	if !c.changed() {
		t.Error("first stat should differ from the zero value")
	}
	if c.changed() {
		t.Error("unchanged file reported as changed")
	}
	os.Remove(path)
	if !c.changed() {
		t.Error("removed file should count as a change")
	}
}
