// Package reload drives rule reloads from an out-of-band trigger.
//
// A Controller owns one control goroutine. Signals (SIGHUP by default),
// explicit Trigger calls and, optionally, changes to the rules file's
// modification time all feed one buffered channel; the goroutine drains it
// and calls the target's Reload. Triggers that arrive while a reload is
// running collapse into a single follow-up reload.
package reload

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Reloader rebuilds its state from its source.
type Reloader interface {
	Reload() error
}

// Controller serializes reloads onto one goroutine.
type Controller struct {
	target   Reloader
	trigger  chan struct{}
	interval time.Duration
	path     string
	onReload func(error)
	logger   *slog.Logger

	mu      sync.Mutex
	modTime time.Time
	size    int64
}

// Option configures a Controller.
type Option func(*Controller)

// WithPoll enables polling path every interval and reloading when its
// modification time or size changes. An interval of 0 disables polling.
func WithPoll(path string, interval time.Duration) Option {
	return func(c *Controller) {
		c.path = path
		c.interval = interval
	}
}

// WithOnReload registers a callback run after every reload with its result.
func WithOnReload(fn func(error)) Option {
	return func(c *Controller) {
		c.onReload = fn
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a controller for target.
func New(target Reloader, opts ...Option) *Controller {
	c := &Controller{
		target:  target,
		trigger: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "reload")
	return c
}

// Trigger requests a reload without blocking.
func (c *Controller) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Notify forwards the given signals (SIGHUP when none) to Trigger until
// the returned stop function is called.
func (c *Controller) Notify(sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGHUP}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				c.logger.Info("reload requested", "signal", sig.String())
				c.Trigger()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// Run processes triggers until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Debug("reload controller started", "poll", c.interval, "path", c.path)

	var tick <-chan time.Time
	if c.interval > 0 && c.path != "" {
		c.changed()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("reload controller stopping")
			return ctx.Err()
		case <-c.trigger:
			c.reload()
		case <-tick:
			if c.changed() {
				c.logger.Info("rules file changed", "path", c.path)
				c.reload()
			}
		}
	}
}

func (c *Controller) reload() {
	err := c.target.Reload()
	if err != nil {
		c.logger.Warn("reload failed", "error", err)
	}
	if c.onReload != nil {
		c.onReload(err)
	}
}

// changed records the file's current stat and reports whether it differs
// from the previous one. A missing file counts as a zero stat.
func (c *Controller) changed() bool {
	var mod time.Time
	var size int64
	if info, err := os.Stat(c.path); err == nil {
		mod, size = info.ModTime(), info.Size()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	diff := !mod.Equal(c.modTime) || size != c.size
	c.modTime, c.size = mod, size
	return diff
}
